package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/services"
	"github.com/desertthunder/studyx/internal/timer"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTimerEvent MsgKind = iota
	MsgStatsFetched
	MsgPlaylistsFetched
	MsgTracksFetched
	MsgPlayback
)

type statsResult struct {
	stats models.Stats
	err   error
}

type playlistsResult struct {
	playlists []services.Playlist
	err       error
}

type tracksResult struct {
	tracks []services.Track
	err    error
}

type playbackResult struct {
	action string
	err    error
}

// timerEventMsg is the constructor for [MsgTimerEvent]
func timerEventMsg(ev timer.Event) Msg {
	return Msg{kind: MsgTimerEvent, data: ev}
}

// statsFetchedMsg is the constructor for [MsgStatsFetched]
func statsFetchedMsg(stats models.Stats, err error) Msg {
	return Msg{kind: MsgStatsFetched, data: statsResult{stats, err}}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []services.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsResult{playlists, err}}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(tracks []services.Track, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksResult{tracks, err}}
}

// playbackMsg is the constructor for [MsgPlayback]
func playbackMsg(action string, err error) Msg {
	return Msg{kind: MsgPlayback, data: playbackResult{action, err}}
}
