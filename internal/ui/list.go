package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/studyx/internal/services"
	"github.com/desertthunder/studyx/internal/shared"
)

// playable is a list entry that can be handed to the player.
type playable interface {
	list.DefaultItem
	playOptions() services.PlayOptions
	label() string
}

var (
	_ playable = playlistItem{}
	_ playable = trackItem{}
)

type playlistItem struct {
	playlist services.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name + " " + i.playlist.Owner }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) label() string       { return i.playlist.Name }

func (i playlistItem) Description() string {
	parts := []string{fmt.Sprintf("%d tracks", i.playlist.TrackCount)}
	if i.playlist.Owner != "" {
		parts = append(parts, "by "+i.playlist.Owner)
	}
	if i.playlist.Description != "" {
		parts = append(parts, i.playlist.Description)
	}
	return strings.Join(parts, " • ")
}

func (i playlistItem) playOptions() services.PlayOptions {
	return services.PlayOptions{ContextURI: i.playlist.URI}
}

type trackItem struct {
	track services.Track
}

func (i trackItem) FilterValue() string { return i.track.Artist + " " + i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) label() string       { return i.track.Artist + " - " + i.track.Title }

// Description shows the artist, the album when known and the track length.
func (i trackItem) Description() string {
	parts := []string{i.track.Artist}
	if i.track.Album != "" {
		parts = append(parts, i.track.Album)
	}
	if i.track.Duration > 0 {
		parts = append(parts, shared.FormatClock(i.track.Duration))
	}
	return strings.Join(parts, " • ")
}

func (i trackItem) playOptions() services.PlayOptions {
	return services.PlayOptions{URIs: []string{i.track.URI}}
}

// newPlayableList builds a titled list over entries.
func newPlayableList[T playable](title string, entries []T, width, height int) list.Model {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = e
	}
	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = title
	return l
}
