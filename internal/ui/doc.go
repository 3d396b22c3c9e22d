// Package ui implements the interactive study timer using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [TimerView] : the countdown, phase, progress bar and counters
//  2. [StatsView] : focus minutes for the last seven days
//  3. [PlaylistView] : the user's Spotify playlists, enter starts playback
//  4. [RecommendView] : focus recommendations, enter plays the track
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving messages via the Msg union
// type. Timer events flow through a channel from [timer.Timer.Subscribe], so the screen follows
// ticks driven by the timer's own scheduler.
//
// The Spotify views are only available when a music service is configured. Keyboard help is rendered
// with charmbracelet/bubbles/help.
package ui
