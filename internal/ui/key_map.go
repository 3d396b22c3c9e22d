package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle    key.Binding
	reset     key.Binding
	more      key.Binding
	less      key.Binding
	stats     key.Binding
	playlists key.Binding
	recommend key.Binding
	pause     key.Binding
	enter     key.Binding
	back      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "start/pause")),
		reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		more:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "1 min more")),
		less:      key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "1 min less")),
		stats:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stats")),
		playlists: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "playlists")),
		recommend: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus music")),
		pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause music")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.reset, k.more, k.less},
		{k.stats, k.playlists, k.recommend, k.pause},
		{k.enter, k.back, k.quit},
	}
}
