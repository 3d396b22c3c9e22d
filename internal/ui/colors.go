package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme names the colors the TUI draws with.
type Theme struct {
	Focus  lipgloss.Color // focus phase, titles and history bars
	Break  lipgloss.Color // break phase and status messages
	Alert  lipgloss.Color
	Streak lipgloss.Color
	Muted  lipgloss.Color
}

// DefaultTheme is the palette used when nothing else is configured.
var DefaultTheme = Theme{
	Focus:  "#7D56F4",
	Break:  "#04B575",
	Alert:  "#FF5F87",
	Streak: "#FFA500",
	Muted:  "#626262",
}

var styles = newPalette(DefaultTheme)

type palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	focus  lipgloss.Style
	rest   lipgloss.Style
	streak lipgloss.Style
	clock  lipgloss.Style
}

func newPalette(t Theme) *palette {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return &palette{
		title:  fg(t.Focus).Bold(true).MarginBottom(1),
		ok:     fg(t.Break).Bold(true),
		err:    fg(t.Alert).Bold(true),
		warn:   fg(t.Streak),
		help:   fg(t.Muted).Italic(true),
		focus:  fg(t.Focus).Bold(true),
		rest:   fg(t.Break).Bold(true),
		streak: fg(t.Streak).Bold(true),
		clock:  lipgloss.NewStyle().Bold(true).Border(lipgloss.RoundedBorder()).Padding(1, 4),
	}
}

// Phase returns the style for the focus or break phase.
func (p *palette) Phase(isBreak bool) lipgloss.Style {
	if isBreak {
		return p.rest
	}
	return p.focus
}
