package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/ui"
)

// DefaultTUILog is where the TUI logs when [log] file is unset.
const DefaultTUILog = "./tmp/studyx-tui.log"

// TUI launches the interactive timer. The Spotify panel is available when credentials are configured.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	path := r.config.Log.File
	if path == "" {
		path = DefaultTUILog
	}
	fileLogger, err := shared.NewFileLogger(path)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.config.Log.Level)
	r.SetLogger(fileLogger)

	t, err := r.loadTimer()
	if err != nil {
		return err
	}
	defer t.Pause()

	model := ui.NewModel(ctx, t, r.sessions, r.spotify)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
