package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyx/internal/formatter"
	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/tasks"
	"github.com/desertthunder/studyx/internal/timer"
)

// Stats prints daily focus totals for the last --days days along with the timer's counters.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	days := cmd.Int("days")
	if days < 1 || days > 366 {
		return fmt.Errorf("%w: --days must be between 1 and 366", shared.ErrInvalidFlag)
	}

	stats, err := r.stats(days)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Study Stats (last %d days)", days))
	return r.writePlain("%s", formatter.RenderStats(stats))
}

func (r *Runner) stats(days int) (models.Stats, error) {
	t, err := r.loadTimer()
	if err != nil {
		return models.Stats{}, err
	}

	stats, err := r.sessions.Stats(days, r.today(), t.State())
	if err != nil {
		return models.Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// HistoryList prints recorded sessions, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}

	if phase := strings.ToLower(cmd.String("phase")); phase != "" {
		switch timer.Phase(phase) {
		case timer.PhaseFocus, timer.PhaseBreak:
			criteria["phase"] = timer.Phase(phase)
		default:
			return fmt.Errorf("%w: --phase must be focus or break, got %q", shared.ErrInvalidFlag, phase)
		}
	}

	if since := cmd.String("since"); since != "" {
		d, err := timer.ParseDate(since)
		if err != nil {
			return fmt.Errorf("%w: --since: %v", shared.ErrInvalidFlag, err)
		}
		criteria["since"] = d
	}

	sessions, err := r.sessions.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if cmd.Bool("json") {
		views := make([]models.SessionView, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, s.View())
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(sessions) == 0 {
		return r.writePlain("No sessions recorded yet. Run `studyx timer start` to begin.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Study History (%d)", len(sessions)))
	for _, s := range sessions {
		r.writePlain("#%-4d %s  %-5s  %4s  %s\n",
			s.Sequence(), s.StudyDate(), s.Phase(), shared.FormatMinutes(s.Minutes()),
			s.CompletedAt().Local().Format("15:04"))
	}
	return nil
}

// HistoryExport writes the full history and a stats summary to a single file.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	days := cmd.Int("days")
	if days < 1 || days > 366 {
		return fmt.Errorf("%w: --days must be between 1 and 366", shared.ErrInvalidFlag)
	}

	stats, err := r.stats(days)
	if err != nil {
		return err
	}

	sessions, err := r.sessions.List(nil)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	r.logger.Info("exporting history", "format", format, "sessions", len(sessions))
	path, err := formatter.WriteExport(format, formatter.NewHistoryExport(sessions, stats, r.now()), cmd.String("output"))
	if err != nil {
		return err
	}

	return r.writePlain("✓ Exported %d session(s) to %s\n", len(sessions), path)
}

// HistoryArchive exports the history as one file per month plus a manifest.
func (r *Runner) HistoryArchive(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.archiveEngine()
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.LoadSessions:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.GroupMonths:
				r.writePlain("🗂  %s\n\n", update.Message)
			case tasks.WriteMonth:
				r.writePlain("   %s\n", update.Message)
			case tasks.WriteManifest:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Archive(ctx, progressCh, tasks.ArchiveOpts{
		Format:     format,
		OutputDir:  cmd.String("output-dir"),
		NumWorkers: cmd.Int("workers"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Archive Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Months:    %d/%d written\n", result.Succeeded, result.TotalMonths)
	if result.Failed > 0 {
		r.writePlain("\nFailed months:\n")
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  ✗ %s: %s\n", res.Month, res.ErrorMessage)
			}
		}
	}
	return nil
}
