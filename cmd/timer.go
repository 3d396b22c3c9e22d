package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyx/internal/server"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/timer"
)

// TimerStatus prints the persisted timer state.
func (r *Runner) TimerStatus(ctx context.Context, cmd *cli.Command) error {
	t, err := r.loadTimer()
	if err != nil {
		return err
	}
	state := t.State()

	if cmd.Bool("json") {
		return r.writeJSON(server.TimerResponse{
			State:     state,
			Phase:     state.Phase(),
			Clock:     shared.FormatClock(state.RemainingSeconds),
			Progress:  state.Progress(),
			Timestamp: r.now(),
		}, cmd.Bool("pretty"))
	}

	r.writeStatus(state)
	return nil
}

func (r *Runner) writeStatus(state timer.State) {
	status := "idle"
	if state.IsActive {
		status = "running"
	}

	r.writePlainHeader("Study Timer")
	r.writePlain("Phase:      %s (%s)\n", state.Phase(), status)
	r.writePlain("Remaining:  %s (%.0f%% elapsed)\n", shared.FormatClock(state.RemainingSeconds), state.Progress()*100)
	r.writePlain("Sessions:   %d\n", state.SessionCount)
	r.writePlain("Studied:    %s\n", shared.FormatMinutes(state.TotalStudyMinutes))
	if state.LastStudyDate != nil {
		r.writePlain("Streak:     %d day(s), last studied %s\n", state.StudyStreakDays, state.LastStudyDate)
	} else {
		r.writePlain("Streak:     %d day(s)\n", state.StudyStreakDays)
	}
}

// TimerStart runs the timer in the foreground until the context is cancelled or the requested
// number of phases has completed. The timer is paused before returning so the remaining time is
// persisted.
func (r *Runner) TimerStart(ctx context.Context, cmd *cli.Command) error {
	t, err := r.loadTimer()
	if err != nil {
		return err
	}

	limit := cmd.Int("phases")
	quiet := cmd.Bool("quiet")
	events := t.Subscribe(64)
	defer t.Pause()

	t.Start()
	state := t.State()
	r.logger.Info("timer started", "phase", state.Phase(), "remaining", state.RemainingSeconds)
	r.writePlain("▶ %s %s\n", state.Phase(), shared.FormatClock(state.RemainingSeconds))

	completed := 0
	for {
		select {
		case <-ctx.Done():
			t.Pause()
			state := t.State()
			r.writePlain("\n⏸ paused at %s (%s)\n", shared.FormatClock(state.RemainingSeconds), state.Phase())
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			switch ev.Type {
			case timer.EventTick:
				if !quiet {
					r.writePlain("\r%s %s", ev.State.Phase(), shared.FormatClock(ev.State.RemainingSeconds))
				}
			case timer.EventPhaseComplete:
				completed++
				r.writeCompletion(ev)
				if !ev.State.IsActive {
					r.writePlain("⏸ %s ready, run `studyx timer start` to continue\n", ev.State.Phase())
					return nil
				}
				if limit > 0 && completed >= limit {
					t.Pause()
					return nil
				}
			}
		}
	}
}

func (r *Runner) writeCompletion(ev timer.Event) {
	c := ev.Completion
	if c == nil {
		return
	}

	if c.Phase == timer.PhaseFocus {
		r.writePlain("\n✓ focus complete (+%dm, %d session(s), streak %d)\n",
			c.Minutes, ev.State.SessionCount, ev.State.StudyStreakDays)
	} else {
		r.writePlain("\n✓ break over\n")
	}
	if ev.State.IsActive {
		r.writePlain("▶ %s %s\n", ev.State.Phase(), shared.FormatClock(ev.State.RemainingSeconds))
	}
}

// TimerReset returns the timer to a full focus countdown.
func (r *Runner) TimerReset(ctx context.Context, cmd *cli.Command) error {
	t, err := r.loadTimer()
	if err != nil {
		return err
	}

	t.Reset()
	r.logger.Debug("timer reset")
	return r.writePlain("✓ Timer reset to %s (focus)\n", shared.FormatClock(t.State().RemainingSeconds))
}

// TimerAdjust changes the remaining time of the paused timer.
func (r *Runner) TimerAdjust(ctx context.Context, cmd *cli.Command) error {
	t, err := r.loadTimer()
	if err != nil {
		return err
	}

	minutes := cmd.Int("minutes")
	if minutes == 0 {
		return fmt.Errorf("%w: --minutes must not be zero", shared.ErrInvalidFlag)
	}

	before := t.State().RemainingSeconds
	t.AdjustDuration(minutes)
	after := t.State().RemainingSeconds
	if after == before {
		return r.writePlain("Remaining time unchanged at %s (minimum is %s)\n",
			shared.FormatClock(after), shared.FormatClock(timer.MinDurationSeconds))
	}
	return r.writePlain("✓ Remaining time %s → %s\n", shared.FormatClock(before), shared.FormatClock(after))
}
