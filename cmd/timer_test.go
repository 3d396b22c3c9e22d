package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/studyx/internal/repositories"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/timer"
)

func TestTimerCommands(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		t.Run("prints the default state", func(t *testing.T) {
			runner, output, _ := newTestRunner(t, RunnerOpts{})

			if err := run(runner, "timer", "status"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			for _, want := range []string{"focus (idle)", "25:00", "Sessions:   0", "Streak:     0 day(s)"} {
				if !strings.Contains(result, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, result)
				}
			}
		})

		t.Run("json output", func(t *testing.T) {
			runner, output, _ := newTestRunner(t, RunnerOpts{})

			if err := run(runner, "timer", "status", "--json", "--pretty=false"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var got map[string]any
			if err := json.Unmarshal(output.Bytes(), &got); err != nil {
				t.Fatalf("expected valid JSON, got %v: %s", err, output.String())
			}
			if got["remaining_seconds"] != float64(timer.FocusSeconds) {
				t.Errorf("expected remaining_seconds %d, got %v", timer.FocusSeconds, got["remaining_seconds"])
			}
			if got["phase"] != "focus" {
				t.Errorf("expected phase focus, got %v", got["phase"])
			}
			if got["clock"] != "25:00" {
				t.Errorf("expected clock 25:00, got %v", got["clock"])
			}
			if got["last_study_date"] != nil {
				t.Errorf("expected null last_study_date, got %v", got["last_study_date"])
			}
		})
	})

	t.Run("adjust", func(t *testing.T) {
		t.Run("subtracts minutes and floors at one minute", func(t *testing.T) {
			runner, output, _ := newTestRunner(t, RunnerOpts{})

			if err := run(runner, "timer", "adjust", "--minutes=-5"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := runner.timer.State().RemainingSeconds; got != 1200 {
				t.Fatalf("expected 1200 seconds, got %d", got)
			}
			if !strings.Contains(output.String(), "25:00 → 20:00") {
				t.Errorf("expected change in output, got %q", output.String())
			}

			if err := run(runner, "timer", "adjust", "--minutes=-30"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := runner.timer.State().RemainingSeconds; got != timer.MinDurationSeconds {
				t.Fatalf("expected floor of %d seconds, got %d", timer.MinDurationSeconds, got)
			}

			output.Reset()
			if err := run(runner, "timer", "adjust", "--minutes=-30"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "unchanged") {
				t.Errorf("expected unchanged notice, got %q", output.String())
			}
		})

		t.Run("rejects zero minutes", func(t *testing.T) {
			runner, _, _ := newTestRunner(t, RunnerOpts{})

			err := run(runner, "timer", "adjust", "--minutes=0")
			if !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("expected ErrInvalidFlag, got %v", err)
			}
		})

		t.Run("requires minutes", func(t *testing.T) {
			runner, _, _ := newTestRunner(t, RunnerOpts{})

			if err := run(runner, "timer", "adjust"); err == nil {
				t.Error("expected error for missing --minutes")
			}
		})
	})

	t.Run("reset", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, RunnerOpts{})

		if err := run(runner, "timer", "adjust", "--minutes=10"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := run(runner, "timer", "reset"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := runner.timer.State().RemainingSeconds; got != timer.FocusSeconds {
			t.Errorf("expected %d seconds, got %d", timer.FocusSeconds, got)
		}
		if !strings.Contains(output.String(), "reset to 25:00") {
			t.Errorf("expected reset message, got %q", output.String())
		}
	})

	t.Run("state persists across runners", func(t *testing.T) {
		first, _, _ := newTestRunner(t, RunnerOpts{})
		if err := run(first, "timer", "adjust", "--minutes=-10"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		second, _, _ := newTestRunner(t, RunnerOpts{DB: first.db})
		tm, err := second.loadTimer()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := tm.State().RemainingSeconds; got != 900 {
			t.Errorf("expected 900 seconds after reload, got %d", got)
		}
	})

	t.Run("start", func(t *testing.T) {
		t.Run("runs until the requested phases complete", func(t *testing.T) {
			runner, output, sched := newTestRunner(t, RunnerOpts{})

			// Three seconds left in the focus phase.
			kv := repositories.NewKVRepository(runner.db)
			if err := kv.Put(timer.DefaultNamespace, []byte(`{"remaining_seconds":3}`)); err != nil {
				t.Fatalf("failed to seed state: %v", err)
			}

			done := make(chan error, 1)
			go func() { done <- run(runner, "timer", "start", "--phases", "1", "--quiet") }()

			waitFor(t, func() bool { return sched.Registrations() == 1 })
			sched.Advance(3)

			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("timer start did not return after the phase completed")
			}

			state := runner.timer.State()
			if state.IsActive {
				t.Error("expected the timer to be paused on exit")
			}
			if !state.IsBreak || state.RemainingSeconds != timer.BreakSeconds {
				t.Errorf("expected a full break countdown, got break=%v remaining=%d", state.IsBreak, state.RemainingSeconds)
			}
			if state.SessionCount != 1 || state.TotalStudyMinutes != timer.FocusCreditMinutes {
				t.Errorf("expected one credited session, got %d sessions, %d minutes", state.SessionCount, state.TotalStudyMinutes)
			}
			if state.StudyStreakDays != 1 {
				t.Errorf("expected streak 1, got %d", state.StudyStreakDays)
			}

			sessions, err := runner.sessions.List(nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(sessions) != 1 || sessions[0].Phase() != timer.PhaseFocus {
				t.Fatalf("expected one recorded focus session, got %d", len(sessions))
			}
			if !strings.Contains(output.String(), "focus complete") {
				t.Errorf("expected completion message, got %q", output.String())
			}
			if sched.Registrations() != 0 {
				t.Error("expected no live tick registration after exit")
			}
		})

		t.Run("stops at the next phase with manual continue", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Timer.AutoContinue = false
			runner, output, sched := newTestRunner(t, RunnerOpts{Config: config})

			kv := repositories.NewKVRepository(runner.db)
			if err := kv.Put(timer.DefaultNamespace, []byte(`{"remaining_seconds":1}`)); err != nil {
				t.Fatalf("failed to seed state: %v", err)
			}

			done := make(chan error, 1)
			go func() { done <- run(runner, "timer", "start", "--quiet") }()

			waitFor(t, func() bool { return sched.Registrations() == 1 })
			sched.Advance(1)

			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("timer start did not return after the phase completed")
			}

			if !strings.Contains(output.String(), "break ready") {
				t.Errorf("expected ready message, got %q", output.String())
			}
			if runner.timer.State().IsActive {
				t.Error("expected the timer to be idle")
			}
		})
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
