package repositories

import (
	"bytes"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/timer"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

var (
	testDay = timer.NewDate(2025, time.May, 12)
	testAt  = time.Date(2025, time.May, 12, 10, 0, 0, 0, time.UTC)
)

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "study_sessions")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestInTx(t *testing.T) {
	db := setupTestDB(t)

	boom := errors.New("boom")
	err := inTx(db, func(tx *sql.Tx) error {
		if _, err := NextSequence(tx, "study_sessions"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	got, err := NextSequence(db, "study_sessions")
	if err != nil {
		t.Fatalf("NextSequence() error = %v", err)
	}
	if got != 1 {
		t.Errorf("expected rolled back increment, got sequence %d", got)
	}
}

func TestKVRepository(t *testing.T) {
	t.Run("Get missing", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))
		if _, err := repo.Get("timer-storage"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("Put and overwrite", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if err := repo.Put("timer-storage", []byte(`{"a":1}`)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := repo.Put("timer-storage", []byte(`{"a":2}`)); err != nil {
			t.Fatalf("second Put() error = %v", err)
		}

		got, err := repo.Get("timer-storage")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !bytes.Equal(got, []byte(`{"a":2}`)) {
			t.Errorf("expected overwritten value, got %s", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))
		_ = repo.Put("ns", []byte("x"))

		if err := repo.Delete("ns"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete("ns"); err != nil {
			t.Errorf("deleting a missing namespace should not fail: %v", err)
		}
		if _, err := repo.Get("ns"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("backs the timer store", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))
		store := timer.NewStore(repo, timer.DefaultNamespace)

		state := timer.DefaultState()
		state.SessionCount = 4
		if err := store.Save(state); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if loaded.SessionCount != 4 {
			t.Errorf("expected 4 sessions, got %d", loaded.SessionCount)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		session := models.NewSessionRecord(0, timer.PhaseFocus, 25, testDay, testAt)

		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		if session.ID() == "" {
			t.Error("session ID should be set after creation")
		}
		if session.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", session.Sequence())
		}
	})

	t.Run("Create rejects invalid records", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		session := models.NewSessionRecord(0, timer.PhaseBreak, 5, testDay, testAt)

		if err := repo.Create(session); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		session := models.NewSessionRecord(0, timer.PhaseFocus, 25, testDay, testAt)
		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		got, err := repo.Get(session.ID())
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if got.Phase() != timer.PhaseFocus || got.Minutes() != 25 || !got.StudyDate().Equal(testDay) {
			t.Errorf("unexpected session %+v", got.View())
		}
		if !got.CompletedAt().Equal(testAt) {
			t.Errorf("expected completion %v, got %v", testAt, got.CompletedAt())
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		session := models.NewSessionRecord(0, timer.PhaseFocus, 25, testDay, testAt)
		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		session.SetMinutes(20)
		if err := repo.Update(session); err != nil {
			t.Fatalf("failed to update session: %v", err)
		}

		got, _ := repo.Get(session.ID())
		if got.Minutes() != 20 {
			t.Errorf("expected 20 minutes, got %d", got.Minutes())
		}

		missing := models.NewSessionRecord(0, timer.PhaseFocus, 25, testDay, testAt)
		missing.SetID("nope")
		if err := repo.Update(missing); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		session := models.NewSessionRecord(0, timer.PhaseFocus, 25, testDay, testAt)
		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := repo.Delete(session.ID()); err != nil {
			t.Fatalf("failed to delete session: %v", err)
		}
		if _, err := repo.Get(session.ID()); err == nil {
			t.Error("expected error when getting deleted session")
		}
		if err := repo.Delete(session.ID()); err == nil {
			t.Error("expected error when deleting twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		seed := []struct {
			phase timer.Phase
			mins  int
			day   timer.Date
		}{
			{timer.PhaseFocus, 25, testDay.AddDays(-2)},
			{timer.PhaseBreak, 0, testDay.AddDays(-2)},
			{timer.PhaseFocus, 25, testDay},
			{timer.PhaseBreak, 0, testDay},
		}
		for _, s := range seed {
			if err := repo.Create(models.NewSessionRecord(0, s.phase, s.mins, s.day, testAt)); err != nil {
				t.Fatalf("failed to seed session: %v", err)
			}
		}

		tc := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{"all", nil, 4},
			{"focus", map[string]any{"phase": timer.PhaseFocus}, 2},
			{"break as string", map[string]any{"phase": "break"}, 2},
			{"since", map[string]any{"since": testDay}, 2},
			{"until", map[string]any{"until": testDay.AddDays(-1)}, 2},
			{"limit", map[string]any{"limit": 3}, 3},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(got) != tt.want {
					t.Errorf("expected %d sessions, got %d", tt.want, len(got))
				}
			})
		}

		all, _ := repo.List(nil)
		if all[0].Sequence() != 4 {
			t.Errorf("expected newest first, got sequence %d", all[0].Sequence())
		}
	})

	t.Run("DailyTotals and Stats", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		for _, day := range []timer.Date{testDay.AddDays(-1), testDay.AddDays(-1), testDay, testDay.AddDays(-10)} {
			if err := repo.Create(models.NewSessionRecord(0, timer.PhaseFocus, 25, day, testAt)); err != nil {
				t.Fatalf("failed to seed session: %v", err)
			}
		}
		if err := repo.Create(models.NewSessionRecord(0, timer.PhaseBreak, 0, testDay, testAt)); err != nil {
			t.Fatalf("failed to seed break: %v", err)
		}

		totals, err := repo.DailyTotals(testDay.AddDays(-6), testDay)
		if err != nil {
			t.Fatalf("DailyTotals() error = %v", err)
		}
		if len(totals) != 2 {
			t.Fatalf("expected 2 days with sessions, got %d", len(totals))
		}
		if totals[0].FocusMinutes != 50 || totals[0].Sessions != 2 {
			t.Errorf("unexpected yesterday total %+v", totals[0])
		}
		if totals[1].FocusMinutes != 25 || totals[1].Sessions != 1 || totals[1].Breaks != 1 {
			t.Errorf("unexpected today total %+v", totals[1])
		}

		stats, err := repo.Stats(7, testDay, timer.State{SessionCount: 4, StudyStreakDays: 2})
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if len(stats.Days) != 7 || stats.TodayMinutes != 25 || stats.WindowMinutes != 75 {
			t.Errorf("unexpected stats: %d days, today %d, window %d", len(stats.Days), stats.TodayMinutes, stats.WindowMinutes)
		}
	})
}

func TestCompletionRecorder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)

	sched := timer.NewManualScheduler()
	tm := timer.New(timer.Options{
		Scheduler:  sched,
		Store:      timer.NewStore(NewKVRepository(db), timer.DefaultNamespace),
		Logger:     log.New(io.Discard),
		Now:        func() time.Time { return testAt },
		OnComplete: CompletionRecorder(repo, log.New(io.Discard)),
	})
	defer tm.Close()

	tm.Start()
	sched.Advance(timer.FocusSeconds + timer.BreakSeconds)

	sessions, err := repo.List(nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 recorded phases, got %d", len(sessions))
	}
	if sessions[1].Phase() != timer.PhaseFocus || sessions[1].Minutes() != 25 {
		t.Errorf("unexpected focus record %+v", sessions[1].View())
	}
	if sessions[0].Phase() != timer.PhaseBreak || sessions[0].Minutes() != 0 {
		t.Errorf("unexpected break record %+v", sessions[0].View())
	}
}
