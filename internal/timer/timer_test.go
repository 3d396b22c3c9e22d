package timer

import (
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

var testNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func newTestTimer(t *testing.T, kv *MemoryKV, mod func(*Options)) (*Timer, *ManualScheduler) {
	t.Helper()
	sched := NewManualScheduler()
	opts := Options{
		Scheduler: sched,
		Store:     NewStore(kv, DefaultNamespace),
		Logger:    log.New(io.Discard),
		Now:       func() time.Time { return testNow },
	}
	if mod != nil {
		mod(&opts)
	}
	tm := New(opts)
	t.Cleanup(tm.Close)
	return tm, sched
}

// capturingScheduler hands registrations back to the test so it can fire a callback after cancel.
type capturingScheduler struct {
	fns       []func()
	cancelled int
}

func (c *capturingScheduler) Every(_ time.Duration, fn func()) func() {
	c.fns = append(c.fns, fn)
	return func() { c.cancelled++ }
}

func TestTimerScenarios(t *testing.T) {
	t.Run("focus completion after 1500 ticks", func(t *testing.T) {
		tm, sched := newTestTimer(t, NewMemoryKV(), nil)
		tm.Start()
		sched.Advance(1500)

		s := tm.State()
		if s.SessionCount != 1 || s.TotalStudyMinutes != 25 || !s.IsBreak || s.RemainingSeconds != BreakSeconds {
			t.Errorf("unexpected state after focus: %+v", s)
		}
		if !s.IsActive {
			t.Error("expected timer to keep running into the break")
		}
	})

	t.Run("break completion after 300 more ticks", func(t *testing.T) {
		tm, sched := newTestTimer(t, NewMemoryKV(), nil)
		tm.Start()
		sched.Advance(1500)
		sched.Advance(300)

		s := tm.State()
		if s.IsBreak || s.RemainingSeconds != FocusSeconds || s.SessionCount != 1 || s.TotalStudyMinutes != 25 {
			t.Errorf("unexpected state after break: %+v", s)
		}
	})

	t.Run("adjust floors at one minute", func(t *testing.T) {
		tm, _ := newTestTimer(t, NewMemoryKV(), nil)
		tm.AdjustDuration(-5)
		if got := tm.State().RemainingSeconds; got != 1200 {
			t.Fatalf("expected 1200, got %d", got)
		}

		tm.AdjustDuration(-30)
		if got := tm.State().RemainingSeconds; got != MinDurationSeconds {
			t.Errorf("expected %d, got %d", MinDurationSeconds, got)
		}
	})
}

func TestTimerProperties(t *testing.T) {
	t.Run("counters never decrease", func(t *testing.T) {
		tm, sched := newTestTimer(t, NewMemoryKV(), nil)
		ops := []func(){
			tm.Start, func() { sched.Advance(700) }, tm.Pause, func() { tm.AdjustDuration(-20) },
			tm.Start, func() { sched.Advance(400) }, tm.Reset, tm.Start,
			func() { sched.Advance(2000) }, tm.Pause, func() { tm.AdjustDuration(3) }, tm.Tick,
		}

		prev := tm.State()
		for i, op := range ops {
			op()
			s := tm.State()
			if s.SessionCount < prev.SessionCount || s.TotalStudyMinutes < prev.TotalStudyMinutes {
				t.Fatalf("op %d decreased counters: %+v -> %+v", i, prev, s)
			}
			if s.RemainingSeconds < 0 {
				t.Fatalf("op %d made remaining negative: %d", i, s.RemainingSeconds)
			}
			prev = s
		}
	})

	t.Run("phase flips reset to fixed durations", func(t *testing.T) {
		tm, _ := newTestTimer(t, NewMemoryKV(), nil)
		events := tm.Subscribe(128)

		tm.AdjustDuration(-24)
		tm.Start()
		for range 60 {
			tm.Tick()
		}
		s := tm.State()
		if !s.IsBreak || s.RemainingSeconds != BreakSeconds {
			t.Fatalf("expected break at %d, got %+v", BreakSeconds, s)
		}

		var completions int
		for len(events) > 0 {
			ev := <-events
			if ev.Type == EventPhaseComplete {
				completions++
				if ev.State.RemainingSeconds != ev.State.Phase().Duration() {
					t.Errorf("completion event with remaining %d in %s", ev.State.RemainingSeconds, ev.State.Phase())
				}
			}
		}
		if completions != 1 {
			t.Errorf("expected one completion event, got %d", completions)
		}
	})

	t.Run("adjust is ignored while running", func(t *testing.T) {
		tm, _ := newTestTimer(t, NewMemoryKV(), nil)
		tm.Start()
		for _, delta := range []int{-100, -1, 0, 1, 100} {
			tm.AdjustDuration(delta)
			if got := tm.State().RemainingSeconds; got != FocusSeconds {
				t.Errorf("delta %d changed remaining to %d", delta, got)
			}
		}
	})

	t.Run("tick at zero completes instead of going negative", func(t *testing.T) {
		kv := NewMemoryKV()
		data, _ := json.Marshal(State{RemainingSeconds: 0})
		_ = kv.Put(DefaultNamespace, data)

		tm, _ := newTestTimer(t, kv, nil)
		tm.Start()
		tm.Tick()

		s := tm.State()
		if s.RemainingSeconds != BreakSeconds || !s.IsBreak || s.SessionCount != 1 {
			t.Errorf("expected immediate focus completion, got %+v", s)
		}
	})
}

func TestTimerTransitions(t *testing.T) {
	t.Run("start is idempotent", func(t *testing.T) {
		tm, sched := newTestTimer(t, NewMemoryKV(), nil)
		tm.Start()
		tm.Start()
		if sched.Registrations() != 1 {
			t.Errorf("expected one registration, got %d", sched.Registrations())
		}
		sched.Advance(1)
		if got := tm.State().RemainingSeconds; got != FocusSeconds-1 {
			t.Errorf("expected a single decrement, got %d", got)
		}
	})

	t.Run("pause keeps remaining and cancels ticks", func(t *testing.T) {
		tm, sched := newTestTimer(t, NewMemoryKV(), nil)
		tm.Start()
		sched.Advance(10)
		tm.Pause()

		if sched.Registrations() != 0 {
			t.Errorf("expected registration to be cancelled, got %d", sched.Registrations())
		}
		sched.Advance(10)
		s := tm.State()
		if s.IsActive || s.RemainingSeconds != FocusSeconds-10 {
			t.Errorf("unexpected state after pause: %+v", s)
		}
	})

	t.Run("pause while idle is a no-op", func(t *testing.T) {
		tm, _ := newTestTimer(t, NewMemoryKV(), nil)
		events := tm.Subscribe(4)
		tm.Pause()
		if len(events) != 0 {
			t.Errorf("expected no events, got %d", len(events))
		}
	})

	t.Run("in-flight tick after pause does not mutate", func(t *testing.T) {
		sched := &capturingScheduler{}
		tm, _ := newTestTimer(t, NewMemoryKV(), func(o *Options) { o.Scheduler = sched })

		tm.Start()
		tm.Pause()
		before := tm.State()

		sched.fns[0]()
		if tm.State() != before {
			t.Errorf("stale tick mutated state: %+v -> %+v", before, tm.State())
		}
		if sched.cancelled != 1 {
			t.Errorf("expected registration to be cancelled once, got %d", sched.cancelled)
		}
	})

	t.Run("stale tick after restart is ignored", func(t *testing.T) {
		sched := &capturingScheduler{}
		tm, _ := newTestTimer(t, NewMemoryKV(), func(o *Options) { o.Scheduler = sched })

		tm.Start()
		tm.Pause()
		tm.Start()

		sched.fns[0]()
		if got := tm.State().RemainingSeconds; got != FocusSeconds {
			t.Errorf("old registration ticked: remaining %d", got)
		}
		sched.fns[1]()
		if got := tm.State().RemainingSeconds; got != FocusSeconds-1 {
			t.Errorf("new registration did not tick: remaining %d", got)
		}
	})

	t.Run("tick while idle is a no-op", func(t *testing.T) {
		tm, _ := newTestTimer(t, NewMemoryKV(), nil)
		tm.Tick()
		if got := tm.State().RemainingSeconds; got != FocusSeconds {
			t.Errorf("expected %d, got %d", FocusSeconds, got)
		}
	})

	t.Run("reset returns to idle focus and keeps counters", func(t *testing.T) {
		tm, sched := newTestTimer(t, NewMemoryKV(), nil)
		tm.Start()
		sched.Advance(1500 + 20)
		tm.Reset()

		s := tm.State()
		if s.IsActive || s.IsBreak || s.RemainingSeconds != FocusSeconds {
			t.Errorf("unexpected state after reset: %+v", s)
		}
		if s.SessionCount != 1 || s.TotalStudyMinutes != 25 || s.StudyStreakDays != 1 {
			t.Errorf("reset touched counters: %+v", s)
		}
		if sched.Registrations() != 0 {
			t.Errorf("expected no registrations after reset, got %d", sched.Registrations())
		}
	})

	t.Run("toggle", func(t *testing.T) {
		tm, _ := newTestTimer(t, NewMemoryKV(), nil)
		tm.Toggle()
		if !tm.State().IsActive {
			t.Fatal("expected toggle to start")
		}
		tm.Toggle()
		if tm.State().IsActive {
			t.Error("expected toggle to pause")
		}
	})

	t.Run("manual continue drops to idle in the next phase", func(t *testing.T) {
		tm, sched := newTestTimer(t, NewMemoryKV(), func(o *Options) { o.ManualContinue = true })
		tm.Start()
		sched.Advance(1500)

		s := tm.State()
		if s.IsActive || !s.IsBreak || s.RemainingSeconds != BreakSeconds {
			t.Errorf("unexpected state: %+v", s)
		}
		if sched.Registrations() != 0 {
			t.Errorf("expected registration to be cancelled, got %d", sched.Registrations())
		}
	})

	t.Run("same day completions accumulate without growing the streak", func(t *testing.T) {
		tm, sched := newTestTimer(t, NewMemoryKV(), nil)
		tm.Start()
		sched.Advance(2 * (FocusSeconds + BreakSeconds))

		s := tm.State()
		if s.SessionCount != 2 || s.TotalStudyMinutes != 50 || s.StudyStreakDays != 1 {
			t.Errorf("unexpected state: %+v", s)
		}
	})
}

func TestTimerCompletionHook(t *testing.T) {
	var got []Completion
	tm, sched := newTestTimer(t, NewMemoryKV(), func(o *Options) {
		o.OnComplete = func(c Completion) { got = append(got, c) }
	})

	tm.Start()
	sched.Advance(FocusSeconds + BreakSeconds)

	if len(got) != 2 {
		t.Fatalf("expected two completions, got %d", len(got))
	}
	if got[0].Phase != PhaseFocus || got[0].Minutes != FocusCreditMinutes {
		t.Errorf("unexpected focus completion %+v", got[0])
	}
	if got[1].Phase != PhaseBreak || got[1].Minutes != 0 {
		t.Errorf("unexpected break completion %+v", got[1])
	}
	if !got[0].StudyDate.Equal(DateOf(testNow)) || !got[0].CompletedAt.Equal(testNow) {
		t.Errorf("unexpected completion time %+v", got[0])
	}
}

func TestTimerPersistence(t *testing.T) {
	t.Run("state survives a restart paused", func(t *testing.T) {
		kv := NewMemoryKV()
		tm, sched := newTestTimer(t, kv, nil)
		tm.Start()
		sched.Advance(FocusSeconds + 30)
		tm.Close()

		restored, _ := newTestTimer(t, kv, nil)
		s := restored.State()
		if s.IsActive {
			t.Error("expected restored timer to be idle")
		}
		if !s.IsBreak || s.RemainingSeconds != BreakSeconds-30 || s.SessionCount != 1 {
			t.Errorf("unexpected restored state %+v", s)
		}
	})

	t.Run("malformed record loads defaults", func(t *testing.T) {
		kv := NewMemoryKV()
		_ = kv.Put(DefaultNamespace, []byte("not json"))

		tm, _ := newTestTimer(t, kv, nil)
		if s := tm.State(); s != DefaultState() {
			t.Errorf("expected default state, got %+v", s)
		}
	})

	t.Run("lapsed streak is zeroed on load", func(t *testing.T) {
		kv := NewMemoryKV()
		last := DateOf(testNow).AddDays(-3)
		data, _ := json.Marshal(State{RemainingSeconds: FocusSeconds, StudyStreakDays: 6, LastStudyDate: &last})
		_ = kv.Put(DefaultNamespace, data)

		tm, sched := newTestTimer(t, kv, nil)
		s := tm.State()
		if s.StudyStreakDays != 0 {
			t.Errorf("expected lapsed streak to be 0, got %d", s.StudyStreakDays)
		}
		if s.LastStudyDate == nil || !s.LastStudyDate.Equal(last) {
			t.Errorf("expected last study date to be kept, got %v", s.LastStudyDate)
		}

		stored, err := NewStore(kv, DefaultNamespace).Load()
		if err != nil || stored.StudyStreakDays != 0 {
			t.Errorf("expected refreshed streak to be saved, got %+v (%v)", stored, err)
		}

		tm.Start()
		sched.Advance(FocusSeconds)
		if got := tm.State().StudyStreakDays; got != 1 {
			t.Errorf("expected next completion to restart streak at 1, got %d", got)
		}
	})

	t.Run("yesterday streak is kept on load", func(t *testing.T) {
		kv := NewMemoryKV()
		last := DateOf(testNow).AddDays(-1)
		data, _ := json.Marshal(State{RemainingSeconds: FocusSeconds, StudyStreakDays: 6, LastStudyDate: &last})
		_ = kv.Put(DefaultNamespace, data)

		tm, sched := newTestTimer(t, kv, nil)
		tm.Start()
		sched.Advance(FocusSeconds)
		if got := tm.State().StudyStreakDays; got != 7 {
			t.Errorf("expected streak 7, got %d", got)
		}
	})
}

func TestTimerProgress(t *testing.T) {
	tm, sched := newTestTimer(t, NewMemoryKV(), nil)
	if got := tm.Progress(); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}

	tm.Start()
	sched.Advance(FocusSeconds / 2)
	if got := tm.Progress(); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}

	tm.Reset()
	tm.AdjustDuration(5)
	if got := tm.Progress(); got != 0 {
		t.Errorf("expected clamp to 0 for an extended countdown, got %v", got)
	}
}

func TestTimerSubscribe(t *testing.T) {
	t.Run("close closes subscribers", func(t *testing.T) {
		tm, _ := newTestTimer(t, NewMemoryKV(), nil)
		events := tm.Subscribe(1)
		tm.Close()

		if _, ok := <-events; ok {
			t.Error("expected closed channel")
		}
		if _, ok := <-tm.Subscribe(1); ok {
			t.Error("expected subscription after close to be closed")
		}
	})

	t.Run("full buffers drop events", func(t *testing.T) {
		tm, sched := newTestTimer(t, NewMemoryKV(), nil)
		events := tm.Subscribe(2)
		tm.Start()
		sched.Advance(10)

		if len(events) != 2 {
			t.Errorf("expected buffer to hold 2 events, got %d", len(events))
		}
		if ev := <-events; ev.Type != EventStarted {
			t.Errorf("expected first event %q, got %q", EventStarted, ev.Type)
		}
	})
}

func TestTickerScheduler(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	fired := make(chan struct{}, 100)

	cancel := TickerScheduler{}.Every(time.Millisecond, func() {
		mu.Lock()
		count++
		mu.Unlock()
		fired <- struct{}{}
	})

	for range 3 {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("ticker did not fire")
		}
	}

	cancel()
	cancel()

	mu.Lock()
	after := count
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count > after+1 {
		t.Errorf("ticker kept firing after cancel: %d -> %d", after, count)
	}
}
