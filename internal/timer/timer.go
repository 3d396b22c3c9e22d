package timer

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// EventType identifies what changed on a [Timer].
type EventType string

const (
	EventStarted       EventType = "started"
	EventPaused        EventType = "paused"
	EventTick          EventType = "tick"
	EventAdjusted      EventType = "adjusted"
	EventReset         EventType = "reset"
	EventPhaseComplete EventType = "phase_complete"
)

// Event is delivered to subscribers after each state change.
type Event struct {
	Type       EventType
	State      State
	Completion *Completion
	At         time.Time
}

// Completion describes a finished phase.
type Completion struct {
	Phase       Phase
	Minutes     int
	StudyDate   Date
	CompletedAt time.Time
}

// Options configures a [Timer]. Zero values select the defaults.
type Options struct {
	Scheduler Scheduler
	Store     *Store
	Logger    *log.Logger
	Now       func() time.Time
	Period    time.Duration
	// ManualContinue drops the timer to Idle in the next phase after a completion instead of
	// running straight into it.
	ManualContinue bool
	// OnComplete is called outside the timer's lock for every completed phase.
	OnComplete func(Completion)
}

// Timer is the session countdown state machine. All methods are safe for concurrent use.
//
// Calls that do not apply to the current state (Start while running, Pause or Tick while idle,
// AdjustDuration while running) are no-ops.
type Timer struct {
	mu         sync.Mutex
	state      State
	scheduler  Scheduler
	store      *Store
	logger     *log.Logger
	now        func() time.Time
	period     time.Duration
	autoCont   bool
	onComplete func(Completion)

	cancel     func()
	generation uint64
	events     []chan Event
	closed     bool
}

// New constructs a Timer from the record in opts.Store.
//
// A record that fails to load is logged and replaced by the default state. A record saved while
// running comes back paused since its tick registration did not survive the process. The streak is
// refreshed against today.
func New(opts Options) *Timer {
	t := &Timer{
		scheduler:  opts.Scheduler,
		store:      opts.Store,
		logger:     opts.Logger,
		now:        opts.Now,
		period:     opts.Period,
		autoCont:   !opts.ManualContinue,
		onComplete: opts.OnComplete,
		state:      DefaultState(),
	}
	if t.scheduler == nil {
		t.scheduler = TickerScheduler{}
	}
	if t.logger == nil {
		t.logger = log.Default()
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.period <= 0 {
		t.period = time.Second
	}

	if t.store != nil {
		state, err := t.store.Load()
		if err != nil {
			t.logger.Warn("using default timer state", "namespace", t.store.Namespace(), "error", err)
		}
		t.state = state
	}
	t.state.IsActive = false
	t.RefreshStreak()
	return t
}

// State returns a snapshot of the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.clone()
}

// Progress returns the elapsed fraction of the current phase.
func (t *Timer) Progress() float64 {
	return t.State().Progress()
}

// Subscribe returns a channel receiving every subsequent [Event]. Events are dropped when the buffer
// is full. The channel is closed by [Timer.Close].
func (t *Timer) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(ch)
		return ch
	}
	t.events = append(t.events, ch)
	return ch
}

// Start moves Idle to Running and registers a fresh tick interval.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsActive || t.closed {
		return
	}
	t.state.IsActive = true
	t.registerLocked()
	t.commitLocked(EventStarted, nil)
}

// Pause moves Running to Idle, keeping the remaining time. No tick mutates the state once Pause
// has returned.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.IsActive {
		return
	}
	t.state.IsActive = false
	t.unregisterLocked()
	t.commitLocked(EventPaused, nil)
}

// Toggle pauses a running timer or starts an idle one.
func (t *Timer) Toggle() {
	if t.State().IsActive {
		t.Pause()
		return
	}
	t.Start()
}

// Reset forces Idle(Focus) with a full focus countdown. Counters and streak are kept.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unregisterLocked()
	t.state.IsActive = false
	t.state.IsBreak = false
	t.state.RemainingSeconds = FocusSeconds
	t.commitLocked(EventReset, nil)
}

// AdjustDuration adds deltaMinutes to the remaining time while idle, never going below one minute.
func (t *Timer) AdjustDuration(deltaMinutes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsActive {
		return
	}
	t.state.RemainingSeconds = max(MinDurationSeconds, t.state.RemainingSeconds+deltaMinutes*60)
	t.commitLocked(EventAdjusted, nil)
}

// Tick advances a running timer by one second. It is what the scheduler calls; tests may call it
// directly.
func (t *Timer) Tick() {
	t.mu.Lock()
	c := t.tickLocked()
	t.mu.Unlock()
	t.complete(c)
}

// RefreshStreak zeroes a streak whose last study date is older than yesterday.
func (t *Timer) RefreshStreak() {
	t.mu.Lock()
	defer t.mu.Unlock()

	streak := RefreshStreak(t.state.LastStudyDate, t.state.StudyStreakDays, DateOf(t.now()))
	if streak == t.state.StudyStreakDays {
		return
	}
	t.logger.Debug("study streak lapsed", "last", t.state.LastStudyDate, "was", t.state.StudyStreakDays)
	t.state.StudyStreakDays = streak
	t.saveLocked()
}

// Close cancels ticking and closes subscriber channels. The state is left as is.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.unregisterLocked()
	for _, ch := range t.events {
		close(ch)
	}
	t.events = nil
}

func (t *Timer) registerLocked() {
	t.unregisterLocked()
	gen := t.generation
	t.cancel = t.scheduler.Every(t.period, func() { t.scheduledTick(gen) })
}

// unregisterLocked cancels the live registration and bumps the generation so a callback that was
// already waiting on the lock sees a stale generation and does nothing.
func (t *Timer) unregisterLocked() {
	t.generation++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Timer) scheduledTick(gen uint64) {
	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		return
	}
	c := t.tickLocked()
	t.mu.Unlock()
	t.complete(c)
}

func (t *Timer) tickLocked() *Completion {
	if !t.state.IsActive {
		return nil
	}
	if t.state.RemainingSeconds > 0 {
		t.state.RemainingSeconds--
	}
	if t.state.RemainingSeconds > 0 {
		t.commitLocked(EventTick, nil)
		return nil
	}
	return t.completeLocked()
}

func (t *Timer) completeLocked() *Completion {
	now := t.now()
	c := &Completion{Phase: t.state.Phase(), StudyDate: DateOf(now), CompletedAt: now}

	if c.Phase == PhaseFocus {
		c.Minutes = FocusCreditMinutes
		t.state.SessionCount++
		t.state.TotalStudyMinutes += FocusCreditMinutes
		t.state.LastStudyDate, t.state.StudyStreakDays = RecordStudyDay(t.state.LastStudyDate, t.state.StudyStreakDays, c.StudyDate)
	}

	next := c.Phase.Next()
	t.state.IsBreak = next == PhaseBreak
	t.state.RemainingSeconds = next.Duration()

	if !t.autoCont {
		t.state.IsActive = false
		t.unregisterLocked()
	}

	t.logger.Info("phase complete", "phase", c.Phase, "sessions", t.state.SessionCount, "streak", t.state.StudyStreakDays)
	t.commitLocked(EventPhaseComplete, c)
	return c
}

func (t *Timer) complete(c *Completion) {
	if c != nil && t.onComplete != nil {
		t.onComplete(*c)
	}
}

// commitLocked persists the state and notifies subscribers.
func (t *Timer) commitLocked(typ EventType, c *Completion) {
	t.saveLocked()

	ev := Event{Type: typ, State: t.state.clone(), Completion: c, At: t.now()}
	for _, ch := range t.events {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (t *Timer) saveLocked() {
	if t.store == nil {
		return
	}
	if err := t.store.Save(t.state); err != nil {
		t.logger.Error("failed to persist timer state", "error", err)
	}
}
