package timer

import (
	"sync"
	"time"
)

// Scheduler invokes fn every period until the returned cancel func is called.
//
// cancel must be safe to call more than once and must not block on fn.
type Scheduler interface {
	Every(period time.Duration, fn func()) (cancel func())
}

// TickerScheduler runs each registration on its own goroutine driven by a [time.Ticker].
type TickerScheduler struct{}

func (TickerScheduler) Every(period time.Duration, fn func()) func() {
	stop := make(chan struct{})
	ticker := time.NewTicker(period)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
					fn()
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

// ManualScheduler fires registrations only when [ManualScheduler.Advance] is called, letting tests
// drive the countdown without waiting on the wall clock.
type ManualScheduler struct {
	mu     sync.Mutex
	nextID int
	active map[int]func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{active: make(map[int]func())}
}

func (m *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.active[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
	}
}

// Advance fires every live registration n times. A registration cancelled part way through stops
// firing immediately; one added during Advance starts on the next step.
func (m *ManualScheduler) Advance(n int) {
	for range n {
		m.mu.Lock()
		ids := make([]int, 0, len(m.active))
		for id := range m.active {
			ids = append(ids, id)
		}
		m.mu.Unlock()

		for _, id := range ids {
			m.mu.Lock()
			fn, ok := m.active[id]
			m.mu.Unlock()
			if ok {
				fn()
			}
		}
	}
}

// Registrations reports how many registrations are live.
func (m *ManualScheduler) Registrations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
