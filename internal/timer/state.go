package timer

import (
	"fmt"
	"time"

	"github.com/desertthunder/studyx/internal/shared"
)

const (
	FocusSeconds       = 25 * 60
	BreakSeconds       = 5 * 60
	FocusCreditMinutes = 25
	MinDurationSeconds = 60
	DefaultNamespace   = "timer-storage"
	DateLayout         = "2006-01-02"
)

// Phase is the part of the study cycle the timer is counting down.
type Phase string

const (
	PhaseFocus Phase = "focus"
	PhaseBreak Phase = "break"
)

// Duration returns the fixed length of the phase in seconds.
func (p Phase) Duration() int {
	if p == PhaseBreak {
		return BreakSeconds
	}
	return FocusSeconds
}

// Next returns the phase that follows p.
func (p Phase) Next() Phase {
	if p == PhaseBreak {
		return PhaseFocus
	}
	return PhaseBreak
}

// Date is a calendar date with no time-of-day component.
type Date struct {
	t time.Time
}

// NewDate returns the date y-m-d. Out of range values are normalized like [time.Date].
func NewDate(y int, m time.Month, d int) Date {
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: bad date %q", shared.ErrMalformedState, s)
	}
	return DateOf(t), nil
}

func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) String() string     { return d.t.Format(DateLayout) }

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time { return d.t }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// State is the persisted timer record.
type State struct {
	RemainingSeconds  int   `json:"remaining_seconds"`
	IsActive          bool  `json:"is_active"`
	IsBreak           bool  `json:"is_break"`
	SessionCount      int   `json:"session_count"`
	TotalStudyMinutes int   `json:"total_study_minutes"`
	StudyStreakDays   int   `json:"study_streak_days"`
	LastStudyDate     *Date `json:"last_study_date"`
}

// DefaultState returns Idle(Focus) with a full focus countdown and zeroed counters.
func DefaultState() State {
	return State{RemainingSeconds: FocusSeconds}
}

// Phase reports the current phase.
func (s State) Phase() Phase {
	if s.IsBreak {
		return PhaseBreak
	}
	return PhaseFocus
}

// Validate rejects records that could not have been produced by the state machine.
func (s State) Validate() error {
	switch {
	case s.RemainingSeconds < 0:
		return fmt.Errorf("%w: negative remaining_seconds %d", shared.ErrMalformedState, s.RemainingSeconds)
	case s.SessionCount < 0:
		return fmt.Errorf("%w: negative session_count %d", shared.ErrMalformedState, s.SessionCount)
	case s.TotalStudyMinutes < 0:
		return fmt.Errorf("%w: negative total_study_minutes %d", shared.ErrMalformedState, s.TotalStudyMinutes)
	case s.StudyStreakDays < 0:
		return fmt.Errorf("%w: negative study_streak_days %d", shared.ErrMalformedState, s.StudyStreakDays)
	}
	return nil
}

// clone copies s so the returned LastStudyDate does not alias the timer's own.
func (s State) clone() State {
	if s.LastStudyDate != nil {
		d := *s.LastStudyDate
		s.LastStudyDate = &d
	}
	return s
}

// Progress returns the elapsed fraction of the current phase, clamped to [0, 1].
func (s State) Progress() float64 {
	total := s.Phase().Duration()
	p := float64(total-s.RemainingSeconds) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
