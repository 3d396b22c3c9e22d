package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/timer"
)

// SessionRecord is one completed timer phase.
type SessionRecord struct {
	id          string
	sequence    int
	phase       timer.Phase
	minutes     int
	studyDate   timer.Date
	completedAt time.Time
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewSessionRecord creates an unsaved record. The ID is assigned by the repository.
func NewSessionRecord(sequence int, phase timer.Phase, minutes int, studyDate timer.Date, completedAt time.Time) *SessionRecord {
	now := time.Now()
	return &SessionRecord{
		sequence:    sequence,
		phase:       phase,
		minutes:     minutes,
		studyDate:   studyDate,
		completedAt: completedAt,
		createdAt:   now,
		updatedAt:   now,
	}
}

// SessionFromCompletion builds the record for a timer phase completion.
func SessionFromCompletion(c timer.Completion) *SessionRecord {
	return NewSessionRecord(0, c.Phase, c.Minutes, c.StudyDate, c.CompletedAt)
}

func (s *SessionRecord) ID() string             { return s.id }
func (s *SessionRecord) Sequence() int          { return s.sequence }
func (s *SessionRecord) Phase() timer.Phase     { return s.phase }
func (s *SessionRecord) Minutes() int           { return s.minutes }
func (s *SessionRecord) StudyDate() timer.Date  { return s.studyDate }
func (s *SessionRecord) CompletedAt() time.Time { return s.completedAt }
func (s *SessionRecord) CreatedAt() time.Time   { return s.createdAt }
func (s *SessionRecord) UpdatedAt() time.Time   { return s.updatedAt }
func (s *SessionRecord) DeletedAt() *time.Time  { return s.deletedAt }

func (s *SessionRecord) SetID(id string)            { s.id = id }
func (s *SessionRecord) SetSequence(seq int)        { s.sequence = seq }
func (s *SessionRecord) SetMinutes(m int)           { s.minutes = m }
func (s *SessionRecord) SetCreatedAt(t time.Time)   { s.createdAt = t }
func (s *SessionRecord) SetUpdatedAt(t time.Time)   { s.updatedAt = t }
func (s *SessionRecord) SetDeletedAt(t *time.Time)  { s.deletedAt = t }
func (s *SessionRecord) SetStudyDate(d timer.Date)  { s.studyDate = d }
func (s *SessionRecord) SetCompletedAt(t time.Time) { s.completedAt = t }
func (s *SessionRecord) SetPhase(p timer.Phase)     { s.phase = p }
func (s *SessionRecord) IsDeleted() bool            { return s.deletedAt != nil }

// Validate checks the phase, minutes and dates.
func (s *SessionRecord) Validate() error {
	if s.phase != timer.PhaseFocus && s.phase != timer.PhaseBreak {
		return fmt.Errorf("%w: unknown phase %q", shared.ErrInvalidInput, s.phase)
	}
	if s.minutes < 0 {
		return fmt.Errorf("%w: minutes must not be negative", shared.ErrInvalidInput)
	}
	if s.phase == timer.PhaseBreak && s.minutes != 0 {
		return fmt.Errorf("%w: break sessions carry no study minutes", shared.ErrInvalidInput)
	}
	if s.studyDate.IsZero() {
		return fmt.Errorf("%w: study date is required", shared.ErrInvalidInput)
	}
	if s.completedAt.IsZero() {
		return fmt.Errorf("%w: completion time is required", shared.ErrInvalidInput)
	}
	return nil
}

// SessionView is the exported shape of a [SessionRecord] used by the JSON and YAML encoders.
type SessionView struct {
	ID          string    `json:"id" yaml:"id"`
	Sequence    int       `json:"sequence" yaml:"sequence"`
	Phase       string    `json:"phase" yaml:"phase"`
	Minutes     int       `json:"minutes" yaml:"minutes"`
	StudyDate   string    `json:"study_date" yaml:"study_date"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

// View returns the exported shape of s.
func (s *SessionRecord) View() SessionView {
	return SessionView{
		ID:          s.id,
		Sequence:    s.sequence,
		Phase:       string(s.phase),
		Minutes:     s.minutes,
		StudyDate:   s.studyDate.String(),
		CompletedAt: s.completedAt,
	}
}
