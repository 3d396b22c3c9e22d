package models

import (
	"time"

	"github.com/desertthunder/studyx/internal/timer"
)

// Model is implemented by every persisted entity.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error // Validate reports invalid fields wrapped in shared.ErrInvalidInput
}

// SoftDeletable entities are never removed; deleting stamps DeletedAt and hides the row from reads.
type SoftDeletable interface {
	Model
	DeletedAt() *time.Time
	IsDeleted() bool
}

// Repository is CRUD access to one entity type. The keys accepted by List are repository specific.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}

// SessionStore is the session history with the aggregate reads used by stats, exports and the
// dashboard.
type SessionStore interface {
	Repository[*SessionRecord]
	DailyTotals(from, to timer.Date) ([]DailyTotal, error)
	Stats(days int, today timer.Date, state timer.State) (Stats, error)
}

var _ SoftDeletable = (*SessionRecord)(nil)
