package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/timer"
)

const sessionColumns = "id, sequence, phase, minutes, study_date, completed_at, created_at, updated_at, deleted_at"

// SessionRepository implements [models.SessionStore] over the study_sessions table.
type SessionRepository struct {
	db *sql.DB
}

var _ models.SessionStore = (*SessionRepository)(nil)

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session record with generated ID and sequence
func (r *SessionRepository) Create(session *models.SessionRecord) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO study_sessions (id, sequence, phase, minutes, study_date, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	return inTx(r.db, func(tx *sql.Tx) error {
		sequence, err := NextSequence(tx, "study_sessions")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		id := shared.GenerateID()
		if _, err := tx.Exec(query, id, sequence, string(session.Phase()), session.Minutes(),
			session.StudyDate().String(), session.CompletedAt(), session.CreatedAt(), session.UpdatedAt()); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		session.SetID(id)
		session.SetSequence(sequence)
		return nil
	})
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.SessionRecord, error) {
	query := "SELECT " + sessionColumns + " FROM study_sessions WHERE id = ? AND deleted_at IS NULL"

	session, err := scanSession(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return session, nil
}

// Update modifies the minutes, phase and dates of an existing session
func (r *SessionRepository) Update(session *models.SessionRecord) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE study_sessions
		SET phase = ?, minutes = ?, study_date = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, string(session.Phase()), session.Minutes(), session.StudyDate().String(),
		session.CompletedAt(), now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return expectAffected(result, "session", session.ID())
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE study_sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return expectAffected(result, "session", id)
}

// List retrieves sessions matching criteria, newest first, excluding soft-deleted sessions.
//
// Supported criteria: "phase" (timer.Phase or string), "since" and "until" (timer.Date, inclusive),
// "limit" (int).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.SessionRecord, error) {
	query := "SELECT " + sessionColumns + " FROM study_sessions WHERE deleted_at IS NULL"
	args := []any{}

	switch phase := criteria["phase"].(type) {
	case timer.Phase:
		query += " AND phase = ?"
		args = append(args, string(phase))
	case string:
		if phase != "" {
			query += " AND phase = ?"
			args = append(args, phase)
		}
	}

	if since, ok := criteria["since"].(timer.Date); ok {
		query += " AND study_date >= ?"
		args = append(args, since.String())
	}
	if until, ok := criteria["until"].(timer.Date); ok {
		query += " AND study_date <= ?"
		args = append(args, until.String())
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.SessionRecord
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// DailyTotals aggregates sessions per study date in [from, to], oldest first. Days without sessions
// are omitted; see [models.FillDays].
func (r *SessionRepository) DailyTotals(from, to timer.Date) ([]models.DailyTotal, error) {
	query := `
		SELECT study_date,
			COALESCE(SUM(minutes), 0),
			COALESCE(SUM(CASE WHEN phase = 'focus' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN phase = 'break' THEN 1 ELSE 0 END), 0)
		FROM study_sessions
		WHERE deleted_at IS NULL AND study_date >= ? AND study_date <= ?
		GROUP BY study_date
		ORDER BY study_date ASC
	`

	rows, err := r.db.Query(query, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	var totals []models.DailyTotal
	for rows.Next() {
		var (
			day   string
			total models.DailyTotal
		)
		if err := rows.Scan(&day, &total.FocusMinutes, &total.Sessions, &total.Breaks); err != nil {
			return nil, fmt.Errorf("failed to scan daily total: %w", err)
		}
		if total.Date, err = timer.ParseDate(day); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return totals, nil
}

// Stats returns the last days days ending on today combined with the timer's counters.
func (r *SessionRepository) Stats(days int, today timer.Date, state timer.State) (models.Stats, error) {
	if days <= 0 {
		days = 7
	}
	from := today.AddDays(-(days - 1))

	known, err := r.DailyTotals(from, today)
	if err != nil {
		return models.Stats{}, err
	}
	return models.NewStats(models.FillDays(known, from, today), state), nil
}

func scanSession(row rowScanner) (*models.SessionRecord, error) {
	var (
		id          string
		sequence    int
		phase       string
		minutes     int
		studyDate   string
		completedAt time.Time
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	if err := row.Scan(&id, &sequence, &phase, &minutes, &studyDate, &completedAt, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	day, err := timer.ParseDate(studyDate)
	if err != nil {
		return nil, err
	}

	session := models.NewSessionRecord(sequence, timer.Phase(phase), minutes, day, completedAt)
	session.SetID(id)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}
	return session, nil
}
