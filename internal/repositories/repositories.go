package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/studyx/internal/shared"
)

// execer is the subset of [sql.DB] and [sql.Tx] the repositories write through.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// NextSequence increments the "<table>_sequence" counter and returns its new value. Pass a [sql.Tx]
// to allocate the number in the same transaction as the insert that uses it.
//
// table must be a trusted identifier; it is interpolated into the statement.
func NextSequence(q execer, table string) (int, error) {
	counter := table + "_sequence"

	if _, err := q.Exec("UPDATE " + counter + " SET value = value + 1 WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := q.QueryRow("SELECT value FROM " + counter + " WHERE id = 1").Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}
	return sequence, nil
}

// inTx runs fn inside a transaction, committing when it returns nil.
func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func expectAffected(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s not found or already deleted", shared.ErrRecordNotFound, kind, id)
	}
	return nil
}
