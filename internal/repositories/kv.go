package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/studyx/internal/shared"
)

// KVRepository stores one opaque value per namespace in kv_store. It backs [timer.Store].
type KVRepository struct {
	db *sql.DB
}

// NewKVRepository creates a new [KVRepository] with the given database connection
func NewKVRepository(db *sql.DB) *KVRepository {
	return &KVRepository{db: db}
}

// Get returns the value stored under namespace or [shared.ErrRecordNotFound].
func (r *KVRepository) Get(namespace string) ([]byte, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM kv_store WHERE namespace = ?", namespace).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrRecordNotFound, namespace)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query kv_store: %w", err)
	}
	return []byte(value), nil
}

// Put inserts or replaces the value under namespace.
func (r *KVRepository) Put(namespace string, value []byte) error {
	query := `
		INSERT INTO kv_store (namespace, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, namespace, string(value), time.Now()); err != nil {
		return fmt.Errorf("failed to write kv_store: %w", err)
	}
	return nil
}

// Delete removes namespace. Deleting a missing namespace is not an error.
func (r *KVRepository) Delete(namespace string) error {
	if _, err := r.db.Exec("DELETE FROM kv_store WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("failed to delete from kv_store: %w", err)
	}
	return nil
}
