// Package storage persists simulated browser storage areas so that a
// replay can resume a visitor's local and session state.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/database"
)

// SQLStorageRepository is the SQL-based implementation of the StorageRepository.
type SQLStorageRepository struct {
	db *database.DB
}

// NewSQLStorageRepository creates a new instance of the repository.
func NewSQLStorageRepository(db *database.DB) *SQLStorageRepository {
	return &SQLStorageRepository{db: db}
}

func (r *SQLStorageRepository) Get(scope, key string) (string, bool, error) {
	const query = `
		SELECT value
		FROM browser_storage
		WHERE scope = ? AND key = ?`

	var value string
	err := r.db.QueryRow(query, scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SQLStorageRepository) Set(scope, key, value string) error {
	const query = `
		INSERT INTO browser_storage (scope, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	_, err := r.db.Exec(query, scope, key, value, time.Now().UTC().Format(database.TimeFormat))
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", scope, key, err)
	}
	return nil
}

func (r *SQLStorageRepository) Remove(scope, key string) error {
	const query = `DELETE FROM browser_storage WHERE scope = ? AND key = ?`
	_, err := r.db.Exec(query, scope, key)
	return err
}

func (r *SQLStorageRepository) Clear(scope string) error {
	const query = `DELETE FROM browser_storage WHERE scope = ?`
	_, err := r.db.Exec(query, scope)
	return err
}

// SQLStorage adapts one scope of the repository to a browser storage area.
type SQLStorage struct {
	repo  *SQLStorageRepository
	scope string
}

// NewSQLStorage returns the storage area for scope.
func NewSQLStorage(repo *SQLStorageRepository, scope string) *SQLStorage {
	return &SQLStorage{repo: repo, scope: scope}
}

// Get reports database errors as an absent value, as browsers do for
// unavailable storage.
func (s *SQLStorage) Get(key string) (string, bool) {
	v, ok, err := s.repo.Get(s.scope, key)
	if err != nil {
		return "", false
	}
	return v, ok
}

func (s *SQLStorage) Set(key, value string) error {
	return s.repo.Set(s.scope, key, value)
}
