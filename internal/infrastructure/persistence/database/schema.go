package database

import (
	"fmt"
)

// TimeFormat is how timestamps are stored.
const TimeFormat = "2006-01-02 15:04:05"

var tables = []string{
	`CREATE TABLE IF NOT EXISTS event_log (id TEXT PRIMARY KEY, event_name TEXT NOT NULL, event_data TEXT NOT NULL, page_url TEXT NOT NULL DEFAULT '', user_agent TEXT NOT NULL DEFAULT '', ip_address TEXT NOT NULL DEFAULT '', created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS browser_storage (scope TEXT NOT NULL, key TEXT NOT NULL, value TEXT NOT NULL, updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, PRIMARY KEY (scope, key))`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_event_log_event_name ON event_log(event_name)`,
	`CREATE INDEX IF NOT EXISTS idx_event_log_created_at ON event_log(created_at)`,
}

// CreateSchema builds every table and index. It is idempotent.
func (db *DB) CreateSchema() error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}
	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}
