// Package eventlog provides the SQL-based implementation of the debug
// event log repository.
package eventlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/database"
	"github.com/oklog/ulid/v2"
)

// SQLEventLogRepository is the SQL-based implementation of the EventLogRepository.
type SQLEventLogRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventLogRepository creates a new instance of the repository.
func NewSQLEventLogRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventLogRepository {
	return &SQLEventLogRepository{db: db, logger: logger}
}

// Store saves an entry, assigning its id and timestamp when unset.
func (r *SQLEventLogRepository) Store(entry *tracking.LogEntry) error {
	const query = `
		INSERT INTO event_log (id, event_name, event_data, page_url, user_agent, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	if entry.CreatedAt == "" {
		entry.CreatedAt = time.Now().UTC().Format(database.TimeFormat)
	}

	start := time.Now()
	_, err := r.db.Exec(
		query,
		entry.ID,
		entry.EventName,
		entry.EventData,
		entry.PageURL,
		entry.UserAgent,
		entry.IPAddress,
		entry.CreatedAt,
	)
	database.CheckAndLogSlowQuery(r.logger, "event_log.insert", time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to store event log entry: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *SQLEventLogRepository) List(filter tracking.LogFilter) ([]*tracking.LogEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.Event != "" {
		where = append(where, "event_name = ?")
		args = append(args, filter.Event)
	}

	query := `
		SELECT id, event_name, event_data, page_url, user_agent, ip_address, created_at
		FROM event_log`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY id DESC"

	start := time.Now()
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list event log: %w", err)
	}
	defer rows.Close()

	entries := []*tracking.LogEntry{}
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if filter.Field != "" && !hasField(entry.EventData, filter.Field) {
			continue
		}
		entries = append(entries, entry)
		if filter.Limit > 0 && len(entries) >= filter.Limit {
			break
		}
	}
	database.CheckAndLogSlowQuery(r.logger, "event_log.list", time.Since(start))

	return entries, rows.Err()
}

// Clear deletes every entry and reports how many were removed.
func (r *SQLEventLogRepository) Clear() (int64, error) {
	const query = `DELETE FROM event_log`

	result, err := r.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to clear event log: %w", err)
	}
	return result.RowsAffected()
}

func (r *SQLEventLogRepository) scanEntry(rows *sql.Rows) (*tracking.LogEntry, error) {
	var entry tracking.LogEntry
	var createdAt any
	err := rows.Scan(
		&entry.ID,
		&entry.EventName,
		&entry.EventData,
		&entry.PageURL,
		&entry.UserAgent,
		&entry.IPAddress,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = formatTimestamp(createdAt)
	return &entry, nil
}

// formatTimestamp normalizes what the drivers hand back for a TIMESTAMP
// column; go-sqlite3 parses it into a time.Time.
func formatTimestamp(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(database.TimeFormat)
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func hasField(data, field string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return false
	}
	_, ok := obj[field]
	return ok
}
