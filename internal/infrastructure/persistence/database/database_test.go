package database

import (
	"testing"
)

// openTestDB opens a fresh in-memory database with the schema applied.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewConnection("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}
	return db
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("second CreateSchema() error = %v", err)
	}

	for _, table := range []string{"event_log", "browser_storage"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestNewConnectionUnknownDriver(t *testing.T) {
	if _, err := NewConnection("nope", "x"); err == nil {
		t.Error("expected an error for an unregistered driver")
	}
}
