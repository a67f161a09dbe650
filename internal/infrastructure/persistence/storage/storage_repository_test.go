package storage

import (
	"testing"

	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/database"
)

func newTestRepository(t *testing.T) *SQLStorageRepository {
	t.Helper()
	db, err := database.NewConnection("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}
	return NewSQLStorageRepository(db)
}

func TestSQLStorageScopes(t *testing.T) {
	repo := newTestRepository(t)
	local := NewSQLStorage(repo, "visitor-1/local")
	session := NewSQLStorage(repo, "visitor-1/session")

	if _, ok := local.Get("anticipater_session_count"); ok {
		t.Fatal("expected an empty store")
	}
	if err := local.Set("anticipater_session_count", "1"); err != nil {
		t.Fatal(err)
	}
	if err := local.Set("anticipater_session_count", "2"); err != nil {
		t.Fatal(err)
	}
	if v, ok := local.Get("anticipater_session_count"); !ok || v != "2" {
		t.Errorf("Get() = %q, %v", v, ok)
	}
	if _, ok := session.Get("anticipater_session_count"); ok {
		t.Error("scopes should not share keys")
	}
}

func TestSQLStorageRepositoryRemoveAndClear(t *testing.T) {
	repo := newTestRepository(t)
	for _, k := range []string{"a", "b"} {
		if err := repo.Set("s", k, "v"); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.Set("other", "a", "v"); err != nil {
		t.Fatal(err)
	}

	if err := repo.Remove("s", "a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := repo.Get("s", "a"); ok {
		t.Error("removed key still present")
	}
	if err := repo.Clear("s"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := repo.Get("s", "b"); ok {
		t.Error("cleared key still present")
	}
	if v, ok, _ := repo.Get("other", "a"); !ok || v != "v" {
		t.Error("Clear() touched another scope")
	}
}
