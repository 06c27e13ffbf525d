package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a Store backed by a temporary file.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	tables := []string{"sessions", "recommendations", "captures", "settings"}
	for _, table := range tables {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}

	indexes := []string{
		"idx_recommendations_session_id",
		"idx_captures_session_id",
		"idx_captures_created_at",
	}
	for _, idx := range indexes {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
			idx,
		).Scan(&name)
		if err != nil {
			t.Errorf("index %q should exist after migrations: %v", idx, err)
		}
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Sessions().Create(&Session{ID: "s1", Engine: "heuristic"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	if _, err := s.Sessions().GetByID("s1"); err != nil {
		t.Errorf("session lost after reopen: %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}

	err := s.Captures().Create(&Capture{ID: "orphan", SessionID: "missing"})
	if err == nil {
		t.Error("capture without a session should be rejected")
	}
}

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.Create(&Session{ID: "a", Engine: "heuristic", StartedAt: start}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := repo.Create(&Session{ID: "b", Engine: "smartcrop", StartedAt: start.Add(time.Hour)}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := repo.GetByID("a")
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Engine != "heuristic" || !got.StartedAt.Equal(start) || got.EndedAt != nil {
		t.Errorf("unexpected session: %+v", got)
	}

	end := start.Add(10 * time.Minute)
	if err := repo.End("a", end); err != nil {
		t.Fatalf("End() failed: %v", err)
	}
	got, _ = repo.GetByID("a")
	if got.EndedAt == nil || !got.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
	}

	if err := repo.End("missing", end); !errors.Is(err, ErrNotFound) {
		t.Errorf("End(missing) = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) = %v, want ErrNotFound", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" {
		t.Errorf("List() not newest first: %+v", list)
	}
}

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get("enabled"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unset) = %v, want ErrNotFound", err)
	}
	if !repo.Bool("enabled", true) {
		t.Error("Bool() should fall back to the default")
	}

	if err := repo.SetBool("enabled", false); err != nil {
		t.Fatal(err)
	}
	if repo.Bool("enabled", true) {
		t.Error("Bool() = true after SetBool(false)")
	}
	if err := repo.Set("enabled", "true"); err != nil {
		t.Fatal(err)
	}
	if v, _ := repo.Get("enabled"); v != "true" {
		t.Errorf("Get() = %q after overwrite", v)
	}
}
