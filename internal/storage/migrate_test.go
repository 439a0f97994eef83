package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/taskdesk/internal/model"
	"github.com/sandeepkv93/taskdesk/internal/store"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("repeated migrate up failed: %v", err)
	}
	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}

	cache, err := NewSQLiteCache(db)
	if err != nil {
		t.Fatalf("new cache after roundtrip: %v", err)
	}

	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	if err := cache.SaveSnapshot(t.Context(), store.Snapshot{
		Tasks:     []model.Task{{ID: 1, Text: "Roundtrip task"}},
		FetchedAt: now,
	}); err != nil {
		t.Fatalf("save after roundtrip failed: %v", err)
	}
	got, err := cache.LoadSnapshot(t.Context())
	if err != nil {
		t.Fatalf("load after roundtrip failed: %v", err)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Text != "Roundtrip task" {
		t.Fatalf("unexpected tasks after roundtrip: %#v", got.Tasks)
	}
}
