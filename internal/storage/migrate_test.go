package storage

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateUpRecordsEachMigrationOnce(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 2; i++ {
		if err := MigrateUp(db); err != nil {
			t.Fatalf("migrate up #%d: %v", i+1, err)
		}
	}
	got, err := AppliedMigrations(db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if diff := cmp.Diff([]string{"0001_timelines", "0002_timeline_tasks"}, got); diff != "" {
		t.Fatalf("applied migrations mismatch (-want +got):\n%s", diff)
	}
}

func TestMigrateDownThenUpKeepsRepositoryUsable(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if got, _ := AppliedMigrations(db); len(got) != 0 {
		t.Fatalf("expected no applied migrations after down, got %v", got)
	}
	var tables int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name LIKE 'timeline%'`).Scan(&tables); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 0 {
		t.Fatalf("down left %d timeline tables", tables)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up after down: %v", err)
	}
	if got, _ := AppliedMigrations(db); len(got) != 2 {
		t.Fatalf("expected both migrations re-applied, got %v", got)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	if err := repo.SaveTimeline(t.Context(), "couple-rt", fixtureTimeline()); err != nil {
		t.Fatalf("save after down/up: %v", err)
	}
	got, err := repo.LoadTimeline(t.Context(), "couple-rt")
	if err != nil {
		t.Fatalf("load after down/up: %v", err)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("unexpected entries after down/up: %d", len(got.Entries))
	}
}

func TestMigrateUpRejectsEditedMigration(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if _, err := db.Exec(`UPDATE schema_migrations SET checksum = 'stale' WHERE name = '0001_timelines'`); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	err := MigrateUp(db)
	if err == nil || !strings.Contains(err.Error(), "0001_timelines changed") {
		t.Fatalf("expected checksum error, got %v", err)
	}
}
