package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/sandeepkv93/wedplan/internal/model"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "wedplan-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func TestSQLiteTimelineRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	want := fixtureTimeline()

	if err := repo.SaveTimeline(ctx, "couple-1", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.LoadTimeline(ctx, "couple-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteSaveReplacesPreviousState(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	tl := fixtureTimeline()
	if err := repo.SaveTimeline(ctx, "couple-1", tl); err != nil {
		t.Fatalf("first save: %v", err)
	}

	tl.Entries = tl.Entries[:1]
	tl.Entries[0].Tasks = tl.Entries[0].Tasks[:1]
	tl.Template = "short"
	if err := repo.SaveTimeline(ctx, "couple-1", tl); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := repo.LoadTimeline(ctx, "couple-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Template != "short" || len(got.Entries) != 1 || len(got.Entries[0].Tasks) != 1 {
		t.Fatalf("unexpected state after replace: %+v", got)
	}
}

func TestSQLiteUsersAreIsolated(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	if err := repo.SaveTimeline(ctx, "a", fixtureTimeline()); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := repo.SaveTimeline(ctx, "b", fixtureTimeline()); err != nil {
		t.Fatalf("save b with same entry ids: %v", err)
	}
	if err := repo.DeleteTimeline(ctx, "a"); err != nil {
		t.Fatalf("delete a: %v", err)
	}
	if _, err := repo.LoadTimeline(ctx, "a"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for a, got %v", err)
	}
	got, err := repo.LoadTimeline(ctx, "b")
	if err != nil || len(got.Entries) != 2 {
		t.Fatalf("b damaged by delete of a: %v %+v", err, got)
	}
}

func TestSQLiteCompletedTasks(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	if err := repo.SaveTimeline(ctx, "couple-1", fixtureTimeline()); err != nil {
		t.Fatalf("save: %v", err)
	}
	ids, err := repo.CompletedTasks(ctx, "couple-1")
	if err != nil {
		t.Fatalf("completed tasks: %v", err)
	}
	if len(ids) != 1 || ids[0] != "t-shortlist" {
		t.Fatalf("unexpected completed ids: %v", ids)
	}
}

func TestSQLiteLoadMissing(t *testing.T) {
	repo := setupRepo(t)
	if _, err := repo.LoadTimeline(context.Background(), "nobody"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTimeline(context.Background(), "nobody"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestSQLiteSaveValidates(t *testing.T) {
	repo := setupRepo(t)
	tl := fixtureTimeline()
	tl.Entries[0].Tasks[0].Skipped = true
	err := repo.SaveTimeline(context.Background(), "couple-1", tl)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSQLiteSurfacesDriverErrors(t *testing.T) {
	repo := setupRepo(t)
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err := repo.LoadTimeline(context.Background(), "couple-1")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected driver error, got %v", err)
	}
}
