package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/wedplan/internal/model"
)

const (
	sqliteTimeLayout = time.RFC3339Nano
	sqliteDateLayout = "2006-01-02"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// OpenSQLite opens path, applies migrations and returns a ready repository.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) LoadTimeline(ctx context.Context, userID string) (model.Timeline, error) {
	var head timelineRow
	var wedding string
	err := r.db.QueryRowContext(ctx, `SELECT wedding_date, template FROM timelines WHERE user_id = ?`, userID).
		Scan(&wedding, &head.Template)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Timeline{}, ErrNotFound
		}
		return model.Timeline{}, err
	}
	if head.WeddingDate, err = parseDate(wedding); err != nil {
		return model.Timeline{}, err
	}

	entries, err := r.loadEntries(ctx, userID)
	if err != nil {
		return model.Timeline{}, err
	}
	tasks, err := r.loadTasks(ctx, userID, "")
	if err != nil {
		return model.Timeline{}, err
	}
	return assemble(head, entries, tasks), nil
}

func (r *SQLiteRepository) loadEntries(ctx context.Context, userID string) ([]entryRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+strings.Join(entryColumns, ", ")+` FROM timeline_entries WHERE user_id = ? ORDER BY position ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entryRow, 0)
	for rows.Next() {
		item, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadTasks(ctx context.Context, userID, extra string) ([]taskRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+strings.Join(taskColumns, ", ")+` FROM timeline_tasks WHERE user_id = ?`+extra+` ORDER BY position ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]taskRow, 0)
	for rows.Next() {
		item, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// SaveTimeline replaces the stored timeline of userID in one transaction.
func (r *SQLiteRepository) SaveTimeline(ctx context.Context, userID string, tl model.Timeline) error {
	if err := validateTimeline(userID, tl); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO timelines (user_id, wedding_date, template, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET wedding_date = excluded.wedding_date, template = excluded.template, updated_at = excluded.updated_at`,
		userID, formatDate(tl.WeddingDate), tl.Template, mustTime(r.now()),
	); err != nil {
		return err
	}
	if err := deleteChildren(ctx, tx, userID); err != nil {
		return err
	}
	for pos, e := range tl.Entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO timeline_entries (user_id, position, id, title, description, due_date, days_before, category_id, category_color, completed, custom)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, pos, e.ID, e.Title, e.Description, formatDate(e.Date), e.DaysBeforeWedding,
			e.CategoryID, e.CategoryColor, boolInt(e.IsCompleted), boolInt(e.IsCustom),
		); err != nil {
			return err
		}
		for tpos, t := range e.Tasks {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO timeline_tasks (user_id, entry_id, position, id, name, completed, skipped, custom)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				userID, e.ID, tpos, t.ID, t.Name, boolInt(t.Completed), boolInt(t.Skipped), boolInt(t.IsCustom),
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) DeleteTimeline(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteChildren(ctx, tx, userID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM timelines WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CompletedTasks(ctx context.Context, userID string) ([]string, error) {
	tasks, err := r.loadTasks(ctx, userID, ` AND completed = 1`)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out, nil
}

func deleteChildren(ctx context.Context, tx *sql.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_tasks WHERE user_id = ?`, userID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM timeline_entries WHERE user_id = ?`, userID)
	return err
}

func formatDate(v time.Time) string {
	return v.UTC().Format(sqliteDateLayout)
}

func parseDate(v string) (time.Time, error) {
	return time.Parse(sqliteDateLayout, v)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (entryRow, error) {
	var out entryRow
	var due string
	var completed, custom int
	if err := s.Scan(&out.ID, &out.Title, &out.Description, &due, &out.DaysBefore, &out.CategoryID, &out.CategoryColor, &completed, &custom); err != nil {
		return entryRow{}, err
	}
	dueDate, err := parseDate(due)
	if err != nil {
		return entryRow{}, err
	}
	out.DueDate = dueDate
	out.Completed = completed == 1
	out.Custom = custom == 1
	return out, nil
}

func scanTask(s scanner) (taskRow, error) {
	var out taskRow
	var completed, skipped, custom int
	if err := s.Scan(&out.EntryID, &out.ID, &out.Name, &completed, &skipped, &custom); err != nil {
		return taskRow{}, err
	}
	out.Completed = completed == 1
	out.Skipped = skipped == 1
	out.Custom = custom == 1
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
