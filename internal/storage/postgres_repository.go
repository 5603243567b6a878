package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sandeepkv93/wedplan/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS timelines (
	user_id TEXT PRIMARY KEY,
	wedding_date DATE NOT NULL,
	template TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS timeline_entries (
	user_id TEXT NOT NULL REFERENCES timelines(user_id) ON DELETE CASCADE,
	id TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date DATE NOT NULL,
	days_before INTEGER NOT NULL,
	category_id TEXT NOT NULL DEFAULT '',
	category_color TEXT NOT NULL DEFAULT '',
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	custom BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (user_id, id)
);
CREATE TABLE IF NOT EXISTS timeline_tasks (
	user_id TEXT NOT NULL,
	entry_id TEXT NOT NULL,
	id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	skipped BOOLEAN NOT NULL DEFAULT FALSE,
	custom BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (user_id, id),
	FOREIGN KEY (user_id, entry_id) REFERENCES timeline_entries(user_id, id) ON DELETE CASCADE
);`

// PostgresRepository stores timelines in PostgreSQL. Queries are built with
// squirrel using $n placeholders.
type PostgresRepository struct {
	db  *sqlx.DB
	sb  squirrel.StatementBuilderType
	now func() time.Time
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		sb:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now: time.Now,
	}
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresRepository) LoadTimeline(ctx context.Context, userID string) (model.Timeline, error) {
	query, args, err := r.sb.Select("wedding_date", "template").
		From("timelines").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return model.Timeline{}, err
	}
	var head timelineRow
	if err := r.db.GetContext(ctx, &head, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Timeline{}, ErrNotFound
		}
		return model.Timeline{}, err
	}

	query, args, err = r.sb.Select(entryColumns...).
		From("timeline_entries").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return model.Timeline{}, err
	}
	var entries []entryRow
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return model.Timeline{}, err
	}

	tasks, err := r.selectTasks(ctx, squirrel.Eq{"user_id": userID})
	if err != nil {
		return model.Timeline{}, err
	}
	return assemble(head, entries, tasks), nil
}

func (r *PostgresRepository) selectTasks(ctx context.Context, where squirrel.Sqlizer) ([]taskRow, error) {
	query, args, err := r.sb.Select(taskColumns...).
		From("timeline_tasks").
		Where(where).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	var tasks []taskRow
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *PostgresRepository) SaveTimeline(ctx context.Context, userID string, tl model.Timeline) error {
	if err := validateTimeline(userID, tl); err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	upsert := r.sb.Insert("timelines").
		Columns("user_id", "wedding_date", "template", "updated_at").
		Values(userID, model.Day(tl.WeddingDate), tl.Template, r.now().UTC()).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET wedding_date = EXCLUDED.wedding_date, template = EXCLUDED.template, updated_at = EXCLUDED.updated_at")
	if err := execBuilder(ctx, tx, upsert); err != nil {
		return err
	}
	if err := execBuilder(ctx, tx, r.sb.Delete("timeline_tasks").Where(squirrel.Eq{"user_id": userID})); err != nil {
		return err
	}
	if err := execBuilder(ctx, tx, r.sb.Delete("timeline_entries").Where(squirrel.Eq{"user_id": userID})); err != nil {
		return err
	}

	if len(tl.Entries) > 0 {
		entries := r.sb.Insert("timeline_entries").
			Columns("user_id", "position", "id", "title", "description", "due_date", "days_before", "category_id", "category_color", "completed", "custom")
		tasks := r.sb.Insert("timeline_tasks").
			Columns("user_id", "entry_id", "position", "id", "name", "completed", "skipped", "custom")
		taskCount := 0
		for pos, e := range tl.Entries {
			entries = entries.Values(userID, pos, e.ID, e.Title, e.Description, model.Day(e.Date), e.DaysBeforeWedding,
				e.CategoryID, e.CategoryColor, e.IsCompleted, e.IsCustom)
			for tpos, t := range e.Tasks {
				tasks = tasks.Values(userID, e.ID, tpos, t.ID, t.Name, t.Completed, t.Skipped, t.IsCustom)
				taskCount++
			}
		}
		if err := execBuilder(ctx, tx, entries); err != nil {
			return err
		}
		if taskCount > 0 {
			if err := execBuilder(ctx, tx, tasks); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) DeleteTimeline(ctx context.Context, userID string) error {
	query, args, err := r.sb.Delete("timelines").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *PostgresRepository) CompletedTasks(ctx context.Context, userID string) ([]string, error) {
	tasks, err := r.selectTasks(ctx, squirrel.Eq{"user_id": userID, "completed": true})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out, nil
}

func execBuilder(ctx context.Context, tx *sqlx.Tx, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}
