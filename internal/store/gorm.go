package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm opens a SQLite database for planner collections.
func OpenGorm(dsn string, log *slog.Logger) (*gorm.DB, error) {
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	dbLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// Gorm is a Collection backed by one gorm-managed table. T must have an "id"
// primary key and a created_at column.
type Gorm[T Entity] struct {
	db *gorm.DB
}

func NewGorm[T Entity](db *gorm.DB) (*Gorm[T], error) {
	if err := db.AutoMigrate(new(T)); err != nil {
		return nil, fmt.Errorf("migrate collection: %w", err)
	}
	return &Gorm[T]{db: db}, nil
}

func (g *Gorm[T]) Add(ctx context.Context, item T) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if _, err := g.Get(ctx, item.Key()); err == nil {
		return ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return g.db.WithContext(ctx).Create(&item).Error
}

func (g *Gorm[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return out, ErrNotFound
	}
	return out, err
}

func (g *Gorm[T]) Update(ctx context.Context, item T) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if _, err := g.Get(ctx, item.Key()); err != nil {
		return err
	}
	return g.db.WithContext(ctx).Save(&item).Error
}

func (g *Gorm[T]) Remove(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm[T]) List(ctx context.Context, keep func(T) bool) ([]T, error) {
	var all []T
	if err := g.db.WithContext(ctx).Order("created_at ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, item := range all {
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	return out, nil
}
