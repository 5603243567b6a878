package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/sandeepkv93/wedplan/internal/model"
)

// FileRepository keeps one JSON document per user in a directory. Writes go
// through a temp file and rename so a crash never leaves a torn document.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) Close() error { return nil }

func (r *FileRepository) path(userID string) (string, error) {
	if userID == "" || userID == "." || userID == ".." || strings.ContainsAny(userID, `/\`) {
		return "", &model.ValidationError{Field: "user id", Reason: "must be a plain name"}
	}
	return filepath.Join(r.dir, userID+".json"), nil
}

func (r *FileRepository) LoadTimeline(ctx context.Context, userID string) (model.Timeline, error) {
	if err := ctx.Err(); err != nil {
		return model.Timeline{}, err
	}
	path, err := r.path(userID)
	if err != nil {
		return model.Timeline{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Timeline{}, ErrNotFound
		}
		return model.Timeline{}, err
	}
	var tl model.Timeline
	if err := json.Unmarshal(raw, &tl); err != nil {
		return model.Timeline{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return tl, nil
}

func (r *FileRepository) SaveTimeline(ctx context.Context, userID string, tl model.Timeline) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTimeline(userID, tl); err != nil {
		return err
	}
	path, err := r.path(userID)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(tl, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(append(payload, '\n')))
}

func (r *FileRepository) DeleteTimeline(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.path(userID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *FileRepository) CompletedTasks(ctx context.Context, userID string) ([]string, error) {
	tl, err := r.LoadTimeline(ctx, userID)
	if err != nil {
		return nil, err
	}
	return completedTaskIDs(tl), nil
}
