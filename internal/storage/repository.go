package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/wedplan/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

// Repository persists one timeline per user. Implementations return
// ErrNotFound when a user has no timeline yet and otherwise surface driver
// errors as they are.
type Repository interface {
	LoadTimeline(ctx context.Context, userID string) (model.Timeline, error)
	SaveTimeline(ctx context.Context, userID string, tl model.Timeline) error
	DeleteTimeline(ctx context.Context, userID string) error
	CompletedTasks(ctx context.Context, userID string) ([]string, error)
	Close() error
}

type timelineRow struct {
	WeddingDate time.Time `db:"wedding_date"`
	Template    string    `db:"template"`
}

type entryRow struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	DueDate       time.Time `db:"due_date"`
	DaysBefore    int       `db:"days_before"`
	CategoryID    string    `db:"category_id"`
	CategoryColor string    `db:"category_color"`
	Completed     bool      `db:"completed"`
	Custom        bool      `db:"custom"`
}

type taskRow struct {
	EntryID   string `db:"entry_id"`
	ID        string `db:"id"`
	Name      string `db:"name"`
	Completed bool   `db:"completed"`
	Skipped   bool   `db:"skipped"`
	Custom    bool   `db:"custom"`
}

var (
	entryColumns = []string{"id", "title", "description", "due_date", "days_before", "category_id", "category_color", "completed", "custom"}
	taskColumns  = []string{"entry_id", "id", "name", "completed", "skipped", "custom"}
)

func assemble(head timelineRow, entries []entryRow, tasks []taskRow) model.Timeline {
	tl := model.Timeline{
		WeddingDate: model.Day(head.WeddingDate),
		Template:    head.Template,
		Entries:     make([]model.Entry, 0, len(entries)),
	}
	index := make(map[string]int, len(entries))
	for _, r := range entries {
		index[r.ID] = len(tl.Entries)
		tl.Entries = append(tl.Entries, model.Entry{
			ID:                r.ID,
			Title:             r.Title,
			Description:       r.Description,
			Date:              model.Day(r.DueDate),
			DaysBeforeWedding: r.DaysBefore,
			CategoryID:        r.CategoryID,
			CategoryColor:     r.CategoryColor,
			IsCompleted:       r.Completed,
			IsCustom:          r.Custom,
		})
	}
	for _, r := range tasks {
		i, ok := index[r.EntryID]
		if !ok {
			continue
		}
		tl.Entries[i].Tasks = append(tl.Entries[i].Tasks, model.Task{
			ID:        r.ID,
			Name:      r.Name,
			Completed: r.Completed,
			Skipped:   r.Skipped,
			IsCustom:  r.Custom,
		})
	}
	return tl
}

func validateTimeline(userID string, tl model.Timeline) error {
	if userID == "" {
		return &model.ValidationError{Field: "user id"}
	}
	if tl.WeddingDate.IsZero() {
		return &model.ValidationError{Field: "wedding date"}
	}
	for _, e := range tl.Entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func completedTaskIDs(tl model.Timeline) []string {
	out := make([]string, 0)
	for _, e := range tl.Entries {
		for _, t := range e.Tasks {
			if t.Completed {
				out = append(out, t.ID)
			}
		}
	}
	return out
}
