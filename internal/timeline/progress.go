package timeline

import (
	"math"
	"time"

	"github.com/sandeepkv93/wedplan/internal/model"
)

// MarkCompleted sets the completed flag of an entry. Unknown ids are a no-op.
func MarkCompleted(list []model.Entry, id string, completed bool) []model.Entry {
	i := indexOf(list, id)
	if i < 0 {
		return list
	}
	out := clone(list)
	out[i].IsCompleted = completed
	return out
}

// SetTaskCompleted marks a checklist task done or pending. Completing a task
// clears its skipped flag; un-completing leaves skipped untouched.
func SetTaskCompleted(list []model.Entry, entryID, taskID string, completed bool) ([]model.Entry, error) {
	return setTask(list, entryID, taskID, func(t *model.Task) {
		t.Completed = completed
		if completed {
			t.Skipped = false
		}
	})
}

// SetTaskSkipped is the mirror of SetTaskCompleted.
func SetTaskSkipped(list []model.Entry, entryID, taskID string, skipped bool) ([]model.Entry, error) {
	return setTask(list, entryID, taskID, func(t *model.Task) {
		t.Skipped = skipped
		if skipped {
			t.Completed = false
		}
	})
}

func setTask(list []model.Entry, entryID, taskID string, apply func(*model.Task)) ([]model.Entry, error) {
	i := indexOf(list, entryID)
	if i < 0 {
		return nil, &model.NotFoundError{Kind: "entry", ID: entryID}
	}
	out := clone(list)
	for j := range out[i].Tasks {
		if out[i].Tasks[j].ID == taskID {
			apply(&out[i].Tasks[j])
			return out, nil
		}
	}
	return nil, &model.NotFoundError{Kind: "task", ID: taskID}
}

// Percent is round(100*resolved/total). An empty checklist is complete.
func Percent(resolved, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(resolved) / float64(total)))
}

// Progress counts completed entries.
func Progress(entries []model.Entry) int {
	done := 0
	for _, e := range entries {
		if e.IsCompleted {
			done++
		}
	}
	return Percent(done, len(entries))
}

// TaskProgress counts completed and skipped tasks as resolved.
func TaskProgress(tasks []model.Task) int {
	done := 0
	for _, t := range tasks {
		if t.Resolved() {
			done++
		}
	}
	return Percent(done, len(tasks))
}

// Overall counts every checklist task of every milestone. A milestone without
// tasks counts as a single item resolved by its completed flag.
func Overall(list []model.Entry) int {
	done, total := 0, 0
	for _, e := range list {
		if len(e.Tasks) == 0 {
			total++
			if e.IsCompleted {
				done++
			}
			continue
		}
		for _, t := range e.Tasks {
			total++
			if t.Resolved() {
				done++
			}
		}
	}
	return Percent(done, total)
}

// Upcoming returns the open entries dated within [from, from+days].
func Upcoming(list []model.Entry, from time.Time, days int) []model.Entry {
	start := model.Day(from)
	end := start.AddDate(0, 0, days)
	var out []model.Entry
	for _, e := range list {
		if e.IsCompleted || e.Date.Before(start) || e.Date.After(end) {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}

// Overdue returns the open entries dated before today.
func Overdue(list []model.Entry, today time.Time) []model.Entry {
	start := model.Day(today)
	var out []model.Entry
	for _, e := range list {
		if !e.IsCompleted && e.Date.Before(start) {
			out = append(out, e.Clone())
		}
	}
	return out
}
