package timeline

import (
	"strings"
	"time"

	"github.com/sandeepkv93/wedplan/internal/model"
)

// CustomEvent is a user-supplied timeline entry. Title and Date are required.
type CustomEvent struct {
	Title       string
	Date        time.Time
	Description string
	Category    string
}

// Patch changes selected fields of an entry; nil fields are left alone.
type Patch struct {
	Title       *string
	Description *string
	Date        *time.Time
	Category    *string
}

// AddCustomEvent inserts ev into a copy of list. Its offset is derived from its
// date and may be negative for dates after the wedding.
func (g *Generator) AddCustomEvent(list []model.Entry, ev CustomEvent, wedding time.Time) ([]model.Entry, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return nil, &model.ValidationError{Field: "title"}
	}
	if ev.Date.IsZero() {
		return nil, &model.ValidationError{Field: "date"}
	}
	cat := g.reg.Category(ev.Category)
	date := model.Day(ev.Date)
	out := append(clone(list), model.Entry{
		ID:                g.ids.NewID(),
		Title:             strings.TrimSpace(ev.Title),
		Description:       ev.Description,
		Date:              date,
		DaysBeforeWedding: model.DaysBetween(date, wedding),
		CategoryID:        cat.ID,
		CategoryColor:     cat.Color,
		IsCustom:          true,
	})
	sortByDate(out)
	return out, nil
}

func AddCustomEvent(list []model.Entry, ev CustomEvent, wedding time.Time) ([]model.Entry, error) {
	return defaultGenerator.AddCustomEvent(list, ev, wedding)
}

// UpdateEvent applies p to the entry with the given id.
func (g *Generator) UpdateEvent(list []model.Entry, id string, p Patch, wedding time.Time) ([]model.Entry, error) {
	i := indexOf(list, id)
	if i < 0 {
		return nil, &model.NotFoundError{Kind: "entry", ID: id}
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, &model.ValidationError{Field: "title"}
	}
	if p.Date != nil && p.Date.IsZero() {
		return nil, &model.ValidationError{Field: "date"}
	}

	out := clone(list)
	e := &out[i]
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = model.Day(*p.Date)
		e.DaysBeforeWedding = model.DaysBetween(e.Date, wedding)
	}
	if p.Category != nil {
		cat := g.reg.Category(*p.Category)
		e.CategoryID = cat.ID
		e.CategoryColor = cat.Color
	}
	sortByDate(out)
	return out, nil
}

func UpdateEvent(list []model.Entry, id string, p Patch, wedding time.Time) ([]model.Entry, error) {
	return defaultGenerator.UpdateEvent(list, id, p, wedding)
}

// RemoveEvent drops the entry with the given id. Unknown ids leave the list
// unchanged.
func RemoveEvent(list []model.Entry, id string) []model.Entry {
	i := indexOf(list, id)
	if i < 0 {
		return list
	}
	out := make([]model.Entry, 0, len(list)-1)
	for j, e := range list {
		if j != i {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Reschedule moves the wedding. Template entries keep their offset and move
// with it; custom entries keep their date and get a new offset.
func Reschedule(list []model.Entry, wedding time.Time) []model.Entry {
	out := clone(list)
	for i := range out {
		if out[i].IsCustom {
			out[i].DaysBeforeWedding = model.DaysBetween(out[i].Date, wedding)
			continue
		}
		out[i].Date = model.DateFor(wedding, out[i].DaysBeforeWedding)
	}
	sortByDate(out)
	return out
}

// AddTask appends a custom checklist task to a milestone.
func (g *Generator) AddTask(list []model.Entry, entryID, name string) ([]model.Entry, string, error) {
	i := indexOf(list, entryID)
	if i < 0 {
		return nil, "", &model.NotFoundError{Kind: "entry", ID: entryID}
	}
	if strings.TrimSpace(name) == "" {
		return nil, "", &model.ValidationError{Field: "task name"}
	}
	out := clone(list)
	id := g.ids.NewID()
	out[i].Tasks = append(out[i].Tasks, model.Task{ID: id, Name: strings.TrimSpace(name), IsCustom: true})
	return out, id, nil
}

func AddTask(list []model.Entry, entryID, name string) ([]model.Entry, string, error) {
	return defaultGenerator.AddTask(list, entryID, name)
}

// RemoveTask drops a task from a milestone. Unknown task ids are ignored.
func RemoveTask(list []model.Entry, entryID, taskID string) ([]model.Entry, error) {
	i := indexOf(list, entryID)
	if i < 0 {
		return nil, &model.NotFoundError{Kind: "entry", ID: entryID}
	}
	out := clone(list)
	tasks := out[i].Tasks[:0]
	for _, t := range out[i].Tasks {
		if t.ID != taskID {
			tasks = append(tasks, t)
		}
	}
	out[i].Tasks = tasks
	return out, nil
}
