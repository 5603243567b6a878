// Package timeline turns a wedding date into a dated, stateful checklist and
// keeps that checklist consistent as entries are added, edited, completed and
// removed. All functions are pure: they return a new list and never modify the
// slice passed in.
package timeline

import (
	"sort"
	"time"

	"github.com/sandeepkv93/wedplan/internal/model"
)

// Generator builds timelines from a Registry, taking ids from an IDSource.
type Generator struct {
	reg *Registry
	ids IDSource
}

func NewGenerator(reg *Registry, ids IDSource) *Generator {
	if reg == nil {
		reg = NewRegistry()
	}
	if ids == nil {
		ids = UUIDSource{}
	}
	return &Generator{reg: reg, ids: ids}
}

var defaultGenerator = NewGenerator(nil, nil)

func (g *Generator) Registry() *Registry { return g.reg }

// Generate creates one entry per template entry, dated relative to wedding and
// sorted ascending by date. Unknown template names use the standard template.
func (g *Generator) Generate(wedding time.Time, template string) ([]model.Entry, error) {
	if wedding.IsZero() {
		return nil, &model.ValidationError{Field: "wedding date"}
	}
	_, entries := g.reg.Template(template)
	out := make([]model.Entry, 0, len(entries))
	for _, te := range entries {
		cat := g.reg.Category(te.Category)
		e := model.Entry{
			ID:                g.ids.NewID(),
			Title:             te.Title,
			Description:       te.Description,
			Date:              model.DateFor(wedding, te.DaysBeforeWedding),
			DaysBeforeWedding: te.DaysBeforeWedding,
			CategoryID:        cat.ID,
			CategoryColor:     cat.Color,
		}
		for _, name := range te.Tasks {
			e.Tasks = append(e.Tasks, model.Task{ID: g.ids.NewID(), Name: name})
		}
		out = append(out, e)
	}
	sortByDate(out)
	return out, nil
}

// Generate uses the built-in templates and UUID identifiers.
func Generate(wedding time.Time, template string) ([]model.Entry, error) {
	return defaultGenerator.Generate(wedding, template)
}

func sortByDate(list []model.Entry) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Date.Before(list[j].Date)
	})
}

func clone(list []model.Entry) []model.Entry {
	out := make([]model.Entry, len(list))
	for i, e := range list {
		out[i] = e.Clone()
	}
	return out
}

func indexOf(list []model.Entry, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the entry with the given id.
func Find(list []model.Entry, id string) (model.Entry, bool) {
	if i := indexOf(list, id); i >= 0 {
		return list[i], true
	}
	return model.Entry{}, false
}

// IsSorted reports whether list is in ascending date order.
func IsSorted(list []model.Entry) bool {
	for i := 1; i < len(list); i++ {
		if list[i].Date.Before(list[i-1].Date) {
			return false
		}
	}
	return true
}
