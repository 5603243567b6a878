package model

import (
	"math"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date. All timeline dates are
// compared and stored in this form.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a yyyy-mm-dd date.
func ParseDay(raw string) (time.Time, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: "expected yyyy-mm-dd"}
	}
	return t, nil
}

// FormatDay renders t as yyyy-mm-dd.
func FormatDay(t time.Time) string {
	return t.Format(dayLayout)
}

// DaysBetween returns round((to-from)/24h) on calendar days.
func DaysBetween(from, to time.Time) int {
	return int(math.Round(Day(to).Sub(Day(from)).Hours() / 24))
}

// DateFor returns the date that lies days calendar days before wedding.
func DateFor(wedding time.Time, days int) time.Time {
	return Day(wedding).AddDate(0, 0, -days)
}

type Category struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

type TemplateEntry struct {
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	DaysBeforeWedding int      `yaml:"days_before"`
	Category          string   `yaml:"category"`
	Tasks             []string `yaml:"tasks"`
}

func (e TemplateEntry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return required("template title")
	}
	if e.DaysBeforeWedding < 0 {
		return &ValidationError{Field: "days_before", Reason: "must not be negative"}
	}
	return nil
}

type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Skipped   bool   `json:"skipped"`
	IsCustom  bool   `json:"is_custom"`
}

func (t Task) Resolved() bool { return t.Completed || t.Skipped }

// Status is Completed, Skipped or Pending.
func (t Task) Status() string {
	switch {
	case t.Completed:
		return StatusCompleted
	case t.Skipped:
		return StatusSkipped
	default:
		return StatusPending
	}
}

const (
	StatusCompleted = "Completed"
	StatusSkipped   = "Skipped"
	StatusPending   = "Pending"
)

// Entry is one dated milestone of a wedding timeline.
type Entry struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Date              time.Time `json:"date"`
	DaysBeforeWedding int       `json:"days_before_wedding"`
	CategoryID        string    `json:"category_id"`
	CategoryColor     string    `json:"category_color"`
	IsCompleted       bool      `json:"is_completed"`
	IsCustom          bool      `json:"is_custom"`
	Tasks             []Task    `json:"tasks,omitempty"`
}

func (e Entry) Status() string {
	if e.IsCompleted {
		return StatusCompleted
	}
	return StatusPending
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return required("id")
	}
	if strings.TrimSpace(e.Title) == "" {
		return required("title")
	}
	if e.Date.IsZero() {
		return required("date")
	}
	for _, t := range e.Tasks {
		if t.Completed && t.Skipped {
			return &ValidationError{Field: "task " + t.ID, Reason: "cannot be both completed and skipped"}
		}
	}
	return nil
}

// Clone returns a copy that shares no task slice with e.
func (e Entry) Clone() Entry {
	if e.Tasks != nil {
		e.Tasks = append([]Task(nil), e.Tasks...)
	}
	return e
}

// Timeline is the persisted unit: a wedding date and its milestones.
type Timeline struct {
	WeddingDate time.Time `json:"wedding_date"`
	Template    string    `json:"template"`
	Entries     []Entry   `json:"entries"`
}
