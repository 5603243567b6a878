// Package planner runs every timeline operation as load, apply, save and
// publish against one couple's stored timeline.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/sandeepkv93/wedplan/internal/export"
	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/notify"
	"github.com/sandeepkv93/wedplan/internal/storage"
	"github.com/sandeepkv93/wedplan/internal/timeline"
)

// ErrNoTimeline is returned when a couple has not created a timeline yet.
var ErrNoTimeline = errors.New("planner: no timeline, run init first")

type Service struct {
	repo storage.Repository
	gen  *timeline.Generator
	pub  notify.Publisher
	log  *slog.Logger
	now  func() time.Time
}

type Option func(*Service)

func WithPublisher(pub notify.Publisher) Option {
	return func(s *Service) { s.pub = pub }
}

func WithGenerator(gen *timeline.Generator) Option {
	return func(s *Service) { s.gen = gen }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo storage.Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		gen:  timeline.NewGenerator(nil, nil),
		pub:  nopPublisher{},
		log:  slog.Default(),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type nopPublisher struct{}

func (nopPublisher) Publish(notify.Event) {}

// Summary is the progress of a whole timeline.
type Summary struct {
	WeddingDate time.Time
	DaysLeft    int
	Entries     int
	Completed   int
	Percent     int
	Overall     int
	Overdue     int
}

// Create generates a fresh timeline from a template, replacing any existing one.
func (s *Service) Create(ctx context.Context, userID string, wedding time.Time, template string) (model.Timeline, error) {
	entries, err := s.gen.Generate(wedding, template)
	if err != nil {
		return model.Timeline{}, err
	}
	name, _ := s.gen.Registry().Template(template)
	tl := model.Timeline{WeddingDate: model.Day(wedding), Template: name, Entries: entries}
	if err := s.repo.SaveTimeline(ctx, userID, tl); err != nil {
		return model.Timeline{}, fmt.Errorf("planner: save timeline: %w", err)
	}
	s.log.Info("timeline created", "user", userID, "template", name, "entries", len(entries))
	s.publish(notify.Event{Kind: notify.KindTimelineCreated, UserID: userID, Date: tl.WeddingDate, Title: name})
	return tl, nil
}

func (s *Service) Load(ctx context.Context, userID string) (model.Timeline, error) {
	tl, err := s.repo.LoadTimeline(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Timeline{}, ErrNoTimeline
	}
	if err != nil {
		return model.Timeline{}, fmt.Errorf("planner: load timeline: %w", err)
	}
	return tl, nil
}

// mutate loads the timeline, replaces its entries with apply's result and
// saves it. A result equal to the stored entries is not written.
func (s *Service) mutate(ctx context.Context, userID string, apply func(model.Timeline) ([]model.Entry, error)) (model.Timeline, error) {
	tl, err := s.Load(ctx, userID)
	if err != nil {
		return model.Timeline{}, err
	}
	entries, err := apply(tl)
	if err != nil {
		return model.Timeline{}, err
	}
	if cmp.Equal(tl.Entries, entries, cmpopts.EquateEmpty()) {
		return tl, nil
	}
	tl.Entries = entries
	if err := s.repo.SaveTimeline(ctx, userID, tl); err != nil {
		return model.Timeline{}, fmt.Errorf("planner: save timeline: %w", err)
	}
	return tl, nil
}

// AddEvent adds a custom entry and returns it.
func (s *Service) AddEvent(ctx context.Context, userID string, ev timeline.CustomEvent) (model.Entry, error) {
	var added model.Entry
	_, err := s.mutate(ctx, userID, func(tl model.Timeline) ([]model.Entry, error) {
		out, err := s.gen.AddCustomEvent(tl.Entries, ev, tl.WeddingDate)
		if err != nil {
			return nil, err
		}
		added = newest(tl.Entries, out)
		return out, nil
	})
	if err != nil {
		return model.Entry{}, err
	}
	s.publish(notify.Event{Kind: notify.KindEventAdded, UserID: userID, EntryID: added.ID, Title: added.Title, Date: added.Date})
	return added, nil
}

func (s *Service) UpdateEvent(ctx context.Context, userID, id string, p timeline.Patch) (model.Entry, error) {
	tl, err := s.mutate(ctx, userID, func(tl model.Timeline) ([]model.Entry, error) {
		return s.gen.UpdateEvent(tl.Entries, id, p, tl.WeddingDate)
	})
	if err != nil {
		return model.Entry{}, err
	}
	e, _ := timeline.Find(tl.Entries, id)
	s.publish(notify.Event{Kind: notify.KindEventUpdated, UserID: userID, EntryID: id, Title: e.Title, Date: e.Date})
	return e, nil
}

// RemoveEvent deletes an entry. Unknown ids leave the timeline unchanged.
func (s *Service) RemoveEvent(ctx context.Context, userID, id string) error {
	var removed model.Entry
	var found bool
	_, err := s.mutate(ctx, userID, func(tl model.Timeline) ([]model.Entry, error) {
		removed, found = timeline.Find(tl.Entries, id)
		return timeline.RemoveEvent(tl.Entries, id), nil
	})
	if err != nil {
		return err
	}
	if found {
		s.publish(notify.Event{Kind: notify.KindEventRemoved, UserID: userID, EntryID: id, Title: removed.Title})
	}
	return nil
}

func (s *Service) MarkCompleted(ctx context.Context, userID, id string, completed bool) error {
	tl, err := s.mutate(ctx, userID, func(tl model.Timeline) ([]model.Entry, error) {
		return timeline.MarkCompleted(tl.Entries, id, completed), nil
	})
	if err != nil {
		return err
	}
	e, ok := timeline.Find(tl.Entries, id)
	if !ok {
		return nil
	}
	kind := notify.KindEventCompleted
	if !completed {
		kind = notify.KindEventReopened
	}
	s.publish(notify.Event{Kind: kind, UserID: userID, EntryID: id, Title: e.Title, Date: e.Date})
	return nil
}

func (s *Service) CompleteTask(ctx context.Context, userID, entryID, taskID string, done bool) error {
	_, err := s.mutate(ctx, userID, func(tl model.Timeline) ([]model.Entry, error) {
		return timeline.SetTaskCompleted(tl.Entries, entryID, taskID, done)
	})
	if err != nil {
		return err
	}
	s.publish(notify.Event{Kind: notify.KindTaskUpdated, UserID: userID, EntryID: entryID, TaskID: taskID})
	return nil
}

func (s *Service) SkipTask(ctx context.Context, userID, entryID, taskID string, skipped bool) error {
	_, err := s.mutate(ctx, userID, func(tl model.Timeline) ([]model.Entry, error) {
		return timeline.SetTaskSkipped(tl.Entries, entryID, taskID, skipped)
	})
	if err != nil {
		return err
	}
	s.publish(notify.Event{Kind: notify.KindTaskUpdated, UserID: userID, EntryID: entryID, TaskID: taskID})
	return nil
}

// AddTask appends a custom checklist task and returns its id.
func (s *Service) AddTask(ctx context.Context, userID, entryID, name string) (string, error) {
	var taskID string
	_, err := s.mutate(ctx, userID, func(tl model.Timeline) ([]model.Entry, error) {
		out, id, err := s.gen.AddTask(tl.Entries, entryID, name)
		taskID = id
		return out, err
	})
	if err != nil {
		return "", err
	}
	s.publish(notify.Event{Kind: notify.KindTaskAdded, UserID: userID, EntryID: entryID, TaskID: taskID, Title: name})
	return taskID, nil
}

func (s *Service) RemoveTask(ctx context.Context, userID, entryID, taskID string) error {
	_, err := s.mutate(ctx, userID, func(tl model.Timeline) ([]model.Entry, error) {
		return timeline.RemoveTask(tl.Entries, entryID, taskID)
	})
	if err != nil {
		return err
	}
	s.publish(notify.Event{Kind: notify.KindTaskRemoved, UserID: userID, EntryID: entryID, TaskID: taskID})
	return nil
}

// Reschedule moves the wedding date. Template entries keep their offsets and
// custom entries keep their dates.
func (s *Service) Reschedule(ctx context.Context, userID string, wedding time.Time) (model.Timeline, error) {
	if wedding.IsZero() {
		return model.Timeline{}, &model.ValidationError{Field: "wedding date"}
	}
	tl, err := s.Load(ctx, userID)
	if err != nil {
		return model.Timeline{}, err
	}
	tl.WeddingDate = model.Day(wedding)
	tl.Entries = timeline.Reschedule(tl.Entries, tl.WeddingDate)
	if err := s.repo.SaveTimeline(ctx, userID, tl); err != nil {
		return model.Timeline{}, fmt.Errorf("planner: save timeline: %w", err)
	}
	s.log.Info("timeline rescheduled", "user", userID, "wedding", model.FormatDay(tl.WeddingDate))
	s.publish(notify.Event{Kind: notify.KindTimelineMoved, UserID: userID, Date: tl.WeddingDate})
	return tl, nil
}

func (s *Service) Progress(ctx context.Context, userID string) (Summary, error) {
	tl, err := s.Load(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(tl, s.now()), nil
}

// Summarize computes progress figures for tl as seen on now.
func Summarize(tl model.Timeline, now time.Time) Summary {
	done := 0
	for _, e := range tl.Entries {
		if e.IsCompleted {
			done++
		}
	}
	return Summary{
		WeddingDate: tl.WeddingDate,
		DaysLeft:    model.DaysBetween(model.Day(now), tl.WeddingDate),
		Entries:     len(tl.Entries),
		Completed:   done,
		Percent:     timeline.Progress(tl.Entries),
		Overall:     timeline.Overall(tl.Entries),
		Overdue:     len(timeline.Overdue(tl.Entries, now)),
	}
}

// Export renders the timeline in the given format.
func (s *Service) Export(ctx context.Context, userID, format string) (string, error) {
	tl, err := s.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	return export.Timeline(tl.Entries, format)
}

// ExportFile writes the timeline into dir and returns the file path.
func (s *Service) ExportFile(ctx context.Context, userID, dir, format string) (string, error) {
	tl, err := s.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	path, err := export.WriteFile(dir, tl.Entries, format, s.now())
	if err != nil {
		return "", err
	}
	s.log.Info("timeline exported", "user", userID, "path", path)
	return path, nil
}

// Upcoming returns open entries due within the next days days.
func (s *Service) Upcoming(ctx context.Context, userID string, days int) ([]model.Entry, error) {
	tl, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return timeline.Upcoming(tl.Entries, s.now(), days), nil
}

// LoadTimeline lets the service act as a digest source.
func (s *Service) LoadTimeline(ctx context.Context, userID string) (model.Timeline, error) {
	return s.Load(ctx, userID)
}

func (s *Service) publish(ev notify.Event) {
	ev.At = s.now()
	s.pub.Publish(ev)
}

// newest finds the entry present in after but not in before.
func newest(before, after []model.Entry) model.Entry {
	seen := make(map[string]struct{}, len(before))
	for _, e := range before {
		seen[e.ID] = struct{}{}
	}
	for _, e := range after {
		if _, ok := seen[e.ID]; !ok {
			return e
		}
	}
	return model.Entry{}
}
