package planner

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/sandeepkv93/wedplan/internal/logging"
	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/notify"
	"github.com/sandeepkv93/wedplan/internal/storage"
	"github.com/sandeepkv93/wedplan/internal/timeline"
)

var (
	wedding = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	today   = time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *notify.Subscription) {
	t.Helper()
	repo, err := storage.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("file repo: %v", err)
	}
	bus := notify.NewBus()
	sub := bus.Subscribe(64)
	svc := NewService(repo,
		WithPublisher(bus),
		WithGenerator(timeline.NewGenerator(timeline.NewRegistry(), timeline.NewCounter("id"))),
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return today }),
	)
	return svc, sub
}

func nextEvent(t *testing.T, sub *notify.Subscription) notify.Event {
	t.Helper()
	select {
	case ev := <-sub.C():
		return ev
	default:
		t.Fatalf("expected a published event")
		return notify.Event{}
	}
}

func TestCreateAndLoad(t *testing.T) {
	svc, sub := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "couple", wedding, "unknown-template")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Template != timeline.DefaultTemplate {
		t.Fatalf("expected fallback template, got %q", created.Template)
	}
	if ev := nextEvent(t, sub); ev.Kind != notify.KindTimelineCreated {
		t.Fatalf("unexpected event %+v", ev)
	}

	loaded, err := svc.Load(ctx, "couple")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(created.Entries, loaded.Entries, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("loaded timeline differs (-created +loaded):\n%s", diff)
	}
	if !timeline.IsSorted(loaded.Entries) {
		t.Fatalf("loaded entries not sorted")
	}
}

func TestLoadWithoutTimeline(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Load(context.Background(), "nobody"); !errors.Is(err, ErrNoTimeline) {
		t.Fatalf("expected ErrNoTimeline, got %v", err)
	}
	if _, err := svc.AddEvent(context.Background(), "nobody", timeline.CustomEvent{Title: "x", Date: wedding}); !errors.Is(err, ErrNoTimeline) {
		t.Fatalf("mutations should need a timeline, got %v", err)
	}
}

func TestAddUpdateRemoveEvent(t *testing.T) {
	svc, sub := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "couple", wedding, "short"); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, sub)

	added, err := svc.AddEvent(ctx, "couple", timeline.CustomEvent{
		Title:    "Dress fitting",
		Date:     time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Category: "attire",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.DaysBeforeWedding != 45 || !added.IsCustom || added.ID == "" {
		t.Fatalf("unexpected entry %+v", added)
	}
	if ev := nextEvent(t, sub); ev.Kind != notify.KindEventAdded || ev.EntryID != added.ID {
		t.Fatalf("unexpected event %+v", ev)
	}

	title := "Second dress fitting"
	updated, err := svc.UpdateEvent(ctx, "couple", added.ID, timeline.Patch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("title not updated: %+v", updated)
	}
	nextEvent(t, sub)

	if _, err := svc.UpdateEvent(ctx, "couple", "missing", timeline.Patch{Title: &title}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := svc.RemoveEvent(ctx, "couple", added.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ev := nextEvent(t, sub); ev.Kind != notify.KindEventRemoved {
		t.Fatalf("unexpected event %+v", ev)
	}
	if err := svc.RemoveEvent(ctx, "couple", added.ID); err != nil {
		t.Fatalf("removing twice should be a no-op, got %v", err)
	}
	if len(sub.C()) != 0 {
		t.Fatalf("no-op remove should not publish")
	}
}

func TestCompletionAndProgress(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tl, err := svc.Create(ctx, "couple", wedding, "short")
	if err != nil {
		t.Fatal(err)
	}
	first := tl.Entries[0]

	if err := svc.MarkCompleted(ctx, "couple", first.ID, true); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := svc.MarkCompleted(ctx, "couple", "missing", true); err != nil {
		t.Fatalf("unknown entry should be a no-op, got %v", err)
	}

	sum, err := svc.Progress(ctx, "couple")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Completed != 1 || sum.Entries != len(tl.Entries) || sum.DaysLeft != 26 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.Percent != timeline.Percent(1, len(tl.Entries)) {
		t.Fatalf("unexpected percent %d", sum.Percent)
	}
}

func TestTaskOperations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tl, err := svc.Create(ctx, "couple", wedding, "standard")
	if err != nil {
		t.Fatal(err)
	}
	var entry model.Entry
	for _, e := range tl.Entries {
		if len(e.Tasks) >= 2 {
			entry = e
			break
		}
	}
	if entry.ID == "" {
		t.Fatalf("standard template should have an entry with tasks")
	}

	if err := svc.CompleteTask(ctx, "couple", entry.ID, entry.Tasks[0].ID, true); err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if err := svc.SkipTask(ctx, "couple", entry.ID, entry.Tasks[1].ID, true); err != nil {
		t.Fatalf("skip task: %v", err)
	}
	taskID, err := svc.AddTask(ctx, "couple", entry.ID, "Ask about parking")
	if err != nil || taskID == "" {
		t.Fatalf("add task: %q %v", taskID, err)
	}

	loaded, _ := svc.Load(ctx, "couple")
	got, _ := timeline.Find(loaded.Entries, entry.ID)
	if !got.Tasks[0].Completed || !got.Tasks[1].Skipped || !got.Tasks[len(got.Tasks)-1].IsCustom {
		t.Fatalf("unexpected tasks %+v", got.Tasks)
	}

	if err := svc.RemoveTask(ctx, "couple", entry.ID, taskID); err != nil {
		t.Fatalf("remove task: %v", err)
	}
	if err := svc.CompleteTask(ctx, "couple", entry.ID, "nope", true); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for unknown task, got %v", err)
	}
	if err := svc.SkipTask(ctx, "couple", "nope", entry.Tasks[0].ID, true); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for unknown entry, got %v", err)
	}
}

func TestRescheduleKeepsCustomDates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "couple", wedding, "short"); err != nil {
		t.Fatal(err)
	}
	fitting := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	custom, err := svc.AddEvent(ctx, "couple", timeline.CustomEvent{Title: "Dress fitting", Date: fitting})
	if err != nil {
		t.Fatal(err)
	}

	moved := wedding.AddDate(0, 0, 30)
	tl, err := svc.Reschedule(ctx, "couple", moved)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	for _, e := range tl.Entries {
		if e.ID == custom.ID {
			if !e.Date.Equal(fitting) || e.DaysBeforeWedding != 75 {
				t.Fatalf("custom entry moved: %+v", e)
			}
			continue
		}
		if !e.Date.Equal(model.DateFor(moved, e.DaysBeforeWedding)) {
			t.Fatalf("template entry %q not shifted: %+v", e.Title, e)
		}
	}
	if _, err := svc.Reschedule(ctx, "couple", time.Time{}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportAndUpcoming(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "couple", wedding, "short"); err != nil {
		t.Fatal(err)
	}

	csv, err := svc.Export(ctx, "couple", "csv")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(csv, "Milestone/Title,Due Date,Task,Status") {
		t.Fatalf("unexpected csv: %q", csv)
	}

	dir := t.TempDir()
	path, err := svc.ExportFile(ctx, "couple", dir, "ical")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "wedding_timeline_2025-05-20.ics") {
		t.Fatalf("unexpected path %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}

	up, err := svc.Upcoming(ctx, "couple", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range up {
		if e.Date.Before(model.Day(today)) || e.Date.After(model.Day(today).AddDate(0, 0, 10)) {
			t.Fatalf("entry outside window: %+v", e)
		}
	}
}

type failingRepo struct {
	storage.Repository
	err error
}

func (f failingRepo) LoadTimeline(context.Context, string) (model.Timeline, error) {
	return model.Timeline{WeddingDate: wedding}, nil
}

func (f failingRepo) SaveTimeline(context.Context, string, model.Timeline) error {
	return f.err
}

func TestPersistenceErrorsPropagate(t *testing.T) {
	boom := errors.New("disk full")
	svc := NewService(failingRepo{err: boom}, WithLogger(logging.Discard()))
	if _, err := svc.Create(context.Background(), "couple", wedding, ""); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
	if _, err := svc.AddEvent(context.Background(), "couple", timeline.CustomEvent{Title: "x", Date: wedding}); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
}

type countingRepo struct {
	storage.Repository
	saves int
}

func (c *countingRepo) SaveTimeline(ctx context.Context, userID string, tl model.Timeline) error {
	c.saves++
	return c.Repository.SaveTimeline(ctx, userID, tl)
}

func TestNoOpMutationsSkipSave(t *testing.T) {
	inner, err := storage.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("file repo: %v", err)
	}
	repo := &countingRepo{Repository: inner}
	svc := NewService(repo,
		WithGenerator(timeline.NewGenerator(timeline.NewRegistry(), timeline.NewCounter("id"))),
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return today }),
	)
	ctx := context.Background()
	tl, err := svc.Create(ctx, "couple", wedding, "short")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	saves := repo.saves

	if err := svc.RemoveEvent(ctx, "couple", "missing"); err != nil {
		t.Fatalf("remove unknown: %v", err)
	}
	if err := svc.MarkCompleted(ctx, "couple", "missing", true); err != nil {
		t.Fatalf("complete unknown: %v", err)
	}
	if repo.saves != saves {
		t.Fatalf("unknown ids triggered %d saves", repo.saves-saves)
	}

	id := tl.Entries[0].ID
	if err := svc.MarkCompleted(ctx, "couple", id, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if repo.saves != saves+1 {
		t.Fatalf("expected one save for a real change, got %d", repo.saves-saves)
	}
	if err := svc.MarkCompleted(ctx, "couple", id, true); err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if repo.saves != saves+1 {
		t.Fatalf("repeating a completion should not save again")
	}
	got, err := svc.Load(ctx, "couple")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if e, _ := timeline.Find(got.Entries, id); !e.IsCompleted {
		t.Fatalf("completion not persisted")
	}
}
