package update

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/wedplan/internal/config"
	"github.com/sandeepkv93/wedplan/internal/logging"
	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/notify"
	"github.com/sandeepkv93/wedplan/internal/planner"
	"github.com/sandeepkv93/wedplan/internal/storage"
	"github.com/sandeepkv93/wedplan/internal/timeline"
)

var (
	testWedding = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	testNow     = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
)

func newPlannedModel(t *testing.T) (Model, *planner.Service) {
	t.Helper()
	repo, err := storage.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("file repo: %v", err)
	}
	clock := func() time.Time { return testNow }
	svc := planner.NewService(repo,
		planner.WithGenerator(timeline.NewGenerator(timeline.NewRegistry(), timeline.NewCounter("e"))),
		planner.WithLogger(logging.Discard()),
		planner.WithClock(clock),
	)
	if _, err := svc.Create(context.Background(), "default", testWedding, "short"); err != nil {
		t.Fatalf("create: %v", err)
	}
	cfg := DefaultRuntimeConfig()
	cfg.ExportDir = t.TempDir()
	return NewModel(Deps{Planner: svc, Config: cfg, Now: clock}), svc
}

func typeCommand(t *testing.T, m Model, command string) Model {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	next := updated.(Model)
	if !next.Palette.Active {
		t.Fatalf("expected command palette to be active")
	}
	for _, r := range command {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
		if r == ' ' {
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		}
		updated, _ = next.Update(msg)
		next = updated.(Model)
	}
	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model)
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(Deps{})
	if m.CurrentView != ViewTimeline {
		t.Fatalf("expected default view %q, got %q", ViewTimeline, m.CurrentView)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
	if m.cfg.UserID != "default" || m.cfg.UpcomingDays != 30 {
		t.Fatalf("unexpected runtime config %+v", m.cfg)
	}
}

func TestNewModelWithoutTimeline(t *testing.T) {
	repo, err := storage.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(Deps{Planner: planner.NewService(repo, planner.WithLogger(logging.Discard()))})
	if m.LastError != nil {
		t.Fatalf("missing timeline should not be an error, got %v", m.LastError)
	}
	if !strings.Contains(m.Status.Text, "wedplan init") {
		t.Fatalf("expected init hint, got %+v", m.Status)
	}
}

func TestUpdateKeySwitchesView(t *testing.T) {
	m := NewModel(Deps{})
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	next := updated.(Model)
	if next.CurrentView != ViewUpcoming {
		t.Fatalf("expected upcoming view, got %q", next.CurrentView)
	}

	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	next = updated.(Model)
	if next.CurrentView != ViewPlanner {
		t.Fatalf("expected planner view, got %q", next.CurrentView)
	}
}

func TestUpdateSwitchViewMsg(t *testing.T) {
	m := NewModel(Deps{})
	updated, _ := m.Update(SwitchViewMsg{View: ViewUpcoming})
	next := updated.(Model)
	if next.CurrentView != ViewUpcoming {
		t.Fatalf("expected upcoming view, got %q", next.CurrentView)
	}

	updated, _ = next.Update(SwitchViewMsg{View: View("Unknown")})
	next = updated.(Model)
	if next.CurrentView != ViewUpcoming {
		t.Fatalf("expected view unchanged for unknown view, got %q", next.CurrentView)
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m := NewModel(Deps{})
	updated, _ := m.Update(SetStatusMsg{Text: "ready"})
	next := updated.(Model)
	if next.Status.Text != "ready" || next.Status.IsError {
		t.Fatalf("unexpected status: %+v", next.Status)
	}

	updated, _ = next.Update(AppErrorMsg{Err: errors.New("boom")})
	next = updated.(Model)
	if next.LastError == nil || next.LastError.Error() != "boom" {
		t.Fatalf("expected last error boom, got: %v", next.LastError)
	}
	if !next.Status.IsError || next.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %+v", next.Status)
	}

	updated, _ = next.Update(ClearStatusMsg{})
	next = updated.(Model)
	if next.Status.Text != "" || next.Status.IsError {
		t.Fatalf("expected cleared status, got: %+v", next.Status)
	}
}

func TestUpdateQuitKey(t *testing.T) {
	m := NewModel(Deps{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	next := updated.(Model)
	if !next.Quitting {
		t.Fatalf("expected quitting state")
	}
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
}

func TestTimelineCursorAndToggle(t *testing.T) {
	m, svc := newPlannedModel(t)
	if len(m.Timeline.Entries) != 8 {
		t.Fatalf("expected short template entries, got %d", len(m.Timeline.Entries))
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	next := updated.(Model)
	if next.Cursor != 7 {
		t.Fatalf("expected cursor at last row, got %d", next.Cursor)
	}
	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	next = updated.(Model)
	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	next = updated.(Model)
	if next.Cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", next.Cursor)
	}

	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	next = updated.(Model)
	tl, err := svc.Load(context.Background(), "default")
	if err != nil {
		t.Fatal(err)
	}
	if !tl.Entries[1].IsCompleted || !next.Timeline.Entries[1].IsCompleted {
		t.Fatalf("expected second milestone completed")
	}
	if !strings.HasPrefix(next.Status.Text, "completed:") {
		t.Fatalf("unexpected status %+v", next.Status)
	}
}

func TestPaletteAddDoneAndSkip(t *testing.T) {
	m, svc := newPlannedModel(t)
	ctx := context.Background()

	next := typeCommand(t, m, "add 2025-05-01 Dress fitting")
	if next.Status.IsError {
		t.Fatalf("add failed: %+v", next.Status)
	}
	if len(next.Timeline.Entries) != 9 {
		t.Fatalf("expected custom event in timeline, got %d entries", len(next.Timeline.Entries))
	}

	next = typeCommand(t, next, "done 1")
	if next.Status.IsError || !next.Timeline.Entries[0].IsCompleted {
		t.Fatalf("done failed: %+v", next.Status)
	}

	next = typeCommand(t, next, "task 2 Visit two venues")
	if next.Status.IsError {
		t.Fatalf("task failed: %+v", next.Status)
	}
	next = typeCommand(t, next, "skip 2 visit two venues")
	if next.Status.IsError {
		t.Fatalf("skip failed: %+v", next.Status)
	}

	tl, err := svc.Load(ctx, "default")
	if err != nil {
		t.Fatal(err)
	}
	tasks := tl.Entries[1].Tasks
	if len(tasks) == 0 || !tasks[len(tasks)-1].Skipped {
		t.Fatalf("expected skipped custom task, got %+v", tasks)
	}
}

func TestPaletteErrors(t *testing.T) {
	m, _ := newPlannedModel(t)

	next := typeCommand(t, m, "done 99")
	if !next.Status.IsError || !strings.Contains(next.Status.Text, "no row 99") {
		t.Fatalf("expected row error, got %+v", next.Status)
	}

	next = typeCommand(t, next, "frobnicate")
	if !next.Status.IsError {
		t.Fatalf("expected parse error, got %+v", next.Status)
	}
	if next.Palette.Active {
		t.Fatalf("palette should close after enter")
	}
}

func TestPaletteEscapeCloses(t *testing.T) {
	m := NewModel(Deps{})
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	next := updated.(Model)
	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	next = updated.(Model)
	if next.Palette.Input != "x" {
		t.Fatalf("expected palette input x, got %q", next.Palette.Input)
	}
	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyEsc})
	next = updated.(Model)
	if next.Palette.Active || next.Palette.Input != "" {
		t.Fatalf("expected closed palette, got %+v", next.Palette)
	}
}

func TestPaletteExportAndReschedule(t *testing.T) {
	m, _ := newPlannedModel(t)

	next := typeCommand(t, m, "export csv")
	if next.Status.IsError || !strings.Contains(next.Status.Text, "wedding_timeline_2025-05-20.csv") {
		t.Fatalf("unexpected export status %+v", next.Status)
	}

	next = typeCommand(t, next, "reschedule 2025-07-15")
	if next.Status.IsError {
		t.Fatalf("reschedule failed: %+v", next.Status)
	}
	if !next.Timeline.WeddingDate.Equal(time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("wedding date not moved: %v", next.Timeline.WeddingDate)
	}
}

func TestBusEventsBecomeNotifications(t *testing.T) {
	bus := notify.NewBus()
	sub := bus.Subscribe(4)
	defer sub.Close()
	m := NewModel(Deps{Events: sub, Now: func() time.Time { return testNow }})
	if m.Init() == nil {
		t.Fatalf("expected init to wait on the event bus")
	}

	updated, cmd := m.Update(BusEventMsg{Event: notify.Event{
		Kind:  notify.KindReminder,
		Title: "Seating plan",
		Date:  time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
	}})
	next := updated.(Model)
	if cmd == nil {
		t.Fatalf("expected next wait command")
	}
	if len(next.Notifications) != 1 || next.Notifications[0].Title != "Reminder" {
		t.Fatalf("unexpected notifications %+v", next.Notifications)
	}
	if !strings.Contains(next.Notifications[0].Body, "2025-06-05") {
		t.Fatalf("unexpected reminder body %q", next.Notifications[0].Body)
	}

	for i := 0; i < 10; i++ {
		updated, _ = next.Update(BusEventMsg{Event: notify.Event{Kind: notify.KindDigest, Message: "26 days to go"}})
		next = updated.(Model)
	}
	if len(next.Notifications) != 5 {
		t.Fatalf("expected notifications capped at 5, got %d", len(next.Notifications))
	}
}

func TestPlannerViewSummary(t *testing.T) {
	c := planner.NewMemoryCollections()
	ctx := context.Background()
	if err := c.Guests.Add(ctx, model.Guest{ID: "g1", Name: "Anna", RSVP: model.RSVPAccepted, PlusOnes: 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Budget.Add(ctx, model.BudgetItem{ID: "b1", Scope: model.ScopeWedding, Name: "Venue", Planned: 1000, Actual: 1500}); err != nil {
		t.Fatal(err)
	}
	m := NewModel(Deps{Collections: &c})
	updated, _ := m.Update(SwitchViewMsg{View: ViewPlanner})
	next := updated.(Model)
	if next.Summary == nil || next.Summary.Guests.Headcount != 2 {
		t.Fatalf("unexpected summary %+v", next.Summary)
	}
	if next.Summary.Wedding.Remaining() != -500 {
		t.Fatalf("expected over budget, got %d", next.Summary.Wedding.Remaining())
	}
	if !strings.Contains(next.View(), "headcount: 2") {
		t.Fatalf("planner view missing headcount")
	}
}

func TestViewRendersTimeline(t *testing.T) {
	m, _ := newPlannedModel(t)
	out := m.View()
	for _, want := range []string{"wedding: 2025-06-15", "Set the budget", "26 days to go", "keys:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view output", want)
		}
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	next := updated.(Model)
	if !strings.Contains(next.View(), "reschedule <yyyy-mm-dd>") {
		t.Fatalf("help should list palette commands")
	}
}

func TestNewModelKeepsRuntimeConfig(t *testing.T) {
	m := NewModel(Deps{Config: RuntimeConfig{UserID: "couple", UpcomingDays: 14}})
	if m.cfg.UserID != "couple" || m.cfg.UpcomingDays != 14 {
		t.Fatalf("explicit runtime config not kept: %+v", m.cfg)
	}
}

func TestRuntimeConfigFrom(t *testing.T) {
	cfg := config.Default()
	cfg.User = "couple"
	cfg.ExportDir = "/tmp/out"
	cfg.DigestDays = 45
	rc := RuntimeConfigFrom(cfg)
	if rc.UserID != "couple" || rc.ExportDir != "/tmp/out" || rc.UpcomingDays != 45 {
		t.Fatalf("unexpected runtime config %+v", rc)
	}
}

func TestWindowSizeResizesPanes(t *testing.T) {
	m, _ := newPlannedModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	next := updated.(Model)
	if next.paneWidth != 46 || next.detailView.Width != 44 {
		t.Fatalf("pane %d detail %d", next.paneWidth, next.detailView.Width)
	}
	if !strings.Contains(next.View(), "26 days") {
		t.Fatalf("countdown missing from header")
	}
}

func TestCountdownLabel(t *testing.T) {
	cases := map[int]string{0: "wedding day", 1: "tomorrow", 30: "30 days", -3: "married 3 days"}
	for days, want := range cases {
		if got := countdownLabel(days); got != want {
			t.Fatalf("countdownLabel(%d) = %q, want %q", days, got, want)
		}
	}
}

func TestHelpFollowsCurrentView(t *testing.T) {
	m, _ := newPlannedModel(t)
	m.HelpVisible = true
	if out := m.renderHelpIfVisible(); !strings.Contains(out, "move selection") {
		t.Fatalf("timeline help missing navigation keys:\n%s", out)
	}
	m.CurrentView = ViewPlanner
	out := m.renderHelpIfVisible()
	if !strings.Contains(out, "refresh totals") || strings.Contains(out, "move selection") {
		t.Fatalf("planner help shows wrong keys:\n%s", out)
	}
	m.HelpVisible = false
	if m.renderHelpIfVisible() != "" {
		t.Fatalf("hidden help rendered")
	}
}
