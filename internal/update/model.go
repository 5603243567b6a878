// Package update is the bubbletea model of the wedding timeline TUI.
package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/notify"
	"github.com/sandeepkv93/wedplan/internal/planner"
	"github.com/sandeepkv93/wedplan/internal/timeline"
)

type View string

const (
	ViewTimeline View = "Timeline"
	ViewUpcoming View = "Upcoming"
	ViewPlanner  View = "Planner"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Timeline string
	Upcoming string
	Planner  string
	Help     string
	Quit     string
}

// Planner is the part of the planner service the TUI drives.
type Planner interface {
	Load(ctx context.Context, userID string) (model.Timeline, error)
	AddEvent(ctx context.Context, userID string, ev timeline.CustomEvent) (model.Entry, error)
	RemoveEvent(ctx context.Context, userID, id string) error
	MarkCompleted(ctx context.Context, userID, id string, completed bool) error
	SkipTask(ctx context.Context, userID, entryID, taskID string, skipped bool) error
	AddTask(ctx context.Context, userID, entryID, name string) (string, error)
	Reschedule(ctx context.Context, userID string, wedding time.Time) (model.Timeline, error)
	ExportFile(ctx context.Context, userID, dir, format string) (string, error)
}

type Deps struct {
	Planner     Planner
	Events      *notify.Subscription
	Collections *planner.Collections
	Config      RuntimeConfig
	Now         func() time.Time
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type PlannerSummary struct {
	Guests  planner.RSVPSummary
	Wedding planner.BudgetTotals
	JGA     planner.BudgetTotals
	Vendors int
}

type Model struct {
	CurrentView   View
	Timeline      model.Timeline
	Cursor        int
	Summary       *PlannerSummary
	Palette       CommandPaletteState
	HelpVisible   bool
	Notifications []Notification
	Status        StatusBar
	Keys          GlobalKeyMap
	Quitting      bool
	LastError     error

	planner     Planner
	events      *notify.Subscription
	collections *planner.Collections
	cfg         RuntimeConfig
	now         func() time.Time

	commandInput textinput.Model
	progressBar  progress.Model
	helpModel    help.Model
	detailView   viewport.Model
	paneWidth    int
	detailSource string
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// BusEventMsg carries a planner event received from the notification bus.
type BusEventMsg struct {
	Event notify.Event
}

type TimelineLoadedMsg struct {
	Timeline model.Timeline
	Err      error
}

func NewModel(deps Deps) Model {
	cfg := deps.Config
	if cfg.UserID == "" {
		cfg = DefaultRuntimeConfig()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	m := Model{
		CurrentView: ViewTimeline,
		Keys: GlobalKeyMap{
			Timeline: "1",
			Upcoming: "2",
			Planner:  "3",
			Help:     "?",
			Quit:     "q",
		},
		planner:     deps.Planner,
		events:      deps.Events,
		collections: deps.Collections,
		cfg:         cfg,
		now:         now,
	}
	m.initBubbleComponents()
	if m.planner != nil {
		tl, err := m.planner.Load(context.Background(), cfg.UserID)
		m = m.applyLoaded(TimelineLoadedMsg{Timeline: tl, Err: err})
	}
	m.syncBubbleData()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.progressBar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	m.helpModel = help.New()
	m.detailView = viewport.New(54, 12)
}
