package update

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/notify"
	"github.com/sandeepkv93/wedplan/internal/planner"
	"github.com/sandeepkv93/wedplan/internal/timeline"
	"github.com/sandeepkv93/wedplan/internal/views"
)

func (m Model) Init() tea.Cmd {
	if m.events != nil {
		return waitForEventCmd(m.events.C())
	}
	return nil
}

func waitForEventCmd(ch <-chan notify.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return BusEventMsg{Event: ev}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncBubbleData()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			if typed.String() == m.Keys.Help {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			next := m.handlePaletteKey(typed)
			return next, nil
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Timeline:
			m.CurrentView = ViewTimeline
			return m, nil
		case m.Keys.Upcoming:
			m.CurrentView = ViewUpcoming
			return m, nil
		case m.Keys.Planner:
			m.CurrentView = ViewPlanner
			m.refreshSummary()
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown"}
			} else {
				m.Status = StatusBar{Text: "help hidden"}
			}
			return m, nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		if m.CurrentView == ViewTimeline {
			return m.handleTimelineKey(typed), nil
		}
		if m.CurrentView == ViewPlanner && typed.String() == "r" {
			m.refreshSummary()
			return m, nil
		}
	case tea.WindowSizeMsg:
		if typed.Width > 0 {
			m.paneWidth = max(24, typed.Width/2-4)
			m.detailView.Width = m.paneWidth - 2
			m.detailSource = ""
			m.syncBubbleData()
		}
		return m, nil
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
			if typed.View == ViewPlanner {
				m.refreshSummary()
			}
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	case TimelineLoadedMsg:
		return m.applyLoaded(typed), nil
	case BusEventMsg:
		m = m.applyEvent(typed.Event)
		if m.events != nil {
			return m, waitForEventCmd(m.events.C())
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleTimelineKey(msg tea.KeyMsg) Model {
	n := len(m.Timeline.Entries)
	switch msg.String() {
	case "j", "down":
		if m.Cursor < n-1 {
			m.Cursor++
		}
	case "k", "up":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "g", "home":
		m.Cursor = 0
	case "G", "end":
		if n > 0 {
			m.Cursor = n - 1
		}
	case " ":
		entry, ok := m.selectedEntry()
		if !ok || m.planner == nil {
			return m
		}
		err := m.planner.MarkCompleted(context.Background(), m.cfg.UserID, entry.ID, !entry.IsCompleted)
		if err != nil {
			m.LastError = err
			m.Status = StatusBar{Text: err.Error(), IsError: true}
			return m
		}
		m.reload()
		if entry.IsCompleted {
			m.Status = StatusBar{Text: fmt.Sprintf("reopened: %s", entry.Title)}
		} else {
			m.Status = StatusBar{Text: fmt.Sprintf("completed: %s", entry.Title)}
		}
	}
	return m
}

func (m Model) applyLoaded(msg TimelineLoadedMsg) Model {
	if msg.Err != nil {
		if errors.Is(msg.Err, planner.ErrNoTimeline) {
			m.Timeline = model.Timeline{}
			m.Status = StatusBar{Text: "no timeline yet, run: wedplan init --date yyyy-mm-dd"}
			return m
		}
		m.LastError = msg.Err
		m.Status = StatusBar{Text: msg.Err.Error(), IsError: true}
		return m
	}
	m.Timeline = msg.Timeline
	if m.Cursor >= len(m.Timeline.Entries) {
		m.Cursor = max(0, len(m.Timeline.Entries)-1)
	}
	return m
}

func (m *Model) reload() {
	if m.planner == nil {
		return
	}
	tl, err := m.planner.Load(context.Background(), m.cfg.UserID)
	*m = m.applyLoaded(TimelineLoadedMsg{Timeline: tl, Err: err})
}

func (m Model) applyEvent(ev notify.Event) Model {
	switch ev.Kind {
	case notify.KindReminder:
		m.notify("Reminder", fmt.Sprintf("%s due %s", ev.Title, model.FormatDay(ev.Date)), "warn")
	case notify.KindDigest:
		m.notify("Digest", ev.Message, "info")
	default:
		if ev.UserID == m.cfg.UserID {
			m.reload()
		}
	}
	return m
}

func (m *Model) refreshSummary() {
	if m.collections == nil {
		return
	}
	ctx := context.Background()
	var s PlannerSummary
	var err error
	if s.Guests, err = planner.GuestSummary(ctx, m.collections.Guests); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	if s.Wedding, err = planner.BudgetSummary(ctx, m.collections.Budget, model.ScopeWedding); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	if s.JGA, err = planner.BudgetSummary(ctx, m.collections.Budget, model.ScopeJGA); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	vendors, err := m.collections.Vendors.List(ctx, nil)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	s.Vendors = len(vendors)
	m.Summary = &s
}

func (m Model) selectedEntry() (model.Entry, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Timeline.Entries) {
		return model.Entry{}, false
	}
	return m.Timeline.Entries[m.Cursor], true
}

// entryAt resolves a 1-based row number as shown in the timeline view.
func (m Model) entryAt(row int) (model.Entry, bool) {
	if row < 1 || row > len(m.Timeline.Entries) {
		return model.Entry{}, false
	}
	return m.Timeline.Entries[row-1], true
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	m.Notifications = append(m.Notifications, Notification{Title: title, Body: body, Level: level, At: m.now()})
	limit := m.cfg.NotificationLimit
	if limit <= 0 {
		limit = 5
	}
	if len(m.Notifications) > limit {
		m.Notifications = m.Notifications[len(m.Notifications)-limit:]
	}
}

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}

func (m *Model) syncBubbleData() {
	m.commandInput.SetValue(m.Palette.Input)
	if m.Palette.Active {
		m.commandInput.Focus()
	}

	entry, ok := m.selectedEntry()
	if !ok {
		return
	}
	md := entry.Description
	if strings.TrimSpace(md) == "" {
		md = "_No description_"
	}
	if md != m.detailSource {
		m.detailSource = md
		m.detailView.SetContent(views.RenderMarkdown(md, m.detailView.Width))
		m.detailView.GotoTop()
	}
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewTimeline:
		leftPane = m.renderTimelineView()
		rightPane = m.renderDetailView()
	case ViewUpcoming:
		leftPane = m.renderUpcomingView()
		rightPane = m.renderDetailView()
	case ViewPlanner:
		leftPane = m.renderPlannerView()
	}
	rightPane = strings.TrimSpace(strings.Join([]string{
		rightPane,
		views.RenderCommandPalette(m.Palette.Active, m.commandInput.Value()),
		m.renderHelpIfVisible(),
	}, "\n"))

	wedding := "no date"
	countdown := ""
	if !m.Timeline.WeddingDate.IsZero() {
		wedding = model.FormatDay(m.Timeline.WeddingDate)
		countdown = countdownLabel(model.DaysBetween(model.Day(m.now()), m.Timeline.WeddingDate))
	}
	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("wedplan | view: %s | wedding: %s", m.CurrentView, wedding),
		Countdown:    countdown,
		PaneWidth:    m.paneWidth,
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: m.renderNotificationsView(),
		Footer:       fmt.Sprintf("keys: %s timeline | %s upcoming | %s planner | / cmd | %s help | %s quit", m.Keys.Timeline, m.Keys.Upcoming, m.Keys.Planner, m.Keys.Help, m.Keys.Quit),
	})
}

func countdownLabel(days int) string {
	switch {
	case days == 0:
		return "wedding day"
	case days == 1:
		return "tomorrow"
	case days < 0:
		return fmt.Sprintf("married %d days", -days)
	}
	return fmt.Sprintf("%d days", days)
}

func (m Model) renderTimelineView() string {
	rows := make([]views.TimelineRowData, 0, len(m.Timeline.Entries))
	for i, e := range m.Timeline.Entries {
		rows = append(rows, rowData(i+1, e))
	}
	pct := timeline.Overall(m.Timeline.Entries)
	selected := ""
	if e, ok := m.selectedEntry(); ok {
		selected = e.ID
	}
	return views.RenderTimelinePanel(views.TimelinePanelData{
		Rows:         rows,
		SelectedID:   selected,
		DaysLeft:     model.DaysBetween(model.Day(m.now()), m.Timeline.WeddingDate),
		HasWedding:   !m.Timeline.WeddingDate.IsZero(),
		ProgressView: m.progressBar.ViewAs(float64(pct) / 100),
		ProgressPct:  pct,
	})
}

func (m Model) renderUpcomingView() string {
	index := make(map[string]int, len(m.Timeline.Entries))
	for i, e := range m.Timeline.Entries {
		index[e.ID] = i + 1
	}
	toRows := func(list []model.Entry) []views.TimelineRowData {
		out := make([]views.TimelineRowData, 0, len(list))
		for _, e := range list {
			out = append(out, rowData(index[e.ID], e))
		}
		return out
	}
	return views.RenderUpcomingPanel(views.UpcomingPanelData{
		Days:     m.cfg.UpcomingDays,
		Overdue:  toRows(timeline.Overdue(m.Timeline.Entries, m.now())),
		Upcoming: toRows(timeline.Upcoming(m.Timeline.Entries, m.now(), m.cfg.UpcomingDays)),
	})
}

func (m Model) renderDetailView() string {
	entry, ok := m.selectedEntry()
	if !ok {
		return views.RenderDetailPanel(views.DetailPanelData{})
	}
	tasks := make([]views.TaskData, 0, len(entry.Tasks))
	for i, t := range entry.Tasks {
		tasks = append(tasks, views.TaskData{Number: i + 1, Name: t.Name, Status: t.Status()})
	}
	return views.RenderDetailPanel(views.DetailPanelData{
		Row:             rowData(m.Cursor+1, entry),
		Tasks:           tasks,
		TaskPct:         timeline.TaskProgress(entry.Tasks),
		DescriptionView: m.detailView.View(),
	})
}

func (m Model) renderPlannerView() string {
	if m.Summary == nil {
		return views.RenderPlannerPanel(views.PlannerPanelData{})
	}
	s := m.Summary
	return views.RenderPlannerPanel(views.PlannerPanelData{
		Loaded:    true,
		Invited:   s.Guests.Invited,
		Accepted:  s.Guests.Accepted,
		Declined:  s.Guests.Declined,
		Pending:   s.Guests.Pending,
		Headcount: s.Guests.Headcount,
		Budgets: []views.BudgetData{
			budgetData("wedding", s.Wedding),
			budgetData("jga", s.JGA),
		},
		Vendors: s.Vendors,
	})
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.Notifications))
	for _, n := range m.Notifications {
		lines = append(lines, views.RenderNotification(n.Level, n.Title+": "+n.Body))
	}
	return strings.TrimSpace(strings.Join(lines, ""))
}

func rowData(n int, e model.Entry) views.TimelineRowData {
	return views.TimelineRowData{
		Number:   n,
		ID:       e.ID,
		Date:     model.FormatDay(e.Date),
		Title:    e.Title,
		Category: e.CategoryID,
		Color:    e.CategoryColor,
		Done:     e.IsCompleted,
		Custom:   e.IsCustom,
	}
}

func budgetData(label string, t planner.BudgetTotals) views.BudgetData {
	return views.BudgetData{
		Scope:     label,
		Items:     t.Items,
		Planned:   model.FormatCents(t.Planned),
		Actual:    model.FormatCents(t.Actual),
		Paid:      model.FormatCents(t.Paid),
		Remaining: model.FormatCents(t.Remaining()),
		Over:      t.Remaining() < 0,
	}
}

func isKnownView(v View) bool {
	switch v {
	case ViewTimeline, ViewUpcoming, ViewPlanner:
		return true
	default:
		return false
	}
}
