package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type TimelineRowData struct {
	Number   int
	ID       string
	Date     string
	Title    string
	Category string
	Color    string
	Done     bool
	Custom   bool
}

type TimelinePanelData struct {
	Rows         []TimelineRowData
	SelectedID   string
	DaysLeft     int
	HasWedding   bool
	ProgressView string
	ProgressPct  int
}

type UpcomingPanelData struct {
	Days     int
	Overdue  []TimelineRowData
	Upcoming []TimelineRowData
}

type TaskData struct {
	Number int
	Name   string
	Status string
}

type DetailPanelData struct {
	Row             TimelineRowData
	Tasks           []TaskData
	TaskPct         int
	DescriptionView string
}

type BudgetData struct {
	Scope     string
	Items     int
	Planned   string
	Actual    string
	Paid      string
	Remaining string
	Over      bool
}

type PlannerPanelData struct {
	Loaded    bool
	Invited   int
	Accepted  int
	Declined  int
	Pending   int
	Headcount int
	Budgets   []BudgetData
	Vendors   int
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	Commands    []string
	HelpView    string
}

func RenderTimelinePanel(data TimelinePanelData) string {
	var b strings.Builder
	b.WriteString("timeline:\n")
	if data.HasWedding {
		b.WriteString(fmt.Sprintf("%d days to go\n", data.DaysLeft))
	}
	b.WriteString(fmt.Sprintf("progress: %s %d%%\n", data.ProgressView, data.ProgressPct))
	if len(data.Rows) == 0 {
		b.WriteString("(no milestones)")
		return b.String()
	}
	for _, row := range data.Rows {
		cursor := " "
		if row.ID == data.SelectedID {
			cursor = ">"
		}
		b.WriteString(cursor + " " + renderRow(row) + "\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderUpcomingPanel(data UpcomingPanelData) string {
	var b strings.Builder
	b.WriteString("upcoming:\n")
	renderSection(&b, "Overdue", data.Overdue)
	renderSection(&b, fmt.Sprintf("Next %d days", data.Days), data.Upcoming)
	return strings.TrimSpace(b.String())
}

func RenderDetailPanel(data DetailPanelData) string {
	if data.Row.ID == "" {
		return "details:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("details:\n")
	b.WriteString(fmt.Sprintf("%s %s\n", swatch(data.Row.Color), data.Row.Title))
	b.WriteString(fmt.Sprintf("due: %s | category: %s", data.Row.Date, data.Row.Category))
	if data.Row.Custom {
		b.WriteString(" | custom")
	}
	b.WriteString("\n")
	if len(data.Tasks) > 0 {
		b.WriteString(fmt.Sprintf("\nchecklist (%d%%):\n", data.TaskPct))
		for _, t := range data.Tasks {
			b.WriteString(fmt.Sprintf("  %d. %s %s\n", t.Number, taskMark(t.Status), t.Name))
		}
	}
	if strings.TrimSpace(data.DescriptionView) != "" {
		b.WriteString("\n" + data.DescriptionView)
	}
	return strings.TrimSpace(b.String())
}

func RenderPlannerPanel(data PlannerPanelData) string {
	if !data.Loaded {
		return "planner:\n(no planner data)"
	}
	var b strings.Builder
	b.WriteString("planner:\n")
	b.WriteString(fmt.Sprintf("guests: %d invited, %d accepted, %d declined, %d pending\n",
		data.Invited, data.Accepted, data.Declined, data.Pending))
	b.WriteString(fmt.Sprintf("headcount: %d\n", data.Headcount))
	for _, bd := range data.Budgets {
		line := fmt.Sprintf("budget %s: planned %s, spent %s, paid %s, left %s (%d items)",
			bd.Scope, bd.Planned, bd.Actual, bd.Paid, bd.Remaining, bd.Items)
		if bd.Over {
			line = errorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(fmt.Sprintf("vendors: %d", data.Vendors))
	return b.String()
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("\nnotification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	out := fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
	if len(data.Commands) > 0 {
		out += "\ncommands:\n  " + strings.Join(data.Commands, "\n  ")
	}
	return out
}

func renderSection(b *strings.Builder, title string, rows []TimelineRowData) {
	b.WriteString(fmt.Sprintf("\n%s:\n", title))
	if len(rows) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, row := range rows {
		b.WriteString("  " + renderRow(row) + "\n")
	}
}

func renderRow(row TimelineRowData) string {
	mark := "[ ]"
	if row.Done {
		mark = "[x]"
	}
	return fmt.Sprintf("%2d. %s %s %s %s", row.Number, mark, row.Date, swatch(row.Color), row.Title)
}

func swatch(color string) string {
	if color == "" {
		return "●"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}

func taskMark(status string) string {
	switch strings.ToLower(status) {
	case "completed":
		return "[x]"
	case "skipped":
		return "[-]"
	default:
		return "[ ]"
	}
}
