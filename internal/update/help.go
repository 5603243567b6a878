package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/wedplan/internal/views"
)

// keyGroups feeds bubbles/help: navigation keys first, then the keys of the
// current view.
type keyGroups [][]key.Binding

func (g keyGroups) ShortHelp() []key.Binding {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

func (g keyGroups) FullHelp() [][]key.Binding { return g }

var paletteCommands = []string{
	"add <yyyy-mm-dd> <title>",
	"done <n> / undo <n>",
	"skip <n> <task no. or name>",
	"task <n> <name>",
	"remove <n>",
	"export <csv|ical|json>",
	"reschedule <yyyy-mm-dd>",
}

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	groups := keyGroups{m.navigationKeys(), viewKeys(m.CurrentView)}

	var contextual []string
	for _, b := range groups[1] {
		h := b.Help()
		contextual = append(contextual, fmt.Sprintf("- %s: %s", h.Key, h.Desc))
	}
	hm := m.helpModel
	hm.ShowAll = true
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    contextual,
		Commands:    paletteCommands,
		HelpView:    hm.View(groups),
	})
}

func binding(keys, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys), key.WithHelp(keys, desc))
}

func (m Model) navigationKeys() []key.Binding {
	return []key.Binding{
		binding(m.Keys.Timeline, "timeline"),
		binding(m.Keys.Upcoming, "upcoming"),
		binding(m.Keys.Planner, "planner"),
		binding("/", "command"),
		binding(m.Keys.Help, "help"),
		binding(m.Keys.Quit, "quit"),
	}
}

func viewKeys(v View) []key.Binding {
	switch v {
	case ViewTimeline:
		return []key.Binding{
			binding("j/k", "move selection"),
			binding("g/G", "first / last milestone"),
			binding("space", "toggle completed"),
		}
	case ViewUpcoming:
		return []key.Binding{binding("/", "done <n> to tick off a milestone")}
	case ViewPlanner:
		return []key.Binding{binding("r", "refresh totals")}
	}
	return nil
}
