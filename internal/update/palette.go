package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/wedplan/internal/commands"
	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/timeline"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.Palette.Active = false
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			if msg.Type == tea.KeySpace && len(msg.Runes) == 0 {
				m.commandInput.SetValue(m.commandInput.Value() + " ")
			}
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		_ = cmd
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	if m.planner == nil {
		m.Status = StatusBar{Text: "no planner configured", IsError: true}
		return m
	}

	ctx := context.Background()
	user := m.cfg.UserID
	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			e, err := m.planner.AddEvent(ctx, user, timeline.CustomEvent{Title: a.Title, Date: a.Date})
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("added %s on %s", e.Title, model.FormatDay(e.Date))}, nil
		},
		Done: func(r commands.RowArgs, done bool) (commands.Result, error) {
			e, err := m.rowEntry(r.Row)
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.planner.MarkCompleted(ctx, user, e.ID, done); err != nil {
				return commands.Result{}, err
			}
			verb := "completed"
			if !done {
				verb = "reopened"
			}
			return commands.Result{Message: fmt.Sprintf("%s: %s", verb, e.Title)}, nil
		},
		Skip: func(s commands.SkipArgs) (commands.Result, error) {
			e, err := m.rowEntry(s.Row)
			if err != nil {
				return commands.Result{}, err
			}
			task, ok := findTask(e, s.Task)
			if !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no task %q on row %d", s.Task, s.Row)}
			}
			if err := m.planner.SkipTask(ctx, user, e.ID, task.ID, true); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("skipped: %s", task.Name)}, nil
		},
		Task: func(t commands.TaskArgs) (commands.Result, error) {
			e, err := m.rowEntry(t.Row)
			if err != nil {
				return commands.Result{}, err
			}
			if _, err := m.planner.AddTask(ctx, user, e.ID, t.Name); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("task added to %s", e.Title)}, nil
		},
		Remove: func(r commands.RowArgs) (commands.Result, error) {
			e, err := m.rowEntry(r.Row)
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.planner.RemoveEvent(ctx, user, e.ID); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("removed: %s", e.Title)}, nil
		},
		Export: func(x commands.ExportArgs) (commands.Result, error) {
			path, err := m.planner.ExportFile(ctx, user, m.cfg.ExportDir, x.Format)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("exported to %s", path)}, nil
		},
		Reschedule: func(r commands.RescheduleArgs) (commands.Result, error) {
			if _, err := m.planner.Reschedule(ctx, user, r.Date); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("wedding moved to %s", model.FormatDay(r.Date))}, nil
		},
	})
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
		return m
	}
	m.reload()
	m.Status = StatusBar{Text: res.Message}
	m.notify("Command", res.Message, "info")
	return m
}

func (m Model) rowEntry(row int) (model.Entry, error) {
	e, ok := m.entryAt(row)
	if !ok {
		return model.Entry{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no row %d", row)}
	}
	return e, nil
}

// findTask matches a 1-based task number or a case-insensitive task name.
func findTask(e model.Entry, ref string) (model.Task, bool) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(e.Tasks) {
			return e.Tasks[n-1], true
		}
		return model.Task{}, false
	}
	for _, t := range e.Tasks {
		if strings.EqualFold(t.Name, ref) {
			return t, true
		}
	}
	return model.Task{}, false
}
