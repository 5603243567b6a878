package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/wedplan/internal/export"
	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/planner"
	"github.com/sandeepkv93/wedplan/internal/timeline"
)

func newInitCommand(a *app) *cobra.Command {
	var date, template string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the timeline for a wedding date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wedding, err := model.ParseDay(date)
			if err != nil {
				return err
			}
			if template == "" {
				template = a.cfg.Template
			}
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			tl, err := svc.Create(cmd.Context(), a.cfg.User, wedding, template)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %q timeline with %d milestones for %s\n",
				tl.Template, len(tl.Entries), model.FormatDay(tl.WeddingDate))
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "wedding date (yyyy-mm-dd)")
	cmd.Flags().StringVarP(&template, "template", "t", "", "timeline template")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newShowCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			tl, err := svc.Load(cmd.Context(), a.cfg.User)
			if err != nil {
				return err
			}
			if asJSON {
				out, err := export.JSON(tl.Entries)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			writeTimeline(cmd.OutOrStdout(), tl)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

func writeTimeline(w io.Writer, tl model.Timeline) {
	fmt.Fprintf(w, "Wedding: %s (template %s)\n", model.FormatDay(tl.WeddingDate), tl.Template)
	rows := make([][]string, 0, len(tl.Entries))
	for i, e := range tl.Entries {
		tasks := ""
		if len(e.Tasks) > 0 {
			tasks = fmt.Sprintf("%d%%", timeline.TaskProgress(e.Tasks))
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			model.FormatDay(e.Date),
			e.Title,
			e.CategoryID,
			e.Status(),
			tasks,
			e.ID,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Due", "Milestone", "Category", "Status", "Tasks", "ID").
		Rows(rows...)
	fmt.Fprintln(w, t.String())
}

func newAddCommand(a *app) *cobra.Command {
	var ev struct {
		date        string
		description string
		category    string
	}
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a custom event to the timeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := model.ParseDay(ev.date)
			if err != nil {
				return err
			}
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			e, err := svc.AddEvent(cmd.Context(), a.cfg.User, timeline.CustomEvent{
				Title:       strings.Join(args, " "),
				Date:        date,
				Description: ev.description,
				Category:    ev.category,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s on %s (%d days before the wedding) id=%s\n",
				e.Title, model.FormatDay(e.Date), e.DaysBeforeWedding, e.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ev.date, "date", "d", "", "event date (yyyy-mm-dd)")
	cmd.Flags().StringVar(&ev.description, "description", "", "markdown description")
	cmd.Flags().StringVar(&ev.category, "category", "", "category id")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newUpdateCommand(a *app) *cobra.Command {
	var title, date, description, category string
	cmd := &cobra.Command{
		Use:   "update <row|id>",
		Short: "Change a timeline entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p timeline.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("description") {
				p.Description = &description
			}
			if flags.Changed("category") {
				p.Category = &category
			}
			if flags.Changed("date") {
				d, err := model.ParseDay(date)
				if err != nil {
					return err
				}
				p.Date = &d
			}
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := a.resolveEntry(cmd, args[0])
			if err != nil {
				return err
			}
			updated, err := svc.UpdateEvent(cmd.Context(), a.cfg.User, entry.ID, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", updated.Title, model.FormatDay(updated.Date))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&date, "date", "d", "", "new date (yyyy-mm-dd)")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&category, "category", "", "new category id")
	return cmd
}

func newRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <row|id>",
		Short: "Remove a timeline entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := a.resolveEntry(cmd, args[0])
			if err != nil {
				return err
			}
			if err := svc.RemoveEvent(cmd.Context(), a.cfg.User, entry.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", entry.Title)
			return nil
		},
	}
}

func newCompleteCommand(a *app) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "complete <row|id>",
		Short: "Mark a milestone completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := a.resolveEntry(cmd, args[0])
			if err != nil {
				return err
			}
			if err := svc.MarkCompleted(cmd.Context(), a.cfg.User, entry.ID, !undo); err != nil {
				return err
			}
			verb := "completed"
			if undo {
				verb = "reopened"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, entry.Title)
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "reopen instead of completing")
	return cmd
}

func newTaskCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with the checklist of a milestone",
	}

	add := &cobra.Command{
		Use:   "add <row|id> <name>",
		Short: "Add a checklist task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := a.resolveEntry(cmd, args[0])
			if err != nil {
				return err
			}
			id, err := svc.AddTask(cmd.Context(), a.cfg.User, entry.ID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s added to %s\n", id, entry.Title)
			return nil
		},
	}

	var undoDone, undoSkip bool
	done := &cobra.Command{
		Use:   "done <row|id> <task>",
		Short: "Mark a checklist task completed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTask(cmd, args, func(svc *planner.Service, entry model.Entry, task model.Task) (string, error) {
				err := svc.CompleteTask(cmd.Context(), a.cfg.User, entry.ID, task.ID, !undoDone)
				return "task " + task.Name + " " + pick(undoDone, "reopened", "completed"), err
			})
		},
	}
	done.Flags().BoolVar(&undoDone, "undo", false, "reopen the task")

	skip := &cobra.Command{
		Use:   "skip <row|id> <task>",
		Short: "Skip a checklist task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTask(cmd, args, func(svc *planner.Service, entry model.Entry, task model.Task) (string, error) {
				err := svc.SkipTask(cmd.Context(), a.cfg.User, entry.ID, task.ID, !undoSkip)
				return "task " + task.Name + " " + pick(undoSkip, "unskipped", "skipped"), err
			})
		},
	}
	skip.Flags().BoolVar(&undoSkip, "undo", false, "clear the skip")

	remove := &cobra.Command{
		Use:   "remove <row|id> <task>",
		Short: "Remove a checklist task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTask(cmd, args, func(svc *planner.Service, entry model.Entry, task model.Task) (string, error) {
				err := svc.RemoveTask(cmd.Context(), a.cfg.User, entry.ID, task.ID)
				return "task " + task.Name + " removed", err
			})
		},
	}

	cmd.AddCommand(add, done, skip, remove)
	return cmd
}

func newProgressCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Summarise timeline progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svc.Progress(cmd.Context(), a.cfg.User)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "wedding: %s (%d days to go)\n", model.FormatDay(s.WeddingDate), s.DaysLeft)
			fmt.Fprintf(w, "milestones: %d/%d completed (%d%%)\n", s.Completed, s.Entries, s.Percent)
			fmt.Fprintf(w, "overall: %d%%\n", s.Overall)
			fmt.Fprintf(w, "overdue: %d\n", s.Overdue)
			return nil
		},
	}
}

func newExportCommand(a *app) *cobra.Command {
	var format, dir string
	var stdout bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the timeline as csv, ical or json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			if stdout {
				out, err := svc.Export(cmd.Context(), a.cfg.User, format)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			if dir == "" {
				dir = a.cfg.ExportDir
			}
			path, err := svc.ExportFile(cmd.Context(), a.cfg.User, dir, format)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "csv, ical or json")
	cmd.Flags().StringVarP(&dir, "out", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print instead of writing a file")
	return cmd
}

func newRescheduleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reschedule <yyyy-mm-dd>",
		Short: "Move the wedding date and shift template milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wedding, err := model.ParseDay(args[0])
			if err != nil {
				return err
			}
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			tl, err := svc.Reschedule(cmd.Context(), a.cfg.User, wedding)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wedding moved to %s\n", model.FormatDay(tl.WeddingDate))
			return nil
		},
	}
}

func newTemplatesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List timeline templates and categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := timeline.NewRegistry()
			if a.cfg.TemplatesFile != "" {
				if err := reg.LoadFile(a.cfg.TemplatesFile); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "templates:")
			for _, name := range reg.TemplateNames() {
				_, entries := reg.Template(name)
				fmt.Fprintf(w, "  %s (%d milestones)\n", name, len(entries))
			}
			fmt.Fprintln(w, "categories:")
			for _, c := range reg.Categories() {
				swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("●")
				fmt.Fprintf(w, "  %s %s (%s)\n", swatch, c.ID, c.Name)
			}
			return nil
		},
	}
}

// resolveEntry accepts a 1-based row number as printed by show, or an entry id.
func (a *app) resolveEntry(cmd *cobra.Command, ref string) (model.Entry, error) {
	svc, err := a.planner(cmd.Context())
	if err != nil {
		return model.Entry{}, err
	}
	tl, err := svc.Load(cmd.Context(), a.cfg.User)
	if err != nil {
		return model.Entry{}, err
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(tl.Entries) {
		return tl.Entries[n-1], nil
	}
	if e, ok := timeline.Find(tl.Entries, ref); ok {
		return e, nil
	}
	return model.Entry{}, &model.NotFoundError{Kind: "entry", ID: ref}
}

// withTask resolves args[0] to an entry and the rest to one of its tasks by
// number, id or name, then runs apply and prints its message.
func (a *app) withTask(cmd *cobra.Command, args []string, apply func(*planner.Service, model.Entry, model.Task) (string, error)) error {
	svc, err := a.planner(cmd.Context())
	if err != nil {
		return err
	}
	entry, err := a.resolveEntry(cmd, args[0])
	if err != nil {
		return err
	}
	ref := strings.Join(args[1:], " ")
	task, ok := findTask(entry, ref)
	if !ok {
		return &model.NotFoundError{Kind: "task", ID: ref}
	}
	msg, err := apply(svc, entry, task)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func findTask(e model.Entry, ref string) (model.Task, bool) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(e.Tasks) {
		return e.Tasks[n-1], true
	}
	for _, t := range e.Tasks {
		if t.ID == ref || strings.EqualFold(t.Name, ref) {
			return t, true
		}
	}
	return model.Task{}, false
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
