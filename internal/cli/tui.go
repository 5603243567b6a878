package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/wedplan/internal/planner"
	"github.com/sandeepkv93/wedplan/internal/update"
)

func newTUICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			svc, err := a.planner(ctx)
			if err != nil {
				return err
			}
			collections, err := a.plannerCollections()
			if err != nil {
				return err
			}
			events := a.bus.Subscribe(a.cfg.SchedulerBuffer)
			defer events.Close()

			// Reminders only run once a timeline exists.
			r, err := a.startReminders(ctx, svc, a.cfg.ReminderLeadDays)
			switch {
			case errors.Is(err, planner.ErrNoTimeline):
			case err != nil:
				return err
			default:
				defer r.stop()
				defer cancel()
			}

			m := update.NewModel(update.Deps{
				Planner:     svc,
				Events:      events,
				Collections: collections,
				Config:      update.RuntimeConfigFrom(a.cfg),
			})
			program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = program.Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}
