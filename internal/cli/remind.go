package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/wedplan/internal/digest"
	"github.com/sandeepkv93/wedplan/internal/logging"
	"github.com/sandeepkv93/wedplan/internal/notify"
	"github.com/sandeepkv93/wedplan/internal/planner"
	"github.com/sandeepkv93/wedplan/internal/scheduler"
)

// reminders runs the deadline engine and the digest job of one couple and
// keeps the reminder queue in step with timeline changes.
type reminders struct {
	engine *scheduler.Engine
	digest *digest.Service
	wg     sync.WaitGroup
}

func (a *app) startReminders(ctx context.Context, svc *planner.Service, lead int) (*reminders, error) {
	log := logging.Component(a.log, "reminders")
	tl, err := svc.Load(ctx, a.cfg.User)
	if err != nil {
		return nil, err
	}

	r := &reminders{
		engine: scheduler.NewEngine(a.cfg.SchedulerBuffer),
		digest: digest.NewService(svc, a.bus, a.cfg.User, a.cfg.DigestDays, logging.Component(a.log, "digest")),
	}
	if _, err := r.digest.Schedule(a.cfg.DigestCron); err != nil {
		return nil, err
	}
	r.engine.Start()
	planned, err := r.engine.Plan(a.cfg.User, tl.Entries, lead)
	if err != nil {
		r.engine.Stop()
		return nil, err
	}
	log.Info("reminders planned", "user", a.cfg.User, "count", planned, "lead_days", lead)

	changes := a.bus.Subscribe(a.cfg.SchedulerBuffer)
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.engine.Forward(ctx, a.bus)
	}()
	go func() {
		defer r.wg.Done()
		defer changes.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-changes.C():
				if !ok {
					return
				}
				if ev.UserID != a.cfg.User || ev.Kind == notify.KindReminder || ev.Kind == notify.KindDigest {
					continue
				}
				tl, err := svc.Load(ctx, a.cfg.User)
				if err != nil {
					log.Warn("replan failed", "err", err)
					continue
				}
				if _, err := r.engine.Plan(a.cfg.User, tl.Entries, lead); err != nil && !errors.Is(err, scheduler.ErrStopped) {
					log.Warn("replan failed", "err", err)
				}
			}
		}
	}()
	r.digest.Start()
	return r, nil
}

// stop halts both jobs. The context passed to startReminders must be done
// first so the forwarding goroutines can return.
func (r *reminders) stop() {
	r.digest.Stop()
	r.engine.Stop()
	r.wg.Wait()
}

func newRemindCommand(a *app) *cobra.Command {
	var once bool
	var lead int
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send deadline reminders and the daily digest",
		Long: `Runs until interrupted. Reminders fire lead days before each open milestone
and a digest of the coming days is sent on the configured cron schedule. Both
are logged and, when telegram_token and telegram_chat_id are set, forwarded to
Telegram.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("lead") {
				lead = a.cfg.ReminderLeadDays
			}
			svc, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			if once {
				return a.remindOnce(cmd, svc, lead)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := a.startSinks(ctx); err != nil {
				return err
			}
			r, err := a.startReminders(ctx, svc, lead)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reminders running for %s (%d queued), press ctrl+c to stop\n",
				a.cfg.User, r.engine.Pending())
			<-ctx.Done()
			r.stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "print the digest and queued reminders, then exit")
	cmd.Flags().IntVar(&lead, "lead", 0, "days before a milestone to remind (default from config)")
	return cmd
}

func (a *app) remindOnce(cmd *cobra.Command, svc *planner.Service, lead int) error {
	tl, err := svc.Load(cmd.Context(), a.cfg.User)
	if err != nil {
		return err
	}
	engine := scheduler.NewEngine(a.cfg.SchedulerBuffer)
	planned, err := engine.Plan(a.cfg.User, tl.Entries, lead)
	if err != nil {
		return err
	}
	d, err := digest.NewService(svc, a.bus, a.cfg.User, a.cfg.DigestDays, logging.Component(a.log, "digest")).RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprint(w, d.Text())
	fmt.Fprintf(w, "%d reminders queued, %d days lead\n", planned, lead)
	return nil
}

// startSinks logs every bus event and forwards reminders to Telegram when
// configured. The sinks stop with ctx.
func (a *app) startSinks(ctx context.Context) error {
	logSub := a.bus.Subscribe(a.cfg.SchedulerBuffer)
	go notify.LogSink{Log: logging.Component(a.log, "notify")}.Run(ctx, logSub)
	if !a.cfg.TelegramEnabled() {
		return nil
	}
	sink, err := notify.NewTelegramSink(a.cfg.TelegramToken, a.cfg.TelegramChatID, logging.Component(a.log, "telegram"))
	if err != nil {
		return err
	}
	tgSub := a.bus.Subscribe(a.cfg.SchedulerBuffer)
	go sink.Run(ctx, tgSub)
	return nil
}
