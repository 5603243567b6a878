// Package digest builds a periodic summary of what is coming up on a wedding
// timeline and publishes it on the notification bus.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/notify"
	"github.com/sandeepkv93/wedplan/internal/timeline"
)

const DefaultSpec = "0 0 8 * * *"

// Source loads the timeline a digest is built from.
type Source interface {
	LoadTimeline(ctx context.Context, userID string) (model.Timeline, error)
}

type Digest struct {
	Date     time.Time
	Wedding  time.Time
	Due      []model.Entry
	Overdue  []model.Entry
	Progress int
}

// Build summarises tl as seen on now, looking days ahead.
func Build(tl model.Timeline, now time.Time, days int) Digest {
	today := model.Day(now)
	return Digest{
		Date:     today,
		Wedding:  tl.WeddingDate,
		Due:      timeline.Upcoming(tl.Entries, today, days),
		Overdue:  timeline.Overdue(tl.Entries, today),
		Progress: timeline.Overall(tl.Entries),
	}
}

func (d Digest) Text() string {
	var sb strings.Builder
	if !d.Wedding.IsZero() {
		left := model.DaysBetween(d.Date, d.Wedding)
		sb.WriteString(fmt.Sprintf("%d days to go, %d%% done\n", left, d.Progress))
	} else {
		sb.WriteString(fmt.Sprintf("%d%% done\n", d.Progress))
	}
	if len(d.Overdue) > 0 {
		sb.WriteString("Overdue:\n")
		writeEntries(&sb, d.Overdue)
	}
	if len(d.Due) > 0 {
		sb.WriteString("Coming up:\n")
		writeEntries(&sb, d.Due)
	}
	if len(d.Overdue) == 0 && len(d.Due) == 0 {
		sb.WriteString("Nothing due.\n")
	}
	return strings.TrimSpace(sb.String())
}

func writeEntries(sb *strings.Builder, list []model.Entry) {
	for _, e := range list {
		sb.WriteString(fmt.Sprintf("- %s %s\n", model.FormatDay(e.Date), e.Title))
	}
}

// Service runs the digest on a cron schedule with seconds precision.
type Service struct {
	cron   *cron.Cron
	source Source
	pub    notify.Publisher
	userID string
	days   int
	log    *slog.Logger
	now    func() time.Time
}

func NewService(source Source, pub notify.Publisher, userID string, days int, log *slog.Logger) *Service {
	if days <= 0 {
		days = 7
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithSeconds()),
		source: source,
		pub:    pub,
		userID: userID,
		days:   days,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Schedule registers the digest job. An empty spec uses DefaultSpec.
func (s *Service) Schedule(spec string) (cron.EntryID, error) {
	if strings.TrimSpace(spec) == "" {
		spec = DefaultSpec
	}
	id, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("digest failed", "user", s.userID, "err", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("digest: schedule %q: %w", spec, err)
	}
	return id, nil
}

func (s *Service) Start() {
	s.cron.Start()
}

func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce builds and publishes one digest.
func (s *Service) RunOnce(ctx context.Context) (Digest, error) {
	tl, err := s.source.LoadTimeline(ctx, s.userID)
	if err != nil {
		return Digest{}, fmt.Errorf("digest: load timeline: %w", err)
	}
	d := Build(tl, s.now(), s.days)
	s.pub.Publish(notify.Event{
		Kind:    notify.KindDigest,
		UserID:  s.userID,
		Date:    d.Date,
		Message: d.Text(),
	})
	return d, nil
}
