package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	ModeCron   = "cron"
	ModeQStash = "qstash"
	ModeOff    = "off"

	DefaultReviewSpec = "*/30 * * * *"
	DefaultEventSpec  = "0 6 * * *"

	jobTimeout = 5 * time.Minute
)

type Config struct {
	Mode       string `default:"cron"`
	TimeZone   string `split_words:"true" default:"Asia/Jakarta"`
	ReviewSpec string `split_words:"true" default:"*/30 * * * *"`
	EventSpec  string `split_words:"true" default:"0 6 * * *"`
	// PublicURL is the externally reachable base URL QStash delivers to.
	PublicURL string `split_words:"true"`
}

func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.TimeZone)
	if tz == "" {
		tz = "Asia/Jakarta"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", tz, err)
	}
	return loc, nil
}

// Scheduler triggers the review and event jobs in process.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

func NewScheduler(cfg Config, events *EventDetectionJob, reviews *ReviewMonitorJob) (*Scheduler, error) {
	if events == nil || reviews == nil {
		return nil, errors.New("scheduler needs both jobs")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		loc:  loc,
	}

	if _, err := s.cron.AddFunc(orDefault(cfg.ReviewSpec, DefaultReviewSpec), s.wrap("monitor_reviews", func(ctx context.Context) error {
		_, err := reviews.Run(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("schedule review monitor: %w", err)
	}
	if _, err := s.cron.AddFunc(orDefault(cfg.EventSpec, DefaultEventSpec), s.wrap("detect_events", func(ctx context.Context) error {
		_, err := events.Run(ctx, time.Now().In(loc))
		return err
	})); err != nil {
		return nil, fmt.Errorf("schedule event detection: %w", err)
	}
	return s, nil
}

func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		if ctx == nil {
			return
		}

		ctx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("job", name).Dur("duration", time.Since(start)).Msg("scheduled job failed")
			return
		}
		log.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("scheduled job completed")
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

// Hosted schedule ids for the two jobs.
const (
	ReviewScheduleID = "vistara-monitor-reviews"
	EventScheduleID  = "vistara-detect-events"
)

// ScheduleCreator is the hosted scheduler used in qstash mode.
type ScheduleCreator interface {
	CreateSchedule(ctx context.Context, scheduleID, destination, cronExpr string, body []byte) (string, error)
}

// RegisterQStash creates hosted schedules that call the signed job webhooks.
// Each job has a fixed schedule id, so registering on every boot overwrites
// the existing schedule instead of adding another.
func RegisterQStash(ctx context.Context, client ScheduleCreator, cfg Config) error {
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/")
	if base == "" {
		return errors.New("scheduler public url is required in qstash mode")
	}
	tz := orDefault(cfg.TimeZone, "Asia/Jakarta")

	jobs := []struct {
		id   string
		path string
		spec string
	}{
		{ReviewScheduleID, "/jobs/monitor-reviews", orDefault(cfg.ReviewSpec, DefaultReviewSpec)},
		{EventScheduleID, "/jobs/detect-events", orDefault(cfg.EventSpec, DefaultEventSpec)},
	}
	for _, job := range jobs {
		id, err := client.CreateSchedule(ctx, job.id, base+job.path, "CRON_TZ="+tz+" "+job.spec, []byte("{}"))
		if err != nil {
			return fmt.Errorf("create schedule %s: %w", job.path, err)
		}
		log.Info().Str("schedule_id", id).Str("path", job.path).Str("cron", job.spec).Msg("qstash schedule registered")
	}
	return nil
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
