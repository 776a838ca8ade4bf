package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/sweeney/weather-sync/internal/logger"
)

// DefaultInterval is the default time between scheduled syncs.
const DefaultInterval = 15 * time.Minute

// Refresher updates the local data source before a publish.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs refresh-then-publish on a fixed interval and on demand.
type Scheduler struct {
	sched     gocron.Scheduler
	job       gocron.Job
	pub       *Publisher
	refresher Refresher
	log       *logger.Logger
}

// NewScheduler creates the job. refresher may be nil when the data source
// is filled elsewhere.
func NewScheduler(ctx context.Context, interval time.Duration, pub *Publisher, refresher Refresher, log *logger.Logger) (*Scheduler, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{sched: sched, pub: pub, refresher: refresher, log: log}
	s.job, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.sync),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithName("weather_sync_job"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to create weather_sync_job: %w", err)
	}
	return s, nil
}

// Start begins scheduling. The first run starts immediately.
func (s *Scheduler) Start() {
	s.sched.Start()
}

// Trigger runs the job now, outside the interval.
func (s *Scheduler) Trigger() error {
	if err := s.job.RunNow(); err != nil {
		return fmt.Errorf("trigger sync: %w", err)
	}
	return nil
}

// NextRun returns when the job runs next.
func (s *Scheduler) NextRun() (time.Time, error) {
	return s.job.NextRun()
}

// Shutdown stops scheduling and waits for a running job.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) sync(ctx context.Context) {
	if s.refresher != nil {
		// A failed refresh still publishes whatever row the store holds.
		_ = s.refresher.Refresh(ctx)
	}
	outcome := s.pub.Publish(ctx)
	s.log.Debug("scheduled sync finished", "outcome", outcome.String())
}
