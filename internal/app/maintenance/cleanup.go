package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/promptgallery/internal/monitoring"
	"github.com/charlesng35/promptgallery/pkg/logger"
)

const (
	// JobCachePurge identifies the expired cache row purge in metrics and health output.
	JobCachePurge = "cache_purge"

	defaultPurgeSpec    = "@hourly"
	defaultPurgeTimeout = 2 * time.Minute
)

// Purger removes expired entries from a cache backend and reports how many were deleted.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner schedules background maintenance for the SQL cache backend.
type Cleaner struct {
	purger   Purger
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string
	timeout  time.Duration
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used to time job runs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithPurgeSchedule overrides the cron schedule for the cache purge.
func WithPurgeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithTimeout bounds a single purge run.
func WithTimeout(timeout time.Duration) Option {
	return func(cleaner *Cleaner) {
		if timeout > 0 {
			cleaner.timeout = timeout
		}
	}
}

// NewCleaner constructs a Cleaner. A nil purger disables every job.
func NewCleaner(purger Purger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		purger:   purger,
		now:      time.Now,
		schedule: defaultPurgeSpec,
		timeout:  defaultPurgeTimeout,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Enabled reports whether any job will be scheduled.
func (c *Cleaner) Enabled() bool {
	return c != nil && c.purger != nil
}

// Interval reports the gap between the next two purge runs, or zero when the purge is
// disabled or the schedule does not parse.
func (c *Cleaner) Interval() time.Duration {
	if !c.Enabled() {
		return 0
	}
	schedule, err := cron.ParseStandard(c.schedule)
	if err != nil {
		return 0
	}
	next := schedule.Next(c.now())
	return schedule.Next(next).Sub(next)
}

// Start registers jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.Enabled() {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if _, err := c.PurgeCache(ctx); err != nil {
			c.log.Warn("cache purge failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %s: %w", JobCachePurge, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c == nil || c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// PurgeCache deletes expired cache rows once and records the run.
func (c *Cleaner) PurgeCache(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := c.now()
	removed, err := c.purger.PurgeExpired(ctx)
	elapsed := c.now().Sub(start)

	if err != nil {
		monitoring.RecordMaintenanceRun(JobCachePurge, "failure", err.Error(), elapsed)
		return removed, fmt.Errorf("maintenance: %s: %w", JobCachePurge, err)
	}

	monitoring.RecordMaintenanceRun(JobCachePurge, "success", "", elapsed)
	if removed > 0 {
		c.log.Info("purged expired cache entries", zap.Int64("removed", removed))
	}
	return removed, nil
}

// RunOnce executes all configured jobs sequentially. Used in tests and during shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error
	if _, err := c.PurgeCache(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
