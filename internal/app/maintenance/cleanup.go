package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nexushq/nexus/pkg/logger"
)

const (
	defaultCleanupSpec   = "@hourly"
	defaultScheduledSpec = "@every 1m"
	defaultExpirySpec    = "@hourly"
)

// Sweeper is the dispatcher surface driven by the scheduler.
type Sweeper interface {
	Cleanup(ctx context.Context) (int64, error)
	ProcessScheduled(ctx context.Context) error
}

// Expirer removes records whose expiry has passed. Document stores expire
// records on their own and do not need it.
type Expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner coordinates the periodic notification jobs: the scheduled sweep,
// the read-record cleanup and, for SQL stores, the expiry purge.
type Cleaner struct {
	sweeper Sweeper
	expirer Expirer
	cron    *cron.Cron
	now     func() time.Time
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	cleanupSchedule   string
	scheduledSchedule string
	expirySchedule    string
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

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithExpirer enables the expiry purge job.
func WithExpirer(expirer Expirer) Option {
	return func(cleaner *Cleaner) {
		cleaner.expirer = expirer
	}
}

// WithCleanupSchedule overrides the cron specification for read-record cleanup.
func WithCleanupSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cleanupSchedule = spec
		}
	}
}

// WithScheduledSchedule overrides the cron specification for the scheduled-notification sweep.
func WithScheduledSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.scheduledSchedule = spec
		}
	}
}

// WithExpirySchedule overrides the cron specification for the expiry purge.
func WithExpirySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.expirySchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with the default schedules. A nil sweeper
// disables the dispatcher jobs.
func NewCleaner(sweeper Sweeper, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sweeper:           sweeper,
		now:               time.Now,
		cleanupSchedule:   defaultCleanupSpec,
		scheduledSchedule: defaultScheduledSpec,
		expirySchedule:    defaultExpirySpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	cleaner.ctx, cleaner.cancel = context.WithCancel(context.Background())

	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.sweeper == nil && c.expirer == nil {
		return nil
	}

	if c.sweeper != nil {
		if _, err := c.cron.AddFunc(c.scheduledSchedule, func() {
			if err := c.sweeper.ProcessScheduled(c.ctx); err != nil {
				c.log.Warn("scheduled notification sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}

		if _, err := c.cron.AddFunc(c.cleanupSchedule, func() {
			removed, err := c.sweeper.Cleanup(c.ctx)
			if err != nil {
				c.log.Warn("notification cleanup failed", zap.Error(err))
				return
			}
			if removed > 0 {
				c.log.Info("removed read notifications", zap.Int64("count", removed))
			}
		}); err != nil {
			return err
		}
	}

	if c.expirer != nil {
		if _, err := c.cron.AddFunc(c.expirySchedule, func() {
			removed, err := c.expirer.DeleteExpired(c.ctx, c.now())
			if err != nil {
				c.log.Warn("notification expiry purge failed", zap.Error(err))
				return
			}
			if removed > 0 {
				c.log.Info("removed expired notifications", zap.Int64("count", removed))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop cancels in-flight jobs and halts the scheduler. The returned context is
// done once running jobs have returned.
func (c *Cleaner) Stop() context.Context {
	c.once.Do(c.cancel)
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially, aggregating failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sweeper != nil {
		if err := c.sweeper.ProcessScheduled(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
		if _, err := c.sweeper.Cleanup(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.expirer != nil {
		if _, err := c.expirer.DeleteExpired(ctx, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
