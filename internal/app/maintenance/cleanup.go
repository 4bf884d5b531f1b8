package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/tradeflow/internal/monitoring"
	"github.com/charlesng35/tradeflow/pkg/logger"
)

// JobDownloadPurge names the download purge in job run reports.
const JobDownloadPurge = "download_purge"

const (
	defaultDownloadSpec      = "@daily"
	defaultDownloadRetention = 7 * 24 * time.Hour
)

// DownloadPurger removes export tasks and files created before now minus retention.
type DownloadPurger interface {
	CleanupExpired(ctx context.Context, retention time.Duration, now time.Time) (int64, error)
}

// Cleaner schedules background maintenance, currently the purge of expired downloads.
type Cleaner struct {
	downloads DownloadPurger
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	jobs      *monitoring.JobTracker
	retention time.Duration

	downloadSchedule string
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

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithJobTracker records job outcomes on tracker instead of the process-wide one.
func WithJobTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		if tracker != nil {
			cleaner.jobs = tracker
		}
	}
}

// WithDownloadRetention adjusts how long downloads are kept before they are purged.
func WithDownloadRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.retention = retention
		}
	}
}

// WithDownloadSchedule overrides the cron specification for the download purge.
func WithDownloadSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.downloadSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil purger disables the download job.
func NewCleaner(downloads DownloadPurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		downloads:        downloads,
		now:              time.Now,
		retention:        defaultDownloadRetention,
		downloadSchedule: defaultDownloadSpec,
		log:              logger.WithModule("maintenance"),
		jobs:             monitoring.DefaultJobs(),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the cleanup jobs and launches the scheduler.
func (c *Cleaner) Start() error {
	if c.downloads == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.downloadSchedule, func() {
		if _, err := c.purgeDownloads(context.Background()); err != nil {
			c.log.Warn("download cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	c.log.Info("maintenance scheduled",
		zap.String("download_schedule", c.downloadSchedule),
		zap.Duration("download_retention", c.retention),
	)
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured cleanup routine sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.downloads != nil {
		if _, err := c.purgeDownloads(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Cleaner) purgeDownloads(ctx context.Context) (int64, error) {
	now := c.now().UTC()
	started := time.Now()
	removed, err := c.downloads.CleanupExpired(ctx, c.retention, now)
	c.jobs.Record(JobDownloadPurge, err, time.Since(started))
	if removed > 0 {
		c.log.Info("expired downloads purged",
			zap.Int64("removed", removed),
			zap.Time("cutoff", now.Add(-c.retention)),
		)
	}
	return removed, err
}
