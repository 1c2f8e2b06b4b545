package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner removes artifacts older than a cutoff, e.g. locally hosted frames.
type Pruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// CleanupScheduler periodically deletes jobs older than the retention period.
type CleanupScheduler struct {
	cron      *cron.Cron
	svc       *Service
	retention time.Duration
	pruner    Pruner
	timeout   time.Duration
	logger    *slog.Logger
}

// CleanupOption configures a CleanupScheduler.
type CleanupOption func(*CleanupScheduler)

// WithPruner also prunes artifacts on every sweep.
func WithPruner(p Pruner) CleanupOption {
	return func(c *CleanupScheduler) {
		c.pruner = p
	}
}

// WithSweepTimeout bounds a single sweep. Default: 5 minutes.
func WithSweepTimeout(d time.Duration) CleanupOption {
	return func(c *CleanupScheduler) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCleanupScheduler registers a sweep on schedule, a standard cron spec or a
// descriptor such as "@daily" or "@every 1h".
func NewCleanupScheduler(svc *Service, retention time.Duration, schedule string, logger *slog.Logger, opts ...CleanupOption) (*CleanupScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	c := &CleanupScheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		svc:       svc,
		retention: retention,
		timeout:   5 * time.Minute,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := c.cron.AddFunc(schedule, c.run); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return c, nil
}

// Start begins running sweeps in the background.
func (c *CleanupScheduler) Start() {
	c.cron.Start()
	c.logger.Info("cleanup scheduler started", slog.Duration("retention", c.retention))
}

// Stop prevents new sweeps and waits for a running one, or for ctx to expire.
func (c *CleanupScheduler) Stop(ctx context.Context) {
	done := c.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Sweep removes expired jobs and, if configured, expired artifacts.
func (c *CleanupScheduler) Sweep(ctx context.Context) (int, error) {
	n, err := c.svc.Cleanup(ctx, c.retention)
	if err != nil {
		return 0, err
	}
	if c.pruner != nil {
		pruned, err := c.pruner.PruneOlderThan(ctx, time.Now().Add(-c.retention))
		if err != nil {
			return n, fmt.Errorf("prune artifacts: %w", err)
		}
		c.logger.Info("old artifacts pruned", slog.Int("count", pruned))
	}
	return n, nil
}

func (c *CleanupScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if _, err := c.Sweep(ctx); err != nil {
		c.logger.Error("cleanup sweep failed", slog.String("error", err.Error()))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}
