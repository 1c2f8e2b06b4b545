package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Fixed polling cadence; together they bound a segment at ten minutes.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 120
)

var (
	// ErrGenerationFailed is returned when the provider reports a failed generation.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrGenerationTimeout is returned when no terminal state was reached within the attempt budget.
	ErrGenerationTimeout = errors.New("generation timed out")
)

// Poller waits for a generation to finish by polling at a fixed interval.
type Poller struct {
	gen         Generator
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the sleep before each poll.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithMaxAttempts sets the number of polls before giving up.
func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithPollerLogger sets the logger.
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPoller creates a Poller over gen.
func NewPoller(gen Generator, opts ...PollerOption) *Poller {
	p := &Poller{
		gen:         gen,
		interval:    DefaultPollInterval,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AwaitCompletion blocks until the generation completes with a video, fails, or
// the attempt budget runs out. A completed status without a video URL is not
// success; it costs an attempt like any in-progress status.
func (p *Poller) AwaitCompletion(ctx context.Context, generationID string) (PollResult, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := sleep(ctx, p.interval); err != nil {
			return PollResult{}, err
		}

		res, err := p.gen.Poll(ctx, generationID)
		if err != nil {
			return PollResult{}, fmt.Errorf("poll generation %s: %w", generationID, err)
		}

		switch {
		case res.Status == StatusCompleted && res.VideoURL != "":
			return res, nil
		case res.Status == StatusFailed:
			reason := res.Error
			if reason == "" {
				reason = "unknown error"
			}
			return PollResult{}, fmt.Errorf("%w: %s", ErrGenerationFailed, reason)
		}

		p.logger.Debug("generation pending",
			slog.String("generation_id", generationID),
			slog.String("status", string(res.Status)),
			slog.Int("attempt", attempt),
		)
	}

	return PollResult{}, fmt.Errorf("%w after %d attempts", ErrGenerationTimeout, p.maxAttempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
