package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// AllSegmentsFailed is the job error when no segment produced a clip.
const AllSegmentsFailed = "All segments failed"

// ErrPanic wraps a recovered panic from the pipeline.
var ErrPanic = errors.New("pipeline panic")

// Orchestrator drives a job from queued to a terminal state, one segment at a
// time, chaining each segment's continuation frame into the next.
type Orchestrator struct {
	store  Store
	frames FrameSynthesizer
	step   *SegmentStep
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(store Store, caps Capabilities, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:  store,
		frames: caps.Frames,
		step:   NewSegmentStep(store, caps, logger),
		logger: logger,
	}
}

// Run processes the job. It is safe to call more than once: a job that already
// left queued is not processed again.
//
// Segment failures are recorded and do not stop the loop. A failure to build the
// initial frame, a store failure, a cancelled ctx or a panic fails the whole job.
// Cancellation requested through the store is observed before each segment and
// the cancelled status is never overwritten.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	logger := o.logger.With(slog.String("job_id", jobID))

	j, err := o.store.Update(ctx, jobID, func(j *Job) error { return j.Start() })
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			logger.Info("job is not queued, skipping")
			return nil
		}
		return fmt.Errorf("start job: %w", err)
	}

	logger.Info("job processing started", slog.Int("segments", j.SegmentCount))

	if err := o.process(ctx, j, logger); err != nil {
		logger.Error("job processing failed", slog.String("error", err.Error()))
		o.fail(context.WithoutCancel(ctx), jobID, err.Error(), logger)
		return err
	}
	return nil
}

func (o *Orchestrator) process(ctx context.Context, j *Job, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	frameURL, err := o.frames.Synthesize(ctx, j.Prompt, j.Style)
	if err != nil {
		return fmt.Errorf("initial frame: %w", err)
	}

	logger.Info("initial frame ready", slog.String("frame_url", frameURL))

	for i := 0; i < j.SegmentCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		current, err := o.store.Get(ctx, j.ID)
		if err != nil {
			return fmt.Errorf("reload job: %w", err)
		}
		if current.Status == StatusCancelled {
			logger.Info("job cancelled, stopping before segment", slog.Int("segment", i))
			break
		}

		next, err := o.step.Run(ctx, current, i, frameURL)
		switch {
		case err == nil:
			if next != "" {
				frameURL = next
			}
		case errors.Is(err, ErrContinuationFailed):
			logger.Warn("continuation frame failed, reusing current frame",
				slog.Int("segment", i),
				slog.String("error", err.Error()),
			)
		case isStoreError(err):
			return err
		default:
			logger.Warn("segment failed", slog.Int("segment", i), slog.String("error", err.Error()))
			if rerr := o.recordSegmentFailure(context.WithoutCancel(ctx), j.ID, i, err); rerr != nil {
				return rerr
			}
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
		}
	}

	return o.finalize(ctx, j.ID, logger)
}

func (o *Orchestrator) recordSegmentFailure(ctx context.Context, jobID string, index int, cause error) error {
	_, err := o.store.Update(ctx, jobID, func(j *Job) error {
		return j.ApplySegment(index, SegmentUpdate{Status: SegmentFailed, Error: cause.Error()})
	})
	if err != nil {
		return fmt.Errorf("record segment %d failure: %w", index, err)
	}
	return nil
}

// finalize tallies segments: any completed segment completes the job.
func (o *Orchestrator) finalize(ctx context.Context, jobID string, logger *slog.Logger) error {
	final, err := o.store.Update(ctx, jobID, func(j *Job) error {
		if j.CompletedSegments > 0 {
			return j.Complete()
		}
		return j.Fail(AllSegmentsFailed)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			logger.Info("job already terminal, keeping status")
			return nil
		}
		return fmt.Errorf("finalize job: %w", err)
	}

	logger.Info("job finished",
		slog.String("status", string(final.Status)),
		slog.Int("completed_segments", final.CompletedSegments),
		slog.Int("segments", final.SegmentCount),
	)
	return nil
}

// fail marks the job failed unless it already reached a terminal state.
func (o *Orchestrator) fail(ctx context.Context, jobID, msg string, logger *slog.Logger) {
	_, err := o.store.Update(ctx, jobID, func(j *Job) error { return j.Fail(msg) })
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidTransition):
		logger.Info("job already terminal, not marking failed")
	default:
		logger.Error("failed to mark job failed", slog.String("error", err.Error()))
	}
}
