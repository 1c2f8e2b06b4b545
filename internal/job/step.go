package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/reelchain-api/internal/generator"
	"github.com/maauso/reelchain-api/internal/motion"
)

// ErrContinuationFailed marks a failure to build the next frame after the
// segment itself completed.
var ErrContinuationFailed = errors.New("continuation frame synthesis failed")

// storeError marks a persistence failure inside a step. Those are fatal to the job.
type storeError struct {
	err error
}

func (e *storeError) Error() string { return "job store: " + e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func isStoreError(err error) bool {
	var se *storeError
	return errors.As(err, &se)
}

// SegmentStep runs one iteration of the pipeline: analyze the current frame,
// generate the clip, record it, and build the next frame.
//
// Only success is written here. Analysis and generation errors are returned
// untouched so the orchestrator is the single place that records failures.
type SegmentStep struct {
	store  Store
	caps   Capabilities
	logger *slog.Logger
}

// NewSegmentStep creates a SegmentStep.
func NewSegmentStep(store Store, caps Capabilities, logger *slog.Logger) *SegmentStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentStep{store: store, caps: caps, logger: logger}
}

// Run processes segment index of j starting from frameURL. It returns the frame
// for index+1, or "" for the last segment.
func (s *SegmentStep) Run(ctx context.Context, j *Job, index int, frameURL string) (string, error) {
	logger := s.logger.With(slog.String("job_id", j.ID), slog.Int("segment", index))

	if err := s.apply(ctx, j.ID, index, SegmentUpdate{Status: SegmentProcessing}); err != nil {
		return "", err
	}

	analysis, err := s.caps.Motion.Analyze(ctx, motion.Request{
		FrameURL:      frameURL,
		Prompt:        j.Prompt,
		SegmentIndex:  index,
		TotalSegments: j.SegmentCount,
	})
	if err != nil {
		return "", fmt.Errorf("analyze frame: %w", err)
	}

	logger.Info("segment motion decided",
		slog.String("camera", analysis.Camera),
		slog.String("narrative", analysis.Narrative),
	)

	clip, err := s.caps.Video.Generate(ctx, generator.Request{
		Prompt:        j.Prompt,
		Motion:        analysis.Motion,
		Camera:        analysis.Camera,
		Style:         j.Style,
		StartFrameURL: frameURL,
	})
	if err != nil {
		return "", fmt.Errorf("generate video: %w", err)
	}

	if err := s.apply(ctx, j.ID, index, SegmentUpdate{
		Status:       SegmentCompleted,
		VideoURL:     clip.VideoURL,
		ThumbnailURL: clip.ThumbnailURL,
		GenerationID: clip.GenerationID,
	}); err != nil {
		return "", err
	}

	logger.Info("segment completed", slog.String("generation_id", clip.GenerationID))

	if index >= j.SegmentCount-1 {
		return "", nil
	}

	next, err := s.caps.Continuations.SynthesizeContinuation(ctx, frameURL, analysis.Motion, j.Style)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrContinuationFailed, err)
	}
	return next, nil
}

func (s *SegmentStep) apply(ctx context.Context, jobID string, index int, u SegmentUpdate) error {
	_, err := s.store.Update(ctx, jobID, func(j *Job) error {
		return j.ApplySegment(index, u)
	})
	if err != nil {
		return &storeError{err: fmt.Errorf("segment %d %s: %w", index, u.Status, err)}
	}
	return nil
}
