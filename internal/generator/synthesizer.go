package generator

import (
	"context"
	"fmt"
	"log/slog"
)

// Synthesizer submits a request and waits for the finished clip.
type Synthesizer struct {
	gen    Generator
	poller *Poller
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer. Poller options tune the wait.
func NewSynthesizer(gen Generator, logger *slog.Logger, opts ...PollerOption) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]PollerOption{WithPollerLogger(logger)}, opts...)
	return &Synthesizer{
		gen:    gen,
		poller: NewPoller(gen, opts...),
		logger: logger,
	}
}

// Generate submits req and blocks until the provider returns a video or gives up.
func (s *Synthesizer) Generate(ctx context.Context, req Request) (Result, error) {
	generationID, err := s.gen.Submit(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("submit generation: %w", err)
	}

	s.logger.Info("generation submitted",
		slog.String("generation_id", generationID),
		slog.String("camera", req.Camera),
	)

	res, err := s.poller.AwaitCompletion(ctx, generationID)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("generation completed",
		slog.String("generation_id", generationID),
		slog.String("video_url", res.VideoURL),
	)

	return Result{
		GenerationID: generationID,
		VideoURL:     res.VideoURL,
		ThumbnailURL: res.ThumbnailURL,
	}, nil
}
