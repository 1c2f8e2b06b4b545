package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// MaxDuration is the longest video a job may request, in seconds.
const MaxDuration = 600

// Static errors for Service operations.
var (
	// ErrPromptRequired is returned when a job is created without a prompt.
	ErrPromptRequired = errors.New("prompt is required")
	// ErrDurationOutOfRange is returned when the duration is negative or above MaxDuration.
	ErrDurationOutOfRange = errors.New("duration out of range")
	// ErrJobNotCompleted is returned by Result for jobs that are not completed.
	ErrJobNotCompleted = errors.New("job not completed")
	// ErrServiceClosed is returned when work is submitted after Shutdown.
	ErrServiceClosed = errors.New("job service is shutting down")
)

// CreateInput contains the parameters for a new job.
type CreateInput struct {
	// Prompt is the text the video is generated from. Required.
	Prompt string
	// Style is appended to every frame and video prompt. Default: DefaultStyle.
	Style string
	// Duration is the requested length in seconds. Zero means DefaultDuration.
	Duration int
	// UserID is the owner of the job.
	UserID string
	// SessionID is an opaque client session reference.
	SessionID string
}

// Result is the deliverable of a completed job.
type Result struct {
	JobID         string     `json:"jobId"`
	Prompt        string     `json:"prompt"`
	Duration      int        `json:"duration"`
	Segments      []Segment  `json:"segments"`
	TotalDuration int        `json:"totalDuration"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// NotCompletedError reports the job state when a result is requested too early.
type NotCompletedError struct {
	Job *Job
}

func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("job %s is %s", e.Job.ID, e.Job.Status)
}

// Is makes errors.Is(err, ErrJobNotCompleted) match.
func (e *NotCompletedError) Is(target error) bool {
	return target == ErrJobNotCompleted
}

// Service is the job use case boundary: it creates jobs, runs them in the
// background and answers status queries.
type Service struct {
	store        Store
	orchestrator *Orchestrator
	logger       *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewService creates a new Service.
func NewService(store Store, orchestrator *Orchestrator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:        store,
		orchestrator: orchestrator,
		logger:       logger,
		baseCtx:      ctx,
		cancel:       cancel,
	}
}

// CreateJob validates input, applies defaults and persists a queued job.
func (s *Service) CreateJob(ctx context.Context, in CreateInput) (*Job, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, ErrPromptRequired
	}
	if in.Duration < 0 || in.Duration > MaxDuration {
		return nil, fmt.Errorf("%w: %d", ErrDurationOutOfRange, in.Duration)
	}

	duration := in.Duration
	if duration == 0 {
		duration = DefaultDuration
	}
	style := strings.TrimSpace(in.Style)
	if style == "" {
		style = DefaultStyle
	}

	job := New(prompt, style, duration)
	job.UserID = in.UserID
	job.SessionID = in.SessionID

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.Int("duration", job.Duration),
		slog.Int("segments", job.SegmentCount),
		slog.String("user_id", job.UserID),
	)

	if err := s.store.Create(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return job, nil
}

// Start runs the job in the background. The caller never blocks on processing;
// the outcome is only visible through the store.
func (s *Service) Start(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.orchestrator.Run(s.baseCtx, jobID); err != nil {
			s.logger.Error("background job failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// Submit creates a job and starts it. Nothing is persisted after Shutdown.
func (s *Service) Submit(ctx context.Context, in CreateInput) (*Job, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrServiceClosed
	}

	job, err := s.CreateJob(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.Start(job.ID); err != nil {
		return nil, err
	}
	return job, nil
}

// Wait blocks until every started job has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown stops accepting jobs, cancels running ones and waits for them to
// record their final state, or for ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// GetJob retrieves a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// Cancel moves a queued or processing job to cancelled. The running pipeline
// notices before its next segment. Terminal jobs return ErrInvalidTransition.
func (s *Service) Cancel(ctx context.Context, id string) (*Job, error) {
	job, err := s.store.Update(ctx, id, func(j *Job) error { return j.Cancel() })
	if err != nil {
		return nil, err
	}
	s.logger.Info("job cancelled", slog.String("job_id", id))
	return job, nil
}

// Result returns the completed segments of a completed job. Other states
// return a *NotCompletedError.
func (s *Service) Result(ctx context.Context, id string) (*Result, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusCompleted {
		return nil, &NotCompletedError{Job: job}
	}

	segments := job.CompletedSegmentList()
	return &Result{
		JobID:         job.ID,
		Prompt:        job.Prompt,
		Duration:      job.Duration,
		Segments:      segments,
		TotalDuration: len(segments) * SegmentSeconds,
		CreatedAt:     job.CreatedAt,
		CompletedAt:   job.CompletedAt,
	}, nil
}

// ListByOwner returns the owner's jobs, newest first.
func (s *Service) ListByOwner(ctx context.Context, userID string, limit int) ([]*Job, error) {
	return s.store.ListByOwner(ctx, userID, limit)
}

// Cleanup deletes jobs created more than retention ago.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	n, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup jobs: %w", err)
	}
	s.logger.Info("old jobs removed", slog.Int("count", n), slog.Time("cutoff", cutoff))
	return n, nil
}
