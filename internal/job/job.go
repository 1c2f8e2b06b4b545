// Package job provides the Job aggregate for segmented video generation.
// It includes the Job and Segment entities with their state machines, the Store
// port for persistence, and the pipeline that drives a job to a terminal state.
package job

import (
	"errors"
	"sort"
	"time"

	"github.com/maauso/reelchain-api/internal/job/id"
)

// SegmentSeconds is the fixed clip length each segment covers.
const SegmentSeconds = 9

// Defaults applied at job creation.
const (
	DefaultDuration = 30
	DefaultStyle    = "hyper realistic, photorealistic, cinematic lighting"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusQueued indicates the job was created and is waiting for the orchestrator.
	StatusQueued Status = "queued"
	// StatusProcessing indicates the orchestrator is working through segments.
	StatusProcessing Status = "processing"
	// StatusCompleted indicates at least one segment produced a clip.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the job could not produce any clip.
	StatusFailed Status = "failed"
	// StatusCancelled indicates the job was cancelled by an external request.
	StatusCancelled Status = "cancelled"
)

// Static errors for job operations.
var (
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrSegmentOutOfRange is returned when a segment index is outside [0, SegmentCount).
	ErrSegmentOutOfRange = errors.New("segment index out of range")
)

// validTransitions defines which state transitions are allowed.
// Cancelled is terminal like the others: nothing may overwrite it.
var validTransitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// SegmentStatus represents the status of a single segment.
type SegmentStatus string

const (
	// SegmentPending is the implicit state of a segment that has not been touched yet.
	SegmentPending SegmentStatus = "pending"
	// SegmentProcessing indicates the segment pipeline step is running.
	SegmentProcessing SegmentStatus = "processing"
	// SegmentCompleted indicates the clip was generated.
	SegmentCompleted SegmentStatus = "completed"
	// SegmentFailed indicates the segment could not be generated.
	SegmentFailed SegmentStatus = "failed"
)

// Segment is one ~9 second clip within a job.
type Segment struct {
	Index        int           `json:"index"`
	Status       SegmentStatus `json:"status"`
	VideoURL     string        `json:"videoUrl,omitempty"`
	ThumbnailURL string        `json:"thumbnailUrl,omitempty"`
	GenerationID string        `json:"generationId,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Job represents one prompt-to-video request.
type Job struct {
	// ID is the unique identifier for this job.
	ID string `json:"id"`
	// Status is the current job state.
	Status Status `json:"status"`
	// Prompt is the text the whole video is generated from.
	Prompt string `json:"prompt"`
	// Style is appended to every frame and video prompt.
	Style string `json:"style"`
	// Duration is the requested total length in seconds.
	Duration int `json:"duration"`
	// UserID owns the job; ListByOwner filters on it.
	UserID string `json:"userId,omitempty"`
	// SessionID is an opaque client session reference.
	SessionID string `json:"sessionId,omitempty"`
	// SegmentCount is ceil(Duration / SegmentSeconds), fixed at creation.
	SegmentCount int `json:"segmentCount"`
	// CompletedSegments is derived from Segments on every segment update.
	CompletedSegments int `json:"completedSegments"`
	// Segments holds the touched segments ordered by index.
	Segments []Segment `json:"segments"`
	// Error is set when the job fails.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is refreshed by the store on every mutation.
	UpdatedAt time.Time `json:"updatedAt"`
	// StartedAt is when processing started.
	StartedAt *time.Time `json:"startedAt,omitempty"`
	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SegmentCountFor returns ceil(duration / SegmentSeconds), never less than one.
func SegmentCountFor(duration int) int {
	if duration <= 0 {
		return 1
	}
	return (duration + SegmentSeconds - 1) / SegmentSeconds
}

// New creates a new queued Job with a generated ID.
func New(prompt, style string, duration int) *Job {
	return NewWithID(id.Generate(), prompt, style, duration)
}

// NewWithID creates a new queued Job with the specified ID.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID, prompt, style string, duration int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:           jobID,
		Status:       StatusQueued,
		Prompt:       prompt,
		Style:        style,
		Duration:     duration,
		SegmentCount: SegmentCountFor(duration),
		Segments:     make([]Segment, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	now := time.Now().UTC()

	switch status {
	case StatusProcessing:
		j.StartedAt = &now
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = &now
	}

	return nil
}

// Start transitions the job from queued to processing.
func (j *Job) Start() error {
	return j.TransitionTo(StatusProcessing)
}

// Complete transitions the job to completed and clears any stale error.
func (j *Job) Complete() error {
	if err := j.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	j.Error = ""
	return nil
}

// Fail transitions the job to failed with an error message.
func (j *Job) Fail(errMsg string) error {
	if err := j.TransitionTo(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// Cancel transitions the job to cancelled.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// SegmentUpdate is the set of fields written to a segment by index.
type SegmentUpdate struct {
	Status       SegmentStatus
	VideoURL     string
	ThumbnailURL string
	GenerationID string
	Error        string
}

// ApplySegment upserts the segment at index: it is replaced in place when present and
// inserted in index order otherwise. Result fields are kept only for completed segments
// and the error only for failed ones. CompletedSegments is recomputed afterwards.
func (j *Job) ApplySegment(index int, u SegmentUpdate) error {
	if index < 0 || index >= j.SegmentCount {
		return ErrSegmentOutOfRange
	}

	seg := Segment{Index: index, Status: u.Status}
	switch u.Status {
	case SegmentCompleted:
		seg.VideoURL = u.VideoURL
		seg.ThumbnailURL = u.ThumbnailURL
		seg.GenerationID = u.GenerationID
	case SegmentFailed:
		seg.Error = u.Error
	}

	replaced := false
	for i := range j.Segments {
		if j.Segments[i].Index == index {
			j.Segments[i] = seg
			replaced = true
			break
		}
	}
	if !replaced {
		j.Segments = append(j.Segments, seg)
		sort.Slice(j.Segments, func(a, b int) bool {
			return j.Segments[a].Index < j.Segments[b].Index
		})
	}

	j.CompletedSegments = j.countCompleted()
	return nil
}

// Segment returns the segment at index. Untouched indexes report SegmentPending.
func (j *Job) Segment(index int) Segment {
	for _, s := range j.Segments {
		if s.Index == index {
			return s
		}
	}
	return Segment{Index: index, Status: SegmentPending}
}

// CompletedSegmentList returns only the segments that produced a clip, in index order.
func (j *Job) CompletedSegmentList() []Segment {
	out := make([]Segment, 0, j.CompletedSegments)
	for _, s := range j.Segments {
		if s.Status == SegmentCompleted {
			out = append(out, s)
		}
	}
	return out
}

// Progress returns the completion percentage rounded to the nearest integer.
func (j *Job) Progress() int {
	if j.SegmentCount == 0 {
		return 0
	}
	return (j.CompletedSegments*100 + j.SegmentCount/2) / j.SegmentCount
}

func (j *Job) countCompleted() int {
	n := 0
	for _, s := range j.Segments {
		if s.Status == SegmentCompleted {
			n++
		}
	}
	return n
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	c := *j
	c.Segments = make([]Segment, len(j.Segments))
	copy(c.Segments, j.Segments)
	return &c
}
