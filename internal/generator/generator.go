// Package generator provides the Video Synthesis capability: a provider-neutral
// Generator port, the Poller that turns its asynchronous contract into a blocking
// call, and the Luma adapter.
package generator

import "context"

// Status represents the status of a generation across providers.
type Status string

// Common generation statuses.
const (
	StatusQueued     Status = "queued"     // Accepted but not started
	StatusProcessing Status = "processing" // Provider is rendering
	StatusCompleted  Status = "completed"  // Finished; VideoURL may still be empty
	StatusFailed     Status = "failed"     // Provider gave up
)

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request contains what one segment sends to the video engine.
type Request struct {
	Prompt        string // Original job prompt
	Motion        string // Action description from motion analysis
	Camera        string // Validated camera directive, e.g. "push_in + handheld"
	Style         string // Job style descriptor
	StartFrameURL string // Publicly fetchable first frame
}

// PollResult contains the result of one status check.
type PollResult struct {
	Status       Status
	VideoURL     string
	ThumbnailURL string
	Error        string // Failure reason (if failed)
}

// Result is a finished generation.
type Result struct {
	GenerationID string
	VideoURL     string
	ThumbnailURL string
}

// Generator defines the interface for asynchronous video generation providers.
type Generator interface {
	// Submit sends a generation request and returns the provider's generation handle.
	Submit(ctx context.Context, req Request) (generationID string, err error)

	// Poll checks the status of a generation.
	Poll(ctx context.Context, generationID string) (PollResult, error)
}
