// Package server provides the HTTP server for the ReelChain API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// CreateJobRequest is the HTTP request body for creating a new job.
type CreateJobRequest struct {
	// Prompt describes the whole video.
	Prompt string `json:"prompt" validate:"required"`
	// Duration is the requested length in seconds. Zero means the default.
	Duration int `json:"duration" validate:"omitempty,min=1,max=600"`
	// Style is appended to every frame and clip prompt.
	Style string `json:"style" validate:"max=500"`
	// UserID owns the job.
	UserID string `json:"userId" validate:"max=200"`
	// SessionID is an opaque client session reference.
	SessionID string `json:"sessionId" validate:"max=200"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	EstimatedTime string `json:"estimatedTime"`
	PollURL       string `json:"pollUrl"`
}

// ProgressResponse summarizes how many segments are done.
type ProgressResponse struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// SegmentResponse is one segment of a job.
type SegmentResponse struct {
	Index        int    `json:"index"`
	Status       string `json:"status"`
	VideoURL     string `json:"videoUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	GenerationID string `json:"generationId,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StatusResponse is the HTTP response for job status.
type StatusResponse struct {
	JobID     string            `json:"jobId"`
	Status    string            `json:"status"`
	Prompt    string            `json:"prompt"`
	Style     string            `json:"style"`
	Duration  int               `json:"duration"`
	Progress  ProgressResponse  `json:"progress"`
	Segments  []SegmentResponse `json:"segments"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// JobSummary is a job as listed for its owner.
type JobSummary struct {
	JobID     string           `json:"jobId"`
	Status    string           `json:"status"`
	Prompt    string           `json:"prompt"`
	Progress  ProgressResponse `json:"progress"`
	CreatedAt time.Time        `json:"createdAt"`
}

// JobListResponse is the HTTP response for listing jobs.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// ResultResponse is the deliverable of a completed job.
type ResultResponse struct {
	JobID         string            `json:"jobId"`
	Prompt        string            `json:"prompt"`
	Duration      int               `json:"duration"`
	Segments      []SegmentResponse `json:"segments"`
	TotalDuration int               `json:"totalDuration"`
	CreatedAt     time.Time         `json:"createdAt"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

// ResultPendingResponse is returned with 409 when the result is not ready yet.
type ResultPendingResponse struct {
	Error    string           `json:"error"`
	Code     string           `json:"code"`
	Status   string           `json:"status"`
	Progress ProgressResponse `json:"progress"`
}

// LumaWebhookRequest is the generation payload Luma posts to the callback URL.
type LumaWebhookRequest struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
