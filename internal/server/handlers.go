package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/reelchain-api/internal/job"
	"github.com/maauso/reelchain-api/internal/storage"
)

// FrameSource serves locally hosted frames.
type FrameSource interface {
	Open(ctx context.Context, name string) (*os.File, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.Service
	validator          *validator.Validate
	logger             *slog.Logger
	frames             FrameSource
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateJob only creates the job and leaves it queued.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithFrameSource serves GET /frames/{name} from src.
func WithFrameSource(src FrameSource) HandlerOption {
	return func(h *Handlers) {
		h.frames = src
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateJob handles POST /api/jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	in := job.CreateInput{
		Prompt:    req.Prompt,
		Style:     req.Style,
		Duration:  req.Duration,
		UserID:    req.UserID,
		SessionID: req.SessionID,
	}
	create := h.service.Submit
	if !h.enableAsyncProcess {
		create = h.service.CreateJob
	}

	createdJob, err := create(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrPromptRequired), errors.Is(err, job.ErrDurationOutOfRange):
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		case errors.Is(err, job.ErrServiceClosed):
			h.logger.Warn("job rejected during shutdown")
			writeError(w, http.StatusServiceUnavailable, "server is shutting down", "SERVICE_UNAVAILABLE")
		default:
			h.logger.Error("failed to create job",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		}
		return
	}

	h.logger.Info("job created",
		slog.String("job_id", createdJob.ID),
		slog.Int("segments", createdJob.SegmentCount),
	)

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		JobID:         createdJob.ID,
		Status:        string(createdJob.Status),
		EstimatedTime: fmt.Sprintf("%d minutes", createdJob.SegmentCount*3),
		PollURL:       "/api/status/" + createdJob.ID,
	})
}

// ListJobs handles GET /api/jobs?userId= requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required", "MISSING_USER_ID")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", "VALIDATION_ERROR")
			return
		}
		limit = n
	}

	jobs, err := h.service.ListByOwner(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list jobs",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := JobListResponse{Jobs: make([]JobSummary, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, JobSummary{
			JobID:     j.ID,
			Status:    string(j.Status),
			Prompt:    j.Prompt,
			Progress:  progressOf(j),
			CreatedAt: j.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelJob handles POST /api/jobs/{id}/cancel requests.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	cancelled, err := h.service.Cancel(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		case errors.Is(err, job.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "job already finished", "JOB_ALREADY_FINISHED")
		default:
			h.logger.Error("failed to cancel job",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to cancel job", "JOB_CANCEL_FAILED")
		}
		return
	}

	writeJSON(w, http.StatusOK, statusOf(cancelled))
}

// GetStatus handles GET /api/status/{id} requests.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeFetchError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, statusOf(foundJob))
}

// GetResult handles GET /api/status/{id}/result requests.
func (h *Handlers) GetResult(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	res, err := h.service.Result(r.Context(), jobID)
	if err != nil {
		var nce *job.NotCompletedError
		if errors.As(err, &nce) {
			writeJSON(w, http.StatusConflict, ResultPendingResponse{
				Error:    "job is not completed",
				Code:     "JOB_NOT_COMPLETED",
				Status:   string(nce.Job.Status),
				Progress: progressOf(nce.Job),
			})
			return
		}
		h.writeFetchError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, ResultResponse{
		JobID:         res.JobID,
		Prompt:        res.Prompt,
		Duration:      res.Duration,
		Segments:      segmentsOf(res.Segments),
		TotalDuration: res.TotalDuration,
		CreatedAt:     res.CreatedAt,
		CompletedAt:   res.CompletedAt,
	})
}

// LumaWebhook handles POST /api/webhooks/luma. Deliveries are acknowledged and
// logged; the poller stays responsible for segment state.
func (h *Handlers) LumaWebhook(w http.ResponseWriter, r *http.Request) {
	var req LumaWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	h.logger.Info("luma webhook received",
		slog.String("generation_id", req.ID),
		slog.String("state", req.State),
		slog.String("failure_reason", req.FailureReason),
	)

	writeJSON(w, http.StatusOK, WebhookResponse{Received: true})
}

// GetFrame handles GET /frames/{name} when frames are hosted locally.
func (h *Handlers) GetFrame(w http.ResponseWriter, r *http.Request) {
	if h.frames == nil {
		writeError(w, http.StatusNotFound, "frame hosting disabled", "NOT_FOUND")
		return
	}

	name := r.PathValue("name")
	f, err := h.frames.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) || errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "frame not found", "FRAME_NOT_FOUND")
			return
		}
		h.logger.Error("failed to open frame",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read frame", "FRAME_READ_FAILED")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read frame", "FRAME_READ_FAILED")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handlers) writeFetchError(w http.ResponseWriter, jobID string, err error) {
	if errors.Is(err, job.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return
	}
	h.logger.Error("failed to get job",
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
}

func progressOf(j *job.Job) ProgressResponse {
	return ProgressResponse{
		Completed:  j.CompletedSegments,
		Total:      j.SegmentCount,
		Percentage: j.Progress(),
	}
}

func segmentsOf(segments []job.Segment) []SegmentResponse {
	out := make([]SegmentResponse, 0, len(segments))
	for _, s := range segments {
		out = append(out, SegmentResponse{
			Index:        s.Index,
			Status:       string(s.Status),
			VideoURL:     s.VideoURL,
			ThumbnailURL: s.ThumbnailURL,
			GenerationID: s.GenerationID,
			Error:        s.Error,
		})
	}
	return out
}

func statusOf(j *job.Job) StatusResponse {
	return StatusResponse{
		JobID:     j.ID,
		Status:    string(j.Status),
		Prompt:    j.Prompt,
		Style:     j.Style,
		Duration:  j.Duration,
		Progress:  progressOf(j),
		Segments:  segmentsOf(j.Segments),
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
