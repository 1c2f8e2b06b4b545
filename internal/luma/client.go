package luma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for Luma client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key was given and LUMA_API_KEY is empty.
	ErrAPIKeyNotSet = errors.New("luma: LUMA_API_KEY is not set")
	// ErrGenerationIDRequired is returned when the generation ID is not provided.
	ErrGenerationIDRequired = errors.New("luma: generation ID is required")
	// ErrStartFrameRequired is returned when a request has no start frame.
	ErrStartFrameRequired = errors.New("luma: start frame URL is required")
	// ErrNoGenerationID is returned when the create response contains no ID.
	ErrNoGenerationID = errors.New("luma: create failed: no generation ID returned")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("luma: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("luma: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("luma: request failed")
)

// Client defines the interface for interacting with the Luma API.
type Client interface {
	// Create starts a generation and returns it as first reported by the API.
	Create(ctx context.Context, req GenerationRequest) (Generation, error)

	// Get returns the current state of a generation.
	Get(ctx context.Context, generationID string) (Generation, error)
}

// HTTPClient is the HTTP implementation of the Luma Client interface.
type HTTPClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the Luma API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		if url != "" {
			hc.baseURL = url
		}
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// NewClient creates a new Luma HTTP client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable LUMA_API_KEY.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:     "https://api.lumalabs.ai/dream-machine/v1",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("LUMA_API_KEY")
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// Create starts an image-to-video generation from the request's start frame.
func (c *HTTPClient) Create(ctx context.Context, req GenerationRequest) (Generation, error) {
	if req.StartFrameURL == "" {
		return Generation{}, ErrStartFrameRequired
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}
	if req.Resolution == "" {
		req.Resolution = DefaultResolution
	}
	if req.Duration == "" {
		req.Duration = DefaultDuration
	}
	if req.AspectRatio == "" {
		req.AspectRatio = DefaultAspectRatio
	}

	body := generationRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Loop:        false,
		Keyframes: keyframes{
			Frame0: keyframe{Type: "image", URL: req.StartFrameURL},
		},
		Model:       req.Model,
		Resolution:  req.Resolution,
		Duration:    req.Duration,
		CallbackURL: req.CallbackURL,
	}
	for _, key := range req.Concepts {
		body.Concepts = append(body.Concepts, concept{Key: key})
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Generation{}, fmt.Errorf("luma: marshal request: %w", err)
	}

	var resp generationResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, c.baseURL+"/generations", bodyBytes, &resp); err != nil {
		return Generation{}, err
	}

	if resp.ID == "" {
		return Generation{}, ErrNoGenerationID
	}

	return resp.toGeneration(), nil
}

// Get returns the current state of a generation.
func (c *HTTPClient) Get(ctx context.Context, generationID string) (Generation, error) {
	if generationID == "" {
		return Generation{}, ErrGenerationIDRequired
	}

	url := fmt.Sprintf("%s/generations/%s", c.baseURL, generationID)

	var resp generationResponse
	if err := c.doRequestWithRetry(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return Generation{}, err
	}

	return resp.toGeneration(), nil
}

func (r generationResponse) toGeneration() Generation {
	g := Generation{
		ID:    r.ID,
		State: State(r.State),
	}
	switch g.State {
	case StateCompleted:
		g.VideoURL = r.Assets.Video
		g.ImageURL = r.Assets.Image
	case StateFailed:
		g.FailureReason = r.FailureReason
	}
	return g
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("luma: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := c.doRequest(ctx, method, url, body, result)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("luma: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("luma: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("luma: request failed: %w", err)
		}
		return &retryableError{err: fmt.Errorf("luma: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("luma: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		var er errorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Detail != "" {
			msg = er.Detail
		}
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, msg)}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, msg)}
		}
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, msg)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("luma: unmarshal response: %w", err)
		}
	}

	return nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
