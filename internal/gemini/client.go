// Package gemini provides a client for the Gemini generateContent API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the multimodal model used for frame analysis.
const DefaultModel = "gemini-2.0-flash-exp"

// DefaultAPIVersion is the generateContent API version.
const DefaultAPIVersion = "v1beta"

// Static errors for Gemini client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key was given and GOOGLE_API_KEY is empty.
	ErrAPIKeyNotSet = errors.New("gemini: GOOGLE_API_KEY is not set")
	// ErrEmptyResponse is returned when the response carries no text candidate.
	ErrEmptyResponse = errors.New("gemini: empty response")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("gemini: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("gemini: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("gemini: request failed")
)

// Image is an inline image part.
type Image struct {
	MIMEType string
	Data     []byte
}

// Request is one single-turn generateContent call.
type Request struct {
	System string   // System instruction
	Texts  []string // User text parts, sent before the image
	Image  *Image   // Optional inline image
}

// Client generates text from multimodal input.
type Client interface {
	GenerateText(ctx context.Context, req Request) (string, error)
}

// SDKClient is the genai implementation of Client.
type SDKClient struct {
	apiKey      string
	model       string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration

	models *genai.Models
}

// ClientOption is a function that configures an SDKClient.
type ClientOption func(*SDKClient)

// WithAPIKey sets the API key.
func WithAPIKey(key string) ClientOption {
	return func(c *SDKClient) { c.apiKey = key }
}

// WithModel sets the model name.
func WithModel(model string) ClientOption {
	return func(c *SDKClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL sets a custom API base URL, without the version segment.
func WithBaseURL(u string) ClientOption {
	return func(c *SDKClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/") + "/"
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *SDKClient) { c.httpClient = hc }
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *SDKClient) { c.maxRetries = n }
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(c *SDKClient) { c.baseBackoff = d }
}

// NewClient creates a Gemini client. The API key falls back to GOOGLE_API_KEY.
func NewClient(ctx context.Context, opts ...ClientOption) (*SDKClient, error) {
	c := &SDKClient{
		model:       DefaultModel,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		c.apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    c.baseURL,
			APIVersion: DefaultAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

// GenerateText sends req and returns the concatenated text of the first candidate.
func (c *SDKClient) GenerateText(ctx context.Context, req Request) (string, error) {
	parts := make([]*genai.Part, 0, len(req.Texts)+1)
	for _, t := range req.Texts {
		parts = append(parts, genai.NewPartFromText(t))
	}
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var cfg *genai.GenerateContentConfig
	if req.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	var resp *genai.GenerateContentResponse
	err := c.withRetry(ctx, func() error {
		var err error
		resp, err = c.models.GenerateContent(ctx, c.model, contents, cfg)
		return classify(ctx, err)
	})
	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func (c *SDKClient) withRetry(ctx context.Context, call func() error) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("gemini: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := call()
		if err == nil {
			return nil
		}
		var re *retryableError
		if !errors.As(err, &re) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("gemini: max retries exceeded: %w", lastErr)
}

// classify maps SDK errors onto the package sentinels. 5xx, 429 and transport
// failures are retryable.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	code, msg, ok := apiError(err)
	if !ok {
		if ctx.Err() != nil {
			return fmt.Errorf("gemini: request failed: %w", err)
		}
		return &retryableError{err: fmt.Errorf("gemini: request failed: %w", err)}
	}
	switch {
	case code >= 500:
		return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, code, msg)}
	case code == http.StatusTooManyRequests:
		return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, msg)}
	default:
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, code, msg)
	}
}

func apiError(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }
