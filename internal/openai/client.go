// Package openai provides a client for the OpenAI image generation API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Image generation defaults.
const (
	DefaultModel   = "gpt-image-1"
	DefaultSize    = oai.ImageGenerateParamsSize1536x1024
	DefaultQuality = oai.ImageGenerateParamsQualityHigh
)

// Static errors for OpenAI client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key was given and OPENAI_API_KEY is empty.
	ErrAPIKeyNotSet = errors.New("openai: OPENAI_API_KEY is not set")
	// ErrPromptRequired is returned when the prompt is empty.
	ErrPromptRequired = errors.New("openai: prompt is required")
	// ErrNoImage is returned when the response contains neither a URL nor image data.
	ErrNoImage = errors.New("openai: no image returned")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("openai: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("openai: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("openai: request failed")
)

// Image is a generated image: either a temporary URL or the decoded bytes.
type Image struct {
	URL  string
	Data []byte
}

// ImageClient generates still images from text.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) (Image, error)
}

// SDKClient is the openai-go implementation of ImageClient. Transient failures
// are retried by the SDK.
type SDKClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int

	images oai.ImageService
}

// ClientOption is a function that configures an SDKClient.
type ClientOption func(*SDKClient)

// WithAPIKey sets the API key.
func WithAPIKey(key string) ClientOption {
	return func(c *SDKClient) { c.apiKey = key }
}

// WithBaseURL sets a custom API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *SDKClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/") + "/"
		}
	}
}

// WithModel sets the image model.
func WithModel(model string) ClientOption {
	return func(c *SDKClient) {
		if model != "" {
			c.model = model
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

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *SDKClient) { c.timeout = d }
}

// NewClient creates an OpenAI image client. The API key falls back to OPENAI_API_KEY.
func NewClient(opts ...ClientOption) (*SDKClient, error) {
	c := &SDKClient{
		baseURL:    "https://api.openai.com/v1/",
		model:      DefaultModel,
		httpClient: &http.Client{},
		timeout:    3 * time.Minute,
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		c.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	client := oai.NewClient(
		option.WithAPIKey(c.apiKey),
		option.WithBaseURL(c.baseURL),
		option.WithHTTPClient(c.httpClient),
		option.WithRequestTimeout(c.timeout),
		option.WithMaxRetries(c.maxRetries),
	)
	c.images = client.Images
	return c, nil
}

// GenerateImage creates one image for prompt.
func (c *SDKClient) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	if prompt == "" {
		return Image{}, ErrPromptRequired
	}

	resp, err := c.images.Generate(ctx, oai.ImageGenerateParams{
		Prompt:  prompt,
		Model:   oai.ImageModel(c.model),
		N:       oai.Int(1),
		Size:    DefaultSize,
		Quality: DefaultQuality,
	})
	if err != nil {
		return Image{}, classify(err)
	}

	if resp == nil || len(resp.Data) == 0 {
		return Image{}, ErrNoImage
	}
	d := resp.Data[0]
	switch {
	case d.URL != "":
		return Image{URL: d.URL}, nil
	case d.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return Image{}, fmt.Errorf("openai: decode image: %w", err)
		}
		return Image{Data: data}, nil
	default:
		return Image{}, ErrNoImage
	}
}

// classify maps SDK errors onto the package sentinels.
func classify(err error) error {
	var apiErr *oai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai: request failed: %w", err)
	}
	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Error()
	}
	switch {
	case apiErr.StatusCode >= 500:
		return fmt.Errorf("%w %d: %s", ErrServerError, apiErr.StatusCode, msg)
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	default:
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, apiErr.StatusCode, msg)
	}
}
