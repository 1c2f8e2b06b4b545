package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Compile-time check that FreeImageHost implements Publisher.
var _ Publisher = (*FreeImageHost)(nil)

// ErrUploadFailed is returned when the image host does not return a URL.
var ErrUploadFailed = errors.New("storage: image host upload failed")

// FreeImageHost publishes frames through the freeimage.host upload API.
type FreeImageHost struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// FreeImageOption configures a FreeImageHost.
type FreeImageOption func(*FreeImageHost)

// WithEndpoint overrides the upload endpoint.
func WithEndpoint(u string) FreeImageOption {
	return func(h *FreeImageHost) {
		if u != "" {
			h.endpoint = u
		}
	}
}

// WithUploadHTTPClient sets a custom HTTP client.
func WithUploadHTTPClient(c *http.Client) FreeImageOption {
	return func(h *FreeImageHost) {
		h.httpClient = c
	}
}

// NewFreeImageHost creates a publisher for freeimage.host.
func NewFreeImageHost(apiKey string, opts ...FreeImageOption) *FreeImageHost {
	h := &FreeImageHost{
		apiKey:     apiKey,
		endpoint:   "https://freeimage.host/api/1/upload",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type freeImageResponse struct {
	StatusCode int `json:"status_code"`
	Image      struct {
		URL string `json:"url"`
	} `json:"image"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Publish uploads data as a base64 form field. The host picks its own name.
func (h *FreeImageHost) Publish(ctx context.Context, _, _ string, data io.Reader) (string, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	form := url.Values{}
	form.Set("key", h.apiKey)
	form.Set("source", base64.StdEncoding.EncodeToString(raw))
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}

	var out freeImageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || out.Image.URL == "" {
		msg := out.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, msg)
	}
	return out.Image.URL, nil
}
