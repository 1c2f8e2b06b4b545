// Package frame provides the Frame Synthesis capability: it generates the opening
// still of a job and continuation stills between segments, and relays each one to
// a public host so the video provider can fetch it by URL.
package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/maauso/reelchain-api/internal/openai"
	"github.com/maauso/reelchain-api/internal/storage"
)

const maxImageBytes = 50 << 20

var (
	// ErrNoImage is returned when the image provider produced nothing usable.
	ErrNoImage = errors.New("frame: image generation returned no image")
	// ErrDownload is returned when a provider image URL cannot be fetched.
	ErrDownload = errors.New("frame: image download failed")
)

// Synthesizer generates frames with an image model and publishes them.
type Synthesizer struct {
	images     openai.ImageClient
	publisher  storage.Publisher
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithHTTPClient sets the client used to download provider-hosted images.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Synthesizer) {
		s.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSynthesizer creates a frame Synthesizer.
func NewSynthesizer(images openai.ImageClient, publisher storage.Publisher, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		images:     images,
		publisher:  publisher,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitialPrompt is the image prompt for a job's first frame.
func InitialPrompt(prompt, style string) string {
	return fmt.Sprintf("%s\n\nStyle: %s\n\nPhotorealistic, high detail, cinematic composition, professional photography.", prompt, style)
}

// ContinuationPrompt is the image prompt for the frame that follows a segment.
func ContinuationPrompt(motion, style string) string {
	return fmt.Sprintf("Continue this scene. The previous action was: %s\n\nStyle: %s\n\nMaintain visual consistency with the previous frame. Photorealistic, high detail.", motion, style)
}

// Synthesize generates the opening frame and returns its public URL.
func (s *Synthesizer) Synthesize(ctx context.Context, prompt, style string) (string, error) {
	return s.generate(ctx, InitialPrompt(prompt, style))
}

// SynthesizeContinuation generates the frame that follows motion. The previous
// frame is recorded for tracing; the image model is conditioned on text only.
func (s *Synthesizer) SynthesizeContinuation(ctx context.Context, previousFrameURL, motion, style string) (string, error) {
	s.logger.Debug("synthesizing continuation frame", slog.String("previous_frame", previousFrameURL))
	return s.generate(ctx, ContinuationPrompt(motion, style))
}

func (s *Synthesizer) generate(ctx context.Context, prompt string) (string, error) {
	img, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		if errors.Is(err, openai.ErrNoImage) {
			return "", fmt.Errorf("%w: %v", ErrNoImage, err)
		}
		return "", fmt.Errorf("generate image: %w", err)
	}

	data := img.Data
	if len(data) == 0 {
		if img.URL == "" {
			return "", ErrNoImage
		}
		if data, err = s.download(ctx, img.URL); err != nil {
			return "", err
		}
	}

	mt := mimetype.Detect(data)
	name := uuid.NewString() + mt.Extension()

	url, err := s.publisher.Publish(ctx, name, mt.String(), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("publish frame: %w", err)
	}

	s.logger.Info("frame published", slog.String("url", url), slog.Int("bytes", len(data)))
	return url, nil
}

func (s *Synthesizer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDownload, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}
