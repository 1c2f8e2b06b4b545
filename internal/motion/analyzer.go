package motion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/maauso/reelchain-api/internal/gemini"
)

// maxFrameBytes bounds a downloaded frame.
const maxFrameBytes = 20 << 20

var (
	// ErrFrameURLRequired is returned when Analyze is called without a frame.
	ErrFrameURLRequired = errors.New("motion: frame URL is required")
	// ErrFrameNotImage is returned when the frame content is not an image.
	ErrFrameNotImage = errors.New("motion: frame is not an image")
	// ErrFrameDownload is returned when the frame cannot be fetched.
	ErrFrameDownload = errors.New("motion: frame download failed")
)

// Request describes the frame to analyze and its place in the job.
type Request struct {
	FrameURL      string
	Prompt        string
	SegmentIndex  int
	TotalSegments int
}

// Analyzer asks a multimodal model to describe the motion for the next segment.
type Analyzer struct {
	client     gemini.Client
	httpClient *http.Client
	logger     *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithHTTPClient sets the client used to download frames.
func WithHTTPClient(c *http.Client) AnalyzerOption {
	return func(a *Analyzer) {
		a.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer backed by a Gemini client.
func NewAnalyzer(client gemini.Client, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		client:     client,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze downloads the frame and returns the parsed, camera-validated analysis.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Analysis, error) {
	if req.FrameURL == "" {
		return Analysis{}, ErrFrameURLRequired
	}

	img, err := a.fetchFrame(ctx, req.FrameURL)
	if err != nil {
		return Analysis{}, err
	}

	text, err := a.client.GenerateText(ctx, gemini.Request{
		System: SystemPrompt(req.SegmentIndex, req.TotalSegments),
		Texts: []string{
			"Original prompt: " + req.Prompt,
			"Analyze this frame and describe the motion:",
		},
		Image: img,
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("motion analysis: %w", err)
	}

	result := Parse(text)
	a.logger.Debug("motion analyzed",
		slog.Int("segment", req.SegmentIndex),
		slog.String("position", string(PositionOf(req.SegmentIndex, req.TotalSegments))),
		slog.String("camera", result.Camera),
	)
	return result, nil
}

func (a *Analyzer) fetchFrame(ctx context.Context, url string) (*gemini.Image, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameDownload, err)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameDownload, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFrameDownload, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameDownload, err)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrFrameNotImage, mt.String())
	}

	return &gemini.Image{MIMEType: mt.String(), Data: data}, nil
}
