package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/maauso/reelchain-api/internal/luma"
)

// LumaAdapter adapts the Luma client to the Generator interface.
type LumaAdapter struct {
	client      luma.Client
	callbackURL string
}

// LumaOption configures a LumaAdapter.
type LumaOption func(*LumaAdapter)

// WithCallbackURL asks Luma to notify url on state changes. Polling stays authoritative.
func WithCallbackURL(url string) LumaOption {
	return func(a *LumaAdapter) {
		a.callbackURL = url
	}
}

// NewLumaAdapter creates a new Luma generator adapter.
func NewLumaAdapter(client luma.Client, opts ...LumaOption) *LumaAdapter {
	a := &LumaAdapter{client: client}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit starts an image-to-video generation on Luma.
func (a *LumaAdapter) Submit(ctx context.Context, req Request) (string, error) {
	gen, err := a.client.Create(ctx, luma.GenerationRequest{
		Prompt:        BuildVideoPrompt(req.Prompt, req.Motion, req.Style),
		StartFrameURL: req.StartFrameURL,
		Concepts:      cameraConcepts(req.Camera),
		CallbackURL:   a.callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("luma adapter submit: %w", err)
	}
	return gen.ID, nil
}

// Poll checks the state of a Luma generation.
func (a *LumaAdapter) Poll(ctx context.Context, generationID string) (PollResult, error) {
	gen, err := a.client.Get(ctx, generationID)
	if err != nil {
		return PollResult{}, fmt.Errorf("luma adapter poll: %w", err)
	}

	var status Status
	switch gen.State {
	case luma.StateQueued:
		status = StatusQueued
	case luma.StateDreaming:
		status = StatusProcessing
	case luma.StateCompleted:
		status = StatusCompleted
	case luma.StateFailed:
		status = StatusFailed
	default:
		status = Status(gen.State)
	}

	return PollResult{
		Status:       status,
		VideoURL:     gen.VideoURL,
		ThumbnailURL: gen.ImageURL,
		Error:        gen.FailureReason,
	}, nil
}

// BuildVideoPrompt composes the text prompt sent with the start frame.
func BuildVideoPrompt(prompt, motion, style string) string {
	return fmt.Sprintf("%s\n\nACTION: %s\n\nStyle: %s\nNatural, fluid motion with realistic physics. Smooth continuous movement.",
		prompt, motion, style)
}

// cameraConcepts splits "push_in + handheld" into Luma concept keys.
func cameraConcepts(camera string) []string {
	var keys []string
	for _, part := range strings.Split(camera, "+") {
		if k := strings.TrimSpace(part); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Compile-time check that LumaAdapter implements Generator.
var _ Generator = (*LumaAdapter)(nil)
