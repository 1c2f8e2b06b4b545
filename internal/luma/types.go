// Package luma provides an HTTP client for the Luma Dream Machine video generation API.
package luma

// State represents the state of a Luma generation.
type State string

// Luma generation states as reported by the API.
const (
	StateQueued    State = "queued"
	StateDreaming  State = "dreaming"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// IsTerminal returns true if the state is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Defaults sent with every generation request.
const (
	DefaultModel       = "ray-2"
	DefaultResolution  = "720p"
	DefaultDuration    = "9s"
	DefaultAspectRatio = "16:9"
)

// GenerationRequest contains the parameters for an image-to-video generation.
type GenerationRequest struct {
	Prompt        string   // Full text prompt
	StartFrameURL string   // Publicly fetchable URL of the first keyframe
	Concepts      []string // Camera concepts, e.g. "push_in", "handheld"
	Model         string   // Default: ray-2
	Resolution    string   // Default: 720p
	Duration      string   // Default: 9s
	AspectRatio   string   // Default: 16:9
	CallbackURL   string   // Optional webhook target
}

// Generation is the provider's view of a generation.
type Generation struct {
	ID            string
	State         State
	VideoURL      string // Only set once the state is completed
	ImageURL      string // Thumbnail, may be empty
	FailureReason string // Only set when the state is failed
}

// generationRequest represents the request body for POST /generations.
type generationRequest struct {
	Prompt      string    `json:"prompt"`
	AspectRatio string    `json:"aspect_ratio"`
	Loop        bool      `json:"loop"`
	Keyframes   keyframes `json:"keyframes"`
	Model       string    `json:"model"`
	Resolution  string    `json:"resolution"`
	Duration    string    `json:"duration"`
	Concepts    []concept `json:"concepts,omitempty"`
	CallbackURL string    `json:"callback_url,omitempty"`
}

type keyframes struct {
	Frame0 keyframe `json:"frame0"`
}

type keyframe struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type concept struct {
	Key string `json:"key"`
}

// generationResponse represents a generation object returned by the API.
type generationResponse struct {
	ID            string           `json:"id"`
	State         string           `json:"state"`
	FailureReason string           `json:"failure_reason,omitempty"`
	Assets        generationAssets `json:"assets,omitempty"`
}

type generationAssets struct {
	Video string `json:"video,omitempty"`
	Image string `json:"image,omitempty"`
}

// errorResponse is the body Luma returns with non-2xx responses.
type errorResponse struct {
	Detail string `json:"detail"`
}
