package job

import (
	"context"

	"github.com/maauso/reelchain-api/internal/generator"
	"github.com/maauso/reelchain-api/internal/motion"
)

// FrameSynthesizer produces the opening still of a job.
type FrameSynthesizer interface {
	Synthesize(ctx context.Context, prompt, style string) (url string, err error)
}

// ContinuationSynthesizer produces the still that follows a finished segment.
type ContinuationSynthesizer interface {
	SynthesizeContinuation(ctx context.Context, previousFrameURL, motion, style string) (url string, err error)
}

// MotionAnalyzer decides the motion and camera for a segment from its start frame.
type MotionAnalyzer interface {
	Analyze(ctx context.Context, req motion.Request) (motion.Analysis, error)
}

// VideoSynthesizer turns a start frame and motion into a finished clip.
// Implementations block until the provider reports a terminal state.
type VideoSynthesizer interface {
	Generate(ctx context.Context, req generator.Request) (generator.Result, error)
}

// Capabilities groups the external collaborators the pipeline drives.
type Capabilities struct {
	Frames        FrameSynthesizer
	Continuations ContinuationSynthesizer
	Motion        MotionAnalyzer
	Video         VideoSynthesizer
}
