package motion

import (
	"fmt"
	"strings"
)

// Position is where a segment sits in the job's narrative.
type Position string

// Segment positions.
const (
	PositionOpening Position = "opening"
	PositionMedial  Position = "medial"
	PositionClosing Position = "closing"
)

// PositionOf classifies a segment. A single-segment job is an opening.
func PositionOf(index, total int) Position {
	switch {
	case index == 0:
		return PositionOpening
	case index == total-1:
		return PositionClosing
	default:
		return PositionMedial
	}
}

func (p Position) guidance() string {
	switch p {
	case PositionOpening:
		return "This is the opening shot - establish the scene."
	case PositionClosing:
		return "This is the final shot - bring closure."
	default:
		return "Continue the narrative naturally."
	}
}

// SystemPrompt builds the analysis instruction for segment index of total.
func SystemPrompt(index, total int) string {
	return fmt.Sprintf(`You are an expert at describing MOTION for AI video generation.

Given an image and context, describe what MOTION should happen next. Focus on:
1. Physical movements (what moves, how it moves)
2. Camera movement (from this list: %s)
3. Environmental changes (lighting, particles, atmosphere)

This is segment %d of %d. %s

IMPORTANT: Describe MOTION, not static descriptions. Use action verbs.
Output format:
MOTION: [2-3 sentences describing what moves and how]
CAMERA: [primary_concept + secondary_concept] (e.g., "%s")
NARRATIVE: [1 sentence about story progression]`,
		strings.Join(Vocabulary, ", "), index+1, total, PositionOf(index, total).guidance(), DefaultCamera)
}
