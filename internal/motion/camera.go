// Package motion provides the Motion Analysis capability: given the current frame it
// decides what should move next and how the camera follows.
package motion

import (
	"slices"
	"strings"
	"unicode"
)

// Vocabulary lists the camera concepts the video engine understands.
var Vocabulary = []string{
	"push_in", "pull_out", "pan_left", "pan_right", "tilt_up", "tilt_down",
	"dolly_in", "dolly_out", "crane_up", "crane_down", "handheld", "static",
	"tracking", "arc_left", "arc_right", "zoom_in", "zoom_out",
}

// Camera defaults.
const (
	DefaultPrimary   = "push_in"
	DefaultSecondary = "handheld"
	DefaultCamera    = DefaultPrimary + " + " + DefaultSecondary
)

// ValidateCamera repairs a raw camera directive against Vocabulary. Every
// known concept is located in the text, in either underscore or space spelling,
// and kept in the order it appears. No match yields DefaultCamera, one match is
// paired with DefaultSecondary and more than two are truncated.
func ValidateCamera(raw string) string {
	terms := findTerms(strings.ToLower(raw))

	switch len(terms) {
	case 0:
		return DefaultCamera
	case 1:
		return terms[0] + " + " + DefaultSecondary
	default:
		return terms[0] + " + " + terms[1]
	}
}

type termHit struct {
	term       string
	start, end int
}

// findTerms returns the vocabulary terms mentioned in text ordered by position.
func findTerms(text string) []string {
	var hits []termHit
	for _, term := range Vocabulary {
		for _, spelling := range []string{term, strings.ReplaceAll(term, "_", " ")} {
			for from := 0; from < len(text); {
				i := strings.Index(text[from:], spelling)
				if i < 0 {
					break
				}
				start := from + i
				end := start + len(spelling)
				if isBoundary(text, start-1) && isBoundary(text, end) {
					hits = append(hits, termHit{term: term, start: start, end: end})
				}
				from = end
			}
		}
	}

	slices.SortFunc(hits, func(a, b termHit) int { return a.start - b.start })

	terms := make([]string, 0, len(hits))
	covered := -1
	for _, h := range hits {
		if h.start < covered {
			continue
		}
		terms = append(terms, h.term)
		covered = h.end
	}
	return terms
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	r := rune(text[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
