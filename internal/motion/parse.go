package motion

import (
	"regexp"
	"strings"
)

// Fallbacks used when a marker is missing or empty.
const (
	DefaultMotion    = "Gentle movement forward with natural motion."
	DefaultNarrative = "The scene continues."
)

var (
	motionRe    = regexp.MustCompile(`(?s)MOTION:\s*(.*?)(?:CAMERA:|$)`)
	cameraRe    = regexp.MustCompile(`(?s)CAMERA:\s*(.*?)(?:NARRATIVE:|$)`)
	narrativeRe = regexp.MustCompile(`(?s)NARRATIVE:\s*(.*)$`)
)

// Analysis is the structured description of the next segment.
type Analysis struct {
	Motion    string `json:"motion"`
	Camera    string `json:"camera"`
	Narrative string `json:"narrative"`
}

// Parse extracts the MOTION/CAMERA/NARRATIVE sections of a model reply and
// validates the camera directive.
func Parse(text string) Analysis {
	return Analysis{
		Motion:    section(motionRe, text, DefaultMotion),
		Camera:    ValidateCamera(section(cameraRe, text, DefaultCamera)),
		Narrative: section(narrativeRe, text, DefaultNarrative),
	}
}

func section(re *regexp.Regexp, text, fallback string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return fallback
	}
	if s := strings.TrimSpace(m[1]); s != "" {
		return s
	}
	return fallback
}
