package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCamera(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no recognizable term", "slow and dreamy", "push_in + handheld"},
		{"empty", "", "push_in + handheld"},
		{"single term paired with handheld", "crane_up", "crane_up + handheld"},
		{"two terms kept", "pan_left + tracking", "pan_left + tracking"},
		{"order preserved", "tracking + pan_left", "tracking + pan_left"},
		{"more than two truncated", "tilt_up + arc_left + zoom_out", "tilt_up + arc_left"},
		{"space spelling normalized", "Dolly In + static", "dolly_in + static"},
		{"uppercase", "PUSH_IN + HANDHELD", "push_in + handheld"},
		{"unknown parts dropped", "wobble + orbit + zoom_in", "zoom_in + handheld"},
		{"decorated part", "slow push in toward the door", "push_in + handheld"},
		{"no spaces around plus", "pan_right+tilt_down", "pan_right + tilt_down"},
		{"word separated", "crane_up then push_in", "crane_up + push_in"},
		{"comma separated", "tracking, pan_left", "tracking + pan_left"},
		{"space spellings in prose", "dolly in with a slow pan right", "dolly_in + pan_right"},
		{"three in prose truncated", "arc_right, then tilt down and zoom in", "arc_right + tilt_down"},
		{"term inside a longer word ignored", "ecstatic crowd, tracking", "tracking + handheld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateCamera(tt.raw))
		})
	}
}

func TestValidateCamera_EveryVocabularyTerm(t *testing.T) {
	for _, term := range Vocabulary {
		t.Run(term, func(t *testing.T) {
			got := ValidateCamera(term)
			if term == "handheld" {
				assert.Equal(t, "handheld + handheld", got)
				return
			}
			assert.Equal(t, term+" + handheld", got)
		})
	}
}
