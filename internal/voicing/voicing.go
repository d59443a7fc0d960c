// SPDX-License-Identifier: MIT
package voicing

import "pitchmidi/internal/pitch"

// IsVoiced reports whether a frame carries a usable pitch. Confidence must be
// strictly above threshold; the frequency band is inclusive on both ends.
func IsVoiced(confidence, pitchHz, threshold, minHz, maxHz float64) bool {
	return confidence > threshold && pitchHz >= minHz && pitchHz <= maxHz
}

// Band bundles the classifier parameters.
type Band struct {
	Threshold float64 `json:"confidence_threshold"` // Minimum (exclusive) confidence
	MinHz     float64 `json:"min_hz"`               // Lowest admissible pitch
	MaxHz     float64 `json:"max_hz"`               // Highest admissible pitch
}

// IsVoiced applies the band to a single frame.
func (b Band) IsVoiced(f pitch.Frame) bool {
	return IsVoiced(f.Confidence, f.PitchHz, b.Threshold, b.MinHz, b.MaxHz)
}

// Classify returns one flag per frame, index-aligned with frames.
func (b Band) Classify(frames []pitch.Frame) []bool {
	voiced := make([]bool, len(frames))
	for i, f := range frames {
		voiced[i] = b.IsVoiced(f)
	}
	return voiced
}

// VoicedRatio returns the fraction of true flags, or 0 for no flags.
func VoicedRatio(voiced []bool) float64 {
	if len(voiced) == 0 {
		return 0
	}
	n := 0
	for _, v := range voiced {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(voiced))
}
