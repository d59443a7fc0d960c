// SPDX-License-Identifier: MIT
package config

// Defaults and limits for a transcription run.
const (
	// Voicing classifier
	DefaultConfidenceThreshold = 0.5    // Frames must be strictly more confident than this
	DefaultMinHz               = 50.0   // Roughly G1
	DefaultMaxHz               = 2000.0 // Roughly B6

	// Note segmenter
	DefaultSplitSemitoneThreshold = 0.8   // Semitones away from the running median
	DefaultMinNoteDuration        = 0.06  // Seconds
	DefaultUnvoicedGracePeriod    = 0.048 // Seconds, three frames at 16 ms

	// MIDI encoder
	DefaultTempoBPM = 120.0
	DefaultVelocity = 80

	// Transport
	DefaultWebSocketAddress = "127.0.0.1:8765"

	DefaultLogLevel = "info"

	// Limits
	MinTempoBPM = 4.0 // Slower tempos overflow the three-byte tempo field
	MaxTempoBPM = 1000.0
	MaxVelocity = 127
)

// Candidate file names searched in the working directory when no explicit
// path is given.
var DefaultConfigFiles = []string{"pitchmidi.yaml", "config.yaml"}
