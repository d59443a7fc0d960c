// SPDX-License-Identifier: MIT
package config

import (
	"pitchmidi/internal/midi"
	"pitchmidi/internal/segment"
	"pitchmidi/internal/voicing"
)

// Band returns the voicing classifier parameters.
func (c *Config) Band() voicing.Band {
	return voicing.Band{
		Threshold: c.Voicing.ConfidenceThreshold,
		MinHz:     c.Voicing.MinHz,
		MaxHz:     c.Voicing.MaxHz,
	}
}

// SegmentParams returns the note segmenter parameters.
func (c *Config) SegmentParams() segment.Params {
	return segment.Params{
		SplitSemitoneThreshold: c.Segmentation.SplitSemitoneThreshold,
		MinNoteDuration:        c.Segmentation.MinNoteDuration,
		UnvoicedGracePeriod:    c.Segmentation.UnvoicedGracePeriod,
	}
}

// MidiOptions returns the MIDI encoder options.
func (c *Config) MidiOptions() midi.Options {
	return midi.Options{
		TempoBPM: c.Midi.TempoBPM,
		Velocity: c.Midi.Velocity,
	}
}
