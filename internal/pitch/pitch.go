// SPDX-License-Identifier: MIT
/*
Package pitch holds the frame series produced by an external pitch
estimator and the conversions between Hertz and MIDI-pitch units.

A series arrives as three index-aligned slices (time, frequency,
confidence). Frames are evenly spaced; the frame period is inferred from
the first two timestamps by the segmenter.
*/
package pitch

import (
	"errors"
	"fmt"
	"math"
)

const (
	ReferenceHz   = 440.0 // A4
	ReferenceMidi = 69.0  // MIDI number of A4
	MinPitchHz    = 1e-6  // Floor applied before taking the logarithm
)

// ErrLengthMismatch is returned when the slices of a Series differ in length.
var ErrLengthMismatch = errors.New("pitch: series length mismatch")

// Frame is one sample of the pitch track.
type Frame struct {
	Timestamp  float64 // Seconds from the start of the track
	PitchHz    float64 // Estimated fundamental frequency
	Confidence float64 // Estimator confidence in [0,1]
}

// Series is the raw output of the pitch estimator.
type Series struct {
	Time       []float64 `json:"time"`
	Frequency  []float64 `json:"frequency"`
	Confidence []float64 `json:"confidence"`
}

// Len returns the number of frames, or -1 if the slices disagree.
func (s *Series) Len() int {
	n := len(s.Time)
	if len(s.Frequency) != n || len(s.Confidence) != n {
		return -1
	}
	return n
}

// Frames zips the series into frames. Non-finite frequency or confidence
// values, which estimators such as pyin emit for unvoiced frames, become 0.
func (s *Series) Frames() ([]Frame, error) {
	n := s.Len()
	if n < 0 {
		return nil, fmt.Errorf("%w: time=%d frequency=%d confidence=%d",
			ErrLengthMismatch, len(s.Time), len(s.Frequency), len(s.Confidence))
	}

	frames := make([]Frame, n)
	for i := range n {
		frames[i] = Frame{
			Timestamp:  s.Time[i],
			PitchHz:    Finite(s.Frequency[i]),
			Confidence: Finite(s.Confidence[i]),
		}
	}
	return frames, nil
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// HzToMidi converts a frequency to fractional MIDI-pitch units.
// Frequencies are floored at MinPitchHz so the result is always finite.
func HzToMidi(hz float64) float64 {
	return ReferenceMidi + 12*math.Log2(math.Max(hz, MinPitchHz)/ReferenceHz)
}

// MidiToHz converts fractional MIDI-pitch units back to Hertz.
func MidiToHz(midi float64) float64 {
	return ReferenceHz * math.Pow(2, (midi-ReferenceMidi)/12)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the scientific pitch name of a MIDI note, e.g. 60 -> "C4".
func NoteName(midi int) string {
	degree := ((midi % 12) + 12) % 12
	octave := (midi-degree)/12 - 1
	return fmt.Sprintf("%s%d", noteNames[degree], octave)
}
