// SPDX-License-Identifier: MIT
/*
Package segment turns a voiced pitch track into discrete notes.

The segmenter makes a single forward pass over the frames with two states:
no active segment, and an active segment collecting MIDI-pitch samples. An
active segment is closed when a voiced frame lands at least
SplitSemitoneThreshold away from the running median, or when consecutive
unvoiced frames span UnvoicedGracePeriod. Closed segments shorter than
MinNoteDuration are dropped, and neighbours with the same rounded pitch that
are at most one frame apart are merged.

Only one segment is open at a time, so a single sample buffer is reused
across segments: a segment is reduced to its output form the moment it
closes.
*/
package segment

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"pitchmidi/internal/pitch"
)

const (
	FallbackFramePeriod = 0.016 // Seconds, used when fewer than two frames exist
	mergeTolerance      = 1e-9
)

// ErrLengthMismatch is returned when frames and voicing flags differ in length.
var ErrLengthMismatch = errors.New("segment: frames and voicing flags differ in length")

// Params are the segmentation tuning knobs.
type Params struct {
	SplitSemitoneThreshold float64 `json:"split_semitone_threshold"` // Pitch jump (semitones) that starts a new note
	MinNoteDuration        float64 `json:"min_note_duration"`        // Seconds; shorter notes are dropped
	UnvoicedGracePeriod    float64 `json:"unvoiced_grace_period"`    // Seconds of unvoiced frames tolerated inside a note
}

// NoteSegment is a finished note.
type NoteSegment struct {
	Start         float64 `json:"start"`           // Seconds, 4 decimal places
	End           float64 `json:"end"`             // Seconds, 4 decimal places
	PitchMedianHz float64 `json:"pitch_median_hz"` // Median pitch, 2 decimal places
	PitchMidi     int32   `json:"pitch_midi"`      // Rounded median, not clamped
}

// Duration returns End - Start.
func (n NoteSegment) Duration() float64 {
	return n.End - n.Start
}

// rawSegment is the open segment. samples is kept sorted ascending since
// only order statistics are ever read from it.
type rawSegment struct {
	start   float64
	end     float64
	samples []float64
}

// FramePeriod infers the frame cadence from the first two timestamps.
func FramePeriod(frames []pitch.Frame) float64 {
	if len(frames) < 2 {
		return FallbackFramePeriod
	}
	return frames[1].Timestamp - frames[0].Timestamp
}

// Segment converts frames and their voicing flags into notes.
func Segment(frames []pitch.Frame, voiced []bool, params Params) ([]NoteSegment, error) {
	if len(frames) != len(voiced) {
		return nil, fmt.Errorf("%w: %d frames, %d flags", ErrLengthMismatch, len(frames), len(voiced))
	}

	s := segmenter{
		params: params,
		period: FramePeriod(frames),
		notes:  make([]NoteSegment, 0),
	}
	for i, f := range frames {
		midi := math.NaN()
		if voiced[i] && f.PitchHz > 0 {
			midi = pitch.HzToMidi(f.PitchHz)
		}
		s.step(f.Timestamp, midi)
	}
	s.flush()

	return merge(s.notes, s.period), nil
}

type segmenter struct {
	params   Params
	period   float64
	active   bool
	current  rawSegment
	unvoiced int
	notes    []NoteSegment
}

// step advances the state machine by one frame. A NaN midi value is silence.
func (s *segmenter) step(t, midi float64) {
	if math.IsNaN(midi) {
		if !s.active {
			return
		}
		s.unvoiced++
		if float64(s.unvoiced)*s.period >= s.params.UnvoicedGracePeriod {
			s.flush()
			return
		}
		s.current.end = t + s.period
		return
	}

	s.unvoiced = 0
	if s.active && math.Abs(midi-splitMedian(s.current.samples)) < s.params.SplitSemitoneThreshold {
		s.current.samples = insertSorted(s.current.samples, midi)
		s.current.end = t + s.period
		return
	}

	if s.active {
		s.flush()
	}
	s.open(t, midi)
}

func (s *segmenter) open(t, midi float64) {
	s.current.start = t
	s.current.end = t + s.period
	s.current.samples = append(s.current.samples[:0], midi)
	s.active = true
	s.unvoiced = 0
}

// flush closes the open segment, keeping it if it survives the filter.
func (s *segmenter) flush() {
	if !s.active {
		return
	}
	s.active = false
	s.unvoiced = 0

	seg := &s.current
	duration := seg.end - seg.start
	if len(seg.samples) == 0 || duration <= 0 || duration < s.params.MinNoteDuration {
		return
	}

	median := medianSorted(seg.samples)
	s.notes = append(s.notes, NoteSegment{
		Start:         roundTo(seg.start, 4),
		End:           roundTo(seg.end, 4),
		PitchMedianHz: roundTo(pitch.MidiToHz(median), 2),
		PitchMidi:     int32(math.Round(median)),
	})
}

// merge folds a note into its predecessor when both share a rounded pitch and
// the gap between them is at most one frame.
func merge(notes []NoteSegment, period float64) []NoteSegment {
	if len(notes) < 2 {
		return notes
	}

	out := notes[:1]
	for _, cur := range notes[1:] {
		prev := &out[len(out)-1]
		if cur.PitchMidi == prev.PitchMidi && cur.Start-prev.End <= period+mergeTolerance {
			prev.End = cur.End
			continue
		}
		out = append(out, cur)
	}
	return out
}

func insertSorted(sorted []float64, v float64) []float64 {
	i := sort.SearchFloat64s(sorted, v)
	return slices.Insert(sorted, i, v)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
