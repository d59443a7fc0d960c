// SPDX-License-Identifier: MIT
/*
Package report assembles the JSON export of a transcription run: the
per-frame voicing decisions, the notes, and summary statistics.
*/
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"pitchmidi/internal/pitch"
	"pitchmidi/internal/segment"
	"pitchmidi/internal/voicing"
)

// FrameDecision is one frame of the input with its voicing flag.
type FrameDecision struct {
	Time       float64 `json:"time"`
	PitchHz    float64 `json:"pitch_hz"`
	Confidence float64 `json:"confidence"`
	Voiced     bool    `json:"voiced"`
}

// Settings records the parameters a run used.
type Settings struct {
	Voicing      voicing.Band   `json:"voicing"`
	Segmentation segment.Params `json:"segmentation"`
	TempoBPM     float64        `json:"tempo_bpm"`
	Velocity     int            `json:"velocity"`
}

// Stats summarises a run.
type Stats struct {
	Frames            int     `json:"frames"`
	VoicedFrames      int     `json:"voiced_frames"`
	VoicedRatio       float64 `json:"voiced_ratio"`
	Duration          float64 `json:"duration"` // Seconds covered by the frames
	MeanConfidence    float64 `json:"mean_confidence"`
	MeanVoicedPitchHz float64 `json:"mean_voiced_pitch_hz"`
	Notes             int     `json:"notes"`
	NoteTime          float64 `json:"note_time"` // Sum of note durations
	MedianNoteMidi    float64 `json:"median_note_midi"`
	LowestNote        string  `json:"lowest_note,omitempty"`
	HighestNote       string  `json:"highest_note,omitempty"`
}

// Export is the JSON document written next to the MIDI file.
type Export struct {
	ID       string                `json:"id"`
	Source   string                `json:"source,omitempty"`
	Settings Settings              `json:"settings"`
	Frames   []FrameDecision       `json:"frames"`
	Notes    []segment.NoteSegment `json:"notes"`
	Stats    Stats                 `json:"stats"`
}

// New builds an export with a fresh run ID.
func New(source string, settings Settings, frames []pitch.Frame, voiced []bool, notes []segment.NoteSegment) (*Export, error) {
	if len(frames) != len(voiced) {
		return nil, fmt.Errorf("report: %d frames but %d voicing flags", len(frames), len(voiced))
	}

	decisions := make([]FrameDecision, len(frames))
	for i, f := range frames {
		decisions[i] = FrameDecision{
			Time:       f.Timestamp,
			PitchHz:    pitch.Finite(f.PitchHz),
			Confidence: pitch.Finite(f.Confidence),
			Voiced:     voiced[i],
		}
	}
	if notes == nil {
		notes = []segment.NoteSegment{}
	}

	return &Export{
		ID:       uuid.NewString(),
		Source:   source,
		Settings: settings,
		Frames:   decisions,
		Notes:    notes,
		Stats:    ComputeStats(frames, voiced, notes),
	}, nil
}

// ComputeStats summarises frames and notes. Frames without a voicing flag
// count as unvoiced.
func ComputeStats(frames []pitch.Frame, voiced []bool, notes []segment.NoteSegment) Stats {
	s := Stats{
		Frames: len(frames),
		Notes:  len(notes),
	}
	if len(frames) == 0 {
		return s
	}

	confidence := make([]float64, len(frames))
	var voicedPitch []float64
	for i, f := range frames {
		confidence[i] = pitch.Finite(f.Confidence)
		if i < len(voiced) && voiced[i] {
			voicedPitch = append(voicedPitch, pitch.Finite(f.PitchHz))
		}
	}
	s.VoicedRatio = float64(len(voicedPitch)) / float64(len(frames))
	s.VoicedFrames = len(voicedPitch)
	s.MeanConfidence = stat.Mean(confidence, nil)
	if len(voicedPitch) > 0 {
		s.MeanVoicedPitchHz = stat.Mean(voicedPitch, nil)
	}
	s.Duration = frames[len(frames)-1].Timestamp - frames[0].Timestamp + segment.FramePeriod(frames)

	if len(notes) == 0 {
		return s
	}

	durations := make([]float64, len(notes))
	midi := make([]float64, len(notes))
	for i, n := range notes {
		durations[i] = n.Duration()
		midi[i] = float64(n.PitchMidi)
	}
	s.NoteTime = floats.Sum(durations)
	s.MedianNoteMidi = segment.Median(midi)
	s.LowestNote = pitch.NoteName(int(floats.Min(midi)))
	s.HighestNote = pitch.NoteName(int(floats.Max(midi)))

	return s
}

// WriteJSON writes the export as indented JSON.
func (e *Export) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}
