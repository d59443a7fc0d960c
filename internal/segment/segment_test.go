// SPDX-License-Identifier: MIT
package segment

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"pitchmidi/internal/pitch"
	"pitchmidi/internal/voicing"
	"pitchmidi/pkg/utils"
)

const testPeriod = 0.016

var (
	testBand   = voicing.Band{Threshold: 0.9, MinHz: 80, MaxHz: 2000}
	testParams = Params{
		SplitSemitoneThreshold: 0.75,
		MinNoteDuration:        0.05,
		UnvoicedGracePeriod:    0.05,
	}
)

func segmentFrames(t *testing.T, frames []pitch.Frame, params Params) []NoteSegment {
	t.Helper()
	notes, err := Segment(frames, testBand.Classify(frames), params)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	return notes
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestSegmentConstantTone(t *testing.T) {
	frames := utils.GenerateToneFrames(5, testPeriod, 440, 0.95)
	notes := segmentFrames(t, frames, testParams)

	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1: %+v", len(notes), notes)
	}
	n := notes[0]
	if n.PitchMidi != 69 {
		t.Errorf("PitchMidi = %d, want 69", n.PitchMidi)
	}
	if n.Start != 0 || !approx(n.End, 0.08) {
		t.Errorf("span = [%v, %v], want [0, 0.08]", n.Start, n.End)
	}
	if n.PitchMedianHz != 440 {
		t.Errorf("PitchMedianHz = %v, want 440", n.PitchMedianHz)
	}
}

func TestSegmentDegenerateInput(t *testing.T) {
	tests := []struct {
		name   string
		frames []pitch.Frame
		params Params
		want   int
	}{
		{"Empty", nil, testParams, 0},
		{"All unvoiced", utils.GenerateToneFrames(20, testPeriod, 440, 0.1), testParams, 0},
		{"Out of band", utils.GenerateToneFrames(20, testPeriod, 40, 0.99), testParams, 0},
		{"Single frame too short", utils.GenerateToneFrames(1, testPeriod, 440, 0.95), testParams, 0},
		{"Single frame kept", utils.GenerateToneFrames(1, testPeriod, 440, 0.95),
			Params{SplitSemitoneThreshold: 1, MinNoteDuration: 0.01, UnvoicedGracePeriod: 0.05}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes := segmentFrames(t, tt.frames, tt.params)
			if len(notes) != tt.want {
				t.Errorf("got %d notes, want %d", len(notes), tt.want)
			}
			if notes == nil {
				t.Error("expected non-nil slice")
			}
		})
	}
}

func TestSegmentSingleFrameUsesFallbackPeriod(t *testing.T) {
	frames := []pitch.Frame{{Timestamp: 1.0, PitchHz: 440, Confidence: 1}}
	notes := segmentFrames(t, frames, Params{SplitSemitoneThreshold: 1, MinNoteDuration: 0.01, UnvoicedGracePeriod: 0.05})
	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(notes))
	}
	if !approx(notes[0].End, 1.0+FallbackFramePeriod) {
		t.Errorf("End = %v, want %v", notes[0].End, 1.0+FallbackFramePeriod)
	}
}

func TestSegmentSplitsOnPitchJump(t *testing.T) {
	frames := utils.GenerateMelodyFrames(testPeriod,
		utils.Tone{Hz: 440, Frames: 10, Confidence: 0.95},
		utils.Tone{Hz: 523.25, Frames: 10, Confidence: 0.95},
	)
	notes := segmentFrames(t, frames, testParams)

	if len(notes) != 2 {
		t.Fatalf("got %d notes, want 2: %+v", len(notes), notes)
	}
	if notes[0].PitchMidi != 69 || notes[1].PitchMidi != 72 {
		t.Errorf("pitches = %d, %d, want 69, 72", notes[0].PitchMidi, notes[1].PitchMidi)
	}
	if !approx(notes[0].End, 0.16) || !approx(notes[1].Start, 0.16) {
		t.Errorf("boundary = %v / %v, want 0.16", notes[0].End, notes[1].Start)
	}
	if !approx(notes[1].End, 0.32) {
		t.Errorf("End = %v, want 0.32", notes[1].End)
	}
}

func TestSegmentToleratesShortGap(t *testing.T) {
	frames := utils.GenerateMelodyFrames(testPeriod,
		utils.Tone{Hz: 440, Frames: 10, Confidence: 0.95},
		utils.Tone{Hz: 0, Frames: 2},
		utils.Tone{Hz: 440, Frames: 10, Confidence: 0.95},
	)
	notes := segmentFrames(t, frames, testParams)

	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1: %+v", len(notes), notes)
	}
	if notes[0].Start != 0 || !approx(notes[0].End, 0.352) {
		t.Errorf("span = [%v, %v], want [0, 0.352]", notes[0].Start, notes[0].End)
	}
}

func TestSegmentClosesOnLongGap(t *testing.T) {
	frames := utils.GenerateMelodyFrames(testPeriod,
		utils.Tone{Hz: 440, Frames: 10, Confidence: 0.95},
		utils.Tone{Hz: 0, Frames: 5},
		utils.Tone{Hz: 440, Frames: 10, Confidence: 0.95},
	)
	notes := segmentFrames(t, frames, testParams)

	if len(notes) != 2 {
		t.Fatalf("got %d notes, want 2: %+v", len(notes), notes)
	}
	// Three unvoiced frames fit in the grace period and extend the note.
	if !approx(notes[0].End, 0.208) {
		t.Errorf("first End = %v, want 0.208", notes[0].End)
	}
	if !approx(notes[1].Start, 0.24) {
		t.Errorf("second Start = %v, want 0.24", notes[1].Start)
	}
}

func TestSegmentMergesAcrossDroppedBlip(t *testing.T) {
	frames := utils.GenerateMelodyFrames(testPeriod,
		utils.Tone{Hz: 440, Frames: 10, Confidence: 0.95},
		utils.Tone{Hz: 466.16, Frames: 1, Confidence: 0.95},
		utils.Tone{Hz: 440, Frames: 10, Confidence: 0.95},
	)
	notes := segmentFrames(t, frames, testParams)

	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1: %+v", len(notes), notes)
	}
	if notes[0].PitchMidi != 69 || notes[0].Start != 0 || !approx(notes[0].End, 0.336) {
		t.Errorf("note = %+v, want 69 over [0, 0.336]", notes[0])
	}
}

func TestSegmentNonPositivePitchIsSilence(t *testing.T) {
	frames := utils.GenerateToneFrames(10, testPeriod, 0, 1)
	voiced := make([]bool, len(frames))
	for i := range voiced {
		voiced[i] = true
	}
	notes, err := Segment(frames, voiced, testParams)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("got %d notes, want 0", len(notes))
	}
}

func TestSegmentLengthMismatch(t *testing.T) {
	frames := utils.GenerateToneFrames(3, testPeriod, 440, 1)
	_, err := Segment(frames, []bool{true}, testParams)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("error = %v, want ErrLengthMismatch", err)
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		notes []NoteSegment
		want  []NoteSegment
	}{
		{
			"Adjacent same pitch",
			[]NoteSegment{{Start: 0, End: 0.1, PitchMidi: 60}, {Start: 0.116, End: 0.3, PitchMidi: 60}},
			[]NoteSegment{{Start: 0, End: 0.3, PitchMidi: 60}},
		},
		{
			"Touching same pitch",
			[]NoteSegment{{Start: 0, End: 0.1, PitchMidi: 60}, {Start: 0.1, End: 0.2, PitchMidi: 60}},
			[]NoteSegment{{Start: 0, End: 0.2, PitchMidi: 60}},
		},
		{
			"Different pitch",
			[]NoteSegment{{Start: 0, End: 0.1, PitchMidi: 60}, {Start: 0.1, End: 0.2, PitchMidi: 61}},
			[]NoteSegment{{Start: 0, End: 0.1, PitchMidi: 60}, {Start: 0.1, End: 0.2, PitchMidi: 61}},
		},
		{
			"Gap too wide",
			[]NoteSegment{{Start: 0, End: 0.1, PitchMidi: 60}, {Start: 0.2, End: 0.3, PitchMidi: 60}},
			[]NoteSegment{{Start: 0, End: 0.1, PitchMidi: 60}, {Start: 0.2, End: 0.3, PitchMidi: 60}},
		},
		{
			"Chain of three",
			[]NoteSegment{
				{Start: 0, End: 0.1, PitchMidi: 60},
				{Start: 0.11, End: 0.2, PitchMidi: 60},
				{Start: 0.21, End: 0.3, PitchMidi: 60},
			},
			[]NoteSegment{{Start: 0, End: 0.3, PitchMidi: 60}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := merge(tt.notes, testPeriod)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d notes, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("note %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMedianAsymmetry(t *testing.T) {
	even := []float64{61, 60}
	if got := Median(even); got != 60.5 {
		t.Errorf("Median(%v) = %v, want 60.5", even, got)
	}
	if got := splitMedian([]float64{60, 61}); got != 61 {
		t.Errorf("splitMedian = %v, want 61", got)
	}
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("Median odd = %v, want 2", got)
	}
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil) = %v, want 0", got)
	}
	if even[0] != 61 {
		t.Error("Median modified its input")
	}
}

func TestSegmentInvariantsRandomMelodies(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	hz := []float64{0, 196, 220, 246.94, 261.63, 293.66, 329.63, 440}

	for run := range 50 {
		var tones []utils.Tone
		for range 2 + rng.Intn(12) {
			tones = append(tones, utils.Tone{
				Hz:         hz[rng.Intn(len(hz))],
				Frames:     1 + rng.Intn(15),
				Confidence: 0.5 + rng.Float64()*0.5,
			})
		}
		frames := utils.GenerateMelodyFrames(testPeriod, tones...)
		notes := segmentFrames(t, frames, testParams)

		for i, n := range notes {
			if n.Start >= n.End {
				t.Errorf("run %d note %d: start %v >= end %v", run, i, n.Start, n.End)
			}
			if n.Duration() < testParams.MinNoteDuration-1e-4 {
				t.Errorf("run %d note %d: duration %v below minimum", run, i, n.Duration())
			}
			if i > 0 && notes[i-1].End > n.Start+1e-9 {
				t.Errorf("run %d note %d: overlaps previous (%v > %v)", run, i, notes[i-1].End, n.Start)
			}
		}
	}
}

func BenchmarkSegment(b *testing.B) {
	frames := utils.GenerateMelodyFrames(0.01,
		utils.Tone{Hz: 440, Frames: 3000, Confidence: 0.95},
		utils.Tone{Hz: 0, Frames: 500},
		utils.Tone{Hz: 261.63, Frames: 3000, Confidence: 0.95},
	)
	voiced := testBand.Classify(frames)

	b.ReportAllocs()
	for b.Loop() {
		_, _ = Segment(frames, voiced, testParams)
	}
}
