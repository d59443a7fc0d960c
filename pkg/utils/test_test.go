// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

const testPeriod = 0.016

func TestMockTransport(t *testing.T) {
	tests := []struct {
		name    string
		payload []any
	}{
		{"Nothing", nil},
		{"Single map", []any{map[string]any{"type": "notes"}}},
		{"Several values", []any{1, "two", []float64{3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := &MockTransport{}
			for _, p := range tt.payload {
				if err := mt.Send(p); err != nil {
					t.Errorf("MockTransport.Send() error = %v", err)
				}
			}
			if got := mt.Payloads(); len(got) != len(tt.payload) {
				t.Errorf("recorded %d payloads, want %d", len(got), len(tt.payload))
			}
			if err := mt.Close(); err != nil || !mt.Closed {
				t.Errorf("Close() = %v, Closed = %v", err, mt.Closed)
			}
		})
	}
}

func TestGenerateToneFrames(t *testing.T) {
	frames := GenerateToneFrames(5, testPeriod, 440, 0.95)
	if len(frames) != 5 {
		t.Fatalf("len = %d, want 5", len(frames))
	}
	for i, f := range frames {
		if math.Abs(f.Timestamp-float64(i)*testPeriod) > 1e-12 {
			t.Errorf("frame %d timestamp = %v", i, f.Timestamp)
		}
		if f.PitchHz != 440 || f.Confidence != 0.95 {
			t.Errorf("frame %d = %+v", i, f)
		}
	}
}

func TestGenerateMelodyFrames(t *testing.T) {
	frames := GenerateMelodyFrames(testPeriod,
		Tone{Hz: 440, Frames: 3, Confidence: 1},
		Tone{Hz: 0, Frames: 2},
		Tone{Hz: 220, Frames: 4, Confidence: 1},
	)
	if len(frames) != 9 {
		t.Fatalf("len = %d, want 9", len(frames))
	}
	if frames[3].PitchHz != 0 || frames[5].PitchHz != 220 {
		t.Errorf("unexpected layout: %+v", frames)
	}
	if math.Abs(frames[8].Timestamp-8*testPeriod) > 1e-12 {
		t.Errorf("last timestamp = %v", frames[8].Timestamp)
	}

	s := ToSeries(frames)
	if s.Len() != 9 || s.Frequency[5] != 220 {
		t.Errorf("ToSeries() = %+v", s)
	}
}
