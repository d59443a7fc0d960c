package utils

import (
	"sync"

	"pitchmidi/internal/pitch"
)

// MockTransport implements the Transport interface for testing.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
}

// Send records the payload for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return nil
}

// Payloads returns a copy of everything sent so far.
func (m *MockTransport) Payloads() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.Sent...)
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Tone is a run of frames at a fixed pitch. A zero Hz tone is silence.
type Tone struct {
	Hz         float64
	Frames     int
	Confidence float64
}

// GenerateToneFrames returns n frames at a constant pitch and confidence,
// starting at t=0 with the given period.
func GenerateToneFrames(n int, period, hz, confidence float64) []pitch.Frame {
	return GenerateMelodyFrames(period, Tone{Hz: hz, Frames: n, Confidence: confidence})
}

// GenerateMelodyFrames concatenates tones into one evenly spaced frame series.
func GenerateMelodyFrames(period float64, tones ...Tone) []pitch.Frame {
	var frames []pitch.Frame
	i := 0
	for _, tone := range tones {
		for range tone.Frames {
			frames = append(frames, pitch.Frame{
				Timestamp:  float64(i) * period,
				PitchHz:    tone.Hz,
				Confidence: tone.Confidence,
			})
			i++
		}
	}
	return frames
}

// ToSeries splits frames back into the estimator's column layout.
func ToSeries(frames []pitch.Frame) *pitch.Series {
	s := &pitch.Series{
		Time:       make([]float64, len(frames)),
		Frequency:  make([]float64, len(frames)),
		Confidence: make([]float64, len(frames)),
	}
	for i, f := range frames {
		s.Time[i] = f.Timestamp
		s.Frequency[i] = f.PitchHz
		s.Confidence[i] = f.Confidence
	}
	return s
}
