// SPDX-License-Identifier: MIT
package midi

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// DecodedNote is a note recovered from a MIDI file.
type DecodedNote struct {
	Key      uint8
	Velocity uint8
	Start    float64 // Seconds
	End      float64 // Seconds
}

// File summarises a decoded MIDI file.
type File struct {
	Tracks     int
	Resolution uint16 // Ticks per quarter note, 0 for SMPTE time
	Notes      []DecodedNote
}

// Inspect decodes any Standard MIDI File and pairs note on/off events into
// notes. A note on with velocity 0 counts as a note off. Notes still held at
// the end of their track are closed at the track's last event.
func Inspect(r io.Reader) (f *File, err error) {
	// smf can panic on malformed input.
	defer func() {
		if rec := recover(); rec != nil {
			f = nil
			err = fmt.Errorf("failed to parse MIDI data: %v", rec)
		}
	}()

	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI data: %w", err)
	}

	if len(s.Tracks) == 0 {
		return nil, errors.New("failed to parse MIDI data: no tracks")
	}

	f = &File{Tracks: len(s.Tracks)}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		f.Resolution = mt.Resolution()
	}

	for _, track := range s.Tracks {
		held := make(map[uint8][]DecodedNote)
		var absTicks int64
		for _, ev := range track {
			absTicks += int64(ev.Delta)
			at := float64(s.TimeAt(absTicks)) / 1e6

			var channel, key, velocity uint8
			switch {
			case ev.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
				held[key] = append(held[key], DecodedNote{Key: key, Velocity: velocity, Start: at})
			case ev.Message.GetNoteOn(&channel, &key, &velocity), ev.Message.GetNoteOff(&channel, &key, &velocity):
				stack := held[key]
				if len(stack) == 0 {
					continue
				}
				n := stack[0]
				held[key] = stack[1:]
				n.End = at
				f.Notes = append(f.Notes, n)
			}
		}

		end := float64(s.TimeAt(absTicks)) / 1e6
		for _, stack := range held {
			for _, n := range stack {
				n.End = end
				f.Notes = append(f.Notes, n)
			}
		}
	}

	sort.SliceStable(f.Notes, func(i, j int) bool {
		if f.Notes[i].Start != f.Notes[j].Start {
			return f.Notes[i].Start < f.Notes[j].Start
		}
		return f.Notes[i].Key < f.Notes[j].Key
	})
	return f, nil
}
