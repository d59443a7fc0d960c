// SPDX-License-Identifier: MIT
/*
Package midi writes note segments as a Standard MIDI File and reads them
back for inspection.

Encode produces a format 0 file with a single track at 480 ticks per
quarter note:

	MThd 00000006 0000 0001 01E0
	MTrk <length>
	  00 FF 51 03 <tempo>          tempo at tick 0
	  <vlq> 90 <note> <velocity>   note on, channel 0
	  <vlq> 80 <note> 00           note off, channel 0
	  ...
	  00 FF 2F 00                  end of track

No running status is used, so every channel event carries its status byte.
*/
package midi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"pitchmidi/internal/segment"
)

const (
	Division        = 480 // Ticks per quarter note
	DefaultTempoBPM = 120.0
	DefaultVelocity = 80

	metaEvent      = 0xFF
	metaTempo      = 0x51
	metaEndOfTrack = 0x2F
	maxTempoMicros = 0xFFFFFF // Tempo is stored in three bytes
)

var (
	ErrNegativeDelta = errors.New("midi: negative delta time")
	ErrDeltaOverflow = errors.New("midi: delta time exceeds variable-length quantity range")
	ErrInvalidTempo  = errors.New("midi: invalid tempo")
	ErrInvalidTime   = errors.New("midi: event time is not finite")

	headerChunk = [4]byte{'M', 'T', 'h', 'd'}
	trackChunk  = [4]byte{'M', 'T', 'r', 'k'}
)

// EventKind is the status nibble of a channel event.
type EventKind uint8

const (
	NoteOff EventKind = 0x80
	NoteOn  EventKind = 0x90
)

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	default:
		return fmt.Sprintf("EventKind(%#x)", uint8(k))
	}
}

// Event is a point event on the absolute time axis.
type Event struct {
	Time     float64 // Seconds
	Kind     EventKind
	Note     uint8
	Velocity uint8
}

// Options control the tempo and loudness of the written file.
type Options struct {
	TempoBPM float64
	Velocity int // Clamped to [0,127]
}

// DefaultOptions returns 120 BPM at velocity 80.
func DefaultOptions() Options {
	return Options{TempoBPM: DefaultTempoBPM, Velocity: DefaultVelocity}
}

// Events expands notes into note on/off pairs sorted by time. Events sharing
// a timestamp keep their generation order, so a note ending where the next
// one starts is released before the next is struck.
func Events(notes []segment.NoteSegment, velocity int) []Event {
	vel := clamp7(int64(velocity))
	events := make([]Event, 0, 2*len(notes))
	for _, n := range notes {
		key := clamp7(int64(n.PitchMidi))
		events = append(events,
			Event{Time: n.Start, Kind: NoteOn, Note: key, Velocity: vel},
			Event{Time: n.End, Kind: NoteOff, Note: key, Velocity: 0},
		)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}

// SecondsToTicks converts an absolute time to ticks at the given tempo.
func SecondsToTicks(seconds, tempoBPM float64) int64 {
	return int64(math.Round(seconds * Division * tempoBPM / 60))
}

// TempoMicros returns microseconds per quarter note for a tempo.
func TempoMicros(tempoBPM float64) int64 {
	return int64(math.Round(60_000_000 / tempoBPM))
}

// Encode renders notes as a format 0 Standard MIDI File.
func Encode(notes []segment.NoteSegment, opts Options) ([]byte, error) {
	if !(opts.TempoBPM > 0) || math.IsInf(opts.TempoBPM, 0) {
		return nil, fmt.Errorf("%w: %v bpm", ErrInvalidTempo, opts.TempoBPM)
	}
	micros := TempoMicros(opts.TempoBPM)
	if micros < 1 || micros > maxTempoMicros {
		return nil, fmt.Errorf("%w: %v bpm is %d µs per quarter note", ErrInvalidTempo, opts.TempoBPM, micros)
	}

	track, err := encodeTrack(Events(notes, opts.Velocity), opts.TempoBPM, micros)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 22+len(track))
	out = append(out, headerChunk[:]...)
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, 0) // format 0
	out = binary.BigEndian.AppendUint16(out, 1) // one track
	out = binary.BigEndian.AppendUint16(out, Division)
	out = append(out, trackChunk[:]...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(track)))
	out = append(out, track...)

	return out, nil
}

// encodeTrack writes the track event stream. events must already be in time
// order; anything else surfaces as ErrNegativeDelta.
func encodeTrack(events []Event, tempoBPM float64, micros int64) ([]byte, error) {
	track := make([]byte, 0, 16+4*len(events))
	track = AppendVLQ(track, 0)
	track = append(track, metaEvent, metaTempo, 3,
		byte(micros>>16), byte(micros>>8), byte(micros))

	var last int64
	for i, ev := range events {
		if math.IsNaN(ev.Time) || math.IsInf(ev.Time, 0) {
			return nil, fmt.Errorf("%w: event %d at %v seconds", ErrInvalidTime, i, ev.Time)
		}
		tick := SecondsToTicks(ev.Time, tempoBPM)
		delta := tick - last
		if delta < 0 {
			return nil, fmt.Errorf("%w: event %d at tick %d follows tick %d", ErrNegativeDelta, i, tick, last)
		}
		if delta > MaxVLQ {
			return nil, fmt.Errorf("%w: %d ticks", ErrDeltaOverflow, delta)
		}
		last = tick

		track = AppendVLQ(track, uint64(delta))
		track = append(track, byte(ev.Kind), ev.Note, ev.Velocity)
	}

	track = AppendVLQ(track, 0)
	track = append(track, metaEvent, metaEndOfTrack, 0)
	return track, nil
}

func clamp7(v int64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
