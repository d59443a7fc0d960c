// SPDX-License-Identifier: MIT
package midi

import (
	"errors"
	"io"
)

// MaxVLQ is the largest value a Standard MIDI File allows in a
// variable-length quantity (four 7-bit groups).
const MaxVLQ = 0x0FFFFFFF

// ErrVLQTooLong is returned by ReadVLQ when the continuation bit never clears.
var ErrVLQTooLong = errors.New("midi: variable-length quantity too long")

// AppendVLQ appends v as a variable-length quantity: 7-bit groups, most
// significant first, with 0x80 set on every byte but the last.
func AppendVLQ(dst []byte, v uint64) []byte {
	var buf [10]byte
	i := len(buf) - 1
	buf[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		buf[i] = byte(v&0x7F) | 0x80
	}
	return append(dst, buf[i:]...)
}

// ReadVLQ decodes one variable-length quantity.
func ReadVLQ(r io.ByteReader) (uint64, error) {
	var v uint64
	for range 10 {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		v = v<<7 | uint64(b&0x7F)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrVLQTooLong
}
