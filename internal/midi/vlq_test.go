// SPDX-License-Identifier: MIT
package midi

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"
)

func TestAppendVLQKnownValues(t *testing.T) {
	tests := []struct {
		value uint64
		want  []byte
	}{
		{0, []byte{0x00}},
		{0x40, []byte{0x40}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{480, []byte{0x83, 0x60}},
		{960, []byte{0x87, 0x40}},
		{0x2000, []byte{0xC0, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
		{0x1FFFFF, []byte{0xFF, 0xFF, 0x7F}},
		{0x200000, []byte{0x81, 0x80, 0x80, 0x00}},
		{MaxVLQ, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		got := AppendVLQ(nil, tt.value)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("AppendVLQ(%#x) = % X, want % X", tt.value, got, tt.want)
		}
	}
}

func TestAppendVLQAppends(t *testing.T) {
	got := AppendVLQ([]byte{0xAA}, 0x80)
	if !bytes.Equal(got, []byte{0xAA, 0x81, 0x00}) {
		t.Errorf("AppendVLQ did not append: % X", got)
	}
}

func TestVLQRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	values := []uint64{0, 1, 127, 128, 16383, 16384, MaxVLQ, MaxVLQ + 1, 1 << 40, ^uint64(0) >> 1}
	for range 1000 {
		values = append(values, uint64(rng.Int63n(MaxVLQ+1)))
	}

	for _, v := range values {
		enc := AppendVLQ(nil, v)
		for i, b := range enc {
			last := i == len(enc)-1
			if (b&0x80 == 0) != last {
				t.Fatalf("AppendVLQ(%d) = % X: bad continuation bit at byte %d", v, enc, i)
			}
		}
		got, err := ReadVLQ(bytes.NewReader(enc))
		if err != nil {
			t.Fatalf("ReadVLQ(% X) error = %v", enc, err)
		}
		if got != v {
			t.Fatalf("ReadVLQ(AppendVLQ(%d)) = %d", v, got)
		}
	}
}

func TestReadVLQErrors(t *testing.T) {
	if _, err := ReadVLQ(bytes.NewReader([]byte{0x81})); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated: error = %v, want io.ErrUnexpectedEOF", err)
	}
	if _, err := ReadVLQ(bytes.NewReader(nil)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("empty: error = %v, want io.ErrUnexpectedEOF", err)
	}
	if _, err := ReadVLQ(bytes.NewReader(bytes.Repeat([]byte{0xFF}, 11))); !errors.Is(err, ErrVLQTooLong) {
		t.Errorf("unterminated: error = %v, want ErrVLQTooLong", err)
	}
}

func BenchmarkAppendVLQ(b *testing.B) {
	buf := make([]byte, 0, 16)
	b.ReportAllocs()
	for b.Loop() {
		buf = AppendVLQ(buf[:0], 0x1FFFFF)
	}
}
