// SPDX-License-Identifier: MIT
package pitch

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("pitch: unsupported series format")

// Load reads a series from a .json or .csv file.
func Load(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open series file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadJSON(f)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadJSON decodes {"time": [...], "frequency": [...], "confidence": [...]}.
func ReadJSON(r io.Reader) (*Series, error) {
	var s Series
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse series JSON: %w", err)
	}
	if s.Len() < 0 {
		return nil, fmt.Errorf("%w: time=%d frequency=%d confidence=%d",
			ErrLengthMismatch, len(s.Time), len(s.Frequency), len(s.Confidence))
	}
	return &s, nil
}

// ReadCSV decodes rows of time,frequency,confidence. A leading header row is
// detected by its first cell not parsing as a number.
func ReadCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var s Series
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read series CSV: %w", err)
		}

		var values [3]float64
		header := false
		for i, cell := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				if line == 1 {
					header = true
					break
				}
				return nil, fmt.Errorf("series CSV line %d column %d: %w", line, i+1, err)
			}
			if i == 0 && (math.IsNaN(v) || math.IsInf(v, 0)) {
				return nil, fmt.Errorf("series CSV line %d: time %q is not finite", line, cell)
			}
			values[i] = v
		}
		if header {
			continue
		}

		s.Time = append(s.Time, values[0])
		s.Frequency = append(s.Frequency, values[1])
		s.Confidence = append(s.Confidence, values[2])
	}
	return &s, nil
}
