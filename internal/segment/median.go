// SPDX-License-Identifier: MIT
package segment

import "slices"

// Median returns the median of values, averaging the two middle elements for
// an even count, or 0 for an empty slice. values is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return medianSorted(sorted)
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// splitMedian is the median used for split decisions: the upper-middle
// element for even counts, never an average. sorted must be non-empty.
func splitMedian(sorted []float64) float64 {
	return sorted[len(sorted)/2]
}
