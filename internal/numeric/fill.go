package numeric

import "math"

// FillGaps replaces NaN entries by linear interpolation between the nearest
// known neighbours. Leading and trailing gaps take the nearest known value.
// A series with no known values is returned unchanged.
func FillGaps(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)

	first, last := -1, -1
	for i, v := range out {
		if !math.IsNaN(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return out
	}

	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	for i := last + 1; i < len(out); i++ {
		out[i] = out[last]
	}

	prev := first
	for i := first + 1; i <= last; i++ {
		if math.IsNaN(out[i]) {
			continue
		}
		if gap := i - prev; gap > 1 {
			step := (out[i] - out[prev]) / float64(gap)
			for j := 1; j < gap; j++ {
				out[prev+j] = out[prev] + step*float64(j)
			}
		}
		prev = i
	}
	return out
}
