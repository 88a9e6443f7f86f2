package numeric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// StdDev returns the sample standard deviation (n-1), or 0 when fewer than two values.
func StdDev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// CV is the coefficient of variation, 0 when the mean is zero or undefined.
func CV(x []float64) float64 {
	m := Mean(x)
	if m == 0 || math.IsNaN(m) {
		return 0
	}
	return StdDev(x) / m
}

// Quantile returns the linearly interpolated p-quantile (0..1) of x.
// x is not modified.
func Quantile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// Median returns the middle value (mean of the two middle values for even n).
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Correlation returns the Pearson correlation of x and y.
func Correlation(x, y []float64) float64 {
	return stat.Correlation(x, y, nil)
}

// Logistic evaluates 1/(1+exp(-k(x-mid))).
func Logistic(x, k, mid float64) float64 {
	return 1 / (1 + math.Exp(-k*(x-mid)))
}

// RelativeChanges returns |x[i]-x[i-1]|/x[i-1] for consecutive pairs with a
// positive predecessor.
func RelativeChanges(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, 0, len(x)-1)
	for i := 1; i < len(x); i++ {
		if x[i-1] <= 0 {
			continue
		}
		out = append(out, math.Abs(x[i]-x[i-1])/x[i-1])
	}
	return out
}
