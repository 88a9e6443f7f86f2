package numeric

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// ErrTooFewKnots is returned when a spline cannot be fitted.
var ErrTooFewKnots = errors.New("too few knots for spline")

// PeriodicSpline fits a cubic spline through (xs, ys) that wraps with the given
// period. The knots are tripled and shifted by ±period so the curve is smooth
// across the boundary; evaluate it anywhere in [0, period).
func PeriodicSpline(xs, ys []float64, period float64) (func(float64) float64, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("spline knots: %d xs vs %d ys", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, ErrTooFewKnots
	}

	n := len(xs)
	tx := make([]float64, 0, 3*n)
	ty := make([]float64, 0, 3*n)
	for _, shift := range []float64{-period, 0, period} {
		for i := 0; i < n; i++ {
			tx = append(tx, xs[i]+shift)
			ty = append(ty, ys[i])
		}
	}

	var nc interp.NaturalCubic
	if err := nc.Fit(tx, ty); err != nil {
		return nil, fmt.Errorf("fitting periodic spline: %w", err)
	}
	return nc.Predict, nil
}
