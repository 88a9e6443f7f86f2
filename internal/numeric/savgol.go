package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SavitzkyGolay is a local polynomial regression smoother.
type SavitzkyGolay struct{}

// projection returns the (order+1) x window least-squares operator mapping a
// window of samples to polynomial coefficients about the window centre.
func projection(window, order int) (*mat.Dense, error) {
	if window%2 == 0 || window < 3 {
		return nil, fmt.Errorf("savgol window %d must be odd and >= 3", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("savgol order %d must be in [0, %d)", order, window)
	}

	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i - half)
		for j := 0; j <= order; j++ {
			a.Set(i, j, math.Pow(x, float64(j)))
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("savgol normal equations: %w", err)
	}
	var p mat.Dense
	p.Mul(&inv, a.T())
	return &p, nil
}

// Smooth filters values with the given window and polynomial order. Edges are
// evaluated from the polynomial fitted to the first and last full windows.
func (SavitzkyGolay) Smooth(values []float64, window, order int) ([]float64, error) {
	n := len(values)
	if window > n {
		return nil, fmt.Errorf("savgol window %d exceeds series length %d", window, n)
	}
	p, err := projection(window, order)
	if err != nil {
		return nil, err
	}

	half := window / 2
	out := make([]float64, n)
	for i := half; i < n-half; i++ {
		var s float64
		for j := 0; j < window; j++ {
			s += p.At(0, j) * values[i-half+j]
		}
		out[i] = s
	}

	left := polyCoefficients(p, values[:window])
	for i := 0; i < half; i++ {
		out[i] = evalPoly(left, float64(i-half))
	}
	right := polyCoefficients(p, values[n-window:])
	for i := n - half; i < n; i++ {
		out[i] = evalPoly(right, float64(i-(n-window)-half))
	}
	return out, nil
}

// SmoothCircular filters a periodic series, wrapping the window around both ends.
func (SavitzkyGolay) SmoothCircular(values []float64, window, order int) ([]float64, error) {
	n := len(values)
	if window > n {
		return nil, fmt.Errorf("savgol window %d exceeds series length %d", window, n)
	}
	p, err := projection(window, order)
	if err != nil {
		return nil, err
	}

	half := window / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < window; j++ {
			k := ((i-half+j)%n + n) % n
			s += p.At(0, j) * values[k]
		}
		out[i] = s
	}
	return out, nil
}

func polyCoefficients(p *mat.Dense, window []float64) []float64 {
	var c mat.VecDense
	c.MulVec(p, mat.NewVecDense(len(window), window))
	return c.RawVector().Data
}

func evalPoly(coef []float64, x float64) float64 {
	var v float64
	for j := len(coef) - 1; j >= 0; j-- {
		v = v*x + coef[j]
	}
	return v
}
