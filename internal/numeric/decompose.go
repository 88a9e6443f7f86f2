package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Components is the result of an additive trend/seasonal/residual decomposition.
type Components struct {
	Trend    []float64
	Seasonal []float64
	Residual []float64

	TrendStrength    float64
	SeasonalStrength float64
	ResidualStrength float64
}

// ClassicalDecomposer performs a moving-average additive decomposition.
type ClassicalDecomposer struct{}

func (ClassicalDecomposer) Decompose(values []float64, period int) (Components, error) {
	n := len(values)
	if period < 2 {
		return Components{}, fmt.Errorf("decomposition period %d too short", period)
	}
	if n < 2*period {
		return Components{}, fmt.Errorf("decomposition needs %d samples, got %d", 2*period, n)
	}

	trend := centredMovingAverage(values, period)

	phaseSum := make([]float64, period)
	phaseCount := make([]int, period)
	for i, v := range values {
		phaseSum[i%period] += v - trend[i]
		phaseCount[i%period]++
	}
	index := make([]float64, period)
	var indexMean float64
	for p := range index {
		index[p] = phaseSum[p] / float64(phaseCount[p])
		indexMean += index[p]
	}
	indexMean /= float64(period)

	c := Components{
		Trend:    trend,
		Seasonal: make([]float64, n),
		Residual: make([]float64, n),
	}
	for i, v := range values {
		c.Seasonal[i] = index[i%period] - indexMean
		c.Residual[i] = v - trend[i] - c.Seasonal[i]
	}

	tr := make([]float64, n)
	sr := make([]float64, n)
	for i := range values {
		tr[i] = c.Trend[i] + c.Residual[i]
		sr[i] = c.Seasonal[i] + c.Residual[i]
	}
	varR := stat.Variance(c.Residual, nil)
	c.TrendStrength = strength(varR, stat.Variance(tr, nil))
	c.SeasonalStrength = strength(varR, stat.Variance(sr, nil))
	if varY := stat.Variance(values, nil); varY > 0 {
		c.ResidualStrength = varR / varY
	}
	return c, nil
}

func strength(varR, varX float64) float64 {
	if varX <= 0 {
		return 0
	}
	return math.Max(0, 1-varR/varX)
}

// centredMovingAverage uses a 2xperiod filter for even periods. The undefined
// ends are held at the nearest defined value.
func centredMovingAverage(values []float64, period int) []float64 {
	n := len(values)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		var s float64
		if period%2 == 1 {
			for j := i - half; j <= i+half; j++ {
				s += values[j]
			}
			out[i] = s / float64(period)
			continue
		}
		s = 0.5*values[i-half] + 0.5*values[i+half]
		for j := i - half + 1; j < i+half; j++ {
			s += values[j]
		}
		out[i] = s / float64(period)
	}
	return FillGaps(out)
}
