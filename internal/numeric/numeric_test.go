package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	x := []float64{4, 1, 3, 2}
	assert.InDelta(t, 2.5, Mean(x), 1e-12)
	assert.InDelta(t, 2.5, Median(x), 1e-12)
	assert.InDelta(t, 3.0, Median([]float64{5, 3, 1}), 1e-12)
	assert.InDelta(t, 1.290994, StdDev(x), 1e-6)
	assert.InDelta(t, 1.290994/2.5, CV(x), 1e-6)
	assert.Equal(t, []float64{4, 1, 3, 2}, x, "inputs are not reordered")

	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Median(nil)))
	assert.Equal(t, 0.0, StdDev([]float64{7}))
	assert.Equal(t, 0.0, CV([]float64{0, 0}))
}

func TestQuantile(t *testing.T) {
	x := make([]float64, 101)
	for i := range x {
		x[i] = float64(100 - i)
	}
	assert.InDelta(t, 0.0, Quantile(x, 0), 1e-9)
	assert.InDelta(t, 100.0, Quantile(x, 1), 1e-9)
	assert.InDelta(t, 50.0, Quantile(x, 0.5), 1.0)
	assert.InDelta(t, 99.0, Quantile(x, 0.99), 1.0)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestLogistic(t *testing.T) {
	assert.InDelta(t, 0.5, Logistic(0.5, 10, 0.5), 1e-12)
	assert.Less(t, Logistic(0, 10, 0.5), 0.01)
	assert.Greater(t, Logistic(1, 10, 0.5), 0.99)
}

func TestRelativeChanges(t *testing.T) {
	got := RelativeChanges([]float64{100, 110, 99, 0, 5})
	require.Len(t, got, 3)
	assert.InDelta(t, 0.1, got[0], 1e-12)
	assert.InDelta(t, 0.1, got[1], 1e-12)
	assert.InDelta(t, 1.0, got[2], 1e-12)
	assert.Nil(t, RelativeChanges([]float64{1}))
}

func TestFillGaps(t *testing.T) {
	nan := math.NaN()
	got := FillGaps([]float64{nan, 1, nan, nan, 4, nan})
	assert.Equal(t, []float64{1, 1, 2, 3, 4, 4}, got)

	empty := FillGaps([]float64{nan, nan})
	assert.True(t, math.IsNaN(empty[0]))
}

func TestPeriodicSpline(t *testing.T) {
	xs := make([]float64, 12)
	ys := make([]float64, 12)
	for m := range xs {
		xs[m] = float64(m) + 0.5
		ys[m] = 1 + 0.2*math.Sin(2*math.Pi*xs[m]/12)
	}
	f, err := PeriodicSpline(xs, ys, 12)
	require.NoError(t, err)

	for i := range xs {
		assert.InDelta(t, ys[i], f(xs[i]), 1e-9, "spline passes through knot %d", i)
	}
	assert.InDelta(t, f(0.001), f(11.999), 1e-3, "curve is continuous across the wrap")
	assert.InDelta(t, 1+0.2*math.Sin(2*math.Pi*3.0/12), f(3.0), 5e-3)

	_, err = PeriodicSpline([]float64{1}, []float64{1}, 12)
	assert.ErrorIs(t, err, ErrTooFewKnots)
	_, err = PeriodicSpline([]float64{1, 2}, []float64{1}, 12)
	assert.Error(t, err)
}

func TestSavitzkyGolayCoefficients(t *testing.T) {
	p, err := projection(5, 2)
	require.NoError(t, err)
	want := []float64{-3, 12, 17, 12, -3}
	for j, w := range want {
		assert.InDelta(t, w/35, p.At(0, j), 1e-12)
	}

	_, err = projection(4, 2)
	assert.Error(t, err)
	_, err = projection(5, 5)
	assert.Error(t, err)
}

func TestSavitzkyGolayPreservesCubic(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		x := float64(i)
		values[i] = 500 + 3*x - 0.2*x*x + 0.004*x*x*x
	}
	out, err := SavitzkyGolay{}.Smooth(values, 25, 3)
	require.NoError(t, err)
	require.Len(t, out, len(values))
	for i := range values {
		assert.InDelta(t, values[i], out[i], 1e-3, "index %d", i)
	}

	_, err = SavitzkyGolay{}.Smooth(values[:10], 25, 3)
	assert.Error(t, err)
}

func TestSavitzkyGolayReducesNoise(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		values[i] = 100
		if i%2 == 0 {
			values[i] += 10
		}
	}
	out, err := SavitzkyGolay{}.Smooth(values, 25, 3)
	require.NoError(t, err)
	assert.Less(t, StdDev(out[20:180]), StdDev(values[20:180])/5)
}

func TestSmoothCircular(t *testing.T) {
	flat := make([]float64, 24)
	for i := range flat {
		flat[i] = 1
	}
	out, err := SavitzkyGolay{}.SmoothCircular(flat, 5, 2)
	require.NoError(t, err)
	for _, v := range out {
		assert.InDelta(t, 1.0, v, 1e-12)
	}

	spike := make([]float64, 24)
	spike[0] = 35
	out, err = SavitzkyGolay{}.SmoothCircular(spike, 5, 2)
	require.NoError(t, err)
	assert.InDelta(t, 17.0, out[0], 1e-9)
	assert.InDelta(t, 12.0, out[23], 1e-9, "window wraps to the end")
	assert.InDelta(t, -3.0, out[22], 1e-9)
}

func TestClassicalDecomposer(t *testing.T) {
	period := 24
	values := make([]float64, period*10)
	for i := range values {
		values[i] = 1000 + 0.5*float64(i) + 100*math.Sin(2*math.Pi*float64(i%period)/float64(period))
	}
	c, err := ClassicalDecomposer{}.Decompose(values, period)
	require.NoError(t, err)
	require.Len(t, c.Seasonal, len(values))

	assert.Greater(t, c.SeasonalStrength, 0.9)
	assert.Greater(t, c.TrendStrength, 0.9)
	assert.Less(t, c.ResidualStrength, 0.1)
	assert.InDelta(t, 100.0, c.Seasonal[6], 5)

	_, err = ClassicalDecomposer{}.Decompose(values[:30], period)
	assert.Error(t, err)
}

func TestKMeans(t *testing.T) {
	var vectors [][]float64
	for i := 0; i < 10; i++ {
		vectors = append(vectors, []float64{0 + 0.01*float64(i), 0})
	}
	for i := 0; i < 6; i++ {
		vectors = append(vectors, []float64{10, 10 + 0.01*float64(i)})
	}

	clusters, err := KMeans{Seed: 7}.Cluster(vectors, 2)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0].Members, 10, "largest cluster first")
	assert.Len(t, clusters[1].Members, 6)
	assert.InDelta(t, 10.0, clusters[1].Centroid[0], 1e-9)

	_, err = KMeans{}.Cluster(vectors[:1], 2)
	assert.Error(t, err)
	_, err = KMeans{}.Cluster([][]float64{{1}, {1, 2}}, 1)
	assert.Error(t, err)
}

func TestToolkitCapabilities(t *testing.T) {
	assert.Equal(t, []string{"smoothing", "decomposition", "clustering"}, DefaultToolkit().Capabilities())
	assert.Empty(t, Toolkit{}.Capabilities())
}
