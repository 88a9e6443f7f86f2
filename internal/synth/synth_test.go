package synth

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load_profile/internal/basecurve"
	"load_profile/internal/model"
	"load_profile/internal/numeric"
	"load_profile/internal/pattern"
)

var testCalendar = model.NewCalendar(nil, model.DefaultSeasonTable)

func makeCurve(t *testing.T, fy int, value func(time.Time) float64) *basecurve.Curve {
	t.Helper()
	h := &pattern.History{Calendar: testCalendar}
	for ts := model.FiscalYearStart(fy); ts.Before(model.FiscalYearEnd(fy)); ts = ts.Add(time.Hour) {
		h.Records = append(h.Records, testCalendar.Tag(ts, value(ts)))
	}
	c, err := basecurve.NewBuilder(nil).Build(h, fy)
	require.NoError(t, err)
	return c
}

// flatPatterns has every factor at 1 so output is base value times growth.
func flatPatterns(growth float64) *pattern.PatternSet {
	return &pattern.PatternSet{
		Method:         pattern.MethodNormalized,
		DayTypeFactors: pattern.DayTypeFactors{Weekday: 1, Weekend: 1, Holiday: 1, FridayEvening: 1, SundayEvening: 1},
		GrowthRate:     growth,
	}
}

func flatOptions(start, end int) Options {
	opts := DefaultOptions(start, end)
	opts.Transitions = nil
	return opts
}

func TestSynthesizeCompoundsGrowth(t *testing.T) {
	curve := makeCurve(t, 2024, func(time.Time) float64 { return 1000 })
	s := New(flatOptions(2025, 2028), nil, nil)

	res, err := s.Synthesize(context.Background(), Input{Patterns: flatPatterns(0.05), Base: curve, Calendar: testCalendar})
	require.NoError(t, err)
	assert.Equal(t, []int{2025, 2026, 2027, 2028}, res.Profile.Years())
	assert.Len(t, res.Profile.Year(2025), 8760)
	assert.Len(t, res.Profile.Year(2026), 8760)
	assert.Len(t, res.Profile.Year(2028), 8784)
	assert.False(t, res.Smoothed)

	for _, fy := range res.Profile.Years() {
		want := 1000 * math.Pow(1.05, float64(fy-2024))
		assert.InDelta(t, want/1000, res.GrowthFactors[fy], 1e-12)
		for _, h := range res.Profile.Year(fy) {
			require.InDelta(t, want, h.DemandMW, 1e-9)
		}
	}

	first := res.Profile.Year(2025)[0]
	assert.Equal(t, model.FiscalYearStart(2025), first.Timestamp)
	assert.Equal(t, 1, first.FiscalDay)
	assert.Equal(t, model.SeasonSummer, first.Season)
	assert.Equal(t, len(res.Profile.Hours), res.Fallbacks[LevelDayType])
	assert.Empty(t, res.Warnings)
}

func TestSynthesizeUsesTargetRatio(t *testing.T) {
	curve := makeCurve(t, 2024, func(time.Time) float64 { return 1000 })
	s := New(flatOptions(2025, 2026), nil, nil)

	res, err := s.Synthesize(context.Background(), Input{
		Patterns: flatPatterns(0.05),
		Base:     curve,
		Targets:  model.Targets{2024: 100, 2025: 200},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.GrowthFactors[2025])
	assert.InDelta(t, 1.1025, res.GrowthFactors[2026], 1e-12)
	assert.InDelta(t, 2000, res.Profile.Year(2025)[100].DemandMW, 1e-9)
}

func TestSynthesizeFloorsDemand(t *testing.T) {
	curve := makeCurve(t, 2024, func(ts time.Time) float64 { return float64(ts.Hour()) })
	s := New(DefaultOptions(2025, 2025), numeric.SavitzkyGolay{}, nil)
	ps := flatPatterns(-0.5)

	res, err := s.Synthesize(context.Background(), Input{Patterns: ps, Base: curve})
	require.NoError(t, err)
	assert.True(t, res.Smoothed)
	for _, h := range res.Profile.Hours {
		require.GreaterOrEqual(t, h.DemandMW, 10.0)
	}
}

func TestSynthesizeSmoothingKeepsConstant(t *testing.T) {
	curve := makeCurve(t, 2024, func(time.Time) float64 { return 800 })
	s := New(flatOptions(2025, 2025), numeric.SavitzkyGolay{}, nil)

	res, err := s.Synthesize(context.Background(), Input{Patterns: flatPatterns(0), Base: curve})
	require.NoError(t, err)
	require.Len(t, res.Profile.Hours, 8760)
	for _, h := range res.Profile.Hours {
		require.InDelta(t, 800, h.DemandMW, 1e-6)
	}
}

func TestSynthesizeWidensLookupWithoutCoverage(t *testing.T) {
	// only fiscal days 100-110 at hour 0 are known
	curve := &basecurve.Curve{FiscalYear: 2024}
	for d := 99; d < 110; d++ {
		ts := model.FiscalYearStart(2024).AddDate(0, 0, d)
		curve.Records = append(curve.Records, testCalendar.Tag(ts, 500))
	}
	s := New(flatOptions(2025, 2025), nil, nil)

	res, err := s.Synthesize(context.Background(), Input{Patterns: flatPatterns(0), Base: curve})
	require.NoError(t, err)
	for _, h := range res.Profile.Hours {
		require.False(t, math.IsNaN(h.DemandMW))
		require.InDelta(t, 500, h.DemandMW, 1e-9)
	}
	assert.Positive(t, res.Fallbacks[LevelHour])
	assert.Positive(t, res.Fallbacks[LevelGlobal])
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "widened lookup")
}

func TestSynthesizeReportsProgress(t *testing.T) {
	curve := makeCurve(t, 2024, func(time.Time) float64 { return 1000 })
	s := New(flatOptions(2025, 2027), nil, nil)

	var mu sync.Mutex
	seen := map[int]bool{}
	var last int
	s.OnYear(func(fy, completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		seen[fy] = true
		assert.Equal(t, 3, total)
		last = max(last, completed)
	})

	_, err := s.Synthesize(context.Background(), Input{Patterns: flatPatterns(0), Base: curve})
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{2025: true, 2026: true, 2027: true}, seen)
	assert.Equal(t, 3, last)
}

func TestSynthesizeCancelled(t *testing.T) {
	curve := makeCurve(t, 2024, func(time.Time) float64 { return 1000 })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(flatOptions(2025, 2030), nil, nil).Synthesize(ctx, Input{Patterns: flatPatterns(0), Base: curve})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynthesizeRejectsBadInput(t *testing.T) {
	_, err := New(flatOptions(2025, 2025), nil, nil).Synthesize(context.Background(), Input{})
	assert.ErrorIs(t, err, model.ErrNoHistoricalData)

	curve := makeCurve(t, 2024, func(time.Time) float64 { return 1 })
	_, err = New(flatOptions(2026, 2025), nil, nil).Synthesize(context.Background(), Input{Patterns: flatPatterns(0), Base: curve})
	assert.Error(t, err)
}
