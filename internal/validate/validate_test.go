package validate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load_profile/internal/model"
	"load_profile/internal/pattern"
)

var cal = model.NewCalendar(nil, model.DefaultSeasonTable)

func makeProfile(value func(time.Time) float64, years ...int) *model.Profile {
	out := make(map[int][]model.ProfileHour)
	for _, fy := range years {
		start := model.FiscalYearStart(fy)
		for i := 0; i < model.HoursInFiscalYear(fy); i++ {
			tag := cal.Tag(start.Add(time.Duration(i)*time.Hour), 0)
			out[fy] = append(out[fy], model.ProfileHour{
				Timestamp: tag.Timestamp, DemandMW: value(tag.Timestamp), FiscalYear: fy, FiscalDay: tag.FiscalDay,
				Hour: tag.Hour, Month: tag.Month, DayType: tag.DayType, Season: tag.Season,
			})
		}
	}
	return model.NewProfile(out)
}

func daily(ts time.Time) float64 {
	return 1000 + 200*math.Sin(2*math.Pi*float64(ts.Hour())/24)
}

func TestAccuracy(t *testing.T) {
	p := makeProfile(func(time.Time) float64 { return 1000 }, 2025, 2026)
	r := New().Validate(p, model.Targets{2025: 8_760_000, 2026: 9_000_000}, pattern.Variability{})

	require.Len(t, r.Accuracy, 2)
	a := r.Accuracy[0]
	assert.Equal(t, 2025, a.FiscalYear)
	assert.Equal(t, 8760, a.Hours)
	assert.True(t, a.HasTarget)
	assert.InDelta(t, 0, a.ErrorPct, 1e-9)
	assert.Equal(t, 1000.0, a.PeakMW)
	assert.Equal(t, 1000.0, a.MinMW)
	assert.InDelta(t, 1, a.LoadFactor, 1e-12)
	assert.Equal(t, 0.0, a.CV)

	assert.InDelta(t, (8_760_000.0-9_000_000)/9_000_000*100, r.Accuracy[1].ErrorPct, 1e-9)
	assert.False(t, r.TargetsMet)
	assert.Equal(t, 17520, r.Overall.Hours)
	assert.InDelta(t, 17_520_000, r.Overall.TotalMWh, 1e-6)
}

func TestAccuracyWithoutTargets(t *testing.T) {
	p := makeProfile(daily, 2025)
	r := New().Validate(p, nil, pattern.Variability{})

	require.Len(t, r.Accuracy, 1)
	assert.False(t, r.Accuracy[0].HasTarget)
	assert.True(t, r.TargetsMet)
	assert.InDelta(t, 1000/1200.0, r.Accuracy[0].LoadFactor, 1e-6)
}

func TestSmoothnessMonthBoundaries(t *testing.T) {
	// demand steps up by 5% on the first of every month
	p := makeProfile(func(ts time.Time) float64 {
		return 1000 * math.Pow(1.05, float64(model.FiscalMonthIndex(ts.Month())))
	}, 2025)
	r := New().Validate(p, nil, pattern.Variability{})

	s := r.Smoothness
	assert.Equal(t, 11, s.MonthBoundaries)
	assert.InDelta(t, 5, s.MaxTransitionPct, 1e-9)
	assert.InDelta(t, 5, s.MeanTransitionPct, 1e-9)
	assert.NotEmpty(t, s.WorstBoundary)
	assert.InDelta(t, 0.05*11/8759, s.HourlyChangeMean, 1e-9)
	assert.Equal(t, 0.0, s.HourlyChangeP95)
}

func TestSmoothnessAcrossYears(t *testing.T) {
	p := makeProfile(func(ts time.Time) float64 {
		if model.FiscalYearOf(ts) == 2026 {
			return 1100
		}
		return 1000
	}, 2025, 2026)
	r := New().Validate(p, nil, pattern.Variability{})

	assert.Equal(t, 23, r.Smoothness.MonthBoundaries)
	assert.InDelta(t, 10, r.Smoothness.MaxTransitionPct, 1e-9)
	assert.Equal(t, "FY2025 March -> FY2026 April", r.Smoothness.WorstBoundary)
}

func TestSmoothnessSkipsDisjointYears(t *testing.T) {
	p := makeProfile(func(time.Time) float64 { return 500 }, 2025, 2027)
	r := New().Validate(p, nil, pattern.Variability{})
	assert.Equal(t, 22, r.Smoothness.MonthBoundaries)
}

func TestRealism(t *testing.T) {
	p := makeProfile(func(ts time.Time) float64 {
		return daily(ts) * (1 + 0.1*math.Sin(2*math.Pi*float64(model.FiscalDayOfYear(ts))/365))
	}, 2025)
	probe := New().Validate(p, nil, pattern.Variability{})
	generated := probe.Realism.DailyCV.Generated
	require.Positive(t, generated)
	assert.Equal(t, 0.0, probe.Realism.DailyCV.Ratio)
	assert.False(t, probe.Realism.DailyCV.Preserved)

	r := New().Validate(p, nil, pattern.Variability{DailyCV: generated * 1.1, WeeklyCV: probe.Realism.WeeklyCV.Generated * 2})
	assert.True(t, r.Realism.DailyCV.Preserved)
	assert.InDelta(t, 1/1.1, r.Realism.DailyCV.Ratio, 1e-9)
	assert.False(t, r.Realism.WeeklyCV.Preserved)
	assert.InDelta(t, 0.5, r.Realism.WeeklyCV.Ratio, 1e-9)
}

func TestValidateIsIdempotent(t *testing.T) {
	p := makeProfile(daily, 2025, 2026)
	targets := model.Targets{2025: 8_700_000}
	hist := pattern.Variability{DailyCV: 0.05, WeeklyCV: 0.04}

	v := New()
	first := v.Validate(p, targets, hist)
	second := v.Validate(p, targets, hist)
	assert.Equal(t, first, second)
}
