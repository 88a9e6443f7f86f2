package basecurve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load_profile/internal/model"
	"load_profile/internal/pattern"
)

func makeHistory(start, end time.Time, value func(time.Time) float64, skip func(time.Time) bool) *pattern.History {
	cal := model.NewCalendar(nil, model.DefaultSeasonTable)
	h := &pattern.History{Calendar: cal}
	for ts := start; ts.Before(end); ts = ts.Add(time.Hour) {
		if skip != nil && skip(ts) {
			continue
		}
		h.Records = append(h.Records, cal.Tag(ts, value(ts)))
	}
	return h
}

func constant(v float64) func(time.Time) float64 {
	return func(time.Time) float64 { return v }
}

func TestBuildAutoPicksLatestYear(t *testing.T) {
	h := makeHistory(model.FiscalYearStart(2023), model.FiscalYearStart(2025), constant(500), nil)

	c, err := NewBuilder(nil).Build(h, 0)
	require.NoError(t, err)
	assert.Equal(t, 2024, c.FiscalYear)
	assert.Len(t, c.Records, model.HoursInFiscalYear(2024))
	assert.Len(t, c.Records, 8784)
	assert.Equal(t, 8784, c.Observed)
	assert.Empty(t, c.Warnings)
	assert.InDelta(t, 500, c.Mean, 1e-9)
	assert.Equal(t, model.FiscalYearStart(2024), c.Records[0].Timestamp)
	assert.Equal(t, 1, c.Records[0].FiscalDay)
	assert.Equal(t, 366, c.Records[len(c.Records)-1].FiscalDay)
	assert.Equal(t, 23, c.Records[len(c.Records)-1].Hour)
}

func TestBuildExplicitYear(t *testing.T) {
	h := makeHistory(model.FiscalYearStart(2023), model.FiscalYearStart(2025), func(ts time.Time) float64 {
		return float64(model.FiscalYearOf(ts))
	}, nil)

	c, err := NewBuilder(nil).Build(h, 2023)
	require.NoError(t, err)
	assert.Equal(t, 2023, c.FiscalYear)
	assert.Len(t, c.Records, 8760)
	assert.InDelta(t, 2023, c.Mean, 1e-9)
}

func TestBuildSubstitutesMissingYear(t *testing.T) {
	h := makeHistory(model.FiscalYearStart(2023), model.FiscalYearStart(2025), constant(500), nil)

	c, err := NewBuilder(nil).Build(h, 2019)
	require.NoError(t, err)
	assert.Equal(t, 2024, c.FiscalYear)
	assert.Equal(t, 2019, c.Requested)
	require.Len(t, c.Warnings, 1)
	assert.Contains(t, c.Warnings[0], "requested=2019")
	assert.Contains(t, c.Warnings[0], "substituted=2024")
}

func TestBuildFillsGaps(t *testing.T) {
	start := model.FiscalYearStart(2025)
	gapStart := start.Add(100 * time.Hour)
	h := makeHistory(start.Add(10*time.Hour), model.FiscalYearStart(2026).Add(-5*time.Hour),
		func(ts time.Time) float64 { return float64(ts.Sub(start) / time.Hour) },
		func(ts time.Time) bool { return !ts.Before(gapStart) && ts.Before(gapStart.Add(4*time.Hour)) })

	c, err := NewBuilder(nil).Build(h, 2025)
	require.NoError(t, err)
	require.Len(t, c.Records, 8760)
	assert.Equal(t, 8760-10-5-4, c.Observed)

	// leading gap is edge filled
	assert.Equal(t, 10.0, c.Records[0].DemandMW)
	// interior gap is linearly interpolated
	for i := 100; i < 104; i++ {
		assert.InDelta(t, float64(i), c.Records[i].DemandMW, 1e-9)
	}
	// trailing gap is edge filled
	assert.Equal(t, 8754.0, c.Records[8759].DemandMW)
}

func TestBuildTagsDayTypes(t *testing.T) {
	h := makeHistory(model.FiscalYearStart(2025), model.FiscalYearStart(2026), constant(1), nil)
	holiday := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	h.Calendar = model.NewCalendar(map[time.Time]string{holiday: "Independence Day"}, model.DefaultSeasonTable)

	c, err := NewBuilder(nil).Build(h, 2025)
	require.NoError(t, err)
	idx := int(holiday.Sub(model.FiscalYearStart(2025)) / time.Hour)
	assert.Equal(t, model.DayHoliday, c.Records[idx].DayType)
	assert.Equal(t, model.SeasonMonsoon, c.Records[idx].Season)
	// 2024-04-06 is a Saturday
	assert.Equal(t, model.DayWeekend, c.Records[5*24].DayType)
}

func TestBuildNoHistory(t *testing.T) {
	_, err := NewBuilder(nil).Build(&pattern.History{}, 0)
	assert.ErrorIs(t, err, model.ErrNoHistoricalData)
}
