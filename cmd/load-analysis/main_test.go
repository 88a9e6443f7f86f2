package main

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load_profile/internal/model"
	"load_profile/internal/numeric"
	"load_profile/internal/pattern"
)

func TestPrintReport(t *testing.T) {
	var raw []model.DemandRecord
	for ts := model.FiscalYearStart(2024); ts.Before(model.FiscalYearEnd(2024)); ts = ts.Add(time.Hour) {
		v := 900 * (1 + 0.3*math.Sin(2*math.Pi*float64(ts.Hour()-8)/24))
		raw = append(raw, model.DemandRecord{Timestamp: ts, DemandMW: v})
	}

	ex := pattern.NewExtractor(pattern.DefaultOptions(), model.DefaultSeasonTable, numeric.DefaultToolkit(), nil)
	history, err := ex.Clean(raw, model.NewCalendar(map[time.Time]string{}, model.DefaultSeasonTable))
	require.NoError(t, err)
	ps, err := ex.Extract(history, pattern.MethodNormalized)
	require.NoError(t, err)

	var buf bytes.Buffer
	printReport(&buf, history, ps, model.DefaultSeasonTable)
	out := buf.String()

	assert.Contains(t, out, "Data: 2023-04-01 to 2024-03-31 (8784 hours)")
	assert.Contains(t, out, "Method: normalized_pattern")
	assert.Contains(t, out, "Hourly Shapes:")
	assert.Contains(t, out, "April")
	assert.Contains(t, out, "Base Load:")
	assert.Contains(t, out, "Holidays: 0 (0 detected)")
}

func TestPrintArchetypes(t *testing.T) {
	var profile [24]float64
	for h := range profile {
		profile[h] = 1
	}
	profile[19] = 1.4

	var buf bytes.Buffer
	printArchetypes(&buf, []pattern.Archetype{{Profile: profile, Days: 250, DominantDayType: model.DayWeekday}})
	assert.Contains(t, buf.String(), "#1   250 days  mostly weekday  peak 1.40x at 19:00")
}
