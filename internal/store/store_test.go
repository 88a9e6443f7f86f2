package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load_profile/internal/model"
)

func makeRecords(values []float64, startTime time.Time, interval time.Duration) []model.DemandRecord {
	records := make([]model.DemandRecord, len(values))
	for i, v := range values {
		records[i] = model.DemandRecord{
			Timestamp: startTime.Add(time.Duration(i) * interval),
			DemandMW:  v,
		}
	}
	return records
}

var (
	startTime = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	hour      = time.Hour
)

func TestStore_AddAndCount(t *testing.T) {
	s := New()
	s.AddHistory("scada", makeRecords([]float64{100, 200, 300, 400, 500}, startTime, hour))
	s.AddHistory("empty", nil)

	assert.Equal(t, 5, s.Count())
	require.Len(t, s.Sources(), 1)
	assert.Equal(t, "scada", s.Sources()[0].Name)
	assert.Equal(t, 5, s.Sources()[0].Records)
}

func TestStore_TimeRange(t *testing.T) {
	s := New()
	records := makeRecords([]float64{100, 200, 300}, startTime, hour)
	records = append(records, model.DemandRecord{DemandMW: 50})
	s.AddHistory("scada", records)

	tr, ok := s.TimeRange("scada")
	require.True(t, ok)
	assert.Equal(t, startTime, tr.Start)
	assert.Equal(t, startTime.Add(2*hour), tr.End)

	_, ok = s.TimeRange("nonexistent")
	assert.False(t, ok)
}

func TestStore_GlobalTimeRange(t *testing.T) {
	s := New()
	_, ok := s.GlobalTimeRange()
	assert.False(t, ok)

	s.AddHistory("a", makeRecords([]float64{1, 2}, startTime.Add(5*hour), hour))
	s.AddHistory("b", makeRecords([]float64{1, 2, 3}, startTime, hour))

	tr, ok := s.GlobalTimeRange()
	require.True(t, ok)
	assert.Equal(t, startTime, tr.Start)
	assert.Equal(t, startTime.Add(6*hour), tr.End)
}

func TestStore_HistoryMergesAndSorts(t *testing.T) {
	s := New()
	s.AddHistory("late", makeRecords([]float64{10, 11}, startTime.Add(hour), 2*hour))
	s.AddHistory("early", makeRecords([]float64{20, 21}, startTime, 2*hour))
	// out-of-order append to an existing source
	s.AddHistory("early", makeRecords([]float64{19}, startTime.Add(-hour), hour))

	got := s.History()
	require.Len(t, got, 5)
	values := make([]float64, len(got))
	for i, r := range got {
		values[i] = r.DemandMW
	}
	assert.Equal(t, []float64{19, 20, 10, 21, 11}, values)

	inRange := s.HistoryInRange(startTime, startTime.Add(2*hour))
	require.Len(t, inRange, 2)
	assert.Equal(t, 20.0, inRange[0].DemandMW)
	assert.Equal(t, 10.0, inRange[1].DemandMW)
	assert.Nil(t, s.HistoryInRange(startTime.Add(100*hour), startTime.Add(200*hour)))
}

func TestStore_Tables(t *testing.T) {
	s := New()
	assert.Nil(t, s.Holidays())
	assert.Nil(t, s.Targets())

	targets := model.Targets{2025: 8_000_000}
	s.SetTargets(targets)
	targets[2025] = 1
	assert.Equal(t, 8_000_000.0, s.Targets()[2025])

	s.SetForecasts(map[string]model.Targets{"MLR": {2025: 7}, "SLR": {2025: 6}})
	f, ok := s.Forecast("mlr")
	require.True(t, ok)
	assert.Equal(t, 7.0, f[2025])
	_, ok = s.Forecast("WAM")
	assert.False(t, ok)
	assert.Equal(t, []string{"MLR", "SLR"}, s.ForecastModels())

	s.SetCaps(model.MonthlyCaps{{FiscalYear: 2025, Month: time.May}: 1400})
	assert.Len(t, s.Caps(), 1)

	s.SetHolidays(map[time.Time]string{startTime: "x"})
	assert.Len(t, s.Holidays(), 1)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddHistory("scada", makeRecords([]float64{1, 2, 3}, startTime.Add(time.Duration(i)*24*hour), hour))
			_ = s.History()
			_, _ = s.GlobalTimeRange()
		}()
	}
	wg.Wait()
	assert.Equal(t, 24, s.Count())
}
