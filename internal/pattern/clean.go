package pattern

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"load_profile/internal/model"
	"load_profile/internal/numeric"
)

// History is the cleaned, calendar-tagged historical series and the calendar
// context it was tagged with.
type History struct {
	Records          []model.HourlyRecord
	Calendar         *model.Calendar
	Dropped          int
	Duplicates       int
	DetectedHolidays int
}

// Clean drops unusable rows, averages duplicate timestamps, sorts the series
// and tags every row. A non-nil external calendar is used as is; otherwise
// holidays are detected statistically from weekday daily averages.
func (e *Extractor) Clean(raw []model.DemandRecord, external *model.Calendar) (*History, error) {
	sums := make(map[time.Time]float64, len(raw))
	counts := make(map[time.Time]int, len(raw))
	dropped := 0
	for _, r := range raw {
		if r.Timestamp.IsZero() || math.IsNaN(r.DemandMW) || math.IsInf(r.DemandMW, 0) || r.DemandMW <= 0 {
			dropped++
			continue
		}
		ts := wallClock(r.Timestamp)
		sums[ts] += r.DemandMW
		counts[ts]++
	}
	if len(sums) == 0 {
		return nil, fmt.Errorf("cleaning %d rows: %w", len(raw), model.ErrNoHistoricalData)
	}

	times := make([]time.Time, 0, len(sums))
	duplicates := 0
	for ts, c := range counts {
		times = append(times, ts)
		duplicates += c - 1
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	h := &History{Dropped: dropped, Duplicates: duplicates}
	if external != nil {
		h.Calendar = external
	} else {
		detected := e.detectHolidays(times, sums, counts)
		h.DetectedHolidays = len(detected)
		h.Calendar = model.NewCalendar(detected, e.seasons)
		e.logger.Info("no holiday calendar supplied, using statistical detection",
			"detected", len(detected), "sigma", e.opts.HolidaySigma)
	}

	h.Records = make([]model.HourlyRecord, len(times))
	for i, ts := range times {
		h.Records[i] = h.Calendar.Tag(ts, sums[ts]/float64(counts[ts]))
	}

	e.logger.Info("cleaned historical demand",
		"rows", len(raw), "kept", len(h.Records), "dropped", dropped, "duplicates", duplicates)
	return h, nil
}

// detectHolidays flags weekdays whose daily average falls below
// mean - sigma*stddev of all weekday daily averages.
func (e *Extractor) detectHolidays(times []time.Time, sums map[time.Time]float64, counts map[time.Time]int) map[time.Time]string {
	daySum := make(map[time.Time]float64)
	dayCount := make(map[time.Time]int)
	for _, ts := range times {
		if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		d := model.DateKey(ts)
		daySum[d] += sums[ts] / float64(counts[ts])
		dayCount[d]++
	}
	if len(daySum) < 2 {
		return nil
	}

	days := make([]time.Time, 0, len(daySum))
	for d := range daySum {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	avgs := make([]float64, len(days))
	for i, d := range days {
		avgs[i] = daySum[d] / float64(dayCount[d])
	}
	threshold := numeric.Mean(avgs) - e.opts.HolidaySigma*numeric.StdDev(avgs)

	detected := make(map[time.Time]string)
	for i, d := range days {
		if avgs[i] < threshold {
			detected[d] = "detected low-demand weekday"
		}
	}
	if len(detected) > 0 {
		e.logger.Debug("statistical holidays", "count", len(detected), "threshold_mw", threshold)
	}
	return detected
}

// wallClock drops the zone and keeps the local wall-clock reading, so hour of
// day and fiscal calendar follow the meter's local time.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func defaultLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
