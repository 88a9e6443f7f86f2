package pattern

import (
	"time"

	"load_profile/internal/model"
	"load_profile/internal/numeric"
)

type bucket struct {
	sum    float64
	values []float64
}

// MeasureVariability computes daily, weekly and hour-to-hour variability of a
// chronologically ordered series. Buckets are accumulated in record order so
// the result is reproducible.
func MeasureVariability(records []model.HourlyRecord) Variability {
	type weekKey struct{ year, week int }
	var days, weeks []*bucket
	dayIdx := make(map[time.Time]int)
	weekIdx := make(map[weekKey]int)

	var changes []float64
	for i, r := range records {
		d := model.DateKey(r.Timestamp)
		di, ok := dayIdx[d]
		if !ok {
			di = len(days)
			dayIdx[d] = di
			days = append(days, &bucket{})
		}
		days[di].sum += r.DemandMW
		days[di].values = append(days[di].values, r.DemandMW)

		y, w := r.Timestamp.ISOWeek()
		wi, ok := weekIdx[weekKey{y, w}]
		if !ok {
			wi = len(weeks)
			weekIdx[weekKey{y, w}] = wi
			weeks = append(weeks, &bucket{})
		}
		weeks[wi].sum += r.DemandMW
		weeks[wi].values = append(weeks[wi].values, r.DemandMW)

		if i > 0 && r.Timestamp.Sub(records[i-1].Timestamp) == time.Hour && records[i-1].DemandMW > 0 {
			changes = append(changes, numeric.RelativeChanges([]float64{records[i-1].DemandMW, r.DemandMW})...)
		}
	}

	dailyMeans := make([]float64, len(days))
	var stdSum float64
	var stdDays int
	for i, b := range days {
		dailyMeans[i] = b.sum / float64(len(b.values))
		if len(b.values) >= 2 {
			stdSum += numeric.StdDev(b.values)
			stdDays++
		}
	}
	weeklyMeans := make([]float64, len(weeks))
	for i, b := range weeks {
		weeklyMeans[i] = b.sum / float64(len(b.values))
	}

	v := Variability{
		DailyCV:  numeric.CV(dailyMeans),
		WeeklyCV: numeric.CV(weeklyMeans),
	}
	if stdDays > 0 {
		v.MeanDailyHourlyStd = stdSum / float64(stdDays)
	}
	if len(changes) > 0 {
		v.HourlyChangeP99 = numeric.Quantile(changes, 0.99)
		v.HourlyChangeMean = numeric.Mean(changes)
	}
	return v
}
