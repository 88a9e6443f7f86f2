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

// Options tune extraction. DefaultOptions returns the production values.
type Options struct {
	HolidaySigma         float64
	ShapeSmoothingWindow int
	ShapeSmoothingOrder  int
	DefaultGrowthRate    float64
	GrowthClamp          float64
	MinYearCoverage      float64
	FridayEvening        float64
	SundayEvening        float64
	ClusterCount         int
	DecompositionPeriod  int
}

func DefaultOptions() Options {
	return Options{
		HolidaySigma:         1.5,
		ShapeSmoothingWindow: 5,
		ShapeSmoothingOrder:  2,
		DefaultGrowthRate:    0.03,
		GrowthClamp:          0.20,
		MinYearCoverage:      0.5,
		FridayEvening:        0.95,
		SundayEvening:        0.97,
		ClusterCount:         4,
		DecompositionPeriod:  168,
	}
}

// Extractor turns historical telemetry into a PatternSet.
type Extractor struct {
	opts    Options
	seasons model.SeasonTable
	toolkit numeric.Toolkit
	logger  *slog.Logger
}

func NewExtractor(opts Options, seasons model.SeasonTable, toolkit numeric.Toolkit, logger *slog.Logger) *Extractor {
	return &Extractor{
		opts:    opts,
		seasons: seasons,
		toolkit: toolkit,
		logger:  defaultLogger(logger),
	}
}

// Extract derives the PatternSet from a cleaned history.
func (e *Extractor) Extract(h *History, method Method) (*PatternSet, error) {
	if h == nil || len(h.Records) == 0 {
		return nil, fmt.Errorf("extracting patterns: %w", model.ErrNoHistoricalData)
	}
	records := h.Records
	ps := &PatternSet{Method: method}

	var decomposition *numeric.Components
	if e.toolkit.Decomposer != nil {
		decomposition = e.decompose(records, ps)
	}

	if method == MethodDecomposition && decomposition == nil {
		ps.warn(e.logger, "seasonal decomposition unavailable, using normalized hourly shapes")
		ps.Method = MethodNormalized
	}
	if ps.Method == MethodDecomposition {
		ps.HourlyShapes = e.hourlyShapesDetrended(records, decomposition.Trend, ps)
	} else {
		ps.HourlyShapes = e.hourlyShapes(records, func(r model.HourlyRecord, _ int) float64 { return r.DemandMW }, ps)
	}

	e.monthlyFactors(records, ps)
	ps.BaseLoad = baseLoad(records)
	ps.DayTypeFactors = e.dayTypeFactors(records, ps)
	ps.GrowthRate = e.growthRate(records, ps)
	ps.Variability = MeasureVariability(records)

	if e.toolkit.Clusterer != nil {
		ps.Archetypes = e.archetypes(records, ps)
	}

	e.logger.Info("extracted patterns",
		"method", ps.Method,
		"daily_factors", len(ps.DailyFactors),
		"growth_rate", ps.GrowthRate,
		"daily_cv", ps.Variability.DailyCV,
		"archetypes", len(ps.Archetypes))
	return ps, nil
}

func (ps *PatternSet) warn(logger *slog.Logger, msg string, args ...any) {
	ps.Warnings.Add(logger, msg, args...)
}

// hourlyShapes averages value(r) by hour for every day type and normalises each
// 24-hour shape to mean 1.
func (e *Extractor) hourlyShapes(records []model.HourlyRecord, value func(model.HourlyRecord, int) float64, ps *PatternSet) map[model.DayType][24]float64 {
	type acc struct {
		sum   [24]float64
		count [24]int
	}
	byType := make(map[model.DayType]*acc)
	for i, r := range records {
		v := value(r, i)
		if math.IsNaN(v) {
			continue
		}
		a, ok := byType[r.DayType]
		if !ok {
			a = &acc{}
			byType[r.DayType] = a
		}
		a.sum[r.Hour] += v
		a.count[r.Hour]++
	}

	shapes := make(map[model.DayType][24]float64, len(byType))
	for dt, a := range byType {
		means := make([]float64, 24)
		for h := range means {
			means[h] = math.NaN()
			if a.count[h] > 0 {
				means[h] = a.sum[h] / float64(a.count[h])
			}
		}
		means = numeric.FillGaps(means)

		if e.toolkit.Smoother != nil {
			smoothed, err := e.toolkit.Smoother.SmoothCircular(means, e.opts.ShapeSmoothingWindow, e.opts.ShapeSmoothingOrder)
			if err != nil {
				ps.warn(e.logger, "hourly shape smoothing skipped", "day_type", dt, "error", err)
			} else {
				means = smoothed
			}
		}

		var shape [24]float64
		if m := numeric.Mean(means); m > 0 {
			for h := range shape {
				shape[h] = means[h] / m
			}
		}
		shapes[dt] = shape
	}
	return shapes
}

func (e *Extractor) hourlyShapesDetrended(records []model.HourlyRecord, trend []float64, ps *PatternSet) map[model.DayType][24]float64 {
	start := records[0].Timestamp.Truncate(time.Hour)
	return e.hourlyShapes(records, func(r model.HourlyRecord, _ int) float64 {
		idx := int(r.Timestamp.Truncate(time.Hour).Sub(start) / time.Hour)
		if idx < 0 || idx >= len(trend) || trend[idx] <= 0 {
			return math.NaN()
		}
		return r.DemandMW / trend[idx]
	}, ps)
}

// monthlyFactors computes fiscal month factors and, with at least four
// observed months, the smoothed 365-day annual cycle.
func (e *Extractor) monthlyFactors(records []model.HourlyRecord, ps *PatternSet) {
	var sum [12]float64
	var count [12]int
	var total float64
	for _, r := range records {
		m := model.FiscalMonthIndex(r.Month)
		sum[m] += r.DemandMW
		count[m]++
		total += r.DemandMW
	}
	overall := total / float64(len(records))

	var xs, ys []float64
	for m := 0; m < 12; m++ {
		ps.MonthlyFactors[m] = 1
		if count[m] == 0 || overall <= 0 {
			continue
		}
		ps.MonthObserved[m] = true
		ps.MonthlyFactors[m] = sum[m] / float64(count[m]) / overall
		xs = append(xs, float64(m)+0.5)
		ys = append(ys, ps.MonthlyFactors[m])
	}

	if len(xs) < 4 {
		ps.warn(e.logger, "fewer than 4 monthly points, using stepwise monthly factors", "months", len(xs))
		return
	}
	spline, err := numeric.PeriodicSpline(xs, ys, 12)
	if err != nil {
		ps.warn(e.logger, "monthly spline failed, using stepwise monthly factors", "error", err)
		return
	}

	// A 365-day reference fiscal year (April 2025 - March 2026).
	ref := model.FiscalYearStart(2026)
	ps.DailyFactors = make([]float64, DailyFactorDays)
	for d := 0; d < DailyFactorDays; d++ {
		day := ref.AddDate(0, 0, d)
		daysInMonth := time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
		x := float64(model.FiscalMonthIndex(day.Month())) + (float64(day.Day())-0.5)/float64(daysInMonth)
		ps.DailyFactors[d] = spline(x)
	}
}

func baseLoad(records []model.HourlyRecord) BaseLoad {
	values := make([]float64, len(records))
	var night []float64
	for i, r := range records {
		values[i] = r.DemandMW
		if r.Hour <= 5 {
			night = append(night, r.DemandMW)
		}
	}
	bl := BaseLoad{
		P5:  numeric.Quantile(values, 0.05),
		P10: numeric.Quantile(values, 0.10),
		Min: numeric.Quantile(values, 0),
	}
	if len(night) > 0 {
		bl.NightAvg = numeric.Mean(night)
	}
	return bl
}

func (e *Extractor) dayTypeFactors(records []model.HourlyRecord, ps *PatternSet) DayTypeFactors {
	sum := make(map[model.DayType]float64)
	count := make(map[model.DayType]int)
	for _, r := range records {
		sum[r.DayType] += r.DemandMW
		count[r.DayType]++
	}
	f := DayTypeFactors{
		Weekday:       1,
		Weekend:       1,
		Holiday:       1,
		FridayEvening: e.opts.FridayEvening,
		SundayEvening: e.opts.SundayEvening,
	}
	if count[model.DayWeekday] == 0 {
		ps.warn(e.logger, "no weekday history, day-type factors default to 1")
		return f
	}
	weekday := sum[model.DayWeekday] / float64(count[model.DayWeekday])
	if count[model.DayWeekend] > 0 {
		f.Weekend = sum[model.DayWeekend] / float64(count[model.DayWeekend]) / weekday
	}
	if count[model.DayHoliday] > 0 {
		f.Holiday = sum[model.DayHoliday] / float64(count[model.DayHoliday]) / weekday
	} else {
		f.Holiday = f.Weekend
	}
	return f
}

// growthRate averages year-over-year change of annualised energy over fiscal
// years with enough coverage.
func (e *Extractor) growthRate(records []model.HourlyRecord, ps *PatternSet) float64 {
	sum := make(map[int]float64)
	count := make(map[int]int)
	for _, r := range records {
		sum[r.FiscalYear] += r.DemandMW
		count[r.FiscalYear]++
	}

	var years []int
	for fy, c := range count {
		if float64(c) >= e.opts.MinYearCoverage*float64(model.HoursInFiscalYear(fy)) {
			years = append(years, fy)
		}
	}
	sort.Ints(years)
	if len(years) < 2 {
		ps.warn(e.logger, "history too short for growth rate, using default", "default", e.opts.DefaultGrowthRate)
		return e.opts.DefaultGrowthRate
	}

	annual := func(fy int) float64 {
		return sum[fy] / float64(count[fy]) * float64(model.HoursInFiscalYear(fy))
	}
	var rates []float64
	for i := 1; i < len(years); i++ {
		prev, cur := annual(years[i-1]), annual(years[i])
		if prev <= 0 {
			continue
		}
		gap := float64(years[i] - years[i-1])
		rates = append(rates, math.Pow(cur/prev, 1/gap)-1)
	}
	rate := numeric.Mean(rates)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		ps.warn(e.logger, "growth rate undefined, using default", "default", e.opts.DefaultGrowthRate)
		return e.opts.DefaultGrowthRate
	}
	if clamped := math.Max(-e.opts.GrowthClamp, math.Min(e.opts.GrowthClamp, rate)); clamped != rate {
		ps.warn(e.logger, "growth rate clamped", "raw", rate, "clamped", clamped)
		rate = clamped
	}
	return rate
}
