// Package validate scores a generated profile for accuracy against targets,
// smoothness across hours and month boundaries, and preservation of
// historical variability.
package validate

import (
	"fmt"
	"math"
	"time"

	"load_profile/internal/model"
	"load_profile/internal/numeric"
	"load_profile/internal/pattern"
)

// TargetTolerance is the accepted relative annual energy error.
const TargetTolerance = 0.001

type YearAccuracy struct {
	FiscalYear   int     `json:"fiscal_year"`
	Hours        int     `json:"hours"`
	GeneratedMWh float64 `json:"generated_mwh"`
	TargetMWh    float64 `json:"target_mwh,omitempty"`
	HasTarget    bool    `json:"has_target"`
	ErrorPct     float64 `json:"error_pct"`
	PeakMW       float64 `json:"peak_mw"`
	AverageMW    float64 `json:"average_mw"`
	MinMW        float64 `json:"min_mw"`
	LoadFactor   float64 `json:"load_factor"`
	StdDevMW     float64 `json:"std_dev_mw"`
	CV           float64 `json:"cv"`
}

type Overall struct {
	Hours      int     `json:"hours"`
	TotalMWh   float64 `json:"total_mwh"`
	PeakMW     float64 `json:"peak_mw"`
	AverageMW  float64 `json:"average_mw"`
	MinMW      float64 `json:"min_mw"`
	LoadFactor float64 `json:"load_factor"`
	StdDevMW   float64 `json:"std_dev_mw"`
}

type Smoothness struct {
	MonthBoundaries   int     `json:"month_boundaries"`
	MaxTransitionPct  float64 `json:"max_transition_pct"`
	MeanTransitionPct float64 `json:"mean_transition_pct"`
	WorstBoundary     string  `json:"worst_boundary,omitempty"`
	HourlyChangeMean  float64 `json:"hourly_change_mean"`
	HourlyChangeP95   float64 `json:"hourly_change_p95"`
	HourlyChangeP99   float64 `json:"hourly_change_p99"`
}

// Comparison relates a generated metric to its historical counterpart.
type Comparison struct {
	Generated  float64 `json:"generated"`
	Historical float64 `json:"historical"`
	Ratio      float64 `json:"ratio"`
	Preserved  bool    `json:"preserved"`
}

type Realism struct {
	DailyCV  Comparison `json:"daily_cv"`
	WeeklyCV Comparison `json:"weekly_cv"`
}

type Report struct {
	Accuracy   []YearAccuracy `json:"accuracy"`
	Overall    Overall        `json:"overall"`
	Smoothness Smoothness     `json:"smoothness"`
	Realism    Realism        `json:"realism"`
	TargetsMet bool           `json:"targets_met"`
}

// Validator holds the ratio band inside which a variability metric counts as
// preserved.
type Validator struct {
	Lower float64
	Upper float64
}

func New() Validator {
	return Validator{Lower: 0.8, Upper: 1.2}
}

// Validate is a pure function of its inputs.
func (v Validator) Validate(p *model.Profile, targets model.Targets, historical pattern.Variability) Report {
	r := Report{TargetsMet: true}
	for _, fy := range p.Years() {
		acc := accuracy(fy, p.Year(fy), targets)
		if acc.HasTarget && math.Abs(acc.ErrorPct) > TargetTolerance*100 {
			r.TargetsMet = false
		}
		r.Accuracy = append(r.Accuracy, acc)
	}
	r.Overall = overall(p.Values())
	r.Smoothness = smoothness(p.Hours)

	records := make([]model.HourlyRecord, len(p.Hours))
	for i, h := range p.Hours {
		records[i] = h.Record()
	}
	generated := pattern.MeasureVariability(records)
	r.Realism = Realism{
		DailyCV:  v.compare(generated.DailyCV, historical.DailyCV),
		WeeklyCV: v.compare(generated.WeeklyCV, historical.WeeklyCV),
	}
	return r
}

func (v Validator) compare(generated, historical float64) Comparison {
	c := Comparison{Generated: generated, Historical: historical}
	if historical > 0 {
		c.Ratio = generated / historical
		c.Preserved = c.Ratio >= v.Lower && c.Ratio <= v.Upper
	}
	return c
}

func accuracy(fy int, hours []model.ProfileHour, targets model.Targets) YearAccuracy {
	values := make([]float64, len(hours))
	for i, h := range hours {
		values[i] = h.DemandMW
	}
	o := overall(values)
	acc := YearAccuracy{
		FiscalYear:   fy,
		Hours:        len(hours),
		GeneratedMWh: o.TotalMWh,
		PeakMW:       o.PeakMW,
		AverageMW:    o.AverageMW,
		MinMW:        o.MinMW,
		LoadFactor:   o.LoadFactor,
		StdDevMW:     o.StdDevMW,
		CV:           numeric.CV(values),
	}
	if t, ok := targets[fy]; ok && t > 0 {
		acc.HasTarget = true
		acc.TargetMWh = t
		acc.ErrorPct = (o.TotalMWh - t) / t * 100
	}
	return acc
}

func overall(values []float64) Overall {
	o := Overall{Hours: len(values)}
	if len(values) == 0 {
		return o
	}
	o.PeakMW, o.MinMW = math.Inf(-1), math.Inf(1)
	for _, x := range values {
		o.TotalMWh += x
		o.PeakMW = max(o.PeakMW, x)
		o.MinMW = min(o.MinMW, x)
	}
	o.AverageMW = o.TotalMWh / float64(len(values))
	o.StdDevMW = numeric.StdDev(values)
	if o.PeakMW > 0 {
		o.LoadFactor = o.AverageMW / o.PeakMW
	}
	return o
}

type monthRun struct {
	key        model.YearMonth
	start, end int // [start, end) into hours
}

func smoothness(hours []model.ProfileHour) Smoothness {
	var s Smoothness

	var runs []monthRun
	for i, h := range hours {
		key := model.YearMonth{FiscalYear: h.FiscalYear, Month: h.Month}
		if len(runs) == 0 || runs[len(runs)-1].key != key {
			runs = append(runs, monthRun{key: key, start: i})
		}
		runs[len(runs)-1].end = i + 1
	}

	var sum float64
	for i := 1; i < len(runs); i++ {
		prev, next := runs[i-1], runs[i]
		if !hours[next.start].Timestamp.Equal(hours[prev.end-1].Timestamp.Add(time.Hour)) {
			continue
		}
		last := meanDemand(hours[max(prev.start, prev.end-24):prev.end])
		first := meanDemand(hours[next.start:min(next.end, next.start+24)])
		if last <= 0 {
			continue
		}
		pct := math.Abs(first-last) / last * 100
		s.MonthBoundaries++
		sum += pct
		if pct > s.MaxTransitionPct || s.WorstBoundary == "" {
			s.MaxTransitionPct = pct
			s.WorstBoundary = fmt.Sprintf("FY%d %s -> FY%d %s",
				prev.key.FiscalYear, prev.key.Month, next.key.FiscalYear, next.key.Month)
		}
	}
	if s.MonthBoundaries > 0 {
		s.MeanTransitionPct = sum / float64(s.MonthBoundaries)
	}

	values := make([]float64, len(hours))
	for i, h := range hours {
		values[i] = h.DemandMW
	}
	if changes := numeric.RelativeChanges(values); len(changes) > 0 {
		s.HourlyChangeMean = numeric.Mean(changes)
		s.HourlyChangeP95 = numeric.Quantile(changes, 0.95)
		s.HourlyChangeP99 = numeric.Quantile(changes, 0.99)
	}
	return s
}

func meanDemand(hours []model.ProfileHour) float64 {
	var sum float64
	for _, h := range hours {
		sum += h.DemandMW
	}
	return sum / float64(len(hours))
}
