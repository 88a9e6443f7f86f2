package pattern

import (
	"fmt"
	"time"

	"load_profile/internal/model"
)

// Method selects how hourly shapes are derived.
type Method string

const (
	MethodNormalized    Method = "normalized_pattern"
	MethodDecomposition Method = "seasonal_decomposition"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodNormalized, MethodDecomposition:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown generation method %q", s)
}

// DayTypeFactors are demand ratios relative to the weekday mean, plus the two
// transitional levels the synthesizer blends toward on Friday and Sunday evenings.
type DayTypeFactors struct {
	Weekday       float64 `json:"weekday"`
	Weekend       float64 `json:"weekend"`
	Holiday       float64 `json:"holiday"`
	FridayEvening float64 `json:"friday_evening"`
	SundayEvening float64 `json:"sunday_evening"`
}

func (f DayTypeFactors) Of(dt model.DayType) float64 {
	switch dt {
	case model.DayWeekend:
		return f.Weekend
	case model.DayHoliday:
		return f.Holiday
	}
	return f.Weekday
}

type BaseLoad struct {
	P5       float64 `json:"p5_mw"`
	P10      float64 `json:"p10_mw"`
	Min      float64 `json:"min_mw"`
	NightAvg float64 `json:"night_avg_mw"`
}

// Variability summarises how much demand moves day to day, week to week and hour to hour.
type Variability struct {
	DailyCV            float64 `json:"daily_cv"`
	MeanDailyHourlyStd float64 `json:"mean_daily_hourly_std"`
	WeeklyCV           float64 `json:"weekly_cv"`
	HourlyChangeP99    float64 `json:"hourly_change_p99"`
	HourlyChangeMean   float64 `json:"hourly_change_mean"`
}

type Decomposition struct {
	Period           int     `json:"period"`
	TrendStrength    float64 `json:"trend_strength"`
	SeasonalStrength float64 `json:"seasonal_strength"`
	ResidualStrength float64 `json:"residual_strength"`
}

// Archetype is a representative daily shape found by clustering.
type Archetype struct {
	Profile         [24]float64   `json:"profile"`
	Days            int           `json:"days"`
	DominantDayType model.DayType `json:"dominant_day_type"`
}

// PatternSet is everything the synthesizer reuses from history. It is not
// modified after Extract returns.
type PatternSet struct {
	Method         Method                        `json:"method"`
	HourlyShapes   map[model.DayType][24]float64 `json:"hourly_shapes"`
	MonthlyFactors [12]float64                   `json:"monthly_factors"` // fiscal order, April first
	MonthObserved  [12]bool                      `json:"month_observed"`
	DailyFactors   []float64                     `json:"daily_factors,omitempty"`
	DayTypeFactors DayTypeFactors                `json:"day_type_factors"`
	BaseLoad       BaseLoad                      `json:"base_load"`
	GrowthRate     float64                       `json:"growth_rate"`
	Variability    Variability                   `json:"variability"`
	Decomposition  *Decomposition                `json:"decomposition,omitempty"`
	Archetypes     []Archetype                   `json:"archetypes,omitempty"`
	Warnings       model.Warnings                `json:"warnings,omitempty"`
}

// DailyFactorDays is the fixed length of the smoothed annual cycle.
const DailyFactorDays = 365

// AnnualFactor returns the seasonal multiplier for a fiscal day. It prefers the
// smoothed daily array, then the observed month factor, then 1.
func (p *PatternSet) AnnualFactor(fiscalDay, daysInYear int, month time.Month) float64 {
	if len(p.DailyFactors) == DailyFactorDays {
		idx := 0
		if daysInYear > 1 {
			idx = int(float64(fiscalDay-1)*float64(DailyFactorDays-1)/float64(daysInYear-1) + 0.5)
		}
		idx = max(0, min(DailyFactorDays-1, idx))
		return p.DailyFactors[idx]
	}
	if m := model.FiscalMonthIndex(month); p.MonthObserved[m] {
		return p.MonthlyFactors[m]
	}
	return 1
}
