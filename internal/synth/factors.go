package synth

import (
	"math"
	"time"

	"load_profile/internal/model"
	"load_profile/internal/numeric"
	"load_profile/internal/pattern"
)

const (
	eveningStartHour = 17
	eveningEndHour   = 23
)

// Transition is a logistic shoulder between two seasonal levels. Start is the
// fiscal day the blend begins, End the last fiscal day it applies (End < Start
// wraps past March 31) and Span the number of days it takes to move From->To.
type Transition struct {
	Start int
	End   int
	Span  int
	From  float64
	To    float64
}

// DefaultTransitions are the spring (winter -> summer) and autumn shoulders.
func DefaultTransitions() []Transition {
	return []Transition{
		{Start: 350, End: 60, Span: 45, From: 1.03, To: 0.97},
		{Start: 180, End: 240, Span: 60, From: 0.97, To: 1.03},
	}
}

// offset returns how many days into the transition fiscalDay lies.
func (t Transition) offset(fiscalDay, daysInYear int) (int, bool) {
	if t.Start <= t.End {
		if fiscalDay < t.Start || fiscalDay > t.End {
			return 0, false
		}
		return fiscalDay - t.Start, true
	}
	if fiscalDay < t.Start && fiscalDay > t.End {
		return 0, false
	}
	return ((fiscalDay-t.Start)%daysInYear + daysInYear) % daysInYear, true
}

// seasonalAdjustment is 1 outside every shoulder window.
func seasonalAdjustment(transitions []Transition, steepness float64, fiscalDay, daysInYear int) float64 {
	for _, t := range transitions {
		off, ok := t.offset(fiscalDay, daysInYear)
		if !ok || t.Span <= 0 {
			continue
		}
		w := numeric.Logistic(float64(off)/float64(t.Span), steepness, 0.5)
		return t.From + (t.To-t.From)*w
	}
	return 1
}

// dayTypeFactor returns the day-type multiplier, blending toward the
// transitional evening level across Friday and Sunday evenings.
func dayTypeFactor(f pattern.DayTypeFactors, steepness float64, dt model.DayType, wd time.Weekday, hour int) float64 {
	base := f.Of(dt)
	if dt == model.DayHoliday || hour < eveningStartHour || hour > eveningEndHour {
		return base
	}
	var target float64
	switch {
	case wd == time.Friday && dt == model.DayWeekday:
		target = f.FridayEvening
	case wd == time.Sunday && dt == model.DayWeekend:
		target = f.SundayEvening
	default:
		return base
	}
	x := float64(hour-eveningStartHour) / float64(eveningEndHour-eveningStartHour)
	return base + (target-base)*numeric.Logistic(x, steepness, 0.5)
}

// growthFactor prefers the ratio of declared targets and falls back to
// compounding the historical growth rate.
func growthFactor(targets model.Targets, baseYear, fy int, rate float64) float64 {
	t, ok := targets[fy]
	b, okBase := targets[baseYear]
	if ok && okBase && t > 0 && b > 0 {
		return t / b
	}
	return math.Pow(1+rate, float64(fy-baseYear))
}
