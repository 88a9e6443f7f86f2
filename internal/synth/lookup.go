package synth

import (
	"github.com/maypok86/otter/v2"

	"load_profile/internal/basecurve"
	"load_profile/internal/model"
	"load_profile/internal/numeric"
)

// Level records how far the base-value lookup had to widen.
type Level int

const (
	LevelDayType Level = iota // same day type inside the window
	LevelWindow               // any day type inside the window
	LevelHour                 // every base-year row at that hour
	LevelGlobal               // base-year mean
)

func (l Level) String() string {
	return [...]string{"day_type", "window", "hour", "global"}[l]
}

type lookupKey struct {
	fiscalDay int
	hour      int
	dayType   model.DayType
}

type lookupValue struct {
	value float64
	level Level
}

type sample struct {
	value   float64
	dayType model.DayType
}

// baseIndex answers median base-value queries against one base curve. Results
// are memoised because every modelled year repeats the same queries.
type baseIndex struct {
	days   int
	window int
	slots  [][]sample // (fiscalDay-1)*24 + hour
	byHour [24][]float64
	mean   float64
	cache  *otter.Cache[lookupKey, lookupValue]
}

func newBaseIndex(c *basecurve.Curve, window int) *baseIndex {
	days := model.DaysInFiscalYear(c.FiscalYear)
	idx := &baseIndex{
		days:   days,
		window: window,
		slots:  make([][]sample, days*24),
		cache: otter.Must(&otter.Options[lookupKey, lookupValue]{
			MaximumSize:     366 * 24 * len(model.DayTypes),
			InitialCapacity: days * 24,
		}),
	}
	var sum float64
	for _, r := range c.Records {
		if r.FiscalDay < 1 || r.FiscalDay > days {
			continue
		}
		slot := (r.FiscalDay-1)*24 + r.Hour
		idx.slots[slot] = append(idx.slots[slot], sample{value: r.DemandMW, dayType: r.DayType})
		idx.byHour[r.Hour] = append(idx.byHour[r.Hour], r.DemandMW)
		sum += r.DemandMW
	}
	if len(c.Records) > 0 {
		idx.mean = sum / float64(len(c.Records))
	}
	return idx
}

func (b *baseIndex) lookup(fiscalDay, hour int, dt model.DayType) lookupValue {
	key := lookupKey{fiscalDay: fiscalDay, hour: hour, dayType: dt}
	if v, ok := b.cache.GetIfPresent(key); ok {
		return v
	}
	v := b.compute(fiscalDay, hour, dt)
	b.cache.Set(key, v)
	return v
}

func (b *baseIndex) compute(fiscalDay, hour int, dt model.DayType) lookupValue {
	var same, nearby []float64
	for d := fiscalDay - b.window; d <= fiscalDay+b.window; d++ {
		day := ((d-1)%b.days+b.days)%b.days + 1
		for _, s := range b.slots[(day-1)*24+hour] {
			nearby = append(nearby, s.value)
			if s.dayType == dt {
				same = append(same, s.value)
			}
		}
	}
	switch {
	case len(same) > 0:
		return lookupValue{numeric.Median(same), LevelDayType}
	case len(nearby) > 0:
		return lookupValue{numeric.Median(nearby), LevelWindow}
	case len(b.byHour[hour]) > 0:
		return lookupValue{numeric.Median(b.byHour[hour]), LevelHour}
	}
	return lookupValue{b.mean, LevelGlobal}
}
