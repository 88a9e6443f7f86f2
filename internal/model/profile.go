package model

import (
	"sort"
	"time"
)

// ProfileHour is one synthesized hour with its calendar tags.
type ProfileHour struct {
	Timestamp  time.Time
	DemandMW   float64
	FiscalYear int
	FiscalDay  int
	Hour       int
	Month      time.Month
	DayType    DayType
	Season     Season
}

// Record returns h as a tagged hourly record.
func (h ProfileHour) Record() HourlyRecord {
	return HourlyRecord{
		Timestamp:  h.Timestamp,
		DemandMW:   h.DemandMW,
		Hour:       h.Hour,
		Weekday:    h.Timestamp.Weekday(),
		Month:      h.Month,
		FiscalYear: h.FiscalYear,
		FiscalDay:  h.FiscalDay,
		DayType:    h.DayType,
		Season:     h.Season,
	}
}

// Profile is an ordered multi-year hourly demand series.
type Profile struct {
	Hours []ProfileHour
	spans map[int][2]int // fiscal year -> [start, end) into Hours
}

// NewProfile assembles a profile from per-year hour slices, ordered by fiscal year.
func NewProfile(years map[int][]ProfileHour) *Profile {
	keys := make([]int, 0, len(years))
	total := 0
	for fy, hours := range years {
		keys = append(keys, fy)
		total += len(hours)
	}
	sort.Ints(keys)

	p := &Profile{
		Hours: make([]ProfileHour, 0, total),
		spans: make(map[int][2]int, len(keys)),
	}
	for _, fy := range keys {
		start := len(p.Hours)
		p.Hours = append(p.Hours, years[fy]...)
		p.spans[fy] = [2]int{start, len(p.Hours)}
	}
	return p
}

// Years returns the fiscal years covered, ascending.
func (p *Profile) Years() []int {
	years := make([]int, 0, len(p.spans))
	for fy := range p.spans {
		years = append(years, fy)
	}
	sort.Ints(years)
	return years
}

// Year returns the hours of fiscal year fy. The slice aliases the profile.
func (p *Profile) Year(fy int) []ProfileHour {
	span, ok := p.spans[fy]
	if !ok {
		return nil
	}
	return p.Hours[span[0]:span[1]]
}

// YearSum returns the energy (MWh) of fiscal year fy.
func (p *Profile) YearSum(fy int) float64 {
	var sum float64
	for _, h := range p.Year(fy) {
		sum += h.DemandMW
	}
	return sum
}

// Values returns a copy of the demand series.
func (p *Profile) Values() []float64 {
	out := make([]float64, len(p.Hours))
	for i, h := range p.Hours {
		out[i] = h.DemandMW
	}
	return out
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := &Profile{
		Hours: make([]ProfileHour, len(p.Hours)),
		spans: make(map[int][2]int, len(p.spans)),
	}
	copy(c.Hours, p.Hours)
	for fy, s := range p.spans {
		c.spans[fy] = s
	}
	return c
}
