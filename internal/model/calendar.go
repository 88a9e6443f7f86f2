package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SeasonTable maps each calendar month (index month-1) to its season.
type SeasonTable [12]Season

// DefaultSeasonTable is the single canonical month to season mapping used by
// every stage: Winter Dec-Feb, Summer Mar-Jun, Monsoon Jul-Sep, Post-monsoon Oct-Nov.
var DefaultSeasonTable = SeasonTable{
	SeasonWinter,      // January
	SeasonWinter,      // February
	SeasonSummer,      // March
	SeasonSummer,      // April
	SeasonSummer,      // May
	SeasonSummer,      // June
	SeasonMonsoon,     // July
	SeasonMonsoon,     // August
	SeasonMonsoon,     // September
	SeasonPostMonsoon, // October
	SeasonPostMonsoon, // November
	SeasonWinter,      // December
}

func (t SeasonTable) SeasonOf(m time.Month) Season {
	return t[m-1]
}

// ParseSeasonTable builds a table from month name/number keys to season names.
// Months that are not mentioned keep the default season.
func ParseSeasonTable(overrides map[string]string) (SeasonTable, error) {
	table := DefaultSeasonTable
	for k, v := range overrides {
		m, err := ParseMonth(k)
		if err != nil {
			return table, err
		}
		s, err := ParseSeason(v)
		if err != nil {
			return table, err
		}
		table[m-1] = s
	}
	return table, nil
}

func ParseSeason(s string) (Season, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "summer":
		return SeasonSummer, nil
	case "monsoon":
		return SeasonMonsoon, nil
	case "post-monsoon", "post_monsoon", "postmonsoon":
		return SeasonPostMonsoon, nil
	case "winter":
		return SeasonWinter, nil
	}
	return "", fmt.Errorf("unknown season %q", s)
}

// ParseMonth accepts 1-12, full English month names or three letter abbreviations.
func ParseMonth(s string) (time.Month, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d out of range", n)
		}
		return time.Month(n), nil
	}
	lower := strings.ToLower(s)
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if lower == name || lower == name[:3] {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

// FiscalYearOf returns the fiscal year (April-March, named by the ending
// calendar year) containing t.
func FiscalYearOf(t time.Time) int {
	if t.Month() >= time.April {
		return t.Year() + 1
	}
	return t.Year()
}

// FiscalYearStart returns April 1 00:00 of the fiscal year fy.
func FiscalYearStart(fy int) time.Time {
	return time.Date(fy-1, time.April, 1, 0, 0, 0, 0, time.UTC)
}

// FiscalYearEnd returns the exclusive end (next April 1 00:00) of fiscal year fy.
func FiscalYearEnd(fy int) time.Time {
	return FiscalYearStart(fy + 1)
}

func DaysInFiscalYear(fy int) int {
	return int(FiscalYearEnd(fy).Sub(FiscalYearStart(fy)).Hours() / 24)
}

func HoursInFiscalYear(fy int) int {
	return DaysInFiscalYear(fy) * 24
}

// FiscalDayOfYear returns the 1-based day index counted from the preceding April 1.
func FiscalDayOfYear(t time.Time) int {
	start := FiscalYearStart(FiscalYearOf(t))
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(start).Hours()/24) + 1
}

// FiscalMonthIndex returns 0 for April through 11 for March.
func FiscalMonthIndex(m time.Month) int {
	return (int(m) + 8) % 12
}

// FiscalMonth is the inverse of FiscalMonthIndex.
func FiscalMonth(idx int) time.Month {
	return time.Month((idx+3)%12 + 1)
}

// DateKey truncates t to its calendar day in UTC.
func DateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Calendar is the read-only calendar context shared by all stages: the holiday
// set and the season table. Build it once per run and pass it down.
type Calendar struct {
	holidays map[time.Time]string
	seasons  SeasonTable
}

func NewCalendar(holidays map[time.Time]string, seasons SeasonTable) *Calendar {
	h := make(map[time.Time]string, len(holidays))
	for d, name := range holidays {
		h[DateKey(d)] = name
	}
	return &Calendar{holidays: h, seasons: seasons}
}

func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[DateKey(t)]
	return ok
}

func (c *Calendar) HolidayCount() int {
	return len(c.holidays)
}

func (c *Calendar) Seasons() SeasonTable {
	return c.seasons
}

// DayTypeOf applies the priority holiday > weekend > weekday.
func (c *Calendar) DayTypeOf(t time.Time) DayType {
	if c.IsHoliday(t) {
		return DayHoliday
	}
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return DayWeekend
	}
	return DayWeekday
}

// Tag derives every calendar attribute of t.
func (c *Calendar) Tag(t time.Time, demand float64) HourlyRecord {
	return HourlyRecord{
		Timestamp:  t,
		DemandMW:   demand,
		Hour:       t.Hour(),
		Weekday:    t.Weekday(),
		Month:      t.Month(),
		FiscalYear: FiscalYearOf(t),
		FiscalDay:  FiscalDayOfYear(t),
		DayType:    c.DayTypeOf(t),
		Season:     c.seasons.SeasonOf(t.Month()),
	}
}
