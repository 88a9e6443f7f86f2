package model

import (
	"errors"
	"time"
)

// ErrNoHistoricalData is returned when no usable historical demand survives cleaning.
var ErrNoHistoricalData = errors.New("no usable historical demand data")

type DayType string

const (
	DayWeekday DayType = "weekday"
	DayWeekend DayType = "weekend"
	DayHoliday DayType = "holiday"
)

// DayTypes lists every day type in priority order (holiday > weekend > weekday).
var DayTypes = []DayType{DayHoliday, DayWeekend, DayWeekday}

type Season string

const (
	SeasonSummer      Season = "Summer"
	SeasonMonsoon     Season = "Monsoon"
	SeasonPostMonsoon Season = "Post-monsoon"
	SeasonWinter      Season = "Winter"
)

// DemandRecord is a raw historical sample as delivered by a collaborator.
// A zero Timestamp or NaN DemandMW marks a missing field.
type DemandRecord struct {
	Timestamp time.Time
	DemandMW  float64
}

// HourlyRecord is a cleaned demand sample with its calendar tags.
type HourlyRecord struct {
	Timestamp  time.Time
	DemandMW   float64
	Hour       int
	Weekday    time.Weekday
	Month      time.Month
	FiscalYear int
	FiscalDay  int
	DayType    DayType
	Season     Season
}

// Targets maps fiscal year to annual energy in MWh.
type Targets map[int]float64

// YearMonth identifies a calendar month inside a fiscal year.
type YearMonth struct {
	FiscalYear int
	Month      time.Month
}

// MonthlyCaps maps (fiscal year, month) to a maximum demand in MW.
type MonthlyCaps map[YearMonth]float64

type TimeRange struct {
	Start time.Time
	End   time.Time
}
