package ingest

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"load_profile/internal/model"
)

// ParseCaps reads monthly maximum-demand caps.
//
// Expected format (month accepts a number or English name):
//
//	fiscal_year,month,max_demand_mw
//	2025,May,1450
func ParseCaps(r io.Reader) (model.MonthlyCaps, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	yearCol, err := h.require("fiscal_year", "year")
	if err != nil {
		return nil, err
	}
	monthCol, err := h.require("month")
	if err != nil {
		return nil, err
	}
	capCol, err := h.require("max_demand_mw", "max_demand", "cap_mw", "cap")
	if err != nil {
		return nil, err
	}

	caps := make(model.MonthlyCaps)
	if _, err := eachRecord(cr, func(record []string, lineNum int) error {
		fy, err := ParseFiscalYear(field(record, yearCol))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		m, err := model.ParseMonth(field(record, monthCol))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		v, err := strconv.ParseFloat(field(record, capCol), 64)
		if err != nil {
			return fmt.Errorf("line %d: parsing cap: %w", lineNum, err)
		}
		caps[model.YearMonth{FiscalYear: fy, Month: m}] = v
		return nil
	}); err != nil {
		return nil, err
	}
	return caps, nil
}

// ParseHolidays reads a holiday calendar.
//
// Expected format:
//
//	date,name
//	2025-01-26,Republic Day
func ParseHolidays(r io.Reader) (map[time.Time]string, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	dateCol, err := h.require("date", "holiday_date")
	if err != nil {
		return nil, err
	}
	nameCol, hasName := h.find("name", "holiday", "description")

	holidays := make(map[time.Time]string)
	if _, err := eachRecord(cr, func(record []string, lineNum int) error {
		ts, err := ParseTimestamp(field(record, dateCol))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		name := "holiday"
		if hasName && field(record, nameCol) != "" {
			name = field(record, nameCol)
		}
		holidays[model.DateKey(ts)] = name
		return nil
	}); err != nil {
		return nil, err
	}
	return holidays, nil
}
