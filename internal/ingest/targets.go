package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"load_profile/internal/model"
)

// ParseTargets reads an annual target table.
//
// Expected format:
//
//	fiscal_year,energy_mwh
//	2025,8000000
func ParseTargets(r io.Reader) (model.Targets, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	yearCol, err := h.require("fiscal_year", "year", "fy")
	if err != nil {
		return nil, err
	}
	valueCol, err := h.require("energy_mwh", "target_mwh", "demand_mwh", "demand", "target", "value")
	if err != nil {
		return nil, err
	}

	targets := make(model.Targets)
	if _, err := eachRecord(cr, func(record []string, lineNum int) error {
		fy, err := ParseFiscalYear(field(record, yearCol))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(field(record, valueCol), ",", ""), 64)
		if err != nil {
			return fmt.Errorf("line %d: parsing target: %w", lineNum, err)
		}
		targets[fy] = v
		return nil
	}); err != nil {
		return nil, err
	}
	return targets, nil
}

// ForecastResults holds per-model annual forecasts keyed by model name.
type ForecastResults map[string]model.Targets

// ParseForecast reads a forecast result table with a year column and one
// column per forecasting model.
//
// Expected format:
//
//	Year,SLR,MLR,WAM
//	2025,7900000,8000000,8100000
func ParseForecast(r io.Reader) (ForecastResults, error) {
	cr := newReader(r)
	row, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	yearCol := -1
	names := make([]string, len(row))
	for i, col := range row {
		names[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		switch strings.ToLower(names[i]) {
		case "year", "fiscal_year", "fy":
			yearCol = i
		}
	}
	if yearCol < 0 {
		return nil, fmt.Errorf("missing column %q", "Year")
	}

	results := make(ForecastResults)
	for i, n := range names {
		if i != yearCol && n != "" {
			results[n] = make(model.Targets)
		}
	}
	if _, err := eachRecord(cr, func(record []string, lineNum int) error {
		fy, err := ParseFiscalYear(field(record, yearCol))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		for i, n := range names {
			if i == yearCol || n == "" {
				continue
			}
			if v, err := strconv.ParseFloat(field(record, i), 64); err == nil {
				results[n][fy] = v
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return results, nil
}

// Model returns the forecast of one model, matching the name case-insensitively.
func (f ForecastResults) Model(name string) (model.Targets, error) {
	for n, t := range f {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("forecast model %q not found", name)
}
