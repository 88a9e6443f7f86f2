package ingest

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"load_profile/internal/model"
)

// HistoryParser parses hourly demand exports.
//
// Expected format (column names are matched case-insensitively):
//
//	datetime,demand_mw
//	2023-04-01 00:00:00,812.4
//
// Empty cells are kept as missing values so cleaning can account for them;
// cells that cannot be parsed (e.g. "n/a") drop the row.
type HistoryParser struct {
	// Skipped counts rows dropped by the last Parse call.
	Skipped int
}

func (p *HistoryParser) Parse(r io.Reader) ([]model.DemandRecord, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	tsCol, err := h.require("datetime", "timestamp", "time", "date")
	if err != nil {
		return nil, err
	}
	demandCol, err := h.require("demand_mw", "demand", "load_mw", "load", "value")
	if err != nil {
		return nil, err
	}

	var records []model.DemandRecord
	p.Skipped, err = eachRecord(cr, func(record []string, lineNum int) error {
		rec := model.DemandRecord{DemandMW: math.NaN()}
		if s := field(record, tsCol); s != "" {
			ts, err := ParseTimestamp(s)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNum, err)
			}
			rec.Timestamp = ts
		}
		if s := field(record, demandCol); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("line %d: parsing demand %q: %w", lineNum, s, err)
			}
			rec.DemandMW = v
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
