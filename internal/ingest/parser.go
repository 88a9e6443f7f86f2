// Package ingest reads the engine's collaborator inputs (historical demand,
// annual targets, forecast results, monthly caps, holidays) and writes its
// outputs.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"load_profile/internal/model"
)

// Parser reads historical demand from a source.
type Parser interface {
	Parse(r io.Reader) ([]model.DemandRecord, error)
}

// ParseFile opens path and hands it to p.
func ParseFile(path string, p Parser) ([]model.DemandRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// header maps lower-cased column names to their index.
type header map[string]int

func readHeader(cr *csv.Reader) (header, error) {
	row, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	h := make(header, len(row))
	for i, col := range row {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	return h, nil
}

// find returns the index of the first matching column name.
func (h header) find(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func (h header) require(names ...string) (int, error) {
	if i, ok := h.find(names...); ok {
		return i, nil
	}
	return 0, fmt.Errorf("missing column %q", names[0])
}

// eachRecord calls fn for every data row. Rows fn rejects are skipped.
func eachRecord(cr *csv.Reader, fn func(record []string, lineNum int) error) (skipped int, err error) {
	lineNum := 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			return skipped, nil
		}
		if err != nil {
			return skipped, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		if err := fn(record, lineNum); err != nil {
			skipped++
		}
	}
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"2006-01-02",
}

// ParseTimestamp accepts the common datetime layouts and unix seconds.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return parseUnixTimestamp(s)
}

func parseUnixTimestamp(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC(), nil
}

// ParseFiscalYear accepts 2025, FY2025, FY25 and 2024-25 style labels.
func ParseFiscalYear(s string) (int, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "FY")
	v = strings.TrimSpace(v)
	if before, after, ok := strings.Cut(v, "-"); ok {
		start, err := strconv.Atoi(before)
		if err != nil {
			return 0, fmt.Errorf("parsing fiscal year %q: %w", s, err)
		}
		if _, err := strconv.Atoi(after); err != nil {
			return 0, fmt.Errorf("parsing fiscal year %q: %w", s, err)
		}
		return start + 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if f, ferr := strconv.ParseFloat(v, 64); ferr == nil && f == float64(int(f)) {
			n, err = int(f), nil
		} else {
			return 0, fmt.Errorf("parsing fiscal year %q: %w", s, err)
		}
	}
	if n < 100 {
		n += 2000
	}
	return n, nil
}
