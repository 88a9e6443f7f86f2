package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"load_profile/internal/model"
)

var profileHeader = []string{"datetime", "fiscal_year", "fiscal_day", "hour", "day_type", "season", "demand_mw"}

// WriteProfileCSV writes one row per generated hour.
func WriteProfileCSV(w io.Writer, p *model.Profile) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(profileHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	row := make([]string, len(profileHeader))
	for _, h := range p.Hours {
		row[0] = h.Timestamp.Format("2006-01-02 15:04:05")
		row[1] = strconv.Itoa(h.FiscalYear)
		row[2] = strconv.Itoa(h.FiscalDay)
		row[3] = strconv.Itoa(h.Hour)
		row[4] = string(h.DayType)
		row[5] = string(h.Season)
		row[6] = strconv.FormatFloat(h.DemandMW, 'f', 3, 64)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SaveProfile writes the profile CSV to path, creating parent directories.
func SaveProfile(path string, p *model.Profile) error {
	return saveFile(path, func(w io.Writer) error { return WriteProfileCSV(w, p) })
}

// SaveJSON writes v as indented JSON to path, creating parent directories.
func SaveJSON(path string, v any) error {
	return saveFile(path, func(w io.Writer) error { return WriteJSON(w, v) })
}

func saveFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
