package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"load_profile/internal/config"
	"load_profile/internal/store"
)

// Load reads every input named by cfg into s. History comes from a CSV file,
// a directory of CSV files, or ClickHouse. Targets, forecasts, caps and
// holidays are optional; a configured path that cannot be read is an error.
func Load(ctx context.Context, cfg *config.Config, s *store.Store) error {
	if err := loadHistory(ctx, cfg, s); err != nil {
		return err
	}

	in := cfg.Inputs
	if in.Targets != "" {
		t, err := parsePath(in.Targets, ParseTargets)
		if err != nil {
			return err
		}
		s.SetTargets(t)
		log.Printf("Loaded %d annual targets from %s", len(t), in.Targets)
	}
	if in.Forecast != "" {
		f, err := parsePath(in.Forecast, ParseForecast)
		if err != nil {
			return err
		}
		s.SetForecasts(f)
		log.Printf("Loaded %d forecast models from %s", len(f), in.Forecast)
	}
	if in.Caps != "" {
		c, err := parsePath(in.Caps, ParseCaps)
		if err != nil {
			return err
		}
		s.SetCaps(c)
		log.Printf("Loaded %d monthly caps from %s", len(c), in.Caps)
	}
	if in.Holidays != "" {
		h, err := parsePath(in.Holidays, ParseHolidays)
		if err != nil {
			return err
		}
		s.SetHolidays(h)
		log.Printf("Loaded %d holidays from %s", len(h), in.Holidays)
	}
	return nil
}

func loadHistory(ctx context.Context, cfg *config.Config, s *store.Store) error {
	if cfg.HistorySource == config.HistoryClickHouse {
		ch := cfg.ClickHouse
		src, err := NewClickHouseSource(ch.Addr, ch.DB, ch.User, ch.Pass, ch.Table)
		if err != nil {
			return err
		}
		defer src.Close()

		records, err := src.History(ctx, time.Time{}, time.Time{})
		if err != nil {
			return err
		}
		s.AddHistory("clickhouse:"+ch.Table, records)
		log.Printf("Loaded %d records from ClickHouse %s.%s", len(records), ch.DB, ch.Table)
		return nil
	}

	paths, err := historyFiles(cfg.Inputs.History)
	if err != nil {
		return err
	}
	for _, path := range paths {
		log.Printf("Loading %s...", path)
		parser := &HistoryParser{}
		records, err := ParseFile(path, parser)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		s.AddHistory(filepath.Base(path), records)
		log.Printf("  Loaded %d records from %s (%d skipped)", len(records), filepath.Base(path), parser.Skipped)
	}
	return nil
}

// historyFiles expands a directory into its CSV files, sorted by name.
func historyFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("history input: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading history directory: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		out = append(out, filepath.Join(path, entry.Name()))
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, fmt.Errorf("no CSV files in %s", path)
	}
	return out, nil
}

func parsePath[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	v, err := parse(f)
	if err != nil {
		return v, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}
