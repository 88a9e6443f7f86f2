// Package store keeps loaded engine inputs in memory so a long-running server
// can serve many generations from one load.
package store

import (
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"load_profile/internal/model"
)

// Source describes one loaded history input.
type Source struct {
	Name    string          `json:"name"`
	Records int             `json:"records"`
	Range   model.TimeRange `json:"range"`
}

// Store holds historical demand per source, sorted by timestamp, plus the
// target, forecast, cap and holiday tables.
type Store struct {
	mu        sync.RWMutex
	history   map[string][]model.DemandRecord
	targets   model.Targets
	forecasts map[string]model.Targets
	caps      model.MonthlyCaps
	holidays  map[time.Time]string
}

func New() *Store {
	return &Store{
		history: make(map[string][]model.DemandRecord),
	}
}

// AddHistory appends records to a source, then sorts it by timestamp.
func (s *Store) AddHistory(source string, records []model.DemandRecord) {
	if len(records) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := append(s.history[source], records...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	s.history[source] = all
}

// Sources returns every history source, ordered by name.
func (s *Store) Sources() []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Source, 0, len(s.history))
	for name, records := range s.history {
		src := Source{Name: name, Records: len(records)}
		src.Range, _ = timeRange(records)
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of records across all sources.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, records := range s.history {
		n += len(records)
	}
	return n
}

// TimeRange returns the time range covered by one source.
func (s *Store) TimeRange(source string) (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return timeRange(s.history[source])
}

// GlobalTimeRange returns the union of all sources' time ranges.
func (s *Store) GlobalTimeRange() (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var start, end time.Time
	first := true
	for _, records := range s.history {
		tr, ok := timeRange(records)
		if !ok {
			continue
		}
		if first || tr.Start.Before(start) {
			start = tr.Start
		}
		if first || tr.End.After(end) {
			end = tr.End
		}
		first = false
	}
	if first {
		return model.TimeRange{}, false
	}
	return model.TimeRange{Start: start, End: end}, true
}

// timeRange ignores records without a timestamp, which sort first.
func timeRange(records []model.DemandRecord) (model.TimeRange, bool) {
	i := sort.Search(len(records), func(i int) bool { return !records[i].Timestamp.IsZero() })
	if i == len(records) {
		return model.TimeRange{}, false
	}
	return model.TimeRange{Start: records[i].Timestamp, End: records[len(records)-1].Timestamp}, true
}

// History returns a merged copy of every source in timestamp order.
func (s *Store) History() []model.DemandRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.history))
	n := 0
	for name, records := range s.history {
		names = append(names, name)
		n += len(records)
	}
	sort.Strings(names)

	out := make([]model.DemandRecord, 0, n)
	for _, name := range names {
		out = append(out, s.history[name]...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// HistoryInRange returns merged records between start (inclusive) and end (exclusive).
func (s *Store) HistoryInRange(start, end time.Time) []model.DemandRecord {
	all := s.History()

	startIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(end)
	})
	if startIdx >= endIdx {
		return nil
	}
	return all[startIdx:endIdx]
}

func (s *Store) SetTargets(t model.Targets) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = maps.Clone(t)
}

func (s *Store) Targets() model.Targets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.targets)
}

// SetForecasts replaces the per-model forecast results.
func (s *Store) SetForecasts(f map[string]model.Targets) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts = make(map[string]model.Targets, len(f))
	for name, t := range f {
		s.forecasts[name] = maps.Clone(t)
	}
}

// Forecast returns one model's forecast, matching the name case-insensitively.
func (s *Store) Forecast(name string) (model.Targets, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for n, t := range s.forecasts {
		if strings.EqualFold(n, name) {
			return maps.Clone(t), true
		}
	}
	return nil, false
}

// ForecastModels lists the loaded forecast model names, sorted.
func (s *Store) ForecastModels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.forecasts))
	for n := range s.forecasts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Store) SetCaps(c model.MonthlyCaps) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = maps.Clone(c)
}

func (s *Store) Caps() model.MonthlyCaps {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.caps)
}

// SetHolidays stores the holiday calendar. A nil map means none was loaded.
func (s *Store) SetHolidays(h map[time.Time]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays = maps.Clone(h)
}

// Holidays returns nil when no calendar was loaded, which selects
// statistical holiday detection downstream.
func (s *Store) Holidays() map[time.Time]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.holidays)
}
