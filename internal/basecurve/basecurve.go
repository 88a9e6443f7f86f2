// Package basecurve materialises one gap-free fiscal year of history that the
// synthesizer samples for realistic hour-level texture.
package basecurve

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"load_profile/internal/model"
	"load_profile/internal/numeric"
	"load_profile/internal/pattern"
)

// Curve is the base fiscal year, exactly HoursInFiscalYear(FiscalYear) records long.
type Curve struct {
	FiscalYear int
	Requested  int // 0 when the year was chosen automatically
	Records    []model.HourlyRecord
	Observed   int // hours backed by a real sample, the rest are interpolated
	Mean       float64
	Total      float64
	Warnings   model.Warnings
}

type Builder struct {
	logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// Build picks the base year (baseYear, or the latest year in history when
// baseYear is 0) and lays history onto its contiguous hourly timeline.
func (b *Builder) Build(h *pattern.History, baseYear int) (*Curve, error) {
	if h == nil || len(h.Records) == 0 {
		return nil, fmt.Errorf("building base curve: %w", model.ErrNoHistoricalData)
	}

	years := make(map[int]bool)
	for _, r := range h.Records {
		years[r.FiscalYear] = true
	}
	latest := h.Records[len(h.Records)-1].FiscalYear

	c := &Curve{FiscalYear: baseYear, Requested: baseYear}
	switch {
	case baseYear == 0:
		c.FiscalYear = latest
	case !years[baseYear]:
		c.Warnings.Add(b.logger, "base year absent from history, using most recent year",
			"requested", baseYear, "substituted", latest)
		c.FiscalYear = latest
	}

	start := model.FiscalYearStart(c.FiscalYear)
	n := model.HoursInFiscalYear(c.FiscalYear)
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	for _, r := range h.Records {
		if r.FiscalYear != c.FiscalYear {
			continue
		}
		idx := int(r.Timestamp.Truncate(time.Hour).Sub(start) / time.Hour)
		if idx < 0 || idx >= n {
			continue
		}
		if math.IsNaN(values[idx]) {
			c.Observed++
		}
		values[idx] = r.DemandMW
	}
	values = numeric.FillGaps(values)

	cal := h.Calendar
	if cal == nil {
		cal = model.NewCalendar(nil, model.DefaultSeasonTable)
	}
	c.Records = make([]model.HourlyRecord, n)
	for i, v := range values {
		c.Records[i] = cal.Tag(start.Add(time.Duration(i)*time.Hour), v)
		c.Total += v
	}
	c.Mean = c.Total / float64(n)

	if c.Observed < n {
		b.logger.Info("base curve gaps interpolated",
			"fiscal_year", c.FiscalYear, "observed", c.Observed, "filled", n-c.Observed)
	}
	b.logger.Info("built base curve", "fiscal_year", c.FiscalYear, "hours", n, "mean_mw", c.Mean)
	return c, nil
}
