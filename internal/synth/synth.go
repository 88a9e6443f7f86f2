// Package synth composes multi-year hourly demand from the base curve and the
// extracted patterns.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"load_profile/internal/basecurve"
	"load_profile/internal/model"
	"load_profile/internal/numeric"
	"load_profile/internal/pattern"
)

type Options struct {
	StartYear         int
	EndYear           int
	WindowDays        int
	LogisticSteepness float64
	SmoothingWindow   int
	SmoothingOrder    int
	Floor             float64
	Workers           int // 0 = runtime.NumCPU()
	Transitions       []Transition
}

func DefaultOptions(startYear, endYear int) Options {
	return Options{
		StartYear:         startYear,
		EndYear:           endYear,
		WindowDays:        3,
		LogisticSteepness: 10,
		SmoothingWindow:   25,
		SmoothingOrder:    3,
		Floor:             10,
		Transitions:       DefaultTransitions(),
	}
}

// Input is the read-only material shared by every modelled year.
type Input struct {
	Patterns *pattern.PatternSet
	Base     *basecurve.Curve
	Calendar *model.Calendar
	Targets  model.Targets // declared targets, used for growth ratios
}

// ProgressFunc is called once per completed fiscal year, never concurrently.
type ProgressFunc func(fiscalYear, completed, total int)

type Result struct {
	Profile       *model.Profile
	GrowthFactors map[int]float64
	Fallbacks     map[Level]int
	Smoothed      bool
	Warnings      model.Warnings
}

type Synthesizer struct {
	opts     Options
	smoother numeric.Smoother
	logger   *slog.Logger
	progress ProgressFunc
}

// New builds a synthesizer. A nil smoother skips the final smoothing pass.
func New(opts Options, smoother numeric.Smoother, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{opts: opts, smoother: smoother, logger: logger}
}

// OnYear registers a per-year progress callback.
func (s *Synthesizer) OnYear(fn ProgressFunc) {
	s.progress = fn
}

type yearOutput struct {
	hours     []model.ProfileHour
	growth    float64
	fallbacks map[Level]int
	smoothErr error
}

// Synthesize builds every fiscal year in [StartYear, EndYear]. Years are
// independent and run in parallel; cancellation is observed between years.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) (*Result, error) {
	if in.Patterns == nil || in.Base == nil {
		return nil, fmt.Errorf("synthesizing: %w", model.ErrNoHistoricalData)
	}
	if s.opts.EndYear < s.opts.StartYear {
		return nil, fmt.Errorf("synthesizing: end year %d before start year %d", s.opts.EndYear, s.opts.StartYear)
	}
	cal := in.Calendar
	if cal == nil {
		cal = model.NewCalendar(nil, model.DefaultSeasonTable)
	}

	index := newBaseIndex(in.Base, s.opts.WindowDays)
	total := s.opts.EndYear - s.opts.StartYear + 1
	workers := s.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu        sync.Mutex
		years     = make(map[int]yearOutput, total)
		completed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for fy := s.opts.StartYear; fy <= s.opts.EndYear; fy++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("synthesizing fiscal year %d: %w", fy, err)
			}
			out := s.year(fy, in, cal, index)

			mu.Lock()
			defer mu.Unlock()
			years[fy] = out
			completed++
			if s.progress != nil {
				s.progress(fy, completed, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		GrowthFactors: make(map[int]float64, total),
		Fallbacks:     make(map[Level]int),
		Smoothed:      s.smoother != nil,
	}
	hours := make(map[int][]model.ProfileHour, total)
	for fy := s.opts.StartYear; fy <= s.opts.EndYear; fy++ {
		out := years[fy]
		hours[fy] = out.hours
		res.GrowthFactors[fy] = out.growth
		for l, n := range out.fallbacks {
			res.Fallbacks[l] += n
		}
		if out.smoothErr != nil {
			res.Smoothed = false
			res.Warnings.Add(s.logger, "final smoothing skipped", "fiscal_year", fy, "error", out.smoothErr)
		}
	}
	if n := res.Fallbacks[LevelHour] + res.Fallbacks[LevelGlobal]; n > 0 {
		res.Warnings.Add(s.logger, "base values without window coverage, widened lookup",
			"hours", n, "hour_only", res.Fallbacks[LevelHour], "global_mean", res.Fallbacks[LevelGlobal])
	}
	res.Profile = model.NewProfile(hours)

	s.logger.Info("synthesized profile",
		"years", total, "hours", len(res.Profile.Hours), "base_year", in.Base.FiscalYear, "smoothed", res.Smoothed)
	return res, nil
}

func (s *Synthesizer) year(fy int, in Input, cal *model.Calendar, index *baseIndex) yearOutput {
	start := model.FiscalYearStart(fy)
	n := model.HoursInFiscalYear(fy)
	days := model.DaysInFiscalYear(fy)
	ps := in.Patterns

	out := yearOutput{
		hours:     make([]model.ProfileHour, n),
		growth:    growthFactor(in.Targets, in.Base.FiscalYear, fy, ps.GrowthRate),
		fallbacks: make(map[Level]int),
	}
	for i := range out.hours {
		tag := cal.Tag(start.Add(time.Duration(i)*time.Hour), 0)
		base := index.lookup(tag.FiscalDay, tag.Hour, tag.DayType)
		out.fallbacks[base.level]++

		v := base.value *
			ps.AnnualFactor(tag.FiscalDay, days, tag.Month) *
			dayTypeFactor(ps.DayTypeFactors, s.opts.LogisticSteepness, tag.DayType, tag.Weekday, tag.Hour) *
			seasonalAdjustment(s.opts.Transitions, s.opts.LogisticSteepness, tag.FiscalDay, days) *
			out.growth

		out.hours[i] = model.ProfileHour{
			Timestamp:  tag.Timestamp,
			DemandMW:   max(v, s.opts.Floor),
			FiscalYear: fy,
			FiscalDay:  tag.FiscalDay,
			Hour:       tag.Hour,
			Month:      tag.Month,
			DayType:    tag.DayType,
			Season:     tag.Season,
		}
	}

	if s.smoother != nil {
		values := make([]float64, n)
		for i, h := range out.hours {
			values[i] = h.DemandMW
		}
		smoothed, err := s.smoother.Smooth(values, s.opts.SmoothingWindow, s.opts.SmoothingOrder)
		if err != nil {
			out.smoothErr = err
		} else {
			for i := range out.hours {
				out.hours[i].DemandMW = max(smoothed[i], s.opts.Floor)
			}
		}
	}
	return out
}
