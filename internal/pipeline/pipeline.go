// Package pipeline runs extraction, base curve, synthesis, constraint
// enforcement and validation as one generation run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"load_profile/internal/basecurve"
	"load_profile/internal/config"
	"load_profile/internal/constraint"
	"load_profile/internal/model"
	"load_profile/internal/numeric"
	"load_profile/internal/pattern"
	"load_profile/internal/store"
	"load_profile/internal/synth"
	"load_profile/internal/targets"
	"load_profile/internal/validate"
)

type Stage string

const (
	StageLoadTargets      Stage = "load_targets"
	StageBuildStructure   Stage = "build_structure"
	StageSynthesize       Stage = "synthesize"
	StageApplyConstraints Stage = "apply_constraints"
	StageValidate         Stage = "validate"
	StageDone             Stage = "done"
)

// Progress is emitted at each checkpoint of a run.
type Progress struct {
	RunID      string  `json:"run_id"`
	ProfileID  string  `json:"profile_id"`
	Stage      Stage   `json:"stage"`
	Percent    float64 `json:"percent"`
	Message    string  `json:"message"`
	FiscalYear int     `json:"fiscal_year,omitempty"`
}

// Callback receives run events.
type Callback interface {
	OnProgress(p Progress)
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(Progress)

func (f CallbackFunc) OnProgress(p Progress) { f(p) }

// Callbacks fans events out to several sinks.
type Callbacks []Callback

func (cs Callbacks) OnProgress(p Progress) {
	for _, c := range cs {
		if c != nil {
			c.OnProgress(p)
		}
	}
}

type DemandSource string

const (
	SourceTable    DemandSource = config.DemandSourceTable
	SourceForecast DemandSource = config.DemandSourceForecast
)

type Options struct {
	ProfileID         string
	StartYear         int
	EndYear           int
	Method            pattern.Method
	BaseYear          int // 0 = latest year in history
	DemandSource      DemandSource
	MonthlyConstraint bool
	Seasons           model.SeasonTable
	Extract           pattern.Options
	Synth             synth.Options
}

// OptionsFromConfig maps a validated config onto run options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	method, err := pattern.ParseMethod(cfg.Method)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	seasons, err := cfg.SeasonTable()
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	t := cfg.Tuning

	ext := pattern.DefaultOptions()
	ext.HolidaySigma = t.HolidaySigma
	ext.ShapeSmoothingWindow = t.ShapeSmoothingWindow
	ext.ShapeSmoothingOrder = t.ShapeSmoothingOrder
	ext.DefaultGrowthRate = t.DefaultGrowthRate
	ext.GrowthClamp = t.GrowthClamp
	ext.ClusterCount = t.ClusterCount

	syn := synth.DefaultOptions(cfg.StartYear, cfg.EndYear)
	syn.WindowDays = t.WindowDays
	syn.LogisticSteepness = t.LogisticSteepness
	syn.SmoothingWindow = t.FinalSmoothingWindow
	syn.SmoothingOrder = t.FinalSmoothingOrder
	syn.Floor = t.DemandFloorMW
	syn.Workers = t.Workers

	return Options{
		ProfileID:         cfg.ProfileID,
		StartYear:         cfg.StartYear,
		EndYear:           cfg.EndYear,
		Method:            method,
		BaseYear:          int(cfg.BaseYear),
		DemandSource:      DemandSource(cfg.DemandSource),
		MonthlyConstraint: cfg.MonthlyConstraint == config.ConstraintMaxDemand,
		Seasons:           seasons,
		Extract:           ext,
		Synth:             syn,
	}, nil
}

// Inputs are the collaborator-supplied data for one run.
type Inputs struct {
	History         []model.DemandRecord
	TableTargets    model.Targets
	ForecastTargets model.Targets
	Caps            model.MonthlyCaps
	Holidays        map[time.Time]string // nil selects statistical detection
}

// InputsFromStore snapshots the loaded inputs. Forecast targets come from the
// named forecast model, when loaded.
func InputsFromStore(s *store.Store, forecastModel string) Inputs {
	in := Inputs{
		History:      s.History(),
		TableTargets: s.Targets(),
		Caps:         s.Caps(),
		Holidays:     s.Holidays(),
	}
	if f, ok := s.Forecast(forecastModel); ok {
		in.ForecastTargets = f
	}
	return in
}

type Result struct {
	RunID        string                  `json:"run_id"`
	ProfileID    string                  `json:"profile_id"`
	Method       pattern.Method          `json:"method"`
	BaseYear     int                     `json:"base_year"`
	Capabilities []string                `json:"capabilities"`
	Targets      model.Targets           `json:"targets"`
	Projected    []int                   `json:"projected_years,omitempty"`
	Annual       []constraint.YearScale  `json:"annual_scaling"`
	Monthly      []constraint.MonthScale `json:"monthly_caps,omitempty"`
	Floored      int                     `json:"floored_hours"`
	Report       validate.Report         `json:"report"`
	Warnings     model.Warnings          `json:"warnings"`
	Duration     time.Duration           `json:"duration_ns"`

	Profile  *model.Profile      `json:"-"`
	Patterns *pattern.PatternSet `json:"-"`
}

// Engine runs generations. It holds no per-run state, so one engine may serve
// concurrent runs as long as the callback is safe for concurrent use.
type Engine struct {
	toolkit  numeric.Toolkit
	logger   *slog.Logger
	callback Callback
}

func New(toolkit numeric.Toolkit, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{toolkit: toolkit, logger: logger}
}

// SetCallback registers the progress sink.
func (e *Engine) SetCallback(cb Callback) {
	e.callback = cb
}

func (e *Engine) Run(ctx context.Context, opts Options, in Inputs) (*Result, error) {
	started := time.Now()
	res := &Result{
		RunID:        uuid.NewString(),
		ProfileID:    opts.ProfileID,
		Capabilities: e.toolkit.Capabilities(),
	}
	logger := e.logger.With("run_id", res.RunID, "profile_id", opts.ProfileID)
	emit := func(stage Stage, pct float64, fy int, msg string) {
		if e.callback == nil {
			return
		}
		e.callback.OnProgress(Progress{
			RunID: res.RunID, ProfileID: opts.ProfileID, Stage: stage, Percent: pct, Message: msg, FiscalYear: fy,
		})
	}
	logger.Info("starting generation", "years", fmt.Sprintf("%d-%d", opts.StartYear, opts.EndYear),
		"method", opts.Method, "capabilities", res.Capabilities)

	if opts.Seasons == (model.SeasonTable{}) {
		opts.Seasons = model.DefaultSeasonTable
	}
	var external *model.Calendar
	if in.Holidays != nil {
		external = model.NewCalendar(in.Holidays, opts.Seasons)
	}
	extractor := pattern.NewExtractor(opts.Extract, opts.Seasons, e.toolkit, logger)
	history, err := extractor.Clean(in.History, external)
	if err != nil {
		return nil, err
	}
	ps, err := extractor.Extract(history, opts.Method)
	if err != nil {
		return nil, err
	}
	res.Patterns = ps
	res.Method = ps.Method
	res.Warnings = append(res.Warnings, ps.Warnings...)

	curve, err := basecurve.NewBuilder(logger).Build(history, opts.BaseYear)
	if err != nil {
		return nil, err
	}
	res.BaseYear = curve.FiscalYear
	res.Warnings = append(res.Warnings, curve.Warnings...)

	declared := in.TableTargets
	if opts.DemandSource == SourceForecast {
		if len(in.ForecastTargets) > 0 {
			declared = in.ForecastTargets
		} else {
			res.Warnings.Add(logger, "forecast targets empty, using target table")
		}
	}
	resolution := targets.Resolver{
		GrowthRate: ps.GrowthRate,
		BaseYear:   curve.FiscalYear,
		BaseTotal:  curve.Total,
		Logger:     logger,
	}.Resolve(declared, opts.StartYear, opts.EndYear)
	res.Targets = resolution.Targets
	res.Projected = resolution.Projected
	res.Warnings = append(res.Warnings, resolution.Warnings...)
	emit(StageLoadTargets, 10, 0, fmt.Sprintf("resolved %d annual targets", len(resolution.Targets)))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generation cancelled: %w", err)
	}
	emit(StageBuildStructure, 25, 0, fmt.Sprintf("base year FY%d, %d hours", curve.FiscalYear, len(curve.Records)))

	synOpts := opts.Synth
	synOpts.StartYear, synOpts.EndYear = opts.StartYear, opts.EndYear
	synthesizer := synth.New(synOpts, e.toolkit.Smoother, logger)
	synthesizer.OnYear(func(fy, completed, total int) {
		emit(StageSynthesize, 25+55*float64(completed)/float64(total), fy,
			fmt.Sprintf("synthesized FY%d (%d/%d)", fy, completed, total))
	})
	generated, err := synthesizer.Synthesize(ctx, synth.Input{
		Patterns: ps,
		Base:     curve,
		Calendar: history.Calendar,
		Targets:  resolution.Declared,
	})
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, generated.Warnings...)

	emit(StageApplyConstraints, 85, 0, "applying energy targets")
	var caps model.MonthlyCaps
	if opts.MonthlyConstraint {
		caps = in.Caps
		if len(caps) == 0 {
			res.Warnings.Add(logger, "monthly constraint enabled but no caps supplied")
		}
	}
	enforced := constraint.NewEnforcer(synOpts.Floor, logger).Enforce(generated.Profile, resolution.Targets, caps)
	res.Profile = enforced.Profile
	res.Annual = enforced.Annual
	res.Monthly = enforced.Monthly
	res.Floored = enforced.Floored
	res.Warnings = append(res.Warnings, enforced.Warnings...)

	emit(StageValidate, 95, 0, "validating profile")
	res.Report = validate.New().Validate(res.Profile, resolution.Targets, ps.Variability)

	res.Duration = time.Since(started)
	emit(StageDone, 100, 0, fmt.Sprintf("generated %d hours", len(res.Profile.Hours)))
	logger.Info("generation finished",
		"hours", len(res.Profile.Hours),
		"targets_met", res.Report.TargetsMet,
		"max_transition_pct", res.Report.Smoothness.MaxTransitionPct,
		"warnings", len(res.Warnings),
		"duration", res.Duration)
	return res, nil
}
