package ws

import (
	"encoding/json"
	"time"

	"load_profile/internal/model"
	"load_profile/internal/pipeline"
	"load_profile/internal/store"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

// GeneratePayload requests a run. Zero fields keep the server defaults.
type GeneratePayload struct {
	ProfileID         string `json:"profile_id,omitempty"`
	StartYear         int    `json:"start_year,omitempty"`
	EndYear           int    `json:"end_year,omitempty"`
	Method            string `json:"method,omitempty"`
	BaseYear          int    `json:"base_year,omitempty"`
	DemandSource      string `json:"demand_source,omitempty"`
	ForecastModel     string `json:"forecast_model,omitempty"`
	MonthlyConstraint *bool  `json:"monthly_constraint,omitempty"`
}

// Server -> Client messages

type ProgressPayload struct {
	RunID      string  `json:"run_id"`
	ProfileID  string  `json:"profile_id"`
	Stage      string  `json:"stage"`
	Percent    float64 `json:"percent"`
	Message    string  `json:"message"`
	FiscalYear int     `json:"fiscal_year,omitempty"`
}

type YearSummary struct {
	FiscalYear   int     `json:"fiscal_year"`
	Hours        int     `json:"hours"`
	GeneratedMWh float64 `json:"generated_mwh"`
	TargetMWh    float64 `json:"target_mwh"`
	ErrorPct     float64 `json:"error_pct"`
	PeakMW       float64 `json:"peak_mw"`
	LoadFactor   float64 `json:"load_factor"`
}

type ResultPayload struct {
	RunID             string        `json:"run_id"`
	ProfileID         string        `json:"profile_id"`
	Method            string        `json:"method"`
	BaseYear          int           `json:"base_year"`
	TargetsMet        bool          `json:"targets_met"`
	Years             []YearSummary `json:"years"`
	TotalMWh          float64       `json:"total_mwh"`
	PeakMW            float64       `json:"peak_mw"`
	MaxTransitionPct  float64       `json:"max_transition_pct"`
	DailyCVPreserved  bool          `json:"daily_cv_preserved"`
	WeeklyCVPreserved bool          `json:"weekly_cv_preserved"`
	FlooredHours      int           `json:"floored_hours"`
	Warnings          []string      `json:"warnings"`
	DurationMS        int64         `json:"duration_ms"`
}

type ErrorPayload struct {
	ProfileID string `json:"profile_id,omitempty"`
	Message   string `json:"message"`
}

type SourceInfo struct {
	Name      string        `json:"name"`
	Records   int           `json:"records"`
	TimeRange TimeRangeInfo `json:"time_range"`
}

type TimeRangeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DataLoadedPayload struct {
	Sources        []SourceInfo  `json:"sources"`
	TimeRange      TimeRangeInfo `json:"time_range"`
	TargetYears    []int         `json:"target_years"`
	ForecastModels []string      `json:"forecast_models"`
	Caps           int           `json:"caps"`
	Holidays       int           `json:"holidays"`
	Running        bool          `json:"running"`
}

// Message type constants
const (
	// Client -> Server
	TypeProfileGenerate = "profile:generate"
	TypeProfileCancel   = "profile:cancel"

	// Server -> Client
	TypeDataLoaded      = "data:loaded"
	TypeProfileProgress = "profile:progress"
	TypeProfileResult   = "profile:result"
	TypeProfileError    = "profile:error"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func ProgressFromEngine(p pipeline.Progress) ProgressPayload {
	return ProgressPayload{
		RunID:      p.RunID,
		ProfileID:  p.ProfileID,
		Stage:      string(p.Stage),
		Percent:    p.Percent,
		Message:    p.Message,
		FiscalYear: p.FiscalYear,
	}
}

func ResultFromEngine(r *pipeline.Result) ResultPayload {
	years := make([]YearSummary, 0, len(r.Report.Accuracy))
	for _, a := range r.Report.Accuracy {
		years = append(years, YearSummary{
			FiscalYear:   a.FiscalYear,
			Hours:        a.Hours,
			GeneratedMWh: a.GeneratedMWh,
			TargetMWh:    a.TargetMWh,
			ErrorPct:     a.ErrorPct,
			PeakMW:       a.PeakMW,
			LoadFactor:   a.LoadFactor,
		})
	}
	warnings := []string(r.Warnings)
	if warnings == nil {
		warnings = []string{}
	}
	return ResultPayload{
		RunID:             r.RunID,
		ProfileID:         r.ProfileID,
		Method:            string(r.Method),
		BaseYear:          r.BaseYear,
		TargetsMet:        r.Report.TargetsMet,
		Years:             years,
		TotalMWh:          r.Report.Overall.TotalMWh,
		PeakMW:            r.Report.Overall.PeakMW,
		MaxTransitionPct:  r.Report.Smoothness.MaxTransitionPct,
		DailyCVPreserved:  r.Report.Realism.DailyCV.Preserved,
		WeeklyCVPreserved: r.Report.Realism.WeeklyCV.Preserved,
		FlooredHours:      r.Floored,
		Warnings:          warnings,
		DurationMS:        r.Duration.Milliseconds(),
	}
}

func TimeRangeFromModel(tr model.TimeRange) TimeRangeInfo {
	if tr.Start.IsZero() && tr.End.IsZero() {
		return TimeRangeInfo{}
	}
	return TimeRangeInfo{
		Start: tr.Start.Format(time.RFC3339),
		End:   tr.End.Format(time.RFC3339),
	}
}

func SourceFromStore(s store.Source) SourceInfo {
	return SourceInfo{
		Name:      s.Name,
		Records:   s.Records,
		TimeRange: TimeRangeFromModel(s.Range),
	}
}
