// Package constraint rescales a synthesized profile onto annual energy targets
// and optional monthly peak caps using uniform multiplicative scaling only.
package constraint

import (
	"log/slog"
	"sort"

	"load_profile/internal/model"
)

type YearScale struct {
	FiscalYear int     `json:"fiscal_year"`
	TargetMWh  float64 `json:"target_mwh"`
	BeforeMWh  float64 `json:"before_mwh"`
	Scale      float64 `json:"scale"`
	Skipped    bool    `json:"skipped,omitempty"`
}

type MonthScale struct {
	FiscalYear int     `json:"fiscal_year"`
	Month      string  `json:"month"`
	CapMW      float64 `json:"cap_mw"`
	PeakMW     float64 `json:"peak_mw"`
	Scale      float64 `json:"scale"`
}

type Result struct {
	Profile  *model.Profile
	Annual   []YearScale
	Monthly  []MonthScale
	Floored  int
	Warnings model.Warnings
}

type Enforcer struct {
	floor  float64
	logger *slog.Logger
}

// NewEnforcer returns an enforcer that re-applies floor after rescaling.
func NewEnforcer(floor float64, logger *slog.Logger) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enforcer{floor: floor, logger: logger}
}

// Enforce returns a rescaled copy of p. Annual scaling runs for every year
// with a positive target, then each supplied monthly cap that is exceeded
// scales its month down to the cap. The input profile is not modified.
func (e *Enforcer) Enforce(p *model.Profile, targets model.Targets, caps model.MonthlyCaps) *Result {
	res := &Result{Profile: p.Clone()}

	for _, fy := range res.Profile.Years() {
		target, ok := targets[fy]
		if !ok || target <= 0 {
			continue
		}
		hours := res.Profile.Year(fy)
		ys := YearScale{FiscalYear: fy, TargetMWh: target, BeforeMWh: res.Profile.YearSum(fy)}
		if ys.BeforeMWh == 0 {
			ys.Skipped = true
			res.Warnings.Add(e.logger, "annual total is zero, skipping scaling", "fiscal_year", fy, "target_mwh", target)
			res.Annual = append(res.Annual, ys)
			continue
		}
		ys.Scale = target / ys.BeforeMWh
		for i := range hours {
			hours[i].DemandMW *= ys.Scale
		}
		res.Annual = append(res.Annual, ys)
	}

	for _, ym := range sortedCaps(caps) {
		limit := caps[ym]
		hours := res.Profile.Year(ym.FiscalYear)
		if limit <= 0 || len(hours) == 0 {
			continue
		}
		var peak float64
		for _, h := range hours {
			if h.Month == ym.Month && h.DemandMW > peak {
				peak = h.DemandMW
			}
		}
		if peak <= limit {
			continue
		}
		scale := limit / peak
		for i := range hours {
			if hours[i].Month == ym.Month {
				hours[i].DemandMW *= scale
			}
		}
		res.Monthly = append(res.Monthly, MonthScale{
			FiscalYear: ym.FiscalYear, Month: ym.Month.String(), CapMW: limit, PeakMW: peak, Scale: scale,
		})
	}

	// The floor wins over the annual target: raised hours are not offset
	// elsewhere, so a floored year can end above its target.
	for i := range res.Profile.Hours {
		if res.Profile.Hours[i].DemandMW < e.floor {
			res.Profile.Hours[i].DemandMW = e.floor
			res.Floored++
		}
	}
	if res.Floored > 0 {
		res.Warnings.Add(e.logger, "rescaled hours raised to demand floor", "hours", res.Floored, "floor_mw", e.floor)
	}

	e.logger.Info("applied constraints",
		"years_scaled", len(res.Annual), "months_capped", len(res.Monthly), "floored", res.Floored)
	return res
}

func sortedCaps(caps model.MonthlyCaps) []model.YearMonth {
	keys := make([]model.YearMonth, 0, len(caps))
	for ym := range caps {
		keys = append(keys, ym)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].FiscalYear != keys[j].FiscalYear {
			return keys[i].FiscalYear < keys[j].FiscalYear
		}
		return model.FiscalMonthIndex(keys[i].Month) < model.FiscalMonthIndex(keys[j].Month)
	})
	return keys
}
