// Package targets resolves the annual energy target of every modelled year.
package targets

import (
	"log/slog"
	"math"
	"sort"

	"load_profile/internal/model"
)

// Resolution holds the annual target for every requested year.
type Resolution struct {
	Targets   model.Targets
	Declared  model.Targets
	Projected []int
	Warnings  model.Warnings
}

// Resolver fills years missing from the declared targets by compounding growth
// from the nearest declared year, or from the base-year total when nothing is
// declared.
type Resolver struct {
	GrowthRate float64
	BaseYear   int
	BaseTotal  float64
	Logger     *slog.Logger
}

func (r Resolver) Resolve(declared model.Targets, startYear, endYear int) *Resolution {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := &Resolution{
		Targets:  make(model.Targets, endYear-startYear+1),
		Declared: make(model.Targets, len(declared)),
	}
	var known []int
	for fy, v := range declared {
		if v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			res.Declared[fy] = v
			known = append(known, fy)
		}
	}
	sort.Ints(known)

	for fy := startYear; fy <= endYear; fy++ {
		if v, ok := res.Declared[fy]; ok {
			res.Targets[fy] = v
			continue
		}
		from, value := r.BaseYear, r.BaseTotal
		if k, ok := nearest(known, fy); ok {
			from, value = k, res.Declared[k]
		}
		res.Targets[fy] = value * math.Pow(1+r.GrowthRate, float64(fy-from))
		res.Projected = append(res.Projected, fy)
		res.Warnings.Add(logger, "demand target missing, projecting with compound growth",
			"fiscal_year", fy, "from_year", from, "growth_rate", r.GrowthRate, "target_mwh", res.Targets[fy])
	}
	return res
}

// nearest returns the known year closest to fy, preferring the earlier year on ties.
func nearest(known []int, fy int) (int, bool) {
	if len(known) == 0 {
		return 0, false
	}
	best := known[0]
	for _, k := range known[1:] {
		if abs(k-fy) < abs(best-fy) {
			best = k
		}
	}
	return best, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
