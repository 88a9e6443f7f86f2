package pattern

import (
	"math"
	"time"

	"load_profile/internal/model"
	"load_profile/internal/numeric"
)

// hourlyGrid lays the records on a contiguous hourly grid from the first to
// the last timestamp, interpolating missing hours.
func hourlyGrid(records []model.HourlyRecord) []float64 {
	start := records[0].Timestamp.Truncate(time.Hour)
	end := records[len(records)-1].Timestamp.Truncate(time.Hour)
	n := int(end.Sub(start)/time.Hour) + 1

	sum := make([]float64, n)
	count := make([]int, n)
	for _, r := range records {
		idx := int(r.Timestamp.Truncate(time.Hour).Sub(start) / time.Hour)
		sum[idx] += r.DemandMW
		count[idx]++
	}
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = math.NaN()
		if count[i] > 0 {
			grid[i] = sum[i] / float64(count[i])
		}
	}
	return numeric.FillGaps(grid)
}

// decompose runs the optional trend/seasonal decomposition and records its
// strengths. It returns nil when the series is too short.
func (e *Extractor) decompose(records []model.HourlyRecord, ps *PatternSet) *numeric.Components {
	grid := hourlyGrid(records)
	period := e.opts.DecompositionPeriod
	if len(grid) < 2*period {
		period = 24
	}
	c, err := e.toolkit.Decomposer.Decompose(grid, period)
	if err != nil {
		e.logger.Info("seasonal decomposition skipped", "hours", len(grid), "error", err)
		return nil
	}
	ps.Decomposition = &Decomposition{
		Period:           period,
		TrendStrength:    c.TrendStrength,
		SeasonalStrength: c.SeasonalStrength,
		ResidualStrength: c.ResidualStrength,
	}
	return &c
}

// archetypes clusters complete, mean-normalised days into representative shapes.
func (e *Extractor) archetypes(records []model.HourlyRecord, ps *PatternSet) []Archetype {
	type day struct {
		values [24]float64
		seen   [24]bool
		n      int
		dt     model.DayType
	}
	days := make(map[time.Time]*day)
	var order []time.Time
	for _, r := range records {
		k := model.DateKey(r.Timestamp)
		d, ok := days[k]
		if !ok {
			d = &day{dt: r.DayType}
			days[k] = d
			order = append(order, k)
		}
		if !d.seen[r.Hour] {
			d.seen[r.Hour] = true
			d.n++
		}
		d.values[r.Hour] = r.DemandMW
	}

	var vectors [][]float64
	var types []model.DayType
	for _, k := range order {
		d := days[k]
		if d.n < 24 {
			continue
		}
		v := append([]float64(nil), d.values[:]...)
		m := numeric.Mean(v)
		if m <= 0 {
			continue
		}
		for i := range v {
			v[i] /= m
		}
		vectors = append(vectors, v)
		types = append(types, d.dt)
	}

	k := e.opts.ClusterCount
	if len(vectors) < k || k < 1 {
		e.logger.Info("shape clustering skipped", "complete_days", len(vectors), "clusters", k)
		return nil
	}
	clusters, err := e.toolkit.Clusterer.Cluster(vectors, k)
	if err != nil {
		ps.warn(e.logger, "shape clustering failed", "error", err)
		return nil
	}

	out := make([]Archetype, 0, len(clusters))
	for _, c := range clusters {
		if len(c.Members) == 0 {
			continue
		}
		a := Archetype{Days: len(c.Members)}
		copy(a.Profile[:], c.Centroid)
		votes := make(map[model.DayType]int)
		for _, idx := range c.Members {
			votes[types[idx]]++
		}
		for _, dt := range model.DayTypes {
			if votes[dt] > votes[a.DominantDayType] {
				a.DominantDayType = dt
			}
		}
		out = append(out, a)
	}
	return out
}
