package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load_profile/internal/model"
)

func TestResolveKeepsDeclared(t *testing.T) {
	r := Resolver{GrowthRate: 0.05, BaseYear: 2024, BaseTotal: 7_000_000}
	res := r.Resolve(model.Targets{2025: 8_000_000, 2026: 8_400_000}, 2025, 2026)

	assert.Equal(t, model.Targets{2025: 8_000_000, 2026: 8_400_000}, res.Targets)
	assert.Empty(t, res.Projected)
	assert.Empty(t, res.Warnings)
}

func TestResolveProjectsFromNearest(t *testing.T) {
	r := Resolver{GrowthRate: 0.10, BaseYear: 2024, BaseTotal: 1}
	res := r.Resolve(model.Targets{2026: 1000, 2030: 5000, 2027: -1}, 2025, 2029)

	assert.InDelta(t, 1000/1.1, res.Targets[2025], 1e-9)
	assert.Equal(t, 1000.0, res.Targets[2026])
	assert.InDelta(t, 1100, res.Targets[2027], 1e-9)
	// 2028 is equidistant from 2026 and 2030; the earlier year wins
	assert.InDelta(t, 1210, res.Targets[2028], 1e-9)
	assert.InDelta(t, 5000/1.1, res.Targets[2029], 1e-9)
	assert.Equal(t, []int{2025, 2027, 2028, 2029}, res.Projected)
	require.Len(t, res.Warnings, 4)
	assert.Contains(t, res.Warnings[0], "fiscal_year=2025")
	assert.NotContains(t, res.Declared, 2027)
}

func TestResolveFromBaseYearTotal(t *testing.T) {
	r := Resolver{GrowthRate: 0.03, BaseYear: 2024, BaseTotal: 7_884_000}
	res := r.Resolve(nil, 2025, 2026)

	assert.InDelta(t, 7_884_000*1.03, res.Targets[2025], 1e-6)
	assert.InDelta(t, 7_884_000*1.03*1.03, res.Targets[2026], 1e-6)
	assert.Len(t, res.Warnings, 2)
}
