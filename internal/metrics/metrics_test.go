package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load_profile/internal/model"
	"load_profile/internal/pipeline"
	"load_profile/internal/validate"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe(&pipeline.Result{
		ProfileID: "north",
		Floored:   4,
		Warnings:  model.Warnings{"a", "b", "c"},
		Duration:  2 * time.Second,
		Report: validate.Report{
			Accuracy: []validate.YearAccuracy{
				{FiscalYear: 2025, HasTarget: true, ErrorPct: 0.02},
				{FiscalYear: 2026},
			},
			Smoothness: validate.Smoothness{MaxTransitionPct: 6.5},
		},
	})
	m.Observe(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("error")))
	assert.Equal(t, 0.02, testutil.ToFloat64(m.annualError.WithLabelValues("north", "2025")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.annualError))
	assert.Equal(t, 6.5, testutil.ToFloat64(m.maxTransition.WithLabelValues("north")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.warnings))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.floored))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestDroppedMessage(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.DroppedMessage("profile:progress")
	m.DroppedMessage("profile:progress")
	m.DroppedMessage("data:loaded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dropped.WithLabelValues("profile:progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("data:loaded")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.dropped))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	// vectors without observed labels are not gathered yet
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "loadprofile_warnings_total")
	assert.Contains(t, names, "loadprofile_run_duration_seconds")

	assert.Panics(t, func() { New(reg) })
}
