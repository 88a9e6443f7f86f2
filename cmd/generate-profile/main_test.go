package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"load_profile/internal/model"
	"load_profile/internal/pipeline"
	"load_profile/internal/validate"
)

func TestFormatProgress(t *testing.T) {
	got := formatProgress(pipeline.Progress{Stage: pipeline.StageSynthesize, Percent: 52.5, Message: "synthesized FY2025 (1/2)"})
	assert.Equal(t, "[ 52%] synthesize        synthesized FY2025 (1/2)", got)
}

func TestErrorColor(t *testing.T) {
	assert.Equal(t, dimColor, errorColor(validate.YearAccuracy{}))
	assert.Equal(t, okColor, errorColor(validate.YearAccuracy{HasTarget: true, ErrorPct: 0.05}))
	assert.Equal(t, warnColor, errorColor(validate.YearAccuracy{HasTarget: true, ErrorPct: 0.5}))
	assert.Equal(t, badColor, errorColor(validate.YearAccuracy{HasTarget: true, ErrorPct: 3}))
	assert.Equal(t, warnColor, errorColor(validate.YearAccuracy{HasTarget: true, ErrorPct: -0.5}))
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true
	res := &pipeline.Result{
		RunID:        "run-1",
		ProfileID:    "north",
		Method:       "normalized_pattern",
		BaseYear:     2024,
		Capabilities: []string{"smoothing", "clustering"},
		Floored:      2,
		Warnings:     model.Warnings{"base year 2022 not in history"},
		Report: validate.Report{
			Accuracy: []validate.YearAccuracy{
				{FiscalYear: 2025, Hours: 8760, GeneratedMWh: 8_000_000, TargetMWh: 8_000_000, HasTarget: true, PeakMW: 1480.2, LoadFactor: 0.617},
				{FiscalYear: 2026, Hours: 8760, GeneratedMWh: 8_200_000},
			},
			Smoothness: validate.Smoothness{MonthBoundaries: 23, MaxTransitionPct: 5.1, WorstBoundary: "FY2025 March -> FY2026 April"},
			Realism:    validate.Realism{DailyCV: validate.Comparison{Generated: 0.1, Historical: 0.1, Ratio: 1, Preserved: true}},
			TargetsMet: true,
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Load Profile north (run run-1)")
	assert.Contains(t, out, "Capabilities: smoothing, clustering")
	assert.Contains(t, out, "FY2025")
	assert.Contains(t, out, "8000000")
	assert.Contains(t, out, "worst FY2025 March -> FY2026 April")
	assert.Contains(t, out, "(preserved)")
	assert.Contains(t, out, "(not preserved)")
	assert.Contains(t, out, "Floored hours: 2")
	assert.Contains(t, out, "Warnings (1):")
	assert.Contains(t, out, "All annual targets met")
}
