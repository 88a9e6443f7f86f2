// Package metrics exports generation run statistics to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"load_profile/internal/pipeline"
)

type Metrics struct {
	runs          *prometheus.CounterVec
	duration      prometheus.Histogram
	annualError   *prometheus.GaugeVec
	maxTransition *prometheus.GaugeVec
	warnings      prometheus.Counter
	floored       prometheus.Counter
	dropped       *prometheus.CounterVec
}

// New registers the run metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loadprofile_runs_total",
			Help: "Generation runs by outcome.",
		}, []string{"status"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "loadprofile_run_duration_seconds",
			Help:    "Wall time of successful generation runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		annualError: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loadprofile_annual_error_pct",
			Help: "Relative annual energy error of the last run, in percent.",
		}, []string{"profile_id", "fiscal_year"}),
		maxTransition: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loadprofile_max_month_transition_pct",
			Help: "Largest month-boundary transition of the last run, in percent.",
		}, []string{"profile_id"}),
		warnings: f.NewCounter(prometheus.CounterOpts{
			Name: "loadprofile_warnings_total",
			Help: "Recoverable substitutions recorded across runs.",
		}),
		floored: f.NewCounter(prometheus.CounterOpts{
			Name: "loadprofile_floored_hours_total",
			Help: "Hours raised to the demand floor after enforcement.",
		}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loadprofile_ws_dropped_messages_total",
			Help: "WebSocket messages skipped because a client buffer was full.",
		}, []string{"type"}),
	}
}

// Observe records one finished run. A nil result counts as a failed run.
func (m *Metrics) Observe(r *pipeline.Result) {
	if r == nil {
		m.runs.WithLabelValues("error").Inc()
		return
	}
	m.runs.WithLabelValues("ok").Inc()
	m.duration.Observe(r.Duration.Seconds())
	for _, a := range r.Report.Accuracy {
		if !a.HasTarget {
			continue
		}
		m.annualError.WithLabelValues(r.ProfileID, strconv.Itoa(a.FiscalYear)).Set(a.ErrorPct)
	}
	m.maxTransition.WithLabelValues(r.ProfileID).Set(r.Report.Smoothness.MaxTransitionPct)
	m.warnings.Add(float64(len(r.Warnings)))
	m.floored.Add(float64(r.Floored))
}

// DroppedMessage counts one WebSocket message of msgType that a client missed.
func (m *Metrics) DroppedMessage(msgType string) {
	m.dropped.WithLabelValues(msgType).Inc()
}
