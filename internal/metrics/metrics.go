package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds the Prometheus metrics of the reply pipeline.
type PipelineMetrics struct {
	OutcomesTotal         *prometheus.CounterVec
	RunsTotal             *prometheus.CounterVec
	RunSeconds            prometheus.Histogram
	ExternalCallSeconds   *prometheus.HistogramVec
	ExternalFailuresTotal *prometheus.CounterVec
	SkippedRunsTotal      prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics with reg.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)

	return &PipelineMetrics{
		OutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replydesk_message_outcomes_total",
				Help: "Terminal message outcomes by state",
			},
			[]string{"state"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replydesk_runs_total",
				Help: "Pipeline runs by result",
			},
			[]string{"result"},
		),
		RunSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "replydesk_run_seconds",
				Help:    "Duration of a pipeline run",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		ExternalCallSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "replydesk_external_call_seconds",
				Help:    "Latency of mailbox and model calls",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"call"},
		),
		ExternalFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replydesk_external_failures_total",
				Help: "Failed mailbox and model calls",
			},
			[]string{"call"},
		),
		SkippedRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "replydesk_skipped_runs_total",
				Help: "Scheduler ticks skipped because a run was still in progress",
			},
		),
	}
}

// ObserveOutcome counts a terminal message state. A nil receiver is a no-op.
func (m *PipelineMetrics) ObserveOutcome(state string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(state).Inc()
}

// ObserveRun records a finished run.
func (m *PipelineMetrics) ObserveRun(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunSeconds.Observe(d.Seconds())
}

// ObserveCall records one external call.
func (m *PipelineMetrics) ObserveCall(call string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ExternalCallSeconds.WithLabelValues(call).Observe(d.Seconds())
	if err != nil {
		m.ExternalFailuresTotal.WithLabelValues(call).Inc()
	}
}

// ObserveSkippedRun counts a skipped scheduler tick.
func (m *PipelineMetrics) ObserveSkippedRun() {
	if m == nil {
		return
	}
	m.SkippedRunsTotal.Inc()
}
