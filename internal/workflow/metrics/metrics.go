// Package metrics collects Prometheus metrics for the workflow engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	casesStarted  prometheus.Counter
	casesResumed  prometheus.Counter
	suspensions   prometheus.Counter
	stepLatency   *prometheus.HistogramVec
	terminalState *prometheus.CounterVec
}

// New registers and returns the engine metrics.
func New() *Metrics {
	return &Metrics{
		casesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acip_workflow_cases_started_total",
			Help: "Number of case workflows started",
		}),
		casesResumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acip_workflow_cases_resumed_total",
			Help: "Number of suspended cases resumed by a human decision",
		}),
		suspensions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acip_workflow_suspensions_total",
			Help: "Number of cases suspended at the human-review checkpoint",
		}),
		stepLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acip_workflow_step_duration_seconds",
			Help:    "Latency of evidence-gathering steps",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		terminalState: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "acip_workflow_terminal_states_total",
			Help: "Number of cases reaching each terminal state",
		}, []string{"state"}),
	}
}

// IncCasesStarted counts a started workflow.
func (m *Metrics) IncCasesStarted() {
	m.casesStarted.Inc()
}

// IncCasesResumed counts a successful resume.
func (m *Metrics) IncCasesResumed() {
	m.casesResumed.Inc()
}

// IncSuspensions counts a checkpoint suspension.
func (m *Metrics) IncSuspensions() {
	m.suspensions.Inc()
}

// ObserveStepLatency records the latency of one pipeline step.
func (m *Metrics) ObserveStepLatency(step string, d time.Duration) {
	m.stepLatency.WithLabelValues(step).Observe(d.Seconds())
}

// IncTerminalState counts a case reaching a terminal state.
func (m *Metrics) IncTerminalState(state string) {
	m.terminalState.WithLabelValues(state).Inc()
}
