// Package observability provides the Prometheus metrics surface
// shared by the orchestrator, container supervisor, and model runner.
// Grounded on the teacher's centralized Metrics struct
// (promauto-registered Counter/Gauge/HistogramVec fields plus one
// named recorder method per event), narrowed to this spec's event
// set: session lifecycle, task outcomes, container pool occupancy,
// and LLM retry counts.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics centralizes every counter/gauge/histogram builder-6 emits.
// A nil *Metrics is valid everywhere it's consumed — every Record*
// method is a no-op on a nil receiver, so components can be
// constructed without one and wired up later via SetMetrics.
type Metrics struct {
	// SessionsCreated counts sessions by their initial status.
	SessionsCreated *prometheus.CounterVec

	// SessionsFinished counts sessions by terminal status (COMPLETED,
	// FAILED, DEADLINE_EXCEEDED).
	SessionsFinished *prometheus.CounterVec

	// TasksFinished counts tasks by the terminal status their ReAct
	// loop ended with (COMPLETED, FAILED). Tasks cancelled by plan
	// refinement are not counted.
	TasksFinished *prometheus.CounterVec

	// ReactLoopSteps observes how many ReAct iterations a task took
	// before reaching a terminal status.
	ReactLoopSteps prometheus.Histogram

	// ContainersActive gauges current registered containers.
	ContainersActive *prometheus.GaugeVec

	// ContainersDestroyed counts container destructions, including
	// idle reaps.
	ContainersDestroyed *prometheus.CounterVec

	// LLMRetries counts retry attempts for transient upstream
	// failures, by provider.
	LLMRetries *prometheus.CounterVec

	// LLMRequestsFinal counts generation calls by provider and
	// outcome (success|fatal|prompt_too_large).
	LLMRequestsFinal *prometheus.CounterVec
}

// NewMetrics registers and returns builder-6's metric set. Call once
// at process startup.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder6_sessions_created_total",
				Help: "Total number of sessions created, by initial status.",
			},
			[]string{"status"},
		),
		SessionsFinished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder6_sessions_finished_total",
				Help: "Total number of sessions reaching a terminal status.",
			},
			[]string{"status"},
		),
		TasksFinished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder6_tasks_finished_total",
				Help: "Total number of tasks reaching a terminal status.",
			},
			[]string{"status"},
		),
		ReactLoopSteps: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "builder6_react_loop_steps",
				Help:    "Number of ReAct loop iterations a task took before a terminal status.",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 40, 50},
			},
		),
		ContainersActive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "builder6_containers_active",
				Help: "Current registered containers, by group.",
			},
			[]string{"group_id"},
		),
		ContainersDestroyed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder6_containers_destroyed_total",
				Help: "Total number of container destructions, by reason.",
			},
			[]string{"reason"},
		),
		LLMRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder6_llm_retries_total",
				Help: "Total number of retry attempts for transient upstream failures.",
			},
			[]string{"provider"},
		),
		LLMRequestsFinal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder6_llm_requests_total",
				Help: "Total number of generation calls by provider and final outcome.",
			},
			[]string{"provider", "outcome"},
		),
	}
}

// RecordSessionCreated records a new session in the given status.
func (m *Metrics) RecordSessionCreated(status string) {
	if m == nil {
		return
	}
	m.SessionsCreated.WithLabelValues(status).Inc()
}

// RecordSessionFinished records a session reaching a terminal status.
func (m *Metrics) RecordSessionFinished(status string) {
	if m == nil {
		return
	}
	m.SessionsFinished.WithLabelValues(status).Inc()
}

// RecordTaskFinished records a task reaching a terminal status and
// the number of ReAct steps it took.
func (m *Metrics) RecordTaskFinished(status string, steps int) {
	if m == nil {
		return
	}
	m.TasksFinished.WithLabelValues(status).Inc()
	m.ReactLoopSteps.Observe(float64(steps))
}

// SetContainersActive sets the current container count for groupID.
func (m *Metrics) SetContainersActive(groupID string, count int) {
	if m == nil {
		return
	}
	m.ContainersActive.WithLabelValues(groupID).Set(float64(count))
}

// RecordContainerDestroyed records a container destruction, tagged by
// reason ("explicit" or "idle_reap").
func (m *Metrics) RecordContainerDestroyed(reason string) {
	if m == nil {
		return
	}
	m.ContainersDestroyed.WithLabelValues(reason).Inc()
}

// RecordLLMRetry records a retry attempt against provider.
func (m *Metrics) RecordLLMRetry(provider string) {
	if m == nil {
		return
	}
	m.LLMRetries.WithLabelValues(provider).Inc()
}

// RecordLLMRequestFinal records a generation call's terminal outcome.
func (m *Metrics) RecordLLMRequestFinal(provider, outcome string) {
	if m == nil {
		return
	}
	m.LLMRequestsFinal.WithLabelValues(provider, outcome).Inc()
}
