package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultLabel  = "result"
	OutcomeLabel = "outcome"
)

// To add new metrics:
// 1. Register new metrics in RegisterPlanner() below.
// 2. Add an Emit function the planner or CLI can call.
var (
	attemptDurationSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "satplan_attempt_duration_seconds",
			Help:       "The duration of a single encode, solve and extract attempt at one horizon",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{ResultLabel},
	)

	attemptCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satplan_attempts_total",
			Help: "Monotonic count of horizon attempts by solver result",
		},
		[]string{ResultLabel},
	)

	searchDurationSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "satplan_search_duration_seconds",
			Help:       "The duration of a complete horizon search",
			Objectives: map[float64]float64{0.95: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{OutcomeLabel},
	)

	planHorizon = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satplan_last_plan_horizon",
			Help: "Number of steps of the most recently found plan",
		},
	)
)

func RegisterPlanner() {
	prometheus.MustRegister(attemptDurationSummary)
	prometheus.MustRegister(attemptCount)
	prometheus.MustRegister(searchDurationSummary)
	prometheus.MustRegister(planHorizon)
}

func EmitAttempt(result string, duration time.Duration) {
	attemptCount.WithLabelValues(result).Inc()
	attemptDurationSummary.WithLabelValues(result).Observe(duration.Seconds())
}

func EmitSearch(outcome string, duration time.Duration) {
	searchDurationSummary.WithLabelValues(outcome).Observe(duration.Seconds())
}

func EmitPlanHorizon(steps int) {
	planHorizon.Set(float64(steps))
}
