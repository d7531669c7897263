package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels an authentication attempt.
type Outcome string

const (
	// OutcomeSuccess is a successful bind with resolved groups.
	OutcomeSuccess Outcome = "success"
	// OutcomeInvalidCredentials is a bind rejected by the directory.
	OutcomeInvalidCredentials Outcome = "invalid_credentials"
	// OutcomeRejected is an attempt refused before contacting the directory.
	OutcomeRejected Outcome = "rejected"
	// OutcomeError is an operational failure.
	OutcomeError Outcome = "error"
)

// Metrics collects authentication statistics. A nil *Metrics records nothing.
type Metrics struct {
	attempts       *prometheus.CounterVec
	rounds         prometheus.Histogram
	groupsResolved prometheus.Histogram
}

// NewMetrics registers the authentication metrics with reg. Metrics already registered
// at reg, e.g. by an earlier call, are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		attempts: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Number of directory authentication attempts, differentiated by outcome.",
			},
			[]string{"outcome"},
		)),
		rounds: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auth_group_resolution_rounds",
			Help:    "Number of nested group lookup rounds per successful authentication.",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12, 16},
		})),
		groupsResolved: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auth_groups_resolved",
			Help:    "Number of groups resolved per successful authentication.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		})),
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) T {
	if reg == nil {
		return collector
	}

	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}

		panic(err)
	}

	return collector
}

func (m *Metrics) observeAttempt(outcome Outcome) {
	if m == nil {
		return
	}

	m.attempts.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) observeResolution(rounds, groups int) {
	if m == nil {
		return
	}

	m.rounds.Observe(float64(rounds))
	m.groupsResolved.Observe(float64(groups))
}
