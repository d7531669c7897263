package auth

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

func (r *GroupResolver) Resolve(ctx context.Context, sess *Session, username string) ([]string, error) {
	groups, _, err := r.resolve(ctx, sess, username)

	return groups, err
}

func (m *Metrics) Attempts(outcome Outcome) prometheus.Counter {
	return m.attempts.WithLabelValues(string(outcome))
}
