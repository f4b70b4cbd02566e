package infra

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"recipe-gateway/middleware/ratelimit/domain"
)

// PromStatsStore expõe as decisões como métricas Prometheus.
//
// A chave do cliente nunca vira label (cardinalidade); só rota e resultado.
type PromStatsStore struct {
	decisions *prometheus.CounterVec
	remaining prometheus.Histogram
}

func NewPromStatsStore(reg prometheus.Registerer) *PromStatsStore {
	s := &PromStatsStore{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_gateway_quota_decisions_total",
				Help: "Admission decisions by route and outcome",
			},
			[]string{"route", "outcome"},
		),
		remaining: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_gateway_quota_remaining",
				Help:    "Remaining quota reported on admitted requests",
				Buckets: prometheus.LinearBuckets(0, 1, domain.Ceiling),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(s.decisions, s.remaining)
	}
	return s
}

func (s *PromStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path
	if !ev.Allowed {
		s.decisions.WithLabelValues(route, "denied").Inc()
		return nil
	}
	s.decisions.WithLabelValues(route, "allowed").Inc()
	s.remaining.Observe(float64(ev.Remaining))
	return nil
}
