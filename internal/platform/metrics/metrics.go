package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	WaitlistViews     *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	PlacementsCreated prometheus.Counter
	PlacementsEnded   prometheus.Counter
}

// New creates and registers all Prometheus metrics against the given
// registerer. Tests pass a fresh registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WaitlistViews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "daycare_waitlist_views_total",
			Help: "Total number of waitlist views served, by ranking policy",
		}, []string{"policy"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "daycare_choice_status_transitions_total",
			Help: "Total number of application choice status transitions, by new status",
		}, []string{"status"}),
		PlacementsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "daycare_placements_created_total",
			Help: "Total number of placements created by accept transitions",
		}),
		PlacementsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "daycare_placements_ended_total",
			Help: "Total number of placements ended",
		}),
	}
}
