package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics for the scheduling engine
type Metrics struct {
	FlightsMaterialized prometheus.Counter
	StatusTransitions   *prometheus.CounterVec
	EventsPublished     prometheus.Counter
	CommandDuration     prometheus.Histogram
	ErrorsCount         *prometheus.CounterVec
}

// NewMetrics creates prometheus metrics registered on the given registerer;
// pass prometheus.DefaultRegisterer in production
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FlightsMaterialized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_materialized_total",
			Help:      "The total number of flights materialized from schedules",
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "The total number of flight status transitions",
		}, []string{"status"}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "The total number of domain events published",
		}),
		CommandDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_processing_time_seconds",
			Help:      "Time taken to process inbound commands",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
