package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the delivery pipeline counters on a private registry so
// tests can assert against a clean slate.
type Metrics struct {
	Registry            *prometheus.Registry
	EventsReceived      prometheus.Counter
	DeliveriesSucceeded prometheus.Counter
	DeliveriesFailed    prometheus.Counter
	RetryAttempts       prometheus.Counter
	DeliveryLatency     prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_received_total",
			Help: "Events accepted by the ingest endpoint, duplicates included.",
		}),
		DeliveriesSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deliveries_succeeded_total",
			Help: "Events delivered downstream with a 2xx response.",
		}),
		DeliveriesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deliveries_failed_total",
			Help: "Events that exhausted their attempts or failed permanently.",
		}),
		RetryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Delivery attempts that were scheduled for a retry.",
		}),
		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delivery_latency_seconds",
			Help:    "Wall-clock duration of downstream delivery requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		m.EventsReceived,
		m.DeliveriesSucceeded,
		m.DeliveriesFailed,
		m.RetryAttempts,
		m.DeliveryLatency,
	)
	return m
}
