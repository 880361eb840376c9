// Package metrics holds the Prometheus collectors of the storefront.
//
// Collectors are registered on a dedicated registry rather than the global
// default so that tests and multiple instances do not collide. All recording
// methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type Metrics struct {
	Registry *prometheus.Registry

	// EventCounter counts conversation events.
	// Labels: kind (command|button|text), outcome (ok|rejected|error)
	EventCounter *prometheus.CounterVec

	// EventDuration measures how long one event takes end to end, store calls included.
	// Labels: kind
	EventDuration *prometheus.HistogramVec

	// CartMutations counts successful cart writes.
	// Labels: op (add|remove)
	CartMutations *prometheus.CounterVec

	// CheckoutCounter tracks the payment flow.
	// Labels: stage (invoice|shipping|pre_checkout|payment), outcome (ok|rejected|error)
	CheckoutCounter *prometheus.CounterVec

	// OrderCounter counts orders handled by the order workers.
	// Labels: outcome (saved|failed)
	OrderCounter *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		EventCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Conversation events handled, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		EventDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_duration_seconds",
				Help:      "Time spent handling one conversation event.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"kind"},
		),
		CartMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cart_mutations_total",
				Help:      "Successful cart writes by operation.",
			},
			[]string{"op"},
		),
		CheckoutCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkout_total",
				Help:      "Checkout steps by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		OrderCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_total",
				Help:      "Paid orders processed by the order workers.",
			},
			[]string{"outcome"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveEvent(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EventCounter.WithLabelValues(kind, outcome).Inc()
	m.EventDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) Checkout(stage, outcome string) {
	if m == nil {
		return
	}
	m.CheckoutCounter.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) Order(outcome string) {
	if m == nil {
		return
	}
	m.OrderCounter.WithLabelValues(outcome).Inc()
}
