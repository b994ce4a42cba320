package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. Each instance owns its registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Access control
	AccessDecisions *prometheus.CounterVec

	// Notifications
	NotificationOperations *prometheus.CounterVec
	DeliveryFailures       *prometheus.CounterVec

	// HTTP
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		AccessDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Total number of access decisions by capability and outcome",
		}, []string{"capability", "outcome"}),

		NotificationOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "operations_total",
			Help:      "Total number of notification state changes",
		}, []string{"operation"}),
		DeliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "delivery_failures_total",
			Help:      "Total number of failed best-effort deliveries",
		}, []string{"channel"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path", "status"}),
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) ObserveAccess(capability, outcome string) {
	if m == nil {
		return
	}
	m.AccessDecisions.WithLabelValues(capability, outcome).Inc()
}

func (m *Metrics) ObserveNotification(operation string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.NotificationOperations.WithLabelValues(operation).Add(float64(n))
}

func (m *Metrics) ObserveDeliveryFailure(channel string) {
	if m == nil {
		return
	}
	m.DeliveryFailures.WithLabelValues(channel).Inc()
}
