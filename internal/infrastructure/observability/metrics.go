package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Order metrics
	OrdersCreated  *prometheus.CounterVec
	OrderErrors    *prometheus.CounterVec
	GatewayLatency *prometheus.HistogramVec

	// Reconciliation metrics
	Reconciliations   *prometheus.CounterVec
	SignatureFailures *prometheus.CounterVec
	DuplicateEvents   *prometheus.CounterVec
	UnknownReferences *prometheus.CounterVec
	ConflictingEvents *prometheus.CounterVec
	RegistrationsPaid prometheus.Counter

	// Refund metrics
	Refunds *prometheus.CounterVec

	// Monitor metrics
	StalePendingOrders prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Total number of payment orders created, by gateway",
			},
			[]string{"gateway"},
		),
		OrderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_errors_total",
				Help:      "Total number of order creation failures, by gateway and reason",
			},
			[]string{"gateway", "reason"},
		),
		GatewayLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_call_duration_seconds",
				Help:      "Outbound gateway call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"gateway", "operation"},
		),
		Reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Total reconciliation attempts, by gateway, channel and result",
			},
			[]string{"gateway", "channel", "result"},
		),
		SignatureFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signature_failures_total",
				Help:      "Total events rejected for signature mismatch",
			},
			[]string{"gateway", "channel"},
		),
		DuplicateEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_events_total",
				Help:      "Total re-delivered events that were already applied",
			},
			[]string{"gateway", "channel"},
		),
		UnknownReferences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unknown_references_total",
				Help:      "Total events for an external ref with no stored order",
			},
			[]string{"gateway"},
		),
		ConflictingEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conflicting_events_total",
				Help:      "Total verified events claiming a different terminal outcome than stored",
			},
			[]string{"gateway"},
		),
		RegistrationsPaid: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_paid_total",
				Help:      "Total registrations flipped to paid by reconciliation",
			},
		),
		Refunds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refunds_total",
				Help:      "Total refund attempts, by gateway and result",
			},
			[]string{"gateway", "result"},
		),
		StalePendingOrders: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stale_pending_orders",
				Help:      "Pending orders older than the monitor threshold, awaiting manual reconciliation",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	// Register all collectors
	reg.MustRegister(
		m.OrdersCreated,
		m.OrderErrors,
		m.GatewayLatency,
		m.Reconciliations,
		m.SignatureFailures,
		m.DuplicateEvents,
		m.UnknownReferences,
		m.ConflictingEvents,
		m.RegistrationsPaid,
		m.Refunds,
		m.StalePendingOrders,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}
