// Package metrics holds the Prometheus collectors of the service. Each
// Metrics value owns its registry so tests can build as many as they need.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
	payments       *prometheus.CounterVec
	paymentsAmount *prometheus.CounterVec
}

func New(service, env string) *Metrics {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service, "env": env}

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "zenbilling_http_requests_total",
			Help:        "HTTP requests by route pattern, method and status code.",
			ConstLabels: constLabels,
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "zenbilling_http_request_duration_seconds",
			Help:        "HTTP request latency by route pattern.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			ConstLabels: constLabels,
		}, []string{"route", "method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "zenbilling_document_transitions_total",
			Help:        "Status transitions applied to invoices and quotes.",
			ConstLabels: constLabels,
		}, []string{"kind", "from", "to"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "zenbilling_payments_total",
			Help:        "Payments recorded, by method.",
			ConstLabels: constLabels,
		}, []string{"method"}),
		paymentsAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "zenbilling_payments_amount_total",
			Help:        "Sum of recorded payment amounts, by method.",
			ConstLabels: constLabels,
		}, []string{"method"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.transitions, m.payments, m.paymentsAmount,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) Transition(kind, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, from, to).Inc()
}

func (m *Metrics) Payment(method string, amount float64) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method).Inc()
	m.paymentsAmount.WithLabelValues(method).Add(amount)
}
