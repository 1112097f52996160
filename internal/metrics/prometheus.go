// Package metrics provides Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ragulnathMB/tenant-api-gateway/internal/apierrors"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge
	forwardTotal        *prometheus.CounterVec
	forwardDuration     *prometheus.HistogramVec
	catalogOpsTotal     *prometheus.CounterVec
	probesTotal         *prometheus.CounterVec
}

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apigw_http_requests_total",
				Help: "Total number of inbound HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apigw_http_request_duration_seconds",
				Help:    "Inbound HTTP request duration in seconds",
				Buckets: durationBuckets,
			},
			[]string{"method", "route"},
		),
		httpInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "apigw_http_requests_in_flight",
				Help: "Number of inbound HTTP requests currently being served",
			},
		),
		forwardTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apigw_forward_requests_total",
				Help: "Forwarded requests by outcome",
			},
			[]string{"outcome"},
		),
		forwardDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apigw_forward_duration_seconds",
				Help:    "Time spent forwarding a request, including the upstream call",
				Buckets: durationBuckets,
			},
			[]string{"outcome"},
		),
		catalogOpsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apigw_catalog_operations_total",
				Help: "Catalog manager operations by result",
			},
			[]string{"op", "result"},
		),
		probesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apigw_liveness_probes_total",
				Help: "Liveness probes by result",
			},
			[]string{"working"},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Result labels err with its gateway kind, or "ok".
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(apierrors.KindOf(err).String())
}

func (m *Metrics) ObserveCatalogOp(op string, err error) {
	if m == nil {
		return
	}
	m.catalogOpsTotal.WithLabelValues(op, Result(err)).Inc()
}

// ObserveForward records one forward. outcome is "relayed" for any upstream
// response, otherwise the error kind. Tenant ids are caller supplied and stay
// out of the labels.
func (m *Metrics) ObserveForward(err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "relayed"
	if err != nil {
		outcome = Result(err)
	}
	m.forwardTotal.WithLabelValues(outcome).Inc()
	m.forwardDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveProbe(working bool) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(strconv.FormatBool(working)).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) IncInFlight() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

func (m *Metrics) DecInFlight() {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
}
