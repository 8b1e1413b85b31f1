package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// アプリ専用のRegistryに登録する（テストで何度作っても衝突しない）
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	orders       *prometheus.CounterVec
	jobRuns      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "storefront",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms〜約5s
			},
			[]string{"method", "path"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Subsystem: "orders",
				Name:      "attempts_total",
				Help:      "Order creation attempts by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Subsystem: "jobs",
				Name:      "runs_total",
				Help:      "Maintenance job runs.",
			},
			[]string{"job", "success"},
		),
	}

	m.Registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.orders,
		m.jobRuns,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// /metrics用
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(seconds)
}

// source: direct/cart, outcome: created/out_of_stock/...
func (m *Metrics) ObserveOrder(source, outcome string) {
	m.orders.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveJob(job string, ok bool) {
	success := "false"
	if ok {
		success = "true"
	}
	m.jobRuns.WithLabelValues(job, success).Inc()
}
