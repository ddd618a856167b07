package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics — счётчики операций склада и HTTP-запросов.
type Metrics struct {
	ops        *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
	requests   *prometheus.CounterVec
	gatherer   prometheus.Gatherer
}

// New регистрирует коллекторы в reg. В main это DefaultRegisterer, в тестах — NewRegistry().
func New(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sims",
			Name:      "ledger_operations_total",
			Help:      "Inventory operations by type and result.",
		}, []string{"op", "result"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sims",
			Name:      "ledger_operation_duration_seconds",
			Help:      "Inventory operation latency including the transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sims",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		gatherer: g,
	}
	reg.MustRegister(m.ops, m.opDuration, m.requests)
	return m
}

func (m *Metrics) ObserveOp(op, result string, elapsed time.Duration) {
	m.ops.WithLabelValues(op, result).Inc()
	m.opDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
