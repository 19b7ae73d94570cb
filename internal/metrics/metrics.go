package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdftools",
			Name:      "operations_total",
			Help:      "Tool operations by tool and result (success, rejected, failed, superseded)",
		},
		[]string{"tool", "result"},
	)

	operationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdftools",
			Name:      "operation_duration_seconds",
			Help:      "Duration of tool operations by tool",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	pagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdftools",
			Name:      "pages_processed_total",
			Help:      "Pages rendered, copied or stamped by tool",
		},
		[]string{"tool"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pdftools",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory",
		},
	)

	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pdftools",
			Name:      "operations_inflight",
			Help:      "Heavy operations currently holding a limiter slot",
		},
	)

	limiterRejects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdftools",
			Name:      "limiter_rejections_total",
			Help:      "Operations that gave up waiting for a limiter slot",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(operations, operationLatency, pagesProcessed, activeSessions, inflight, limiterRejects)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// ObserveOperation records one finished tool run.
func ObserveOperation(tool, result string, dur time.Duration) {
	operations.WithLabelValues(tool, result).Inc()
	operationLatency.WithLabelValues(tool).Observe(dur.Seconds())
}

func IncPages(tool string)    { pagesProcessed.WithLabelValues(tool).Inc() }
func SetActiveSessions(n int) { activeSessions.Set(float64(n)) }
func IncInflight()            { inflight.Inc() }
func DecInflight()            { inflight.Dec() }
func IncLimiterReject()       { limiterRejects.Inc() }
