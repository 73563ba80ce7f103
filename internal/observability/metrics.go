package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	remoteRequestsTotal   *prometheus.CounterVec
	remoteRequestDuration *prometheus.HistogramVec

	storeOpsTotal   *prometheus.CounterVec
	storeOpDuration *prometheus.HistogramVec
	savedAgents     prometheus.Gauge
	sessionActive   prometheus.Gauge

	journalWritesTotal *prometheus.CounterVec
	websocketClients   prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			httpRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total console HTTP requests by route, method and status.",
				},
				[]string{"route", "method", "status"},
			),
			httpRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "Console HTTP request duration in seconds by route.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route"},
			),
			remoteRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "moltbook_requests_total",
					Help: "Total remote API requests by endpoint and outcome.",
				},
				[]string{"endpoint", "status"},
			),
			remoteRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "moltbook_request_duration_seconds",
					Help:    "Remote API request duration in seconds by endpoint.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"endpoint"},
			),
			storeOpsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "credstore_operations_total",
					Help: "Total credential store operations by op and status.",
				},
				[]string{"op", "status"},
			),
			storeOpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "credstore_operation_duration_seconds",
					Help:    "Credential store operation duration in seconds by op.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			savedAgents: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "credstore_saved_agents",
					Help: "Current number of saved agents.",
				},
			),
			sessionActive: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "session_active",
					Help: "Whether an active agent is selected (1 selected, 0 not).",
				},
			),
			journalWritesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "activity_journal_writes_total",
					Help: "Total activity journal writes by kind and status.",
				},
				[]string{"kind", "status"},
			),
			websocketClients: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_clients",
					Help: "Current connected event stream clients.",
				},
			),
		}

		prometheus.MustRegister(
			m.httpRequestsTotal,
			m.httpRequestDuration,
			m.remoteRequestsTotal,
			m.remoteRequestDuration,
			m.storeOpsTotal,
			m.storeOpDuration,
			m.savedAgents,
			m.sessionActive,
			m.journalWritesTotal,
			m.websocketClients,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	m := getMetrics()
	m.httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRemoteRequest records a remote API call. Status is the HTTP status
// code as a string, or "transport_error" when no response arrived.
func RecordRemoteRequest(endpoint, status string, duration time.Duration) {
	m := getMetrics()
	m.remoteRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.remoteRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func RecordStoreOp(op string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.storeOpsTotal.WithLabelValues(op, status).Inc()
	m.storeOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetSessionState updates the saved-agent count and active-selection gauges.
func SetSessionState(savedAgents int, active bool) {
	m := getMetrics()
	m.savedAgents.Set(float64(savedAgents))
	value := 0.0
	if active {
		value = 1.0
	}
	m.sessionActive.Set(value)
}

func RecordJournalWrite(kind string, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.journalWritesTotal.WithLabelValues(kind, status).Inc()
}

func SetWebsocketClients(count int) {
	m := getMetrics()
	m.websocketClients.Set(float64(count))
}
