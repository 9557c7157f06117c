package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ Recorder = (*Metrics)(nil)

// Metrics holds the Prometheus collectors for the API and WebSocket servers.
type Metrics struct {
	// Authentication
	PasscodesIssuedTotal *prometheus.CounterVec
	LoginsTotal          *prometheus.CounterVec
	GuardDecisionsTotal  *prometheus.CounterVec

	// Notifications
	NotificationsSentTotal    prometheus.Counter
	NotificationsDroppedTotal prometheus.Counter
	WebSocketConnections      prometheus.Gauge

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns Prometheus-backed metrics when enabled, otherwise a no-op
// recorder. Collectors are registered with the default registry only once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PasscodesIssuedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blabbermouth_passcodes_issued_total",
				Help: "Total number of passcode requests",
			},
			[]string{"result"}, // success, error
		),
		LoginsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blabbermouth_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"}, // success, unauthorized, error
		),
		GuardDecisionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blabbermouth_guard_decisions_total",
				Help: "Authorization guard outcomes on user-scoped routes",
			},
			[]string{"result"}, // allowed, unauthorized, forbidden
		),
		NotificationsSentTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "blabbermouth_notifications_sent_total",
				Help: "Config update messages queued to subscribers",
			},
		),
		NotificationsDroppedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "blabbermouth_notifications_dropped_total",
				Help: "Config update messages dropped because a subscriber queue was full",
			},
		),
		WebSocketConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "blabbermouth_websocket_connections",
				Help: "Current number of registered subscriber connections",
			},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
	}
}

const (
	resultSuccess = "success"
	resultError   = "error"
)

func (m *Metrics) RecordPasscodeIssued(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.PasscodesIssuedTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLogin(result string) {
	m.LoginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordGuardDecision(result string) {
	m.GuardDecisionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordNotification(delivered, dropped int) {
	m.NotificationsSentTotal.Add(float64(delivered))
	m.NotificationsDroppedTotal.Add(float64(dropped))
}

func (m *Metrics) WebSocketOpened() { m.WebSocketConnections.Inc() }
func (m *Metrics) WebSocketClosed() { m.WebSocketConnections.Dec() }
