package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	m := Init(true)
	require.NotNil(t, m)

	metrics, ok := m.(*Metrics)
	require.True(t, ok, "Init(true) should return *Metrics")
	assert.NotNil(t, metrics.LoginsTotal)
	assert.NotNil(t, metrics.HTTPRequestsTotal)

	assert.Same(t, m, Init(true), "collectors are registered once")
}

func TestInitNoop(t *testing.T) {
	m := Init(false)
	_, ok := m.(*NoopMetrics)
	assert.True(t, ok, "Init(false) should return *NoopMetrics")

	called := false
	h := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestRecorders(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())

	m.RecordPasscodeIssued(true)
	m.RecordPasscodeIssued(false)
	m.RecordLogin(LoginUnauthorized)
	m.RecordGuardDecision(GuardForbidden)
	m.RecordNotification(3, 1)
	m.WebSocketOpened()
	m.WebSocketOpened()
	m.WebSocketClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PasscodesIssuedTotal.WithLabelValues(resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PasscodesIssuedTotal.WithLabelValues(resultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues(LoginUnauthorized)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues(GuardForbidden)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.NotificationsSentTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsDroppedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebSocketConnections))
}

func TestHTTPMiddleware_UsesRoutePattern(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/users/{uid}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/users/{uid}", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight))
}
