package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest(http.MethodPost, "/auth/login", http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/auth/login", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	m.GateDecision(DecisionForbidden)
	m.RateLimited("login")

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/auth/login", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues(DecisionForbidden)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("login")))

	n, err := testutil.GatherAndCount(reg, "starwars_api_http_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
		m.GateDecision(DecisionAllowed)
		m.RateLimited("login")
	})
}
