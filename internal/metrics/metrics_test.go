package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveTurn("SEARCH_WEB", false, time.Second)
	m.ObserveTurn("SEARCH_WEB", true, time.Second)
	m.ObserveTurn("ANALYZE_DATA", false, time.Second)
	m.ObserveCall("search", errors.New("boom"), time.Millisecond)
	m.ObserveRejection()
	m.ObserveHTTP("GET", "/api/v1/health", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("SEARCH_WEB", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("SEARCH_WEB", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PolicyRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/health", "200")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTurn("GENERAL_RESPONSE", false, time.Second)
		m.ObserveCall("completion", nil, time.Second)
		m.ObserveRejection()
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRejection()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "invest_agent_policy_rejections_total 1")
}
