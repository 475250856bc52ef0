package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLogin(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLogin("CompanyAdmin", "success")
	m.ObserveLogin("CompanyAdmin", "invalid_credential")
	m.ObserveLogin("CompanyAdmin", "invalid_credential")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("CompanyAdmin", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthErrors.WithLabelValues("invalid_credential")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AuthErrors.WithLabelValues("success")))
}

func TestObserveTenantOp(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveTenantOp("create", nil)
	m.ObserveTenantOp("create", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TenantOperations.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TenantOperations.WithLabelValues("create", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveLogin("SuperAdmin", "success")
	m.ObserveHTTP("/health", "GET", 200, time.Millisecond)
	m.ObserveStore("find_operator", time.Now())
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP("/auth/api/v1/login", "POST", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `shakti_http_requests_total{method="POST",route="/auth/api/v1/login",status="200"} 1`)
}
