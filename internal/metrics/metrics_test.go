package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New("zb", "test")
	m.ObserveRequest("GET /invoices", http.MethodGet, 200, 12*time.Millisecond)
	m.ObserveRequest("GET /invoices", http.MethodGet, 200, 3*time.Millisecond)
	m.Transition("invoice", "draft", "sent")
	m.Payment("cash", 12.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET /invoices", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("invoice", "draft", "sent")))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.paymentsAmount.WithLabelValues("cash")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("x", "GET", 200, time.Second)
		m.Transition("quote", "sent", "accepted")
		m.Payment("cash", 1)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("zb", "test")
	m.Transition("quote", "draft", "sent")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "zenbilling_document_transitions_total")
}
