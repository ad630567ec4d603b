package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EventsRecorded.WithLabelValues("ItemAdded").Inc()
	m.EventsRecorded.WithLabelValues("ItemAdded").Inc()
	m.OrdersFailed.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues("ItemAdded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersFailed))

	// a second set on a fresh registry must not collide
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestHandler_ExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.HTTPRequests.WithLabelValues("GET /health", "200").Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `order_replay_http_requests_total{route="GET /health",status="200"} 1`)
}
