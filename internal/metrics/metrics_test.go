package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.Upload("accepted")
	r.Upload("accepted")
	r.Upload("failed")
	r.ChunksIndexed(12)
	r.SecurityEvent("UNSAFE_QUERY", "CRITICAL")

	assert.InDelta(t, 2, testutil.ToFloat64(r.uploads.WithLabelValues("accepted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.uploads.WithLabelValues("failed")), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(r.chunksIndexed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.securityEvents.WithLabelValues("UNSAFE_QUERY", "CRITICAL")), 0)
}

func TestRecorder_Gauges(t *testing.T) {
	r := New()

	r.SetActiveSessions(3)
	r.JobStarted()
	r.JobStarted()
	r.JobFinished()

	assert.InDelta(t, 3, testutil.ToFloat64(r.activeSessions), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.processingQueue), 0)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.Upload("accepted")
		r.ChunksIndexed(1)
		r.Chat("answered", time.Second)
		r.SecurityEvent("UNSAFE_QUERY", "HIGH")
		r.SetActiveSessions(1)
		r.JobStarted()
		r.JobFinished()
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.Chat("answered", 200*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ragdesk_chat_queries_total{outcome="answered"} 1`)
	assert.Contains(t, string(body), "ragdesk_chat_duration_seconds_count 1")
}
