package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	m := NewManager()

	m.EventCaptured("click")
	m.EventCaptured("click")
	m.EventThrottled()
	m.SinkSend("scoring", nil)
	m.SinkSend("scoring", errors.New("down"))
	m.Profile("fallback")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsCaptured.WithLabelValues("click")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsThrottled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sinkSends.WithLabelValues("scoring", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sinkSends.WithLabelValues("scoring", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.profiles.WithLabelValues("fallback")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := NewManager()
	m.Request("analyze", 120*time.Millisecond, nil)
	m.Transition("loading")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "aptitude_collaborator_request_duration_seconds")
	assert.Contains(t, body, `aptitude_session_transitions_total{state="loading"} 1`)
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
