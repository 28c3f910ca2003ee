package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/microwave/internal/logic"
)

func TestObserveCountsLifecycleOnly(t *testing.T) {
	c := New()
	c.Observe([]logic.Event{
		{Type: logic.EventDigit},
		{Type: logic.EventStarted},
		{Type: logic.EventTick},
		{Type: logic.EventTick},
		{Type: logic.EventFinished},
		{Type: logic.EventStarted},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessionEvents.WithLabelValues("STARTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionEvents.WithLabelValues("FINISHED")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.sessionEvents), "only lifecycle series exist")
}

func TestSetSession(t *testing.T) {
	c := New()
	c.SetSession(logic.Snapshot{
		State:     logic.StateHeating,
		Remaining: 42,
		Outputs:   logic.Outputs{Heater: true, Fan: true, LED: true},
	}, 61)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues("HEATING")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.state.WithLabelValues("IDLE")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.remaining))
	assert.Equal(t, 61.0, testutil.ToFloat64(c.temperature))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outputs.WithLabelValues("heater")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.outputs.WithLabelValues("buzzer")))

	c.SetSession(logic.Snapshot{State: logic.StateFinished, Outputs: logic.Outputs{Buzzer: true}}, 27)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.state.WithLabelValues("HEATING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues("FINISHED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outputs.WithLabelValues("buzzer")))
}

func TestCounters(t *testing.T) {
	c := New()
	c.KeyPressed()
	c.KeyPressed()
	c.HardwareError("keypad")
	c.PublishError()
	c.SetMQTTConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.keypresses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.hardwareErrors.WithLabelValues("keypad")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.publishErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mqttConnected))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.Observe([]logic.Event{{Type: logic.EventPaused}})
	c.SetSession(logic.Snapshot{State: logic.StatePaused, Remaining: 9}, 30)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `microwave_session_events_total{event="PAUSED"} 1`)
	assert.Contains(t, string(body), `microwave_remaining_seconds 9`)
	assert.Contains(t, string(body), `go_goroutines`)
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.KeyPressed()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.keypresses))
}
