// Package metrics exposes session and hardware counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/microwave/internal/logic"
)

var states = []logic.State{logic.StateIdle, logic.StateHeating, logic.StatePaused, logic.StateFinished}

// Collector owns a private registry so tests and the daemon do not share
// global state.
type Collector struct {
	reg *prometheus.Registry

	sessionEvents  *prometheus.CounterVec
	keypresses     prometheus.Counter
	hardwareErrors *prometheus.CounterVec
	publishErrors  prometheus.Counter
	state          *prometheus.GaugeVec
	remaining      prometheus.Gauge
	temperature    prometheus.Gauge
	outputs        *prometheus.GaugeVec
	mqttConnected  prometheus.Gauge
}

// New registers the collectors, plus the Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		reg: reg,
		sessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "microwave_session_events_total",
			Help: "Session lifecycle events by type",
		}, []string{"event"}),
		keypresses: f.NewCounter(prometheus.CounterOpts{
			Name: "microwave_keypresses_total",
			Help: "Debounced keypad presses",
		}),
		hardwareErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "microwave_hardware_errors_total",
			Help: "Hardware access failures by source",
		}, []string{"source"}), // source=keypad|door|load|thermal|output|display
		publishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "microwave_publish_errors_total",
			Help: "Failed MQTT publishes",
		}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "microwave_state",
			Help: "Current session state (1 for the active state)",
		}, []string{"state"}),
		remaining: f.NewGauge(prometheus.GaugeOpts{
			Name: "microwave_remaining_seconds",
			Help: "Seconds left on the timer",
		}),
		temperature: f.NewGauge(prometheus.GaugeOpts{
			Name: "microwave_temperature_celsius",
			Help: "Selected temperature",
		}),
		outputs: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "microwave_output_on",
			Help: "Actuator state (1 when driven)",
		}, []string{"output"}),
		mqttConnected: f.NewGauge(prometheus.GaugeOpts{
			Name: "microwave_mqtt_connected",
			Help: "Whether the MQTT connection is up",
		}),
	}
}

// Observe counts lifecycle events.
func (c *Collector) Observe(events []logic.Event) {
	for _, e := range events {
		if e.Type.Lifecycle() {
			c.sessionEvents.WithLabelValues(string(e.Type)).Inc()
		}
	}
}

// SetSession updates the state, timer, temperature and output gauges.
func (c *Collector) SetSession(s logic.Snapshot, celsius int) {
	for _, st := range states {
		c.state.WithLabelValues(string(st)).Set(boolFloat(st == s.State))
	}
	c.remaining.Set(float64(s.Remaining))
	c.temperature.Set(float64(celsius))
	c.outputs.WithLabelValues("heater").Set(boolFloat(s.Outputs.Heater))
	c.outputs.WithLabelValues("fan").Set(boolFloat(s.Outputs.Fan))
	c.outputs.WithLabelValues("led").Set(boolFloat(s.Outputs.LED))
	c.outputs.WithLabelValues("buzzer").Set(boolFloat(s.Outputs.Buzzer))
}

// KeyPressed counts one keypad press.
func (c *Collector) KeyPressed() { c.keypresses.Inc() }

// HardwareError counts one failed hardware access.
func (c *Collector) HardwareError(source string) {
	c.hardwareErrors.WithLabelValues(source).Inc()
}

// PublishError counts one failed MQTT publish.
func (c *Collector) PublishError() { c.publishErrors.Inc() }

// SetMQTTConnected records the broker connection state.
func (c *Collector) SetMQTTConnected(connected bool) {
	c.mqttConnected.Set(boolFloat(connected))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
