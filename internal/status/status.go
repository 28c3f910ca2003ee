// Package status provides a thread-safe status tracker for the microwave daemon.
// The control loop writes it; HTTP handlers and heartbeats read it.
package status

import (
	"slices"
	"sync"
	"time"

	"github.com/sweeney/microwave/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing cmd-level helpers from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	TickMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Layout      string
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Session       logic.Snapshot
	Celsius       int
	Display       []string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Session: logic.Snapshot{
				State: logic.StateIdle,
				Door:  logic.DoorClosed,
				Load:  logic.LoadEmpty,
			},
		},
	}
}

// Update records the session and the selected temperature.
// Called from the control loop on every iteration.
func (t *Tracker) Update(session logic.Snapshot, celsius int) {
	t.mu.Lock()
	t.snap.Session = session
	t.snap.Celsius = celsius
	t.mu.Unlock()
}

// SetDisplay records the visible display lines.
func (t *Tracker) SetDisplay(lines []string) {
	t.mu.Lock()
	t.snap.Display = slices.Clone(lines)
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Display = slices.Clone(t.snap.Display)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
