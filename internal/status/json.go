package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/microwave/internal/entry"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Remaining     int          `json:"remaining_seconds"`
	Timer         string       `json:"timer"`
	Entry         EntryJSON    `json:"entry"`
	Door          string       `json:"door"`
	Load          string       `json:"load"`
	Celsius       int          `json:"temperature_c"`
	Outputs       OutputsJSON  `json:"outputs"`
	Display       []string     `json:"display,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// EntryJSON describes the typed cooking time.
type EntryJSON struct {
	Text   string `json:"text"`
	Digits int    `json:"digits"`
	Locked bool   `json:"locked"`
}

// OutputsJSON reports the driven actuators.
type OutputsJSON struct {
	Heater bool `json:"heater"`
	Fan    bool `json:"fan"`
	LED    bool `json:"led"`
	Buzzer bool `json:"buzzer"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Started   int `json:"started"`
	Resumed   int `json:"resumed"`
	Paused    int `json:"paused"`
	Cancelled int `json:"cancelled"`
	Finished  int `json:"finished"`
	Dismissed int `json:"dismissed"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	TickMs      int64  `json:"tick_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Layout      string `json:"keypad_layout"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	s := snap.Session
	state := string(s.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State:     state,
		Remaining: s.Remaining,
		Timer:     entry.FormatSeconds(s.Remaining),
		Entry: EntryJSON{
			Text:   s.Entry,
			Digits: s.EntryDigits,
			Locked: s.EntryLocked,
		},
		Door:    string(s.Door),
		Load:    string(s.Load),
		Celsius: snap.Celsius,
		Outputs: OutputsJSON{
			Heater: s.Outputs.Heater,
			Fan:    s.Outputs.Fan,
			LED:    s.Outputs.LED,
			Buzzer: s.Outputs.Buzzer,
		},
		Display:       snap.Display,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Started:   s.Counts.Started,
			Resumed:   s.Counts.Resumed,
			Paused:    s.Counts.Paused,
			Cancelled: s.Counts.Cancelled,
			Finished:  s.Counts.Finished,
			Dismissed: s.Counts.Dismissed,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			TickMs:      snap.Config.TickMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Layout:      snap.Config.Layout,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// The display lines are left out to keep retained messages small.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	inner.Display = nil

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
