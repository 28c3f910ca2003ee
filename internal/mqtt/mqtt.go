// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/microwave/internal/logic"
)

// Topic is the MQTT topic for session events.
const Topic = "appliance/microwave/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "appliance/microwave/system"

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
)

// ReasonDisconnect is the shutdown reason carried by the last-will message.
const ReasonDisconnect = "MQTT_DISCONNECT"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a session event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Microwave SessionPayload `json:"microwave"`
}

// SessionPayload contains the session event details.
type SessionPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Remaining int    `json:"remaining_seconds"`
	Door      string `json:"door"`
	Load      string `json:"load"`
}

// FormatPayload creates the JSON payload for a session event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Microwave: SessionPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			State:     string(event.State),
			Remaining: event.Remaining,
			Door:      string(event.Door),
			Load:      string(event.Load),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
