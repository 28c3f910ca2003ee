// Package logic contains the pure session logic of the appliance.
// This package has NO I/O (no GPIO, display, MQTT, OS, or time.Sleep).
// Time enters only as Tick and Step calls made by the control loop.
package logic

import "time"

// State is the session state.
type State string

const (
	StateIdle     State = "IDLE"
	StateHeating  State = "HEATING"
	StatePaused   State = "PAUSED"
	StateFinished State = "FINISHED"
)

// DoorState is the debounced door sensor state.
type DoorState string

const (
	DoorClosed DoorState = "CLOSED"
	DoorOpen   DoorState = "OPEN"
)

// LoadState is the debounced load (weight) sensor state.
type LoadState string

const (
	LoadEmpty  LoadState = "EMPTY"
	LoadLoaded LoadState = "LOADED"
)

// EventType names something that happened in the session.
type EventType string

const (
	EventDigit        EventType = "DIGIT"
	EventReset        EventType = "RESET"
	EventStarted      EventType = "STARTED"
	EventResumed      EventType = "RESUMED"
	EventPaused       EventType = "PAUSED"
	EventCancelled    EventType = "CANCELLED"
	EventTick         EventType = "TICK"
	EventFinished     EventType = "FINISHED"
	EventAlarmMessage EventType = "ALARM_MESSAGE"
	EventAlarmBlank   EventType = "ALARM_BLANK"
	EventDismissed    EventType = "DISMISSED"
	EventDoorOpened   EventType = "DOOR_OPENED"
	EventDoorClosed   EventType = "DOOR_CLOSED"
	EventLoadAdded    EventType = "LOAD_ADDED"
	EventLoadRemoved  EventType = "LOAD_REMOVED"
)

// Lifecycle reports whether the event changes the session state and is
// worth publishing. Digit, tick and alarm-phase events are display-only.
func (t EventType) Lifecycle() bool {
	switch t {
	case EventStarted, EventResumed, EventPaused, EventCancelled, EventFinished, EventDismissed:
		return true
	}
	return false
}

// Event is emitted by the Machine. State, Remaining, Door and Load are the
// values after the event was applied.
type Event struct {
	Timestamp time.Time // set by the caller; the machine has no clock
	Type      EventType
	State     State
	Remaining int
	Door      DoorState
	Load      LoadState
}

// Outputs are the desired levels of the side-effect lines. Applying the same
// Outputs twice is harmless.
type Outputs struct {
	Heater bool
	Fan    bool
	LED    bool
	Buzzer bool
	Tick   bool
}

// EventCounts tracks session lifecycle events since startup.
type EventCounts struct {
	Started   int
	Resumed   int
	Paused    int
	Cancelled int
	Finished  int
	Dismissed int
}

// Snapshot is a point-in-time copy of the machine.
type Snapshot struct {
	State       State
	Door        DoorState
	Load        LoadState
	Remaining   int
	Entry       string
	EntryDigits int
	EntryLocked bool
	Outputs     Outputs
	AlarmPhase  int
	Counts      EventCounts
}
