package logic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/microwave/internal/keypad"
)

func eventTypes(events []Event) []EventType {
	var types []EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func press(m *Machine, keys ...keypad.Key) []Event {
	var events []Event
	for _, k := range keys {
		events = append(events, m.PressKey(k)...)
	}
	return events
}

// readyMachine returns an Idle machine with food inside, the door closed and
// the given digits entered.
func readyMachine(t *testing.T, digits ...keypad.Key) *Machine {
	t.Helper()
	m := NewMachine()
	m.ToggleDoor()
	m.ToggleLoad()
	m.ToggleDoor()
	require.Equal(t, DoorClosed, m.Door())
	require.Equal(t, LoadLoaded, m.Load())
	press(m, digits...)
	return m
}

func heatingMachine(t *testing.T, digits ...keypad.Key) *Machine {
	t.Helper()
	m := readyMachine(t, digits...)
	events := m.PressKey(keypad.KeyStart)
	require.Equal(t, []EventType{EventStarted}, eventTypes(events))
	return m
}

func TestNewMachine(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, DoorClosed, m.Door())
	assert.Equal(t, LoadEmpty, m.Load())
	assert.Equal(t, 0, m.Remaining())
	assert.Equal(t, Outputs{}, m.Outputs())
	assert.False(t, m.EntryLocked())
}

func TestDigitsSetRemaining(t *testing.T) {
	m := NewMachine()
	events := press(m, keypad.Key1, keypad.Key3, keypad.Key0)

	assert.Equal(t, []EventType{EventDigit, EventDigit, EventDigit}, eventTypes(events))
	assert.Equal(t, 90, m.Remaining())
	assert.Equal(t, "01:30", m.Entry())
	assert.Equal(t, 90, events[2].Remaining)
}

func TestRejectedDigitEmitsNothing(t *testing.T) {
	m := NewMachine()
	press(m, keypad.Key9, keypad.Key9, keypad.Key6)
	events := m.PressKey(keypad.Key0)
	assert.Empty(t, events)
	assert.Equal(t, 9*60+96, m.Remaining())
	assert.False(t, m.EntryLocked())
}

func TestStartWithZeroRemainingNeverLeavesIdle(t *testing.T) {
	for _, door := range []DoorState{DoorClosed, DoorOpen} {
		for _, load := range []LoadState{LoadEmpty, LoadLoaded} {
			m := NewMachine()
			m.door, m.load = door, load

			events := m.PressKey(keypad.KeyStart)
			assert.Empty(t, events, "door=%s load=%s", door, load)
			assert.Equal(t, StateIdle, m.State())
			assert.False(t, m.Outputs().Heater)
		}
	}
}

func TestStartGuards(t *testing.T) {
	tests := []struct {
		name string
		door DoorState
		load LoadState
		want State
	}{
		{"closed and loaded", DoorClosed, LoadLoaded, StateHeating},
		{"door open", DoorOpen, LoadLoaded, StateIdle},
		{"empty", DoorClosed, LoadEmpty, StateIdle},
		{"open and empty", DoorOpen, LoadEmpty, StateIdle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			press(m, keypad.Key3, keypad.Key0)
			m.door, m.load = tt.door, tt.load

			m.PressKey(keypad.KeyStart)
			assert.Equal(t, tt.want, m.State())
		})
	}
}

func TestStartLocksEntryAndDrivesOutputs(t *testing.T) {
	m := heatingMachine(t, keypad.Key4, keypad.Key5)

	assert.True(t, m.EntryLocked())
	assert.Equal(t, Outputs{Heater: true, Fan: true, LED: true, Tick: true}, m.Outputs())

	events := press(m, keypad.Key1, keypad.Key2)
	assert.Empty(t, events)
	assert.Equal(t, 45, m.Remaining())
}

func TestTickCountsDown(t *testing.T) {
	m := heatingMachine(t, keypad.Key3)

	events := m.Tick()
	assert.Equal(t, []EventType{EventTick}, eventTypes(events))
	assert.Equal(t, 2, m.Remaining())

	m.Tick()
	events = m.Tick()
	want := []Event{
		{Type: EventTick, State: StateHeating, Remaining: 0, Door: DoorClosed, Load: LoadLoaded},
		{Type: EventFinished, State: StateFinished, Remaining: 0, Door: DoorClosed, Load: LoadLoaded},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Outputs{}, m.Outputs())

	assert.Empty(t, m.Tick(), "ticks after finishing are dropped")
	assert.Equal(t, 0, m.Remaining())
}

func TestTickIgnoredOutsideHeating(t *testing.T) {
	m := readyMachine(t, keypad.Key5)
	assert.Empty(t, m.Tick())
	assert.Equal(t, 5, m.Remaining())
}

func TestPauseKeepsRemainingAndLock(t *testing.T) {
	m := heatingMachine(t, keypad.Key1, keypad.Key0)
	m.Tick()

	events := m.PressKey(keypad.KeyPauseCancel)
	assert.Equal(t, []EventType{EventPaused}, eventTypes(events))
	assert.Equal(t, StatePaused, m.State())
	assert.Equal(t, 9, m.Remaining())
	assert.True(t, m.EntryLocked())
	assert.Equal(t, Outputs{}, m.Outputs())

	assert.Empty(t, press(m, keypad.Key7), "digits are locked while paused")
	assert.Empty(t, m.Tick())
	assert.Equal(t, 9, m.Remaining())
}

func TestResumeRequiresGuards(t *testing.T) {
	m := heatingMachine(t, keypad.Key2, keypad.Key0)
	m.PressKey(keypad.KeyPauseCancel)

	// Take the food out.
	m.ToggleDoor()
	m.ToggleLoad()
	assert.Empty(t, m.PressKey(keypad.KeyStart), "door open")

	m.ToggleDoor()
	assert.Empty(t, m.PressKey(keypad.KeyStart), "no food")

	m.ToggleDoor()
	m.ToggleLoad()
	assert.Empty(t, m.PressKey(keypad.KeyStart), "door still open")

	m.ToggleDoor()
	events := m.PressKey(keypad.KeyStart)
	assert.Equal(t, []EventType{EventResumed}, eventTypes(events))
	assert.Equal(t, StateHeating, m.State())
	assert.Equal(t, 20, m.Remaining())
	assert.Equal(t, 1, m.Counts().Resumed)
}

func TestCancelFromPaused(t *testing.T) {
	m := heatingMachine(t, keypad.Key4, keypad.Key0)
	m.PressKey(keypad.KeyPauseCancel)

	events := m.PressKey(keypad.KeyPauseCancel)
	assert.Equal(t, []EventType{EventCancelled}, eventTypes(events))
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, 0, m.Remaining())
	assert.False(t, m.EntryLocked())
	assert.Equal(t, 0, m.EntryDigits())
}

func TestResetInIdleIsIdempotent(t *testing.T) {
	m := NewMachine()
	press(m, keypad.Key1, keypad.Key5)

	for i := 0; i < 3; i++ {
		events := m.PressKey(keypad.KeyPauseCancel)
		assert.Equal(t, []EventType{EventReset}, eventTypes(events))
		assert.Equal(t, StateIdle, m.State())
		assert.Equal(t, 0, m.Remaining())
		assert.Equal(t, "00:00", m.Entry())
	}
}

func TestLoadOnlyWithDoorOpen(t *testing.T) {
	m := NewMachine()
	assert.Empty(t, m.ToggleLoad())
	assert.Equal(t, LoadEmpty, m.Load())

	assert.Equal(t, []EventType{EventDoorOpened}, eventTypes(m.ToggleDoor()))
	assert.Equal(t, []EventType{EventLoadAdded}, eventTypes(m.ToggleLoad()))
	assert.Equal(t, []EventType{EventLoadRemoved}, eventTypes(m.ToggleLoad()))
	assert.Equal(t, []EventType{EventDoorClosed}, eventTypes(m.ToggleDoor()))
}

func TestSensorsIgnoredWhileHeating(t *testing.T) {
	m := heatingMachine(t, keypad.Key9)
	assert.Empty(t, m.ToggleDoor())
	assert.Empty(t, m.ToggleLoad())
	assert.Empty(t, m.PressKey(keypad.KeyStart))
	assert.Empty(t, m.PressKey(keypad.KeyA))
	assert.Equal(t, DoorClosed, m.Door())
	assert.Equal(t, StateHeating, m.State())
}

func finishedMachine(t *testing.T) *Machine {
	t.Helper()
	m := heatingMachine(t, keypad.Key1)
	m.Tick()
	require.Equal(t, StateFinished, m.State())
	return m
}

func TestAlarmCycle(t *testing.T) {
	m := finishedMachine(t)

	assert.Equal(t, []EventType{EventAlarmMessage}, eventTypes(m.Step()))
	for i := 1; i < 250; i++ {
		assert.Empty(t, m.Step())
		assert.False(t, m.Outputs().Buzzer, "phase %d should be silent", i)
	}
	assert.Equal(t, []EventType{EventAlarmBlank}, eventTypes(m.Step()))
	for i := 251; i < 500; i++ {
		assert.Empty(t, m.Step())
		assert.True(t, m.Outputs().Buzzer, "phase %d should sound", i)
	}
	// phase 500 wraps
	assert.Empty(t, m.Step())
	assert.Equal(t, 0, m.Snapshot().AlarmPhase)
	assert.False(t, m.Outputs().Buzzer, "buzzer off once the cycle wraps")
	assert.Equal(t, []EventType{EventAlarmMessage}, eventTypes(m.Step()))
	assert.False(t, m.Outputs().Buzzer, "buzzer off while the message shows")
	assert.Empty(t, m.Step())
	assert.False(t, m.Outputs().Buzzer)
	assert.False(t, m.Outputs().Heater)
	assert.False(t, m.Outputs().Tick)
}

func TestStepOutsideFinishedDoesNothing(t *testing.T) {
	m := heatingMachine(t, keypad.Key5)
	assert.Empty(t, m.Step())
	assert.True(t, m.Outputs().Heater)
}

func TestDismissWithKey(t *testing.T) {
	m := finishedMachine(t)
	for i := 0; i < 300; i++ {
		m.Step()
	}
	require.True(t, m.Outputs().Buzzer)

	events := m.PressKey(keypad.KeyPauseCancel)
	assert.Equal(t, []EventType{EventDismissed}, eventTypes(events))
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, 0, m.Remaining())
	assert.False(t, m.EntryLocked())
	assert.Equal(t, Outputs{}, m.Outputs())

	// A fresh session is possible straight away.
	press(m, keypad.Key5)
	assert.Equal(t, 5, m.Remaining())
}

func TestDismissWithDoor(t *testing.T) {
	m := finishedMachine(t)
	m.Step()

	events := m.ToggleDoor()
	assert.Equal(t, []EventType{EventDoorOpened, EventDismissed}, eventTypes(events))
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, DoorOpen, m.Door())
	assert.False(t, m.EntryLocked())
}

func TestFinishedIgnoresStartDigitsAndLoad(t *testing.T) {
	m := finishedMachine(t)
	assert.Empty(t, press(m, keypad.KeyStart, keypad.Key3))
	assert.Empty(t, m.ToggleLoad())
	assert.Equal(t, StateFinished, m.State())
}

func TestAlarmPhaseResetsOnEachFinish(t *testing.T) {
	m := finishedMachine(t)
	for i := 0; i < 100; i++ {
		m.Step()
	}
	m.PressKey(keypad.KeyPauseCancel)

	press(m, keypad.Key1)
	m.PressKey(keypad.KeyStart)
	m.Tick()
	require.Equal(t, StateFinished, m.State())
	assert.Equal(t, []EventType{EventAlarmMessage}, eventTypes(m.Step()))
}

func TestCounts(t *testing.T) {
	m := heatingMachine(t, keypad.Key2)
	m.PressKey(keypad.KeyPauseCancel)
	m.PressKey(keypad.KeyStart)
	m.Tick()
	m.Tick()
	m.PressKey(keypad.KeyPauseCancel)

	want := EventCounts{Started: 1, Resumed: 1, Paused: 1, Finished: 1, Dismissed: 1}
	assert.Equal(t, want, m.Counts())
}

func TestLifecycle(t *testing.T) {
	assert.True(t, EventStarted.Lifecycle())
	assert.True(t, EventDismissed.Lifecycle())
	assert.False(t, EventTick.Lifecycle())
	assert.False(t, EventDigit.Lifecycle())
}
