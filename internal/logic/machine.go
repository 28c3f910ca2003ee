package logic

import (
	"github.com/sweeney/microwave/internal/entry"
	"github.com/sweeney/microwave/internal/keypad"
)

// Alarm cycle phases, counted in control-loop iterations.
const (
	alarmBlankPhase = 250
	alarmWrapPhase  = 500
)

// Machine sequences a cooking session: Idle -> Heating <-> Paused -> Finished -> Idle.
// It is driven by the control loop and is not safe for concurrent use.
type Machine struct {
	state      State
	door       DoorState
	load       LoadState
	remaining  int
	entry      entry.Encoder
	out        Outputs
	alarmPhase int
	counts     EventCounts
}

// NewMachine returns a machine in Idle with the door closed and nothing inside.
func NewMachine() *Machine {
	return &Machine{
		state: StateIdle,
		door:  DoorClosed,
		load:  LoadEmpty,
	}
}

// PressKey applies one logical key. Keys with no meaning in the current
// state are ignored.
func (m *Machine) PressKey(k keypad.Key) []Event {
	switch m.state {
	case StateIdle:
		switch {
		case k.IsDigit():
			if !m.entry.Feed(k.Digit()) {
				return nil
			}
			m.remaining = m.entry.TotalSeconds()
			return m.emit(EventDigit)
		case k == keypad.KeyStart:
			return m.start(EventStarted)
		case k == keypad.KeyPauseCancel:
			m.reset()
			return m.emit(EventReset)
		}

	case StateHeating:
		if k == keypad.KeyPauseCancel {
			m.state = StatePaused
			m.out = Outputs{}
			return m.emit(EventPaused)
		}

	case StatePaused:
		switch k {
		case keypad.KeyStart:
			return m.start(EventResumed)
		case keypad.KeyPauseCancel:
			m.state = StateIdle
			m.reset()
			return m.emit(EventCancelled)
		}

	case StateFinished:
		if k == keypad.KeyPauseCancel {
			return m.dismiss()
		}
	}
	return nil
}

// ToggleDoor flips the door state after a debounced sensor press. The door
// is not watched while heating.
func (m *Machine) ToggleDoor() []Event {
	if m.state == StateHeating {
		return nil
	}

	ev := EventDoorOpened
	if m.door == DoorOpen {
		m.door = DoorClosed
		ev = EventDoorClosed
	} else {
		m.door = DoorOpen
	}
	events := m.emit(ev)

	if m.state == StateFinished && m.door == DoorOpen {
		events = append(events, m.dismiss()...)
	}
	return events
}

// ToggleLoad flips the load state. The load sensor is only trusted with the
// door open, and only watched in Idle and Paused.
func (m *Machine) ToggleLoad() []Event {
	if m.door != DoorOpen || (m.state != StateIdle && m.state != StatePaused) {
		return nil
	}

	if m.load == LoadLoaded {
		m.load = LoadEmpty
		return m.emit(EventLoadRemoved)
	}
	m.load = LoadLoaded
	return m.emit(EventLoadAdded)
}

// Tick applies one elapsed second. Ticks outside Heating are dropped.
func (m *Machine) Tick() []Event {
	if m.state != StateHeating || m.remaining <= 0 {
		return nil
	}

	m.remaining--
	events := m.emit(EventTick)
	if m.remaining == 0 {
		m.state = StateFinished
		m.out = Outputs{}
		m.alarmPhase = 0
		events = append(events, m.emit(EventFinished)...)
	}
	return events
}

// Step advances the alarm cycle by one control-loop iteration while Finished:
// phase 0 shows the finished message, 1-249 are silent, 250 blanks the
// screen, 251-499 sound the buzzer, then the cycle restarts.
func (m *Machine) Step() []Event {
	if m.state != StateFinished {
		return nil
	}

	m.out.Heater, m.out.Fan, m.out.LED, m.out.Tick = false, false, false, false
	m.out.Buzzer = false

	switch {
	case m.alarmPhase == 0:
		m.alarmPhase++
		return m.emit(EventAlarmMessage)
	case m.alarmPhase < alarmBlankPhase:
		m.alarmPhase++
	case m.alarmPhase == alarmBlankPhase:
		m.alarmPhase++
		return m.emit(EventAlarmBlank)
	case m.alarmPhase < alarmWrapPhase:
		m.alarmPhase++
		m.out.Buzzer = true
	default:
		m.alarmPhase = 0
	}
	return nil
}

func (m *Machine) start(ev EventType) []Event {
	if m.remaining <= 0 || m.door != DoorClosed || m.load != LoadLoaded {
		return nil
	}
	m.entry.Lock()
	m.state = StateHeating
	m.out = Outputs{Heater: true, Fan: true, LED: true, Tick: true}
	return m.emit(ev)
}

func (m *Machine) dismiss() []Event {
	m.state = StateIdle
	m.out = Outputs{}
	m.alarmPhase = 0
	m.reset()
	return m.emit(EventDismissed)
}

func (m *Machine) reset() {
	m.entry.Clear()
	m.remaining = 0
}

func (m *Machine) emit(t EventType) []Event {
	switch t {
	case EventStarted:
		m.counts.Started++
	case EventResumed:
		m.counts.Resumed++
	case EventPaused:
		m.counts.Paused++
	case EventCancelled:
		m.counts.Cancelled++
	case EventFinished:
		m.counts.Finished++
	case EventDismissed:
		m.counts.Dismissed++
	}
	return []Event{{
		Type:      t,
		State:     m.state,
		Remaining: m.remaining,
		Door:      m.door,
		Load:      m.load,
	}}
}

// State returns the current session state.
func (m *Machine) State() State { return m.state }

// Door returns the current door state.
func (m *Machine) Door() DoorState { return m.door }

// Load returns the current load state.
func (m *Machine) Load() LoadState { return m.load }

// Remaining returns the seconds left on the session.
func (m *Machine) Remaining() int { return m.remaining }

// Outputs returns the desired side-effect levels.
func (m *Machine) Outputs() Outputs { return m.out }

// EntryLocked reports whether digit entry is locked.
func (m *Machine) EntryLocked() bool { return m.entry.Locked() }

// EntryDigits returns how many digits have been entered.
func (m *Machine) EntryDigits() int { return m.entry.Count() }

// Entry renders the entered duration as "MM:SS".
func (m *Machine) Entry() string { return m.entry.String() }

// Counts returns lifecycle event counts since startup.
func (m *Machine) Counts() EventCounts { return m.counts }

// Snapshot returns a copy of the machine state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:       m.state,
		Door:        m.door,
		Load:        m.load,
		Remaining:   m.remaining,
		Entry:       m.entry.String(),
		EntryDigits: m.entry.Count(),
		EntryLocked: m.entry.Locked(),
		Outputs:     m.out,
		AlarmPhase:  m.alarmPhase,
		Counts:      m.counts,
	}
}
