package gpio

import "fmt"

// FakePort is a test double that returns scripted pin levels and records writes.
type FakePort struct {
	// Scripts contains scripted levels per input pin.
	// Each Read consumes the next level; the last one repeats.
	// Pins without a script read High (idle pull-up).
	Scripts map[Pin][]Level

	// Directions records the last direction set per pin.
	Directions map[Pin]Direction

	// Levels holds the last level written per output pin.
	Levels map[Pin]Level

	// Writes records every Write call in order.
	Writes []Write

	// Reads counts Read calls per pin.
	Reads map[Pin]int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool

	index map[Pin]int
}

// Write is a single recorded output change.
type Write struct {
	Pin   Pin
	Level Level
}

// NewFakePort creates an empty FakePort.
func NewFakePort() *FakePort {
	return &FakePort{
		Scripts:    make(map[Pin][]Level),
		Directions: make(map[Pin]Direction),
		Levels:     make(map[Pin]Level),
		Reads:      make(map[Pin]int),
		index:      make(map[Pin]int),
	}
}

// Script replaces the scripted read sequence for a pin.
func (f *FakePort) Script(pin Pin, levels ...Level) {
	f.Scripts[pin] = levels
	f.index[pin] = 0
}

// SetDirection records the direction. Outputs start low.
func (f *FakePort) SetDirection(pin Pin, dir Direction) error {
	f.Directions[pin] = dir
	if dir == Output {
		f.Levels[pin] = Low
	}
	return nil
}

// Write records the output level.
func (f *FakePort) Write(pin Pin, level Level) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if d, ok := f.Directions[pin]; !ok || d != Output {
		return fmt.Errorf("pin %d not configured as output", pin)
	}
	f.Levels[pin] = level
	f.Writes = append(f.Writes, Write{Pin: pin, Level: level})
	return nil
}

// Read returns the next scripted level for the pin.
func (f *FakePort) Read(pin Pin) (Level, error) {
	if f.ReadError != nil {
		return Low, f.ReadError
	}
	f.Reads[pin]++

	script := f.Scripts[pin]
	if len(script) == 0 {
		return High, nil
	}
	i := f.index[pin]
	level := script[i]
	if i < len(script)-1 {
		f.index[pin]++
	}
	return level, nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes and rewinds all scripts.
func (f *FakePort) Reset() {
	f.Writes = nil
	f.Closed = false
	for pin := range f.index {
		f.index[pin] = 0
	}
	for pin := range f.Reads {
		delete(f.Reads, pin)
	}
}
