// Package sensor reads the door and load push-buttons. Each press toggles
// the logical state held by the session logic; this package only reports
// presses.
package sensor

import (
	"fmt"
	"time"

	"github.com/sweeney/microwave/internal/gpio"
)

// DefaultDebounce matches the keypad debounce.
const DefaultDebounce = 10 * time.Millisecond

const releasePoll = time.Millisecond

// Switch is an active-low momentary button on one pin.
type Switch struct {
	port     gpio.Port
	pin      gpio.Pin
	debounce time.Duration

	// Sleep is used for the debounce and release waits. Tests replace it.
	Sleep func(time.Duration)
}

// NewSwitch creates a Switch on pin.
func NewSwitch(port gpio.Port, pin gpio.Pin, debounce time.Duration) *Switch {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Switch{
		port:     port,
		pin:      pin,
		debounce: debounce,
		Sleep:    time.Sleep,
	}
}

// Init configures the pin as a pulled-up input.
func (s *Switch) Init() error {
	if err := s.port.SetDirection(s.pin, gpio.Input); err != nil {
		return fmt.Errorf("switch pin %d: %w", s.pin, err)
	}
	return nil
}

// Poll reports one press. A press that survives the debounce re-sample
// blocks until the button is released, so holding it counts once.
func (s *Switch) Poll() (bool, error) {
	level, err := s.port.Read(s.pin)
	if err != nil {
		return false, fmt.Errorf("switch pin %d: %w", s.pin, err)
	}
	if level != gpio.Low {
		return false, nil
	}

	s.Sleep(s.debounce)
	level, err = s.port.Read(s.pin)
	if err != nil {
		return false, fmt.Errorf("switch pin %d: %w", s.pin, err)
	}
	if level != gpio.Low {
		return false, nil
	}

	for {
		level, err = s.port.Read(s.pin)
		if err != nil {
			return false, fmt.Errorf("switch pin %d release: %w", s.pin, err)
		}
		if level == gpio.High {
			return true, nil
		}
		s.Sleep(releasePoll)
	}
}
