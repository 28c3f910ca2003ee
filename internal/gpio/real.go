//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealPort drives pins on actual hardware using the Linux GPIO character device.
// Lines are requested lazily by SetDirection.
type RealPort struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[Pin]*gpiocdev.Line
}

// NewRealPort opens the named GPIO chip (e.g. "gpiochip0").
func NewRealPort(chipName string) (*RealPort, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealPort{
		chip:  chip,
		lines: make(map[Pin]*gpiocdev.Line),
	}, nil
}

// SetDirection requests or reconfigures the line. Inputs use the internal
// pull-up since keypad columns and the sensor buttons are active low.
func (p *RealPort) SetDirection(pin Pin, dir Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.lines[pin]; ok {
		if err := l.Reconfigure(configOptions(dir)...); err != nil {
			return fmt.Errorf("reconfigure pin %d: %w", pin, err)
		}
		return nil
	}

	l, err := p.chip.RequestLine(int(pin), requestOptions(dir)...)
	if err != nil {
		return fmt.Errorf("request pin %d: %w", pin, err)
	}
	p.lines[pin] = l
	return nil
}

func configOptions(dir Direction) []gpiocdev.LineConfigOption {
	if dir == Output {
		return []gpiocdev.LineConfigOption{gpiocdev.AsOutput(int(Low))}
	}
	return []gpiocdev.LineConfigOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
}

func requestOptions(dir Direction) []gpiocdev.LineReqOption {
	if dir == Output {
		return []gpiocdev.LineReqOption{gpiocdev.AsOutput(int(Low))}
	}
	return []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
}

// Write drives an output pin.
func (p *RealPort) Write(pin Pin, level Level) error {
	l, err := p.line(pin)
	if err != nil {
		return err
	}
	if err := l.SetValue(int(level)); err != nil {
		return fmt.Errorf("write pin %d: %w", pin, err)
	}
	return nil
}

// Read samples a pin.
func (p *RealPort) Read(pin Pin) (Level, error) {
	l, err := p.line(pin)
	if err != nil {
		return Low, err
	}
	v, err := l.Value()
	if err != nil {
		return Low, fmt.Errorf("read pin %d: %w", pin, err)
	}
	if v == 0 {
		return Low, nil
	}
	return High, nil
}

func (p *RealPort) line(pin Pin) (*gpiocdev.Line, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.lines[pin]
	if !ok {
		return nil, fmt.Errorf("pin %d not configured", pin)
	}
	return l, nil
}

// Close releases GPIO resources.
// Lines are returned to inputs before closing so the heater and buzzer
// are not left driven across a restart.
func (p *RealPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for pin, l := range p.lines {
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
		delete(p.lines, pin)
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		p.chip = nil
	}
	return errors.Join(errs...)
}
