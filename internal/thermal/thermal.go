// Package thermal maps the temperature potentiometer to a setpoint and a fan
// duty cycle.
package thermal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// MaxRaw is the full-scale reading of the 10-bit ADC.
	MaxRaw = 1023
	// Span is the number of selectable degrees above MinCelsius.
	Span = 50
	// MinCelsius is the temperature shown for a zero setting.
	MinCelsius = 27
)

// Reader returns a raw ADC sample in 0..MaxRaw.
type Reader interface {
	ReadRaw() (int, error)
}

// Setting is the selected temperature step, 0..Span.
type Setting int

// FromRaw converts an ADC sample to a setting. Out-of-range samples are clamped.
func FromRaw(raw int) Setting {
	raw = min(max(raw, 0), MaxRaw)
	return Setting(raw * Span / MaxRaw)
}

// Celsius is the temperature shown to the user.
func (s Setting) Celsius() int {
	return int(s) + MinCelsius
}

// Duty is the fan duty cycle in percent. A hotter setting moves less air.
func (s Setting) Duty() int {
	return 100 - int(s)*2
}

// FixedReader always returns the same sample.
type FixedReader int

// ReadRaw returns the fixed sample.
func (f FixedReader) ReadRaw() (int, error) {
	return int(f), nil
}

// IIOReader reads a Linux industrial I/O voltage channel, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw. Samples wider than
// 10 bits are scaled down by Shift.
type IIOReader struct {
	Path  string
	Shift uint
}

// ReadRaw reads and parses one sample.
func (r IIOReader) ReadRaw() (int, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return 0, fmt.Errorf("read adc: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse adc sample %q: %w", strings.TrimSpace(string(data)), err)
	}
	return v >> r.Shift, nil
}
