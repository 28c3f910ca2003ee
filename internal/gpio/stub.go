//go:build !linux

package gpio

import "errors"

// RealPort is not available on non-Linux platforms.
type RealPort struct{}

// NewRealPort returns an error on non-Linux platforms.
func NewRealPort(chipName string) (*RealPort, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetDirection is not implemented on non-Linux platforms.
func (p *RealPort) SetDirection(pin Pin, dir Direction) error {
	return errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (p *RealPort) Write(pin Pin, level Level) error {
	return errors.New("gpio: not supported")
}

// Read is not implemented on non-Linux platforms.
func (p *RealPort) Read(pin Pin) (Level, error) {
	return Low, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealPort) Close() error {
	return nil
}
