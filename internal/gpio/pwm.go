package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// PWM is a single pulse-width modulated output channel.
type PWM interface {
	// SetDuty sets the duty cycle in percent (0..100).
	SetDuty(percent int) error

	// Enable starts or stops the output.
	Enable(on bool) error

	// Close disables and releases the channel.
	Close() error
}

// SysfsPWM drives a channel through the Linux sysfs PWM interface
// (/sys/class/pwm/pwmchipN/pwmM).
type SysfsPWM struct {
	dir    string
	period time.Duration
}

// NewSysfsPWM exports the channel if needed and programs its period.
func NewSysfsPWM(chipDir string, channel int, period time.Duration) (*SysfsPWM, error) {
	dir := filepath.Join(chipDir, "pwm"+strconv.Itoa(channel))
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := writeAttr(filepath.Join(chipDir, "export"), strconv.Itoa(channel)); err != nil {
			return nil, fmt.Errorf("export pwm channel %d: %w", channel, err)
		}
	}
	p := &SysfsPWM{dir: dir, period: period}
	if err := writeAttr(filepath.Join(dir, "period"), strconv.FormatInt(period.Nanoseconds(), 10)); err != nil {
		return nil, fmt.Errorf("set pwm period: %w", err)
	}
	return p, nil
}

// SetDuty sets the duty cycle in percent, clamped to 0..100.
func (p *SysfsPWM) SetDuty(percent int) error {
	percent = min(max(percent, 0), 100)
	ns := p.period.Nanoseconds() * int64(percent) / 100
	if err := writeAttr(filepath.Join(p.dir, "duty_cycle"), strconv.FormatInt(ns, 10)); err != nil {
		return fmt.Errorf("set pwm duty: %w", err)
	}
	return nil
}

// Enable starts or stops the output.
func (p *SysfsPWM) Enable(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	if err := writeAttr(filepath.Join(p.dir, "enable"), v); err != nil {
		return fmt.Errorf("set pwm enable: %w", err)
	}
	return nil
}

// Close disables the output.
func (p *SysfsPWM) Close() error {
	return p.Enable(false)
}

func writeAttr(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}

// FakePWM records duty and enable changes for tests.
type FakePWM struct {
	Duty    int
	Enabled bool
	Duties  []int
	Closed  bool
}

// SetDuty records the duty cycle.
func (f *FakePWM) SetDuty(percent int) error {
	f.Duty = percent
	f.Duties = append(f.Duties, percent)
	return nil
}

// Enable records the output state.
func (f *FakePWM) Enable(on bool) error {
	f.Enabled = on
	return nil
}

// Close marks the channel closed and disabled.
func (f *FakePWM) Close() error {
	f.Enabled = false
	f.Closed = true
	return nil
}
