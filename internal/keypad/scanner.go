package keypad

import (
	"fmt"
	"time"

	"github.com/sweeney/microwave/internal/gpio"
)

// DefaultDebounce is how long a candidate press must stay low before it counts.
const DefaultDebounce = 10 * time.Millisecond

// releasePoll is the sampling interval while waiting for a key to be released.
const releasePoll = time.Millisecond

// Scanner drives row lines low one at a time and samples the column lines.
// It holds no state between scans.
type Scanner struct {
	port     gpio.Port
	rows     []gpio.Pin
	cols     []gpio.Pin
	layout   Layout
	debounce time.Duration

	// Sleep is used for the debounce and release waits. Tests replace it.
	Sleep func(time.Duration)
}

// NewScanner creates a scanner for the given lines. The number of rows and
// columns must match the layout.
func NewScanner(port gpio.Port, rows, cols []gpio.Pin, layout Layout, debounce time.Duration) (*Scanner, error) {
	if len(rows) != layout.Rows() || len(cols) != layout.Cols() {
		return nil, fmt.Errorf("keypad layout %s needs %dx%d lines, got %d rows and %d cols",
			layout.Name, layout.Rows(), layout.Cols(), len(rows), len(cols))
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Scanner{
		port:     port,
		rows:     rows,
		cols:     cols,
		layout:   layout,
		debounce: debounce,
		Sleep:    time.Sleep,
	}, nil
}

// Init configures rows as outputs idling high and columns as pulled-up inputs.
func (s *Scanner) Init() error {
	for _, row := range s.rows {
		if err := s.port.SetDirection(row, gpio.Output); err != nil {
			return fmt.Errorf("keypad row: %w", err)
		}
		if err := s.port.Write(row, gpio.High); err != nil {
			return fmt.Errorf("keypad row: %w", err)
		}
	}
	for _, col := range s.cols {
		if err := s.port.SetDirection(col, gpio.Input); err != nil {
			return fmt.Errorf("keypad col: %w", err)
		}
	}
	return nil
}

// Scan returns the key pressed right now, or KeyNone.
//
// A confirmed press blocks until the key is released, so holding a key
// yields exactly one Key. There is no timeout: a stuck key stalls the caller.
func (s *Scanner) Scan() (Key, error) {
	for r, row := range s.rows {
		if err := s.port.Write(row, gpio.Low); err != nil {
			return KeyNone, fmt.Errorf("keypad drive row %d: %w", r, err)
		}

		key, err := s.scanRow(r)

		if rerr := s.port.Write(row, gpio.High); rerr != nil && err == nil {
			err = fmt.Errorf("keypad restore row %d: %w", r, rerr)
		}
		if err != nil {
			return KeyNone, err
		}
		if key != KeyNone {
			return key, nil
		}
	}
	return KeyNone, nil
}

func (s *Scanner) scanRow(r int) (Key, error) {
	for c, col := range s.cols {
		level, err := s.port.Read(col)
		if err != nil {
			return KeyNone, fmt.Errorf("keypad read col %d: %w", c, err)
		}
		if level != gpio.Low {
			continue
		}

		s.Sleep(s.debounce)
		level, err = s.port.Read(col)
		if err != nil {
			return KeyNone, fmt.Errorf("keypad read col %d: %w", c, err)
		}
		if level != gpio.Low {
			continue // bounce
		}

		if err := s.waitRelease(col); err != nil {
			return KeyNone, fmt.Errorf("keypad release col %d: %w", c, err)
		}
		return s.layout.Keys[r][c], nil
	}
	return KeyNone, nil
}

func (s *Scanner) waitRelease(col gpio.Pin) error {
	for {
		level, err := s.port.Read(col)
		if err != nil {
			return err
		}
		if level == gpio.High {
			return nil
		}
		s.Sleep(releasePoll)
	}
}
