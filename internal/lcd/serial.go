package lcd

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Serial backpack command bytes (HD44780 instruction pass-through).
const (
	cmdPrefix  = 0xFE
	cmdClear   = 0x01
	cmdSetDDRM = 0x80
)

// DefaultBaudRate is the factory setting of common serial LCD backpacks.
const DefaultBaudRate = 9600

// Serial drives an HD44780 module through a serial backpack.
type Serial struct {
	w        io.Writer
	closer   io.Closer
	geom     Geometry
	col, row int
}

// OpenSerial opens the serial port and returns a Serial display.
func OpenSerial(portName string, baudRate int, geom Geometry) (*Serial, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open lcd port %s: %w", portName, err)
	}
	s := NewSerial(port, geom)
	s.closer = port
	return s, nil
}

// NewSerial wraps an already open byte stream.
func NewSerial(w io.Writer, geom Geometry) *Serial {
	return &Serial{w: w, geom: geom}
}

// Clear clears the module and homes the cursor.
func (s *Serial) Clear() error {
	s.col, s.row = 0, 0
	return s.write(cmdPrefix, cmdClear)
}

// SetCursor moves the cursor, clamped to the display.
func (s *Serial) SetCursor(col, row int) error {
	s.col, s.row = s.geom.clamp(col, row)
	return s.write(cmdPrefix, cmdSetDDRM|(s.geom.RowOffsets[s.row]+byte(s.col)))
}

// WriteByte sends one character. At the end of a row the cursor is moved
// explicitly, since DDRAM rows are not contiguous.
func (s *Serial) WriteByte(b byte) error {
	if err := s.write(b); err != nil {
		return err
	}
	col, row := s.geom.next(s.col, s.row)
	if row != s.row {
		return s.SetCursor(col, row)
	}
	s.col = col
	return nil
}

// WriteString sends s from the cursor onward.
func (s *Serial) WriteString(str string) error {
	for i := 0; i < len(str); i++ {
		if err := s.WriteByte(str[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying port, if OpenSerial opened it.
func (s *Serial) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Serial) write(b ...byte) error {
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("lcd write: %w", err)
	}
	return nil
}
