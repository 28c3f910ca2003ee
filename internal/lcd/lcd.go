// Package lcd provides character display drivers.
package lcd

import "errors"

// Display is a character display addressed by column and row, both from zero.
type Display interface {
	Clear() error
	SetCursor(col, row int) error
	WriteByte(b byte) error
	WriteString(s string) error
}

// Geometry describes a character display.
type Geometry struct {
	Cols int
	Rows int
	// RowOffsets are the HD44780 DDRAM start addresses of each row.
	RowOffsets []byte
}

// Geometry16x4 is a 16x4 HD44780 module.
var Geometry16x4 = Geometry{Cols: 16, Rows: 4, RowOffsets: []byte{0x00, 0x40, 0x10, 0x50}}

// next returns the position after (col, row). Text runs on to the start of
// the following row and the last row wraps to the first.
func (g Geometry) next(col, row int) (int, int) {
	col++
	if col < g.Cols {
		return col, row
	}
	return 0, (row + 1) % g.Rows
}

func (g Geometry) clamp(col, row int) (int, int) {
	return min(max(col, 0), g.Cols-1), min(max(row, 0), g.Rows-1)
}

// Tee mirrors every call to several displays.
type Tee []Display

// Clear clears every display.
func (t Tee) Clear() error {
	var errs []error
	for _, d := range t {
		errs = append(errs, d.Clear())
	}
	return errors.Join(errs...)
}

// SetCursor moves every cursor.
func (t Tee) SetCursor(col, row int) error {
	var errs []error
	for _, d := range t {
		errs = append(errs, d.SetCursor(col, row))
	}
	return errors.Join(errs...)
}

// WriteByte writes to every display.
func (t Tee) WriteByte(b byte) error {
	var errs []error
	for _, d := range t {
		errs = append(errs, d.WriteByte(b))
	}
	return errors.Join(errs...)
}

// WriteString writes to every display.
func (t Tee) WriteString(s string) error {
	var errs []error
	for _, d := range t {
		errs = append(errs, d.WriteString(s))
	}
	return errors.Join(errs...)
}
