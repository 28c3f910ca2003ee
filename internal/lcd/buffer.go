package lcd

import (
	"strings"
	"sync"
)

// Buffer is an in-memory display. The control loop writes to it and the
// status page reads it, so it is safe for concurrent use.
type Buffer struct {
	mu       sync.RWMutex
	geom     Geometry
	cells    [][]byte
	col, row int
	clears   int
}

// NewBuffer creates a blank Buffer.
func NewBuffer(geom Geometry) *Buffer {
	b := &Buffer{geom: geom}
	b.cells = make([][]byte, geom.Rows)
	for i := range b.cells {
		b.cells[i] = make([]byte, geom.Cols)
	}
	b.blank()
	return b
}

func (b *Buffer) blank() {
	for _, line := range b.cells {
		for i := range line {
			line[i] = ' '
		}
	}
	b.col, b.row = 0, 0
}

// Clear blanks every cell and homes the cursor.
func (b *Buffer) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blank()
	b.clears++
	return nil
}

// SetCursor moves the cursor, clamped to the display.
func (b *Buffer) SetCursor(col, row int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.col, b.row = b.geom.clamp(col, row)
	return nil
}

// WriteByte stores one character and advances the cursor.
func (b *Buffer) WriteByte(c byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.put(c)
	return nil
}

// WriteString stores s from the cursor onward.
func (b *Buffer) WriteString(s string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < len(s); i++ {
		b.put(s[i])
	}
	return nil
}

func (b *Buffer) put(c byte) {
	b.cells[b.row][b.col] = c
	b.col, b.row = b.geom.next(b.col, b.row)
}

// Lines returns the visible text, one string per row.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lines := make([]string, len(b.cells))
	for i, line := range b.cells {
		lines[i] = string(line)
	}
	return lines
}

// Line returns one row with trailing spaces removed.
func (b *Buffer) Line(row int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if row < 0 || row >= len(b.cells) {
		return ""
	}
	return strings.TrimRight(string(b.cells[row]), " ")
}

// Clears returns how many times Clear was called.
func (b *Buffer) Clears() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.clears
}
