package keypad

import (
	"github.com/sweeney/microwave/internal/gpio"
)

// FakeMatrix is a test double for a keypad wired to a gpio.Port. A column
// reads low only while the row of a pressed key is driven low.
type FakeMatrix struct {
	*gpio.FakePort

	rows []gpio.Pin
	cols []gpio.Pin

	presses []press
}

type press struct {
	row, col int
	reads    int // column reads that still see the contact closed
}

// NewFakeMatrix creates a FakeMatrix for the given lines.
func NewFakeMatrix(rows, cols []gpio.Pin) *FakeMatrix {
	return &FakeMatrix{
		FakePort: gpio.NewFakePort(),
		rows:     rows,
		cols:     cols,
	}
}

// Press queues a press at (row, col) that stays closed for the given number
// of column samples. One sample is a bounce; two or more survive the debounce
// re-sample; anything larger is a held key.
func (m *FakeMatrix) Press(row, col, reads int) {
	m.presses = append(m.presses, press{row: row, col: col, reads: reads})
}

// Pending reports how many queued presses have not been fully released.
func (m *FakeMatrix) Pending() int {
	return len(m.presses)
}

// Read reports the column level given the currently driven rows.
func (m *FakeMatrix) Read(pin gpio.Pin) (gpio.Level, error) {
	if m.ReadError != nil {
		return gpio.Low, m.ReadError
	}
	m.Reads[pin]++

	if len(m.presses) == 0 {
		return gpio.High, nil
	}
	p := &m.presses[0]
	if m.cols[p.col] != pin {
		return gpio.High, nil
	}
	if level, ok := m.Levels[m.rows[p.row]]; !ok || level != gpio.Low {
		return gpio.High, nil
	}

	p.reads--
	if p.reads <= 0 {
		m.presses = m.presses[1:]
	}
	return gpio.Low, nil
}
