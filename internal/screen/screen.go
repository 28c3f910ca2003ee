// Package screen lays out the appliance screens on a 16x4 character display.
package screen

import (
	"fmt"

	"github.com/sweeney/microwave/internal/entry"
	"github.com/sweeney/microwave/internal/lcd"
	"github.com/sweeney/microwave/internal/logic"
)

// Field positions (column, row).
const (
	timeCol, timeRow   = 11, 0
	tempCol, tempRow   = 13, 1
	unitCol            = 15
	statusCol          = 10
	doorRow, loadRow   = 2, 3
	emptyTimeField     = "__:__"
	heatingStatusLine  = "Heating Process "
	heatingOptionsLine = "#:Pause ##:Stop "
)

// Renderer draws screens. Every method returns the first display error, if any.
type Renderer struct {
	d   lcd.Display
	err error
}

// New creates a Renderer on d.
func New(d lcd.Display) *Renderer {
	return &Renderer{d: d}
}

func (r *Renderer) at(col, row int, s string) {
	if r.err != nil {
		return
	}
	if r.err = r.d.SetCursor(col, row); r.err != nil {
		return
	}
	r.err = r.d.WriteString(s)
}

func (r *Renderer) clear() {
	if r.err != nil {
		return
	}
	r.err = r.d.Clear()
}

func (r *Renderer) done() error {
	err := r.err
	r.err = nil
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// Welcome shows the start-up banner.
func (r *Renderer) Welcome() error {
	r.clear()
	r.at(3, 0, "Welcome to")
	r.at(0, 1, "----------------")
	r.at(0, 2, "Session control")
	r.at(7, 3, "MicroWave")
	return r.done()
}

// Home draws the idle screen: entered time, temperature, door and load.
func (r *Renderer) Home(s logic.Snapshot, celsius int) error {
	r.clear()
	r.at(0, timeRow, "Time:")
	r.entryField(s)
	r.at(0, tempRow, "Temperature:")
	r.temperature(celsius)
	r.at(unitCol, tempRow, "c")
	r.statusLines(s)
	return r.done()
}

// Entry redraws the time field while digits are typed.
func (r *Renderer) Entry(s logic.Snapshot) error {
	r.entryField(s)
	return r.done()
}

func (r *Renderer) entryField(s logic.Snapshot) {
	if s.EntryDigits == 0 {
		r.at(timeCol, timeRow, emptyTimeField)
		return
	}
	r.at(timeCol, timeRow, s.Entry)
}

// Remaining redraws the countdown.
func (r *Renderer) Remaining(seconds int) error {
	r.at(timeCol, timeRow, entry.FormatSeconds(seconds))
	return r.done()
}

// Temperature redraws the selected temperature.
func (r *Renderer) Temperature(celsius int) error {
	r.temperature(celsius)
	return r.done()
}

func (r *Renderer) temperature(celsius int) {
	r.at(tempCol, tempRow, fmt.Sprintf("%2d", celsius))
}

// Door redraws the door status value.
func (r *Renderer) Door(door logic.DoorState) error {
	r.at(statusCol, doorRow, doorText(door))
	return r.done()
}

// Load redraws the load status value.
func (r *Renderer) Load(load logic.LoadState) error {
	r.at(statusCol, loadRow, loadText(load))
	return r.done()
}

// Heating draws the countdown screen.
func (r *Renderer) Heating(s logic.Snapshot, celsius int) error {
	r.clear()
	r.at(0, timeRow, "Timer:")
	r.at(timeCol, timeRow, entry.FormatSeconds(s.Remaining))
	r.at(0, tempRow, "Temperature:")
	r.temperature(celsius)
	r.at(unitCol, tempRow, "c")
	r.at(0, doorRow, heatingStatusLine)
	r.at(0, loadRow, heatingOptionsLine)
	return r.done()
}

// Paused replaces the heating status lines with the door and load lines,
// leaving the frozen countdown in place.
func (r *Renderer) Paused(s logic.Snapshot) error {
	r.statusLines(s)
	return r.done()
}

func (r *Renderer) statusLines(s logic.Snapshot) {
	r.at(0, doorRow, "Door:     "+doorText(s.Door))
	r.at(0, loadRow, "Inside:   "+loadText(s.Load))
}

// Finished shows the completion message.
func (r *Renderer) Finished() error {
	r.at(0, 0, "Timer:")
	r.at(timeCol, timeRow, entry.FormatSeconds(0))
	r.at(0, 1, "Heating finished")
	r.at(0, 2, "PRESS '#' to")
	r.at(5, 3, "return home")
	return r.done()
}

// Blank clears the display.
func (r *Renderer) Blank() error {
	r.clear()
	return r.done()
}

func doorText(d logic.DoorState) string {
	if d == logic.DoorOpen {
		return "Opened"
	}
	return "Closed"
}

func loadText(l logic.LoadState) string {
	if l == logic.LoadLoaded {
		return "  Food"
	}
	return "N_Food"
}
