package screen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/microwave/internal/lcd"
	"github.com/sweeney/microwave/internal/logic"
)

func newTestRenderer() (*Renderer, *lcd.Buffer) {
	buf := lcd.NewBuffer(lcd.Geometry16x4)
	return New(buf), buf
}

func TestHomeEmpty(t *testing.T) {
	r, buf := newTestRenderer()
	s := logic.Snapshot{Door: logic.DoorClosed, Load: logic.LoadEmpty}

	require.NoError(t, r.Home(s, 27))
	assert.Equal(t, []string{
		"Time:      __:__",
		"Temperature: 27c",
		"Door:     Closed",
		"Inside:   N_Food",
	}, buf.Lines())
}

func TestHomeWithEntry(t *testing.T) {
	r, buf := newTestRenderer()
	s := logic.Snapshot{Entry: "01:30", EntryDigits: 3, Door: logic.DoorOpen, Load: logic.LoadLoaded}

	require.NoError(t, r.Home(s, 52))
	assert.Equal(t, "Time:      01:30", buf.Line(0))
	assert.Equal(t, "Temperature: 52c", buf.Line(1))
	assert.Equal(t, "Door:     Opened", buf.Line(2))
	assert.Equal(t, "Inside:     Food", buf.Line(3))
}

func TestFieldUpdates(t *testing.T) {
	r, buf := newTestRenderer()
	require.NoError(t, r.Home(logic.Snapshot{Door: logic.DoorClosed, Load: logic.LoadEmpty}, 27))

	require.NoError(t, r.Entry(logic.Snapshot{Entry: "00:07", EntryDigits: 1}))
	require.NoError(t, r.Temperature(9))
	require.NoError(t, r.Door(logic.DoorOpen))
	require.NoError(t, r.Load(logic.LoadLoaded))

	assert.Equal(t, []string{
		"Time:      00:07",
		"Temperature:  9c",
		"Door:     Opened",
		"Inside:     Food",
	}, buf.Lines())
}

func TestHeatingAndPaused(t *testing.T) {
	r, buf := newTestRenderer()
	s := logic.Snapshot{Remaining: 125, Door: logic.DoorClosed, Load: logic.LoadLoaded}

	require.NoError(t, r.Heating(s, 40))
	assert.Equal(t, []string{
		"Timer:     02:05",
		"Temperature: 40c",
		"Heating Process ",
		"#:Pause ##:Stop ",
	}, buf.Lines())

	require.NoError(t, r.Remaining(124))
	assert.Equal(t, "Timer:     02:04", buf.Line(0))

	require.NoError(t, r.Paused(s))
	assert.Equal(t, "Timer:     02:04", buf.Line(0))
	assert.Equal(t, "Door:     Closed", buf.Line(2))
	assert.Equal(t, "Inside:     Food", buf.Line(3))
}

func TestFinishedAndBlank(t *testing.T) {
	r, buf := newTestRenderer()
	require.NoError(t, r.Finished())
	assert.Equal(t, "Timer:     00:00", buf.Line(0))
	assert.Equal(t, "Heating finished", buf.Line(1))
	assert.Equal(t, "PRESS '#' to", buf.Line(2))
	assert.Equal(t, "     return home", buf.Line(3))

	require.NoError(t, r.Blank())
	for i := 0; i < 4; i++ {
		assert.Equal(t, "", buf.Line(i))
	}
}

func TestWelcome(t *testing.T) {
	r, buf := newTestRenderer()
	require.NoError(t, r.Welcome())
	assert.Equal(t, "   Welcome to", buf.Line(0))
	assert.Equal(t, "       MicroWave", buf.Line(3))
}

type brokenDisplay struct{ *lcd.Buffer }

func (brokenDisplay) SetCursor(int, int) error { return errors.New("i2c nack") }

func TestErrorIsReportedOnceAndCleared(t *testing.T) {
	r := New(brokenDisplay{lcd.NewBuffer(lcd.Geometry16x4)})
	err := r.Home(logic.Snapshot{}, 27)
	assert.ErrorContains(t, err, "i2c nack")

	assert.NoError(t, r.Blank(), "sticky error resets after being returned")
}
