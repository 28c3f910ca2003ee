// Package keypad scans a row/column matrix keypad and turns raw pin levels
// into single-shot logical keys.
package keypad

import (
	"fmt"
	"strconv"
)

// Key is a logical key produced by one scan.
type Key int8

// Digit keys carry their own value, so Key(3) is the "3" key.
const (
	Key0 Key = iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyStart       // '*'
	KeyPauseCancel // '#'
	KeyA
	KeyB
	KeyC
	KeyD

	KeyNone Key = -1
)

// IsDigit reports whether k is one of Key0..Key9.
func (k Key) IsDigit() bool {
	return k >= Key0 && k <= Key9
}

// Digit returns the decimal value of a digit key, or -1.
func (k Key) Digit() int {
	if !k.IsDigit() {
		return -1
	}
	return int(k)
}

func (k Key) String() string {
	switch {
	case k.IsDigit():
		return strconv.Itoa(int(k))
	case k == KeyStart:
		return "*"
	case k == KeyPauseCancel:
		return "#"
	case k >= KeyA && k <= KeyD:
		return string(rune('A' + int(k-KeyA)))
	case k == KeyNone:
		return "NONE"
	}
	return fmt.Sprintf("Key(%d)", int8(k))
}

// Layout maps a (row, col) position to a key.
type Layout struct {
	Name string
	Keys [][]Key
}

// Rows returns the number of row lines the layout needs.
func (l Layout) Rows() int { return len(l.Keys) }

// Cols returns the number of column lines the layout needs.
func (l Layout) Cols() int {
	if len(l.Keys) == 0 {
		return 0
	}
	return len(l.Keys[0])
}

// Layout3x4 is the 12-key phone pad: 3 columns by 4 rows.
var Layout3x4 = Layout{
	Name: "3x4",
	Keys: [][]Key{
		{Key1, Key2, Key3},
		{Key4, Key5, Key6},
		{Key7, Key8, Key9},
		{KeyStart, Key0, KeyPauseCancel},
	},
}

// Layout4x4 adds the A-D column, which the session logic ignores.
var Layout4x4 = Layout{
	Name: "4x4",
	Keys: [][]Key{
		{Key1, Key2, Key3, KeyA},
		{Key4, Key5, Key6, KeyB},
		{Key7, Key8, Key9, KeyC},
		{KeyStart, Key0, KeyPauseCancel, KeyD},
	},
}

// LayoutByName returns the named layout ("3x4" or "4x4").
func LayoutByName(name string) (Layout, error) {
	switch name {
	case Layout3x4.Name:
		return Layout3x4, nil
	case Layout4x4.Name:
		return Layout4x4, nil
	}
	return Layout{}, fmt.Errorf("unknown keypad layout %q", name)
}
