// Package gpio provides digital pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Pin is a line offset on the GPIO chip (BCM numbering on a Raspberry Pi).
type Pin int

// Level is the electrical level of a pin.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Direction configures a pin as input or output.
type Direction uint8

const (
	Input Direction = iota
	Output
)

// Port reads and drives digital pins.
type Port interface {
	// SetDirection configures the pin. Inputs are pulled up; outputs start low.
	SetDirection(pin Pin, dir Direction) error

	// Write drives an output pin.
	Write(pin Pin, level Level) error

	// Read samples a pin.
	Read(pin Pin) (Level, error)

	// Close releases GPIO resources.
	Close() error
}

// Default pin assignments (BCM numbering).
const (
	DefaultPinDoor   = 5
	DefaultPinLoad   = 6
	DefaultPinHeater = 13
	DefaultPinFan    = 19
	DefaultPinBuzzer = 26
	DefaultPinLED    = 21
)

// DefaultRows and DefaultCols are the keypad matrix lines.
var (
	DefaultRows = []int{17, 27, 22, 23}
	DefaultCols = []int{24, 25, 8, 7}
)
