// Package entry accumulates keypad digits into a bounded MM:SS cooking duration.
// It is pure state with no I/O.
package entry

// MaxSeconds is the largest representable duration, 99:59.
const MaxSeconds = 99*60 + 59

// Slot indexes, most significant first.
const (
	minutesTens = iota
	minutesUnits
	secondsTens
	secondsUnits
)

// Encoder is a four-slot rolling digit buffer. Each accepted digit shifts the
// earlier ones one slot toward higher significance and lands in the
// seconds-units slot. Entry locks after the fourth digit.
type Encoder struct {
	slots  [4]int
	count  int
	locked bool
}

// Feed offers one digit. It returns false when the digit was ignored: entry is
// locked, the value is not 0-9, or it would push the duration past 99:59.
func (e *Encoder) Feed(d int) bool {
	if e.locked || d < 0 || d > 9 {
		return false
	}
	if e.count == 3 && e.slots[minutesUnits] == 9 && e.slots[secondsTens] == 9 && e.slots[secondsUnits] >= 6 {
		return false
	}

	e.slots[minutesTens] = e.slots[minutesUnits]
	e.slots[minutesUnits] = e.slots[secondsTens]
	e.slots[secondsTens] = e.slots[secondsUnits]
	e.slots[secondsUnits] = d
	e.count++
	if e.count == len(e.slots) {
		e.locked = true
	}
	return true
}

// Clear zeros every slot and unlocks entry.
func (e *Encoder) Clear() {
	*e = Encoder{}
}

// Lock prevents further digits without changing the entered value.
func (e *Encoder) Lock() {
	e.locked = true
}

// Locked reports whether Feed will reject digits.
func (e *Encoder) Locked() bool {
	return e.locked
}

// Count returns how many digits have been accepted since the last Clear.
func (e *Encoder) Count() int {
	return e.count
}

// TotalSeconds returns the entered duration in seconds.
func (e *Encoder) TotalSeconds() int {
	return e.slots[minutesTens]*600 +
		e.slots[minutesUnits]*60 +
		e.slots[secondsTens]*10 +
		e.slots[secondsUnits]
}

// String renders the slots as "MM:SS".
func (e *Encoder) String() string {
	return string([]byte{
		byte('0' + e.slots[minutesTens]),
		byte('0' + e.slots[minutesUnits]),
		':',
		byte('0' + e.slots[secondsTens]),
		byte('0' + e.slots[secondsUnits]),
	})
}

// FormatSeconds renders a duration in seconds as "MM:SS".
func FormatSeconds(s int) string {
	s = min(max(s, 0), MaxSeconds)
	m, sec := s/60, s%60
	return string([]byte{
		byte('0' + m/10),
		byte('0' + m%10),
		':',
		byte('0' + sec/10),
		byte('0' + sec%10),
	})
}
