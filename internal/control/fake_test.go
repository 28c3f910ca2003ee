package control

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/keypad"
	"github.com/sweeney/microwave/internal/lcd"
	"github.com/sweeney/microwave/internal/metrics"
	"github.com/sweeney/microwave/internal/mqtt"
	"github.com/sweeney/microwave/internal/screen"
	"github.com/sweeney/microwave/internal/status"
)

type keyQueue struct {
	keys []keypad.Key
	err  error
}

func (q *keyQueue) Scan() (keypad.Key, error) {
	if q.err != nil {
		return keypad.KeyNone, q.err
	}
	if len(q.keys) == 0 {
		return keypad.KeyNone, nil
	}
	k := q.keys[0]
	q.keys = q.keys[1:]
	return k, nil
}

type buttonQueue struct {
	presses []bool
	polls   int
	err     error
}

func (b *buttonQueue) Poll() (bool, error) {
	b.polls++
	if b.err != nil {
		return false, b.err
	}
	if len(b.presses) == 0 {
		return false, nil
	}
	p := b.presses[0]
	b.presses = b.presses[1:]
	return p, nil
}

type fakeTicks struct {
	enabled  bool
	flag     chan struct{}
	pending  int
	enables  int
	disables int
}

func newFakeTicks() *fakeTicks {
	return &fakeTicks{flag: make(chan struct{}, 1)}
}

func (f *fakeTicks) Enable() {
	if !f.enabled {
		f.enables++
	}
	f.enabled = true
}

func (f *fakeTicks) Disable() {
	if f.enabled {
		f.disables++
	}
	f.enabled = false
	f.pending = 0
	select {
	case <-f.flag:
	default:
	}
}

func (f *fakeTicks) Flag() <-chan struct{} { return f.flag }

func (f *fakeTicks) Take() int {
	n := f.pending
	f.pending = 0
	return n
}

// fire delivers n elapsed periods if the task is running.
func (f *fakeTicks) fire(n int) {
	if !f.enabled {
		return
	}
	f.pending += n
	select {
	case f.flag <- struct{}{}:
	default:
	}
}

type rawReader struct {
	raw int
	err error
}

func (r *rawReader) ReadRaw() (int, error) { return r.raw, r.err }

var testPins = Actuators{Heater: 13, Fan: 19, Buzzer: 26, LED: 21}

type harness struct {
	c       *Controller
	port    *gpio.FakePort
	keys    *keyQueue
	door    *buttonQueue
	load    *buttonQueue
	ticks   *fakeTicks
	thermal *rawReader
	pwm     *gpio.FakePWM
	buf     *lcd.Buffer
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	metrics *metrics.Collector
	logs    *bytes.Buffer
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		port:    gpio.NewFakePort(),
		keys:    &keyQueue{},
		door:    &buttonQueue{},
		load:    &buttonQueue{},
		ticks:   newFakeTicks(),
		thermal: &rawReader{},
		pwm:     &gpio.FakePWM{},
		buf:     lcd.NewBuffer(lcd.Geometry16x4),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Now(), status.Config{}),
		metrics: metrics.New(),
		logs:    &bytes.Buffer{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	c, err := New(Deps{
		Port:      h.port,
		Actuators: testPins,
		Keypad:    h.keys,
		Door:      h.door,
		Load:      h.load,
		Ticks:     h.ticks,
		Thermal:   h.thermal,
		PWM:       h.pwm,
		Screen:    screen.New(h.buf),
		Display:   h.buf.Lines,
		Publisher: h.pub,
		Tracker:   h.tracker,
		Metrics:   h.metrics,
		Logger:    zerolog.New(zerolog.SyncWriter(h.logs)),
		Now:       func() time.Time { return h.now },
	})
	require.NoError(t, err)
	require.NoError(t, c.Init())
	require.NoError(t, c.d.Screen.Home(c.Snapshot(), c.Celsius()))
	h.c = c
	return h
}

// press feeds keys one per iteration.
func (h *harness) press(keys ...keypad.Key) {
	for _, k := range keys {
		h.keys.keys = append(h.keys.keys, k)
		h.c.Iterate()
	}
}

// loadFood opens the door, registers a load, and closes the door again.
func (h *harness) loadFood() {
	h.door.presses = append(h.door.presses, true)
	h.load.presses = append(h.load.presses, true)
	h.c.Iterate()
	h.door.presses = append(h.door.presses, true)
	h.c.Iterate()
}

// startSession loads food, enters the digits and presses start.
func (h *harness) startSession(digits ...keypad.Key) {
	h.loadFood()
	h.press(digits...)
	h.press(keypad.KeyStart)
}

// lines returns the display rows without trailing spaces.
func (h *harness) lines() []string {
	rows := make([]string, lcd.Geometry16x4.Rows)
	for i := range rows {
		rows[i] = h.buf.Line(i)
	}
	return rows
}

func (h *harness) level(pin gpio.Pin) gpio.Level {
	return h.port.Levels[pin]
}

var errBus = errors.New("bus error")

// countingScanner reports no key and counts scans. Safe to read while Run is active.
type countingScanner struct{ scans atomic.Int64 }

func (s *countingScanner) Scan() (keypad.Key, error) {
	s.scans.Add(1)
	return keypad.KeyNone, nil
}

// stalledPublisher blocks system events until released.
type stalledPublisher struct {
	*mqtt.FakePublisher
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *stalledPublisher) PublishSystem(e mqtt.SystemEvent) error {
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return p.FakePublisher.PublishSystem(e)
}
