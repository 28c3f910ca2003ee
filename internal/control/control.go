// Package control runs the cooperative control loop. The Controller owns the
// session machine and every device it talks to; nothing else mutates session
// state.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/keypad"
	"github.com/sweeney/microwave/internal/logic"
	"github.com/sweeney/microwave/internal/metrics"
	"github.com/sweeney/microwave/internal/mqtt"
	"github.com/sweeney/microwave/internal/screen"
	"github.com/sweeney/microwave/internal/status"
	"github.com/sweeney/microwave/internal/thermal"
)

// KeyScanner returns at most one debounced key per call.
type KeyScanner interface {
	Scan() (keypad.Key, error)
}

// Button reports one debounced press per call.
type Button interface {
	Poll() (bool, error)
}

// Ticks is the countdown task as seen from the loop.
type Ticks interface {
	Enable()
	Disable()
	Flag() <-chan struct{}
	Take() int
}

// Actuators are the output lines driven from logic.Outputs.
type Actuators struct {
	Heater gpio.Pin
	Fan    gpio.Pin
	Buzzer gpio.Pin
	LED    gpio.Pin
}

// Deps are the collaborators of a Controller. Publisher, Tracker, Metrics,
// PWM and Display may be nil.
type Deps struct {
	Port      gpio.Port
	Actuators Actuators
	Keypad    KeyScanner
	Door      Button
	Load      Button
	Ticks     Ticks
	Thermal   thermal.Reader
	PWM       gpio.PWM
	Screen    *screen.Renderer
	Display   func() []string // visible lines for the status page
	Publisher mqtt.Publisher
	Tracker   *status.Tracker
	Metrics   *metrics.Collector
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Controller is the explicit context of the control loop.
type Controller struct {
	d       Deps
	machine *logic.Machine

	applied     logic.Outputs
	haveApplied bool
	setting     thermal.Setting
	haveSetting bool
}

// New validates deps and returns a Controller in Idle.
func New(d Deps) (*Controller, error) {
	switch {
	case d.Port == nil:
		return nil, errors.New("control: port is required")
	case d.Keypad == nil:
		return nil, errors.New("control: keypad is required")
	case d.Door == nil || d.Load == nil:
		return nil, errors.New("control: door and load switches are required")
	case d.Ticks == nil:
		return nil, errors.New("control: tick source is required")
	case d.Thermal == nil:
		return nil, errors.New("control: thermal reader is required")
	case d.Screen == nil:
		return nil, errors.New("control: screen is required")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Controller{d: d, machine: logic.NewMachine()}, nil
}

// Init configures the actuator lines and drives everything off.
func (c *Controller) Init() error {
	for _, pin := range c.pins() {
		if err := c.d.Port.SetDirection(pin, gpio.Output); err != nil {
			return fmt.Errorf("actuator pin %d: %w", pin, err)
		}
	}
	c.applyOutputs()
	c.sampleTemperature()
	return nil
}

func (c *Controller) pins() []gpio.Pin {
	a := c.d.Actuators
	return []gpio.Pin{a.Heater, a.Fan, a.Buzzer, a.LED}
}

// Welcome shows the start-up banner for d, then the home screen.
func (c *Controller) Welcome(ctx context.Context, d time.Duration) error {
	if err := c.d.Screen.Welcome(); err != nil {
		c.hardwareError("display", err)
	}
	c.publishDisplay()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	c.render(c.d.Screen.Home(c.machine.Snapshot(), c.setting.Celsius()))
	c.refreshStatus()
	return nil
}

// Run repeats Iterate every poll interval until ctx is done, then turns every
// actuator off. A positive heartbeat publishes a status snapshot periodically
// from its own goroutine so a slow broker never delays a poll.
func (c *Controller) Run(ctx context.Context, poll, heartbeat time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var wg sync.WaitGroup
	if heartbeat > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.heartbeatLoop(ctx, heartbeat)
		}()
	}

	c.d.Logger.Info().Dur("poll", poll).Dur("heartbeat", heartbeat).Msg("control loop started")
	for {
		select {
		case <-ctx.Done():
			c.Shutdown()
			wg.Wait()
			return nil
		case <-ticker.C:
			c.Iterate()
		}
	}
}

func (c *Controller) heartbeatLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.heartbeat()
		}
	}
}

// Iterate performs one pass of the loop: temperature, sensors, keypad,
// countdown, alarm, then outputs, display and publishing.
func (c *Controller) Iterate() {
	var events []logic.Event

	state := c.machine.State()
	if state != logic.StateFinished {
		if c.sampleTemperature() {
			c.render(c.d.Screen.Temperature(c.setting.Celsius()))
		}
	}

	switch state {
	case logic.StateIdle, logic.StatePaused:
		if c.poll(c.d.Door, "door") {
			events = append(events, c.machine.ToggleDoor()...)
		}
		if c.machine.Door() == logic.DoorOpen && c.poll(c.d.Load, "load") {
			events = append(events, c.machine.ToggleLoad()...)
		}
	case logic.StateFinished:
		if c.poll(c.d.Door, "door") {
			events = append(events, c.machine.ToggleDoor()...)
		}
	}

	key, err := c.d.Keypad.Scan()
	if err != nil {
		c.hardwareError("keypad", err)
	} else if key != keypad.KeyNone {
		c.d.Logger.Debug().Stringer("key", key).Msg("key")
		if c.d.Metrics != nil {
			c.d.Metrics.KeyPressed()
		}
		events = append(events, c.machine.PressKey(key)...)
	}

	if c.machine.State() == logic.StateHeating {
		select {
		case <-c.d.Ticks.Flag():
			for n := c.d.Ticks.Take(); n > 0; n-- {
				events = append(events, c.machine.Tick()...)
			}
		default:
		}
	}

	if c.machine.State() == logic.StateFinished {
		events = append(events, c.machine.Step()...)
	}

	c.applyOutputs()
	c.handle(events)
	c.refreshStatus()
}

// Shutdown drives every actuator off and stops the countdown.
func (c *Controller) Shutdown() {
	c.haveApplied = false
	c.apply(logic.Outputs{})
	c.d.Logger.Info().Msg("control loop stopped, outputs off")
}

// Snapshot returns the session state.
func (c *Controller) Snapshot() logic.Snapshot {
	return c.machine.Snapshot()
}

// Celsius returns the selected temperature.
func (c *Controller) Celsius() int {
	return c.setting.Celsius()
}

func (c *Controller) poll(b Button, source string) bool {
	pressed, err := b.Poll()
	if err != nil {
		c.hardwareError(source, err)
		return false
	}
	return pressed
}

// sampleTemperature reads the setpoint and reports whether it changed.
func (c *Controller) sampleTemperature() bool {
	raw, err := c.d.Thermal.ReadRaw()
	if err != nil {
		c.hardwareError("thermal", err)
		return false
	}
	s := thermal.FromRaw(raw)
	if c.haveSetting && s == c.setting {
		return false
	}
	c.setting, c.haveSetting = s, true
	if c.d.PWM != nil {
		if err := c.d.PWM.SetDuty(s.Duty()); err != nil {
			c.hardwareError("pwm", err)
		}
	}
	return true
}

func (c *Controller) applyOutputs() {
	out := c.machine.Outputs()
	if c.haveApplied && out == c.applied {
		return
	}
	c.apply(out)
}

func (c *Controller) apply(out logic.Outputs) {
	a := c.d.Actuators
	for _, w := range []struct {
		pin gpio.Pin
		on  bool
	}{
		{a.Heater, out.Heater},
		{a.Fan, out.Fan},
		{a.Buzzer, out.Buzzer},
		{a.LED, out.LED},
	} {
		level := gpio.Low
		if w.on {
			level = gpio.High
		}
		if err := c.d.Port.Write(w.pin, level); err != nil {
			c.hardwareError("output", err)
		}
	}

	if c.d.PWM != nil {
		if err := c.d.PWM.Enable(out.Fan); err != nil {
			c.hardwareError("pwm", err)
		}
	}

	if out.Tick {
		c.d.Ticks.Enable()
	} else {
		c.d.Ticks.Disable()
	}

	c.applied, c.haveApplied = out, true
}

func (c *Controller) handle(events []logic.Event) {
	if len(events) == 0 {
		return
	}
	now := c.d.Now()
	snap := c.machine.Snapshot()
	celsius := c.setting.Celsius()

	for _, e := range events {
		e.Timestamp = now
		c.draw(e, snap, celsius)

		if !e.Type.Lifecycle() {
			c.d.Logger.Debug().Str("event", string(e.Type)).Int("remaining", e.Remaining).Msg("event")
			continue
		}
		c.d.Logger.Info().
			Str("event", string(e.Type)).
			Str("state", string(e.State)).
			Int("remaining", e.Remaining).
			Msg("session")
		if c.d.Publisher != nil {
			if err := c.d.Publisher.Publish(e); err != nil {
				c.d.Logger.Error().Err(err).Str("event", string(e.Type)).Msg("publish")
				if c.d.Metrics != nil {
					c.d.Metrics.PublishError()
				}
			}
		}
	}

	if c.d.Metrics != nil {
		c.d.Metrics.Observe(events)
	}
}

// draw updates the display for one event. Full screens use the snapshot taken
// after the whole iteration; field redraws use the event values.
func (c *Controller) draw(e logic.Event, snap logic.Snapshot, celsius int) {
	r := c.d.Screen
	switch e.Type {
	case logic.EventDigit:
		c.render(r.Entry(snap))
	case logic.EventStarted, logic.EventResumed:
		c.render(r.Heating(snap, celsius))
	case logic.EventTick:
		c.render(r.Remaining(e.Remaining))
	case logic.EventPaused:
		c.render(r.Paused(snap))
	case logic.EventReset, logic.EventCancelled, logic.EventDismissed:
		c.render(r.Home(snap, celsius))
	case logic.EventFinished, logic.EventAlarmBlank:
		c.render(r.Blank())
	case logic.EventAlarmMessage:
		c.render(r.Finished())
	case logic.EventDoorOpened, logic.EventDoorClosed:
		c.render(r.Door(e.Door))
	case logic.EventLoadAdded, logic.EventLoadRemoved:
		c.render(r.Load(e.Load))
	}
}

func (c *Controller) render(err error) {
	if err != nil {
		c.hardwareError("display", err)
	}
}

func (c *Controller) hardwareError(source string, err error) {
	c.d.Logger.Error().Err(err).Str("source", source).Msg("hardware")
	if c.d.Metrics != nil {
		c.d.Metrics.HardwareError(source)
	}
}

func (c *Controller) refreshStatus() {
	snap := c.machine.Snapshot()
	celsius := c.setting.Celsius()

	connected := false
	if cs, ok := c.d.Publisher.(mqtt.ConnectionStatus); ok {
		connected = cs.IsConnected()
	}

	if c.d.Tracker != nil {
		c.d.Tracker.Update(snap, celsius)
		c.d.Tracker.SetMQTTConnected(connected)
	}
	c.publishDisplay()
	if c.d.Metrics != nil {
		c.d.Metrics.SetSession(snap, celsius)
		c.d.Metrics.SetMQTTConnected(connected)
	}
}

func (c *Controller) publishDisplay() {
	if c.d.Tracker != nil && c.d.Display != nil {
		c.d.Tracker.SetDisplay(c.d.Display())
	}
}

func (c *Controller) heartbeat() {
	if c.d.Publisher == nil || c.d.Tracker == nil {
		return
	}
	snap := c.d.Tracker.Snapshot()
	c.d.Logger.Info().
		Dur("uptime", snap.Uptime().Truncate(time.Second)).
		Str("state", string(snap.Session.State)).
		Int("started", snap.Session.Counts.Started).
		Msg("heartbeat")

	err := c.d.Publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventHeartbeat,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
	})
	if err != nil {
		c.d.Logger.Error().Err(err).Msg("heartbeat publish")
		if c.d.Metrics != nil {
			c.d.Metrics.PublishError()
		}
	}
}
