// Command microwave runs the microwave session controller: keypad, door and
// load sensors, heater and fan outputs, the character display, MQTT events and
// a read-only status page.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/microwave/internal/config"
	"github.com/sweeney/microwave/internal/control"
	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/keypad"
	"github.com/sweeney/microwave/internal/lcd"
	"github.com/sweeney/microwave/internal/log"
	"github.com/sweeney/microwave/internal/metrics"
	"github.com/sweeney/microwave/internal/mqtt"
	"github.com/sweeney/microwave/internal/screen"
	"github.com/sweeney/microwave/internal/sensor"
	"github.com/sweeney/microwave/internal/status"
	"github.com/sweeney/microwave/internal/thermal"
	"github.com/sweeney/microwave/internal/tick"
	"github.com/sweeney/microwave/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	broker      string
	httpAddr    string
	logLevel    string
	printState  bool
	printConfig bool
	writeConfig string
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "microwave",
		Short:        "Run the microwave session controller",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if opts.writeConfig != "" {
				if err := cfg.Save(opts.writeConfig); err != nil {
					return err
				}
				if !opts.printConfig {
					return nil
				}
			}
			if opts.printConfig {
				data, err := cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			logger, err := log.New(log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return err
			}
			if err := run(cfg, opts.printState, cmd.OutOrStdout(), logger); err != nil {
				logger.Error().Err(err).Msg("fatal")
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "/etc/microwave/config.yaml", "YAML configuration file (missing file uses defaults)")
	f.StringVar(&opts.broker, "broker", "", `MQTT broker address ("" in config disables publishing)`)
	f.StringVar(&opts.httpAddr, "http", "", "HTTP status address")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.BoolVar(&opts.printState, "print-state", false, "Print door, load and keypad state and exit")
	f.BoolVar(&opts.printConfig, "print-config", false, "Print the effective configuration and exit")
	f.StringVar(&opts.writeConfig, "write-config", "", "Write the effective configuration to a file and exit")
	return cmd
}

// loadConfig reads the config file and applies flags that were set explicitly.
func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("broker") {
		cfg.MQTT.Broker = opts.broker
	}
	if flags.Changed("http") {
		cfg.HTTP.Addr = opts.httpAddr
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

// app is everything serve needs once the hardware is open.
type app struct {
	cfg        *config.Config
	controller *control.Controller
	tracker    *status.Tracker
	publisher  mqtt.Publisher
	server     *web.Server
	logger     zerolog.Logger
}

func run(cfg *config.Config, printState bool, out io.Writer, logger zerolog.Logger) error {
	port, err := gpio.NewRealPort(cfg.GPIO.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer port.Close()

	if printState {
		return printInputs(port, cfg, out)
	}

	buf := lcd.NewBuffer(lcd.Geometry16x4)
	var display lcd.Display = buf
	if cfg.LCD.Port != "" {
		ser, err := lcd.OpenSerial(cfg.LCD.Port, cfg.LCD.Baud, lcd.Geometry16x4)
		if err != nil {
			logger.Warn().Err(err).Str("port", cfg.LCD.Port).Msg("lcd unavailable, status page only")
		} else {
			defer ser.Close()
			display = lcd.Tee{ser, buf}
		}
	}

	var pwm gpio.PWM
	if cfg.PWM.Chip != "" {
		p, err := gpio.NewSysfsPWM(cfg.PWM.Chip, cfg.PWM.Channel, cfg.PWM.Period)
		if err != nil {
			logger.Warn().Err(err).Str("chip", cfg.PWM.Chip).Msg("fan pwm unavailable")
		} else {
			defer p.Close()
			pwm = p
		}
	}

	var publisher mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		opts := mqtt.DefaultOptions(cfg.MQTT.Broker)
		opts.ClientID = cfg.MQTT.ClientID
		opts.BufferSize = cfg.MQTT.Buffer
		rp := mqtt.NewRealPublisher(opts, log.WithComponent(logger, "mqtt"))
		defer rp.Close()
		publisher = rp
	}

	ticks := tick.New(cfg.Loop.Tick, nil)
	defer ticks.Close()

	a, err := newApp(cfg, port, thermalReader(cfg), pwm, display, buf, ticks, publisher, logger)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return serve(context.Background(), a, sigCh)
}

func thermalReader(cfg *config.Config) thermal.Reader {
	if cfg.Thermal.IIOPath != "" {
		return thermal.IIOReader{Path: cfg.Thermal.IIOPath, Shift: uint(max(cfg.Thermal.Shift, 0))}
	}
	return thermal.FixedReader(cfg.Thermal.Fixed)
}

// newApp wires the keypad, switches and controller onto an open port.
func newApp(cfg *config.Config, port gpio.Port, thermalSrc thermal.Reader, pwm gpio.PWM, display lcd.Display,
	buf *lcd.Buffer, ticks control.Ticks, publisher mqtt.Publisher, logger zerolog.Logger) (*app, error) {
	layout, err := keypad.LayoutByName(cfg.Keypad.Layout)
	if err != nil {
		return nil, err
	}
	scanner, err := keypad.NewScanner(port, pins(cfg.GPIO.Rows), pins(cfg.GPIO.Cols), layout, cfg.Keypad.Debounce)
	if err != nil {
		return nil, err
	}
	if err := scanner.Init(); err != nil {
		return nil, fmt.Errorf("init keypad: %w", err)
	}

	door := sensor.NewSwitch(port, gpio.Pin(cfg.GPIO.Door), cfg.Sensors.Debounce)
	load := sensor.NewSwitch(port, gpio.Pin(cfg.GPIO.Load), cfg.Sensors.Debounce)
	for _, s := range []*sensor.Switch{door, load} {
		if err := s.Init(); err != nil {
			return nil, fmt.Errorf("init sensors: %w", err)
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Loop.Poll.Milliseconds(),
		TickMs:      cfg.Loop.Tick.Milliseconds(),
		DebounceMs:  cfg.Keypad.Debounce.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Layout:      layout.Name,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	collector := metrics.New()

	var lines func() []string
	if buf != nil {
		lines = buf.Lines
	}
	controller, err := control.New(control.Deps{
		Port: port,
		Actuators: control.Actuators{
			Heater: gpio.Pin(cfg.GPIO.Heater),
			Fan:    gpio.Pin(cfg.GPIO.Fan),
			Buzzer: gpio.Pin(cfg.GPIO.Buzzer),
			LED:    gpio.Pin(cfg.GPIO.LED),
		},
		Keypad:    scanner,
		Door:      door,
		Load:      load,
		Ticks:     ticks,
		Thermal:   thermalSrc,
		PWM:       pwm,
		Screen:    screen.New(display),
		Display:   lines,
		Publisher: publisher,
		Tracker:   tracker,
		Metrics:   collector,
		Logger:    log.WithComponent(logger, "control"),
	})
	if err != nil {
		return nil, err
	}
	if err := controller.Init(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		controller: controller,
		tracker:    tracker,
		publisher:  publisher,
		logger:     logger,
	}
	if cfg.HTTP.Addr != "" {
		a.server = web.New(cfg.HTTP.Addr, tracker, collector.Handler())
	}
	return a, nil
}

func pins(lines []int) []gpio.Pin {
	out := make([]gpio.Pin, len(lines))
	for i, l := range lines {
		out[i] = gpio.Pin(l)
	}
	return out
}

// serve publishes STARTUP, runs the control loop and the status server until
// a signal arrives or a task fails, then publishes SHUTDOWN.
func serve(ctx context.Context, a *app, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.publishSystem(mqtt.EventStartup, "")

	reason := "UNKNOWN"
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case s := <-sig:
			reason = signalName(s)
			a.logger.Info().Str("signal", reason).Msg("shutting down")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if a.server != nil {
		g.Go(func() error {
			a.logger.Info().Str("addr", a.cfg.HTTP.Addr).Msg("http status server listening")
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			return a.server.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		if err := a.controller.Welcome(gctx, a.cfg.Loop.Welcome); err != nil {
			a.controller.Shutdown()
			return nil
		}
		return a.controller.Run(gctx, a.cfg.Loop.Poll, a.cfg.MQTT.Heartbeat)
	})

	err := g.Wait()
	a.publishSystem(mqtt.EventShutdown, reason)
	return err
}

func (a *app) publishSystem(event, reason string) {
	if a.publisher == nil {
		return
	}
	if cs, ok := a.publisher.(mqtt.ConnectionStatus); ok {
		a.tracker.SetMQTTConnected(cs.IsConnected())
	}
	snap := a.tracker.Snapshot()
	err := a.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		a.logger.Error().Err(err).Str("event", event).Msg("failed to publish system event")
		return
	}
	a.logger.Info().Str("event", event).Msg("published system event")
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// printInputs reads the door and load buttons and one keypad scan.
func printInputs(port gpio.Port, cfg *config.Config, out io.Writer) error {
	layout, err := keypad.LayoutByName(cfg.Keypad.Layout)
	if err != nil {
		return err
	}
	scanner, err := keypad.NewScanner(port, pins(cfg.GPIO.Rows), pins(cfg.GPIO.Cols), layout, cfg.Keypad.Debounce)
	if err != nil {
		return err
	}
	if err := scanner.Init(); err != nil {
		return fmt.Errorf("init keypad: %w", err)
	}

	levels := make(map[string]gpio.Level, 2)
	for name, pin := range map[string]int{"door": cfg.GPIO.Door, "load": cfg.GPIO.Load} {
		if err := port.SetDirection(gpio.Pin(pin), gpio.Input); err != nil {
			return fmt.Errorf("configure %s: %w", name, err)
		}
		level, err := port.Read(gpio.Pin(pin))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		levels[name] = level
	}
	key, err := scanner.Scan()
	if err != nil {
		return fmt.Errorf("scan keypad: %w", err)
	}

	fmt.Fprintf(out, "door: %s (%s), load: %s (%s), key: %s\n",
		levels["door"], pressed(levels["door"]), levels["load"], pressed(levels["load"]), key)
	return nil
}

func pressed(l gpio.Level) string {
	if l == gpio.Low {
		return "pressed"
	}
	return "released"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
