// Package config loads the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/keypad"
)

// Config represents the daemon configuration.
type Config struct {
	GPIO    GPIOConfig    `yaml:"gpio"`
	Keypad  KeypadConfig  `yaml:"keypad"`
	Sensors SensorsConfig `yaml:"sensors"`
	LCD     LCDConfig     `yaml:"lcd"`
	PWM     PWMConfig     `yaml:"pwm"`
	Thermal ThermalConfig `yaml:"thermal"`
	Loop    LoopConfig    `yaml:"loop"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
}

// GPIOConfig contains the chip and BCM line assignments.
type GPIOConfig struct {
	Chip   string `yaml:"chip"`
	Rows   []int  `yaml:"rows"`
	Cols   []int  `yaml:"cols"`
	Door   int    `yaml:"door"`
	Load   int    `yaml:"load"`
	Heater int    `yaml:"heater"`
	Fan    int    `yaml:"fan"`
	Buzzer int    `yaml:"buzzer"`
	LED    int    `yaml:"led"`
}

// KeypadConfig selects the matrix layout.
type KeypadConfig struct {
	Layout   string        `yaml:"layout"` // "3x4" or "4x4"
	Debounce time.Duration `yaml:"debounce"`
}

// SensorsConfig contains door and load switch settings.
type SensorsConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LCDConfig contains the serial display settings. An empty port disables
// the physical display; the status page still shows its contents.
type LCDConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// PWMConfig contains the fan PWM channel. An empty chip disables PWM.
type PWMConfig struct {
	Chip    string        `yaml:"chip"` // e.g. /sys/class/pwm/pwmchip0
	Channel int           `yaml:"channel"`
	Period  time.Duration `yaml:"period"`
}

// ThermalConfig selects the temperature setpoint source. When IIOPath is
// empty the fixed raw value is used.
type ThermalConfig struct {
	IIOPath string `yaml:"iio_path"`
	Shift   int    `yaml:"shift"` // right shift applied to wider ADCs
	Fixed   int    `yaml:"fixed"`
}

// LoopConfig contains the control loop timing.
type LoopConfig struct {
	Poll    time.Duration `yaml:"poll"`
	Tick    time.Duration `yaml:"tick"`
	Welcome time.Duration `yaml:"welcome"`
}

// MQTTConfig contains broker settings. An empty broker disables publishing.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
	Buffer    int           `yaml:"buffer"`
}

// HTTPConfig contains the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration matching the reference wiring.
func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:   "gpiochip0",
			Rows:   append([]int(nil), gpio.DefaultRows...),
			Cols:   append([]int(nil), gpio.DefaultCols[:3]...),
			Door:   gpio.DefaultPinDoor,
			Load:   gpio.DefaultPinLoad,
			Heater: gpio.DefaultPinHeater,
			Fan:    gpio.DefaultPinFan,
			Buzzer: gpio.DefaultPinBuzzer,
			LED:    gpio.DefaultPinLED,
		},
		Keypad: KeypadConfig{
			Layout:   keypad.Layout3x4.Name,
			Debounce: keypad.DefaultDebounce,
		},
		Sensors: SensorsConfig{
			Debounce: 10 * time.Millisecond,
		},
		LCD: LCDConfig{
			Port: "/dev/ttyAMA0",
			Baud: 9600,
		},
		PWM: PWMConfig{
			Channel: 0,
			Period:  time.Millisecond,
		},
		Thermal: ThermalConfig{
			Fixed: 0,
		},
		Loop: LoopConfig{
			Poll:    20 * time.Millisecond,
			Tick:    time.Second,
			Welcome: 2 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://localhost:1883",
			ClientID:  "microwave",
			Heartbeat: 15 * time.Minute,
			Buffer:    100,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, default values are used.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file, replacing it atomically.
func (c *Config) Save(filename string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Marshal returns the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	layout, err := keypad.LayoutByName(c.Keypad.Layout)
	if err != nil {
		return fmt.Errorf("keypad: %w", err)
	}
	if len(c.GPIO.Rows) != layout.Rows() || len(c.GPIO.Cols) != layout.Cols() {
		return fmt.Errorf("keypad %s needs %d rows and %d cols, got %d and %d",
			layout.Name, layout.Rows(), layout.Cols(), len(c.GPIO.Rows), len(c.GPIO.Cols))
	}
	if c.Thermal.Fixed < 0 || c.Thermal.Fixed > 1023 {
		return fmt.Errorf("thermal fixed value %d out of range 0..1023", c.Thermal.Fixed)
	}
	if c.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt heartbeat must not be negative")
	}
	return nil
}

// ensureDefaults fills in zero values left by a partial file.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.Keypad.Layout == "" {
		c.Keypad.Layout = def.Keypad.Layout
	}
	if len(c.GPIO.Rows) == 0 {
		c.GPIO.Rows = def.GPIO.Rows
	}
	if len(c.GPIO.Cols) == 0 {
		c.GPIO.Cols = def.GPIO.Cols
	}
	// The 4x4 pad uses the extra column line unless columns were given.
	if c.Keypad.Layout == keypad.Layout4x4.Name && slices.Equal(c.GPIO.Cols, def.GPIO.Cols) {
		c.GPIO.Cols = append([]int(nil), gpio.DefaultCols...)
	}
	if c.Keypad.Debounce == 0 {
		c.Keypad.Debounce = def.Keypad.Debounce
	}
	if c.Sensors.Debounce == 0 {
		c.Sensors.Debounce = def.Sensors.Debounce
	}
	if c.LCD.Baud == 0 {
		c.LCD.Baud = def.LCD.Baud
	}
	if c.PWM.Period == 0 {
		c.PWM.Period = def.PWM.Period
	}
	if c.Loop.Poll == 0 {
		c.Loop.Poll = def.Loop.Poll
	}
	if c.Loop.Tick == 0 {
		c.Loop.Tick = def.Loop.Tick
	}
	if c.Loop.Welcome == 0 {
		c.Loop.Welcome = def.Loop.Welcome
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Buffer == 0 {
		c.MQTT.Buffer = def.MQTT.Buffer
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}
