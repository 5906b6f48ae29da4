package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"

	"sonard/pkg/display"
)

// Config holds the application configuration. Attention!
// To make it possible to overwrite fields with the -overwrite command
// line option each of the struct fields must be in the format
// first letter uppercase -> followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Sensor    SensorConfig    `yaml:"sensor"`
	Display   DisplayConfig   `yaml:"display"`
	Flag      FlagConfig      `yaml:"-"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Debug      string
	ConfigFile string
}

// SensorConfig defines the struct of the ultrasonic sensor configuration and
// configuration file. Durations are configured in milliseconds (the *Int
// fields) and derived on load.
type SensorConfig struct {
	Chip             string        `yaml:"chip"`
	TriggerPin       int           `yaml:"triggerpin"`
	EchoPin          int           `yaml:"echopin"`
	Terminator       string        `yaml:"terminator"`
	PeriodInt        int           `yaml:"period"`
	Period           time.Duration `yaml:"-"`
	SignalTimeoutInt int           `yaml:"signaltimeout"`
	SignalTimeout    time.Duration `yaml:"-"`
	ValueTimeoutInt  int           `yaml:"valuetimeout"`
	ValueTimeout     time.Duration `yaml:"-"`
	MaxRangeCM       float64       `yaml:"maxrange"`
	EmuDistanceCM    float64       `yaml:"emudistance"`
}

// DisplayConfig defines the struct of the display configuration and configuration file
type DisplayConfig struct {
	Driver  string `yaml:"driver"`
	WidthPX int    `yaml:"width"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection  string        `yaml:"connection"`
	Interval    time.Duration `yaml:"-"`
	IntervalInt int           `yaml:"interval"`
	Topic       string        `yaml:"topic"`
	DeltaCM     float64       `yaml:"delta"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

// NewConfig returns the stock HC-SR04 setup: trigger on gpio 5, echo on
// gpio 16, one measurement per second, a 128 px wide display.
func NewConfig() *Config {
	return &Config{
		Sensor: SensorConfig{
			Chip:             "gpiochip0",
			TriggerPin:       5,
			EchoPin:          16,
			Terminator:       "pulldown",
			PeriodInt:        1000,
			SignalTimeoutInt: 100,
			ValueTimeoutInt:  50,
			MaxRangeCM:       400,
			EmuDistanceCM:    100,
		},
		Display: DisplayConfig{
			Driver:  "console",
			WidthPX: display.WidthPX,
		},
		Flag: FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
			},
		},
		MQTT: MQTTConfig{
			Connection:  "",
			IntervalInt: 60,
			Topic:       "/sonard/distance",
			DeltaCM:     1,
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	c.MQTT.Interval = time.Duration(c.MQTT.IntervalInt) * time.Second
	c.Sensor.Period = time.Duration(c.Sensor.PeriodInt) * time.Millisecond
	c.Sensor.SignalTimeout = time.Duration(c.Sensor.SignalTimeoutInt) * time.Millisecond
	c.Sensor.ValueTimeout = time.Duration(c.Sensor.ValueTimeoutInt) * time.Millisecond

	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
