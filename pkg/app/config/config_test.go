package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewConfigDefaults checks the stock HC-SR04 setup defaults.
func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	c := NewConfig()

	require.Equal(t, "gpiochip0", c.Sensor.Chip)
	require.Equal(t, 5, c.Sensor.TriggerPin)
	require.Equal(t, 16, c.Sensor.EchoPin)
	require.Equal(t, "pulldown", c.Sensor.Terminator)
	require.Equal(t, 1000, c.Sensor.PeriodInt)
	require.Equal(t, 100, c.Sensor.SignalTimeoutInt)
	require.Equal(t, 50, c.Sensor.ValueTimeoutInt)
	require.Equal(t, 400.0, c.Sensor.MaxRangeCM)
	require.Equal(t, 128, c.Display.WidthPX)
	require.Equal(t, "console", c.Display.Driver)
	require.Empty(t, c.MQTT.Connection)
	require.True(t, c.Webserver.Webservices["version"])
	require.True(t, c.Webserver.Webservices["health"])
	require.True(t, c.Webserver.Webservices["data"])
}

// TestLoadConfig checks the yaml merge over the defaults and the derivation
// of the duration fields.
func TestLoadConfig(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "sonard.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
sensor:
  chip: gpiochip1
  triggerpin: 23
  echopin: 24
  period: 500
  signaltimeout: 80
  valuetimeout: 40
display:
  driver: none
  width: 64
debug:
  file: stdout
  flag: debug
mqtt:
  connection: tcp://127.0.0.1:1883
  interval: 30
  topic: /garage/door
  delta: 2.5
`), 0o644))

	c := NewConfig()
	c.Flag.ConfigFile = file
	require.NoError(t, c.LoadConfig())

	require.Equal(t, "gpiochip1", c.Sensor.Chip)
	require.Equal(t, 23, c.Sensor.TriggerPin)
	require.Equal(t, 24, c.Sensor.EchoPin)
	require.Equal(t, 500*time.Millisecond, c.Sensor.Period)
	require.Equal(t, 80*time.Millisecond, c.Sensor.SignalTimeout)
	require.Equal(t, 40*time.Millisecond, c.Sensor.ValueTimeout)
	require.Equal(t, "none", c.Display.Driver)
	require.Equal(t, 64, c.Display.WidthPX)
	require.Equal(t, 30*time.Second, c.MQTT.Interval)
	require.Equal(t, 2.5, c.MQTT.DeltaCM)
	require.Equal(t, os.Stdout, c.Debug.File)

	// untouched keys keep their defaults
	require.Equal(t, 400.0, c.Sensor.MaxRangeCM)
	require.Equal(t, "pulldown", c.Sensor.Terminator)
}

// TestLoadConfigLogFlag checks that the command line log level overrules the
// configured one.
func TestLoadConfigLogFlag(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "sonard.yaml")
	require.NoError(t, os.WriteFile(file, []byte("debug:\n  file: stderr\n  flag: standard\n"), 0o644))

	c := NewConfig()
	c.Flag.ConfigFile = file
	c.Flag.Debug = "trace"
	require.NoError(t, c.LoadConfig())

	require.Equal(t, "trace", c.Debug.FlagString)
}

// TestLoadConfigMissingFile checks that a missing configuration file fails
// the load.
func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	require.Error(t, c.LoadConfig())
}
