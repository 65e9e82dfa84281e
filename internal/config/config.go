// Package config loads the rover configuration from a yaml file with
// environment overrides for the values that change between deployments.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values can be written as "50ms" or
// "2s". Plain integers are taken as nanoseconds.
type Duration time.Duration

// D returns the standard library duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("config: invalid duration node")
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	Web       WebConfig       `yaml:"web"`
	Rover     RoverConfig     `yaml:"rover"`
	PID       PIDConfig       `yaml:"pid"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Camera    CameraConfig    `yaml:"camera"`
	Log       LogConfig       `yaml:"log"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type RoverConfig struct {
	// TickInterval is the control loop period.
	TickInterval Duration `yaml:"tick_interval"`
	// CommandTimeout halts the rover when no command has been accepted for
	// this long while the wheels are moving. Zero disables the watchdog.
	CommandTimeout Duration `yaml:"command_timeout"`
}

type PIDConfig struct {
	MaxSpeed float64 `yaml:"max_speed"`
	Kp       float64 `yaml:"kp"`
	Ki       float64 `yaml:"ki"`
	Kd       float64 `yaml:"kd"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

type CameraConfig struct {
	Enabled bool `yaml:"enabled"`
	// FrameInterval is how often a frame is captured and broadcast
	// while stream clients are connected.
	FrameInterval Duration `yaml:"frame_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Defaults() *Config {
	return &Config{
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Rover: RoverConfig{
			TickInterval:   Duration(20 * time.Millisecond),
			CommandTimeout: Duration(2 * time.Second),
		},
		PID: PIDConfig{
			MaxSpeed: 100,
			Kp:       0.5,
			Ki:       0.05,
			Kd:       0.1,
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Broker:   "tcp://localhost:1883",
			ClientID: "go-rover",
			Topic:    "rover/telemetry",
		},
		Camera: CameraConfig{
			Enabled:       true,
			FrameInterval: Duration(100 * time.Millisecond),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the yaml config at path on top of Defaults. A missing file is
// not an error; the defaults are returned. Environment overrides are
// applied last.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if host := os.Getenv("ROVER_HOST"); host != "" {
		c.Web.Host = host
	}
	if port := os.Getenv("ROVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Web.Port = p
		}
	}
	if level := os.Getenv("ROVER_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if broker := os.Getenv("ROVER_MQTT_BROKER"); broker != "" {
		c.Telemetry.Broker = broker
		c.Telemetry.Enabled = true
	}
}
