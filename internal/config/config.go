package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a configuration file.
const MaxConfigFileBytes = 1 << 20

// Camera backends.
const (
	BackendGPhoto2   = "gphoto2"
	BackendSimulated = "simulated"
)

// Secondary trigger types.
const (
	TriggerDevice        = "device"         // the camera's own trigger capture over USB
	TriggerRemoteRelease = "remote_release" // wired release cable driven over GPIO
)

// SimulatedConfig tunes the in-memory camera used by the "simulated" backend.
type SimulatedConfig struct {
	Quirk         string `yaml:"quirk"`           // none, capture_error, needs_trigger, silent, no_camera
	EventDelay    int    `yaml:"event_delay"`     // polls before a file event is reported
	PollLatencyMs int    `yaml:"poll_latency_ms"` // how long each poll blocks (capped by event_timeout_ms)
}

// CameraConfig describes how to reach the camera and where files land.
type CameraConfig struct {
	Backend        string          `yaml:"backend"`          // "gphoto2" or "simulated"
	OutputDir      string          `yaml:"output_dir"`       // local directory for downloaded files
	EventTimeoutMs int             `yaml:"event_timeout_ms"` // timeout of a single event poll (ms)
	EventAttempts  int             `yaml:"event_attempts"`   // polls per waiting phase
	Simulated      SimulatedConfig `yaml:"simulated"`
}

// TriggerConfig selects the secondary trigger used when no file shows up
// after a failed capture.
type TriggerConfig struct {
	Type           string `yaml:"type"`             // "device" or "remote_release"
	FocusPin       int    `yaml:"focus_pin"`        // GPIO pin for FOCUS line
	ShutterPin     int    `yaml:"shutter_pin"`      // GPIO pin for SHUTTER line
	FocusDelayMs   int    `yaml:"focus_delay_ms"`   // autofocus delay (ms)
	ShutterDelayMs int    `yaml:"shutter_delay_ms"` // shutter hold time (ms)
	MockGPIO       bool   `yaml:"mock_gpio"`        // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	// Note: GND is physically connected to Raspberry Pi ground
}

// LoggingConfig controls the narration written to stderr.
type LoggingConfig struct {
	DebugLevel int    `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	Format     string `yaml:"format"`      // "console" or "json"
}

// BreakerConfig guards session opening in the daemon.
type BreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failure_threshold"` // consecutive open failures before the circuit opens
	OpenTimeoutMs    int    `yaml:"open_timeout_ms"`   // how long the circuit stays open (ms)
}

// ServerConfig configures the HTTP daemon.
type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst int           `yaml:"rate_burst"`
	Breaker   BreakerConfig `yaml:"breaker"`
}

// MQTTConfig configures capture result notifications.
type MQTTConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Broker           string `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID         string `yaml:"client_id"`
	TopicPrefix      string `yaml:"topic_prefix"`
	QoS              byte   `yaml:"qos"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
}

// Config aggregates all application configuration.
type Config struct {
	Camera  CameraConfig  `yaml:"camera"`
	Trigger TriggerConfig `yaml:"trigger"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Backend:        BackendGPhoto2,
			OutputDir:      "/tmp",
			EventTimeoutMs: 200,
			EventAttempts:  50,
			Simulated:      SimulatedConfig{Quirk: "none", EventDelay: 3},
		},
		Trigger: TriggerConfig{
			Type:           TriggerDevice,
			FocusDelayMs:   500,
			ShutterDelayMs: 200,
		},
		Logging: LoggingConfig{DebugLevel: 1, Format: "console"},
		Server: ServerConfig{
			Addr:      ":3000",
			RateLimit: 5,
			RateBurst: 10,
			Breaker:   BreakerConfig{Enabled: true, FailureThreshold: 3, OpenTimeoutMs: 30000},
		},
		MQTT: MQTTConfig{
			ClientID:         "boothcam",
			TopicPrefix:      "boothcam",
			QoS:              1,
			ConnectTimeoutMs: 5000,
		},
	}
}

// Load reads a YAML file over the defaults and returns the configuration.
// An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s is %d bytes, limit is %d", path, info.Size(), MaxConfigFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and fills in defaults for zero values.
func (c *Config) Validate() error {
	c.Camera.Backend = strings.ToLower(strings.TrimSpace(c.Camera.Backend))
	switch c.Camera.Backend {
	case BackendGPhoto2, BackendSimulated:
	case "":
		c.Camera.Backend = BackendGPhoto2
	default:
		return fmt.Errorf("camera.backend must be %q or %q, got %q", BackendGPhoto2, BackendSimulated, c.Camera.Backend)
	}
	if c.Camera.OutputDir == "" {
		c.Camera.OutputDir = "/tmp"
	}
	if c.Camera.EventTimeoutMs <= 0 {
		c.Camera.EventTimeoutMs = 200 // per poll
	}
	if c.Camera.EventAttempts <= 0 {
		c.Camera.EventAttempts = 50 // ~10s per phase with the default timeout
	}
	if c.Camera.EventAttempts > 10000 {
		return fmt.Errorf("camera.event_attempts must be <= 10000, got %d", c.Camera.EventAttempts)
	}
	if c.Camera.Simulated.EventDelay <= 0 {
		c.Camera.Simulated.EventDelay = 3
	}

	switch c.Trigger.Type {
	case TriggerDevice, TriggerRemoteRelease:
	case "":
		c.Trigger.Type = TriggerDevice
	default:
		return fmt.Errorf("trigger.type must be %q or %q, got %q", TriggerDevice, TriggerRemoteRelease, c.Trigger.Type)
	}
	if c.Trigger.Type == TriggerRemoteRelease {
		if c.Trigger.FocusPin <= 0 || c.Trigger.ShutterPin <= 0 {
			return fmt.Errorf("trigger.focus_pin and trigger.shutter_pin are required for %s", TriggerRemoteRelease)
		}
		if c.Trigger.FocusPin == c.Trigger.ShutterPin {
			return fmt.Errorf("trigger.focus_pin and trigger.shutter_pin must differ, both are %d", c.Trigger.FocusPin)
		}
	}
	if c.Trigger.FocusDelayMs <= 0 {
		c.Trigger.FocusDelayMs = 500 // 500ms for autofocus
	}
	if c.Trigger.ShutterDelayMs <= 0 {
		c.Trigger.ShutterDelayMs = 200 // 200ms shutter hold
	}

	if c.Logging.DebugLevel < 0 || c.Logging.DebugLevel > 4 {
		return fmt.Errorf("logging.debug_level must be between 0 and 4, got %d", c.Logging.DebugLevel)
	}
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	switch c.Logging.Format {
	case "console", "json":
	case "":
		c.Logging.Format = "console"
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be >= 0, got %.2f", c.Server.RateLimit)
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 10
	}
	if c.Server.Breaker.FailureThreshold == 0 {
		c.Server.Breaker.FailureThreshold = 3
	}
	if c.Server.Breaker.OpenTimeoutMs <= 0 {
		c.Server.Breaker.OpenTimeoutMs = 30000
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "boothcam"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "boothcam"
	}
	c.MQTT.TopicPrefix = strings.TrimSuffix(c.MQTT.TopicPrefix, "/")
	if c.MQTT.ConnectTimeoutMs <= 0 {
		c.MQTT.ConnectTimeoutMs = 5000
	}

	return nil
}

// envOverrides lists the settings that can be overridden from the
// environment, as BOOTHCAM_<NAME>.
type envOverrides struct {
	Backend     string `envconfig:"BACKEND"`
	OutputDir   string `envconfig:"OUTPUT_DIR"`
	Quirk       string `envconfig:"QUIRK"`
	TriggerType string `envconfig:"TRIGGER_TYPE"`
	MockGPIO    *bool  `envconfig:"MOCK_GPIO"`
	DebugLevel  *int   `envconfig:"DEBUG_LEVEL"`
	LogFormat   string `envconfig:"LOG_FORMAT"`
	Addr        string `envconfig:"ADDR"`
	MQTTEnabled *bool  `envconfig:"MQTT_ENABLED"`
	MQTTBroker  string `envconfig:"MQTT_BROKER"`
}

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "BOOTHCAM"

// ApplyEnv overrides c with BOOTHCAM_* environment variables and
// validates the result.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	setString(&c.Camera.Backend, env.Backend)
	setString(&c.Camera.OutputDir, env.OutputDir)
	setString(&c.Camera.Simulated.Quirk, env.Quirk)
	setString(&c.Trigger.Type, env.TriggerType)
	setString(&c.Logging.Format, env.LogFormat)
	setString(&c.Server.Addr, env.Addr)
	setString(&c.MQTT.Broker, env.MQTTBroker)
	if env.MockGPIO != nil {
		c.Trigger.MockGPIO = *env.MockGPIO
	}
	if env.DebugLevel != nil {
		c.Logging.DebugLevel = *env.DebugLevel
	}
	if env.MQTTEnabled != nil {
		c.MQTT.Enabled = *env.MQTTEnabled
	}

	return c.Validate()
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// EventTimeout returns the timeout of a single event poll.
func (c *Config) EventTimeout() time.Duration {
	return time.Duration(c.Camera.EventTimeoutMs) * time.Millisecond
}

// PollLatency returns how long a simulated poll blocks.
func (c *Config) PollLatency() time.Duration {
	return time.Duration(c.Camera.Simulated.PollLatencyMs) * time.Millisecond
}

// FocusDelay returns the autofocus delay duration.
func (c *Config) FocusDelay() time.Duration {
	return time.Duration(c.Trigger.FocusDelayMs) * time.Millisecond
}

// ShutterDelay returns the shutter hold duration.
func (c *Config) ShutterDelay() time.Duration {
	return time.Duration(c.Trigger.ShutterDelayMs) * time.Millisecond
}

// BreakerOpenTimeout returns how long the session circuit stays open.
func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.Server.Breaker.OpenTimeoutMs) * time.Millisecond
}

// MQTTConnectTimeout returns the broker connection timeout.
func (c *Config) MQTTConnectTimeout() time.Duration {
	return time.Duration(c.MQTT.ConnectTimeoutMs) * time.Millisecond
}
