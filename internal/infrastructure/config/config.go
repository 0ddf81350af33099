package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the camera gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Wire     WireConfig     `yaml:"wire"`
	Capture  CaptureConfig  `yaml:"capture"`
	Devices  DevicesConfig  `yaml:"devices"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Health   HealthConfig   `yaml:"health"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GatewayConfig identifies this gateway instance.
type GatewayConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`

	// MaxPayload is the largest payload the client will publish, in bytes.
	// Frames are published whole, so this must cover the largest ROI.
	MaxPayload int `yaml:"max_payload"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MQTTTopicsConfig names the topics the gateway uses.
type MQTTTopicsConfig struct {
	Command  string `yaml:"command"`
	Init     string `yaml:"init"`
	Response string `yaml:"response"`
	Status   string `yaml:"status"`
}

// WireConfig selects the envelope serialisation.
type WireConfig struct {
	// Codec is "json" or "msgpack".
	Codec string `yaml:"codec"`
}

// CaptureConfig controls frame streaming.
type CaptureConfig struct {
	// WaitForAck makes each frame publish wait for the broker acknowledgement
	// before the next frame is acquired. When false frames are published
	// best-effort and cadence is set by acquisition latency alone.
	WaitForAck bool `yaml:"wait_for_ack"`

	// FrameQoS is the QoS used for frame responses.
	FrameQoS int `yaml:"frame_qos"`
}

// DevicesConfig contains device enumeration settings.
type DevicesConfig struct {
	Simulated SimulatedConfig `yaml:"simulated"`
}

// SimulatedConfig configures the simulated camera kind.
type SimulatedConfig struct {
	Count           int `yaml:"count"`
	Width           int `yaml:"width"`
	Height          int `yaml:"height"`
	FrameIntervalMS int `yaml:"frame_interval_ms"`
}

// DatabaseConfig contains SQLite settings for the camera inventory.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP status server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// HealthConfig controls the periodic gateway status message.
type HealthConfig struct {
	Interval int `yaml:"interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CAMGATE_SECTION_KEY
// For example: CAMGATE_MQTT_HOST, CAMGATE_DATABASE_PATH
//
// If allowMissing is true and the file does not exist, defaults are used.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case allowMissing && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			ID:   "camgate-001",
			Name: "Camera Gateway",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "camgate",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			Topics: MQTTTopicsConfig{
				Command:  "camera/instr",
				Init:     "camera/init",
				Response: "camera/response",
				Status:   "camera/gateway/status",
			},
			MaxPayload: 64 << 20,
		},
		Wire: WireConfig{
			Codec: "json",
		},
		Capture: CaptureConfig{
			WaitForAck: false,
			FrameQoS:   1,
		},
		Devices: DevicesConfig{
			Simulated: SimulatedConfig{
				Count:           1,
				Width:           1912,
				Height:          1304,
				FrameIntervalMS: 100,
			},
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Path:        "./data/camgate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Health: HealthConfig{
			Interval: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("CAMGATE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CAMGATE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("CAMGATE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CAMGATE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("CAMGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("CAMGATE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("CAMGATE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Logging
	if v := os.Getenv("CAMGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.ID == "" {
		errs = append(errs, "gateway.id is required")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Topics.Command == "" || c.MQTT.Topics.Init == "" || c.MQTT.Topics.Response == "" {
		errs = append(errs, "mqtt.topics.command, init and response are required")
	}
	if c.MQTT.Topics.Command == c.MQTT.Topics.Init {
		errs = append(errs, "mqtt.topics.command and mqtt.topics.init must differ")
	}
	if c.MQTT.MaxPayload <= 0 {
		errs = append(errs, "mqtt.max_payload must be positive")
	}

	switch strings.ToLower(c.Wire.Codec) {
	case "json", "msgpack":
	default:
		errs = append(errs, "wire.codec must be json or msgpack")
	}

	if c.Capture.FrameQoS < 0 || c.Capture.FrameQoS > 2 {
		errs = append(errs, "capture.frame_qos must be 0, 1, or 2")
	}

	sim := c.Devices.Simulated
	if sim.Count < 0 {
		errs = append(errs, "devices.simulated.count must not be negative")
	}
	if sim.Count > 0 && (sim.Width <= 0 || sim.Height <= 0) {
		errs = append(errs, "devices.simulated.width and height must be positive")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetFrameInterval returns the simulated frame interval as a Duration.
func (c *Config) GetFrameInterval() time.Duration {
	return time.Duration(c.Devices.Simulated.FrameIntervalMS) * time.Millisecond
}

// GetHealthInterval returns the health publish interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Health.Interval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
