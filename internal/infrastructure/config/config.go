package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Fingerprint Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Device   DeviceConfig   `yaml:"device"`
	Image    ImageConfig    `yaml:"image"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host        string           `yaml:"host"`
	Port        int              `yaml:"port"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Version     string           `yaml:"version"`
	Timeouts    APITimeoutConfig `yaml:"timeouts"`
	CORS        CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// DeviceConfig contains fingerprint reader settings.
type DeviceConfig struct {
	// Driver selects the SDK implementation. "sim" is the built-in
	// simulated reader; other names must be registered at build time.
	Driver string `yaml:"driver"`

	// Index is the device index to open when multiple readers are attached.
	Index int `yaml:"index"`

	// CaptureTimeout is the maximum time to wait for a finger during a
	// single acquisition, in seconds.
	CaptureTimeout int `yaml:"capture_timeout"`

	// LightDuration is the default indicator light duration in seconds,
	// used when a request does not specify one.
	LightDuration float64 `yaml:"light_duration"`
}

// ImageConfig contains capture image encoding settings.
type ImageConfig struct {
	// Format is the transport encoding for captured frames: "png" or "bmp".
	Format string `yaml:"format"`

	// Quality is reserved for lossy formats and kept for configuration
	// compatibility. The lossless codecs ignore it.
	Quality int `yaml:"quality"`
}

// MQTTConfig contains MQTT broker connection settings.
// Publishing capture events is optional; the service runs without a broker.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings for capture telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
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
// Environment variables follow the pattern: FINGERPRINT_SECTION_KEY
// For example: FINGERPRINT_DATABASE_PATH, FINGERPRINT_API_PORT
//
// A missing config file is not an error: the service can be configured
// entirely from environment variables on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parsing config file: %w", unmarshalErr)
		}
	case os.IsNotExist(err):
		// Env-only configuration
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			Title:       "Fingerprint API",
			Description: "API for fingerprint capture and management",
			Version:     "1.0.0",
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 60,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/fingerprints.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Device: DeviceConfig{
			Driver:         "zkfp",
			Index:          0,
			CaptureTimeout: 30,
			LightDuration:  0.5,
		},
		Image: ImageConfig{
			Format:  "png",
			Quality: 95,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fingerprint-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FINGERPRINT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("FINGERPRINT_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v, ok := envInt("FINGERPRINT_API_PORT"); ok {
		cfg.API.Port = v
	}
	if v := os.Getenv("FINGERPRINT_API_TITLE"); v != "" {
		cfg.API.Title = v
	}
	if v := os.Getenv("FINGERPRINT_API_DESCRIPTION"); v != "" {
		cfg.API.Description = v
	}
	if v := os.Getenv("FINGERPRINT_API_VERSION"); v != "" {
		cfg.API.Version = v
	}

	// Database
	if v := os.Getenv("FINGERPRINT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Device
	if v := os.Getenv("FINGERPRINT_DEVICE_DRIVER"); v != "" {
		cfg.Device.Driver = v
	}
	if v, ok := envInt("FINGERPRINT_DEVICE_INDEX"); ok {
		cfg.Device.Index = v
	}
	if v, ok := envInt("FINGERPRINT_DEVICE_TIMEOUT"); ok {
		cfg.Device.CaptureTimeout = v
	}

	// Image
	if v := os.Getenv("FINGERPRINT_IMAGE_FORMAT"); v != "" {
		cfg.Image.Format = strings.ToLower(v)
	}

	// MQTT
	if v := os.Getenv("FINGERPRINT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FINGERPRINT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FINGERPRINT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("FINGERPRINT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("FINGERPRINT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("FINGERPRINT_LOG_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}
}

// envInt reads an integer environment variable.
// Unset or unparseable values are ignored (ok=false).
func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Device.Index < 0 {
		errs = append(errs, "device.index must not be negative")
	}
	if c.Device.CaptureTimeout < 1 {
		errs = append(errs, "device.capture_timeout must be at least 1 second")
	}
	if c.Device.LightDuration <= 0 {
		errs = append(errs, "device.light_duration must be positive")
	}

	switch strings.ToLower(c.Image.Format) {
	case "png", "bmp":
	default:
		errs = append(errs, "image.format must be png or bmp")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set FINGERPRINT_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetCaptureTimeout returns the device capture timeout as a Duration.
func (c DeviceConfig) GetCaptureTimeout() time.Duration {
	return time.Duration(c.CaptureTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
