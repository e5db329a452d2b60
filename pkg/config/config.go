// Package config loads and validates the client runtime's static
// configuration: bus address, authentication preferences, call/health
// timeouts, and the ambient logging/telemetry/metrics stack.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DBUSCLI_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// When no configuration file is found, Load returns the defaults without
// consulting environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full static configuration for a D-Bus client connection
// and the ambient stack (logging, telemetry, metrics) around it.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Bus configures the connection itself: address, authentication,
	// timeouts, health checking and reconnection.
	Bus BusConfig `mapstructure:"bus" yaml:"bus"`
}

// BusConfig configures a single Conn.
type BusConfig struct {
	// Address is a D-Bus server address string, e.g.
	// "unix:path=/run/dbus/system_bus_socket". Empty means use
	// DBUS_SESSION_BUS_ADDRESS.
	Address string `mapstructure:"address" yaml:"address,omitempty"`

	// Mechanisms lists the SASL mechanisms to try, in order. Valid
	// values: external, dbus_cookie_sha1, anonymous, gssapi.
	Mechanisms []string `mapstructure:"mechanisms" validate:"omitempty,dive,oneof=external dbus_cookie_sha1 anonymous gssapi" yaml:"mechanisms,omitempty"`

	// CallTimeout bounds how long a method call waits for a reply. A zero
	// value is replaced by the 30s default when defaults are applied.
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout,omitempty"`

	// HealthCheck configures the periodic Peer.Ping health prober. Zero
	// Interval disables health probing.
	HealthCheck HealthCheckConfig `mapstructure:"health_check" yaml:"health_check,omitempty"`

	// Reconnect configures automatic reconnection after the connection
	// fails.
	Reconnect ReconnectConfig `mapstructure:"reconnect" yaml:"reconnect,omitempty"`

	// GSSAPI holds settings for the optional Kerberos SASL mechanism. No
	// code in this module reads it to construct a sasl.GSSAPI.
	GSSAPI GSSAPIConfig `mapstructure:"gssapi" yaml:"gssapi,omitempty"`
}

// HealthCheckConfig configures the connection's background health prober.
type HealthCheckConfig struct {
	// Interval is how often to send Peer.Ping. Zero disables health
	// checking entirely.
	Interval time.Duration `mapstructure:"interval" yaml:"interval,omitempty"`

	// MaxFailures is how many consecutive failed probes move the
	// connection to the unhealthy state.
	MaxFailures int `mapstructure:"max_failures" validate:"omitempty,min=1" yaml:"max_failures,omitempty"`
}

// ReconnectConfig configures automatic reconnection after a connection
// failure.
type ReconnectConfig struct {
	// Enabled turns on the background reconnect loop.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// InitialBackoff is the delay before the first reconnect attempt.
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff,omitempty"`

	// MaxBackoff caps the exponential backoff between attempts.
	MaxBackoff time.Duration `mapstructure:"max_backoff" yaml:"max_backoff,omitempty"`
}

// GSSAPIConfig configures the optional Kerberos SASL mechanism.
type GSSAPIConfig struct {
	// ServicePrincipal is the target service's Kerberos principal name,
	// e.g. "dbus/bus.example.com@EXAMPLE.COM".
	ServicePrincipal string `mapstructure:"service_principal" yaml:"service_principal,omitempty"`

	// KeytabPath is the path to the client's keytab file.
	KeytabPath string `mapstructure:"keytab_path" yaml:"keytab_path,omitempty"`

	// Krb5ConfPath is the path to krb5.conf. Defaults to /etc/krb5.conf.
	Krb5ConfPath string `mapstructure:"krb5_conf_path" yaml:"krb5_conf_path,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file
	// path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ServiceName identifies this client process to the trace backend.
	ServiceName string `mapstructure:"service_name" yaml:"service_name,omitempty"`

	// ServiceVersion is reported alongside ServiceName on every span's
	// resource attributes.
	ServiceVersion string `mapstructure:"service_version" yaml:"service_version,omitempty"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the file
// is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please create a configuration file first, or specify one explicitly:\n"+
				"  dbuscli --config /path/to/config.yaml <command>",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves cfg to path in YAML form.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DBUSCLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dbuscli")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dbuscli")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
