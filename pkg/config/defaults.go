package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields: zero values are replaced with defaults, explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyBusDefaults(&cfg.Bus)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "dbus-client"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "dev"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyBusDefaults(cfg *BusConfig) {
	if len(cfg.Mechanisms) == 0 {
		cfg.Mechanisms = []string{"external", "dbus_cookie_sha1", "anonymous"}
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.GSSAPI.Krb5ConfPath == "" {
		cfg.GSSAPI.Krb5ConfPath = "/etc/krb5.conf"
	}
	applyHealthCheckDefaults(&cfg.HealthCheck)
	applyReconnectDefaults(&cfg.Reconnect)
}

func applyHealthCheckDefaults(cfg *HealthCheckConfig) {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	// Interval has no default: zero means health checking is off.
}

func applyReconnectDefaults(cfg *ReconnectConfig) {
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Bus: BusConfig{
			Mechanisms: []string{"external", "dbus_cookie_sha1", "anonymous"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
