package config

import (
	"strings"
	"time"

	"github.com/marmos91/fss/internal/bytesize"
)

// ApplyDefaults fills in any zero-valued fields of cfg with sensible
// defaults, the same "zero value means unset" strategy
// pkg/config.ApplyDefaults uses.
func ApplyDefaults(cfg *Config) {
	if cfg.SocketPath == "" {
		cfg.SocketPath = "/tmp/fss.sock"
	}
	if cfg.SocketBacklog == 0 {
		cfg.SocketBacklog = 128
	}
	if cfg.NWorkers == 0 {
		cfg.NWorkers = 8
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 4096
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = bytesize.ByteSize(256 * bytesize.MiB)
	}
	if cfg.MaxClientsAtStart == 0 {
		cfg.MaxClientsAtStart = 64
	}
	if cfg.LogFilePath == "" {
		cfg.LogFilePath = "stdout"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
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

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// DefaultConfig returns a Config with every field at its zero value,
// ready for ApplyDefaults, the way pkg/config.GetDefaultConfig seeds a
// sample config file.
func DefaultConfig() *Config {
	return &Config{}
}
