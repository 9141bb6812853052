// Package config loads the FSS server's configuration from defaults, a
// file, and the environment, in that order of increasing precedence, the
// same three-layer approach the teacher's pkg/config package documents.
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

	"github.com/marmos91/fss/internal/bytesize"
)

// Config is the FSS server's static configuration.
type Config struct {
	// SocketPath is the AF_UNIX path the server listens on.
	SocketPath string `mapstructure:"socket_path" validate:"required" yaml:"socket_path"`

	// SocketBacklog is the requested listen backlog depth. It is validated
	// and passed to the server, which does not apply it to the listener.
	SocketBacklog int `mapstructure:"socket_backlog" validate:"gt=0" yaml:"socket_backlog"`

	// NWorkers is the fixed number of worker goroutines dispatching
	// accepted connections.
	NWorkers int `mapstructure:"n_workers" validate:"gt=0" yaml:"n_workers"`

	// MaxFiles is the storage engine's max_files capacity bound.
	MaxFiles int64 `mapstructure:"max_files" validate:"gt=0" yaml:"max_files"`

	// MaxBytes is the storage engine's max_bytes capacity bound, given as
	// a human-readable size ("64Mi", "512MB", or a bare integer).
	MaxBytes bytesize.ByteSize `mapstructure:"max_bytes" validate:"gt=0" yaml:"max_bytes"`

	// MaxClientsAtStart is validated and passed to the server, which does
	// not read it; it is not an enforced connection ceiling.
	MaxClientsAtStart int `mapstructure:"max_clients_at_start" validate:"gt=0" yaml:"max_clients_at_start"`

	// HashBuckets is an initial-capacity hint for the storage engine's
	// path-to-file map.
	HashBuckets int `mapstructure:"hash_buckets" yaml:"hash_buckets"`

	// LogFilePath names a log destination ("stdout", "stderr", or a file
	// path). fss-server start does not read it; the logger writes to
	// Logging.Output.
	LogFilePath string `mapstructure:"log_file_path" yaml:"log_file_path"`

	// Logging controls log level and output format.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls the optional Prometheus metrics HTTP endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout is a duration for graceful shutdown. It is parsed
	// and validated, but fss-server start does not read it: shutdown
	// waits for every worker to finish with no deadline.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	// Format is the log encoding: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	// Output is where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the HTTP server.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Port is the HTTP port metrics are exposed on.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load reads configuration from configPath (or the default location when
// empty), overlays environment variables prefixed FSS_, applies defaults
// for anything left unset, and validates the result. An FSS_ variable
// overrides only a key that the config file sets; when no file is found,
// the environment is not consulted.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration the way Load does, but returns a
// user-actionable error when no config file is found at the requested
// (or default) location.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"initialize one first:\n  fss-server init\n\n"+
				"or specify a custom file:\n  fss-server start --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}
	return Load(configPath)
}

// Validate checks cfg against its struct tags using go-playground/validator,
// the same validation library and `validate:` tag convention as the
// teacher's pkg/config.Config.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// SaveConfig writes cfg to path as YAML, creating parent directories as
// needed, mirroring pkg/config.SaveConfig.
func SaveConfig(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("FSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if os.IsNotExist(err) || asConfigFileNotFound(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func asConfigFileNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}

// configDecodeHooks composes the custom mapstructure decode hooks this
// config needs on top of viper's defaults: bytesize.ByteSize and
// time.Duration, both of which accept human-readable strings.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
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
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fss")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "fss")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// GetConfigDir exposes the configuration directory for the init command.
func GetConfigDir() string {
	return getConfigDir()
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
