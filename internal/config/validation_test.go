package config

import (
	"strings"
	"testing"
)

func TestValidateValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("expected valid config to pass validation, got: %v", err)
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "TRACE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for unknown log format")
	}
}

func TestValidateRejectsZeroWorkers(t *testing.T) {
	cfg := validConfig()
	cfg.NWorkers = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for n_workers=0")
	}
}

func TestValidateRejectsMetricsPortOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for out-of-range metrics port")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("expected 'max' validation error, got: %v", err)
	}
}

func TestValidateAllowsZeroMetricsPortWhenDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 0

	if err := Validate(cfg); err != nil {
		t.Errorf("expected omitempty port validation to allow zero when disabled, got: %v", err)
	}
}

func TestValidateRejectsMissingSocketPath(t *testing.T) {
	cfg := validConfig()
	cfg.SocketPath = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for empty socket_path")
	}
}
