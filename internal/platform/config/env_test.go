package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port int `env:"REACTOR_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("REACTOR_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load server: %v", err)
	}
	if cfg.TickInterval != 16*time.Millisecond {
		t.Errorf("expected 16ms tick, got %s", cfg.TickInterval)
	}
	if cfg.AutosaveInterval != 30*time.Second {
		t.Errorf("expected 30s autosave, got %s", cfg.AutosaveInterval)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Addr)
	}
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("REACTOR_TICK_INTERVAL", "50ms")
	t.Setenv("REACTOR_SEED", "42")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load server: %v", err)
	}
	if cfg.TickInterval != 50*time.Millisecond {
		t.Errorf("expected 50ms tick, got %s", cfg.TickInterval)
	}
	if cfg.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Seed)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Server{
		TickInterval:         0,
		AutosaveInterval:     time.Second,
		SaveRetention:        0,
		BroadcastBuffer:      1,
		ClientSendBuffer:     1,
		MaxMessagesPerSecond: 1,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "tick interval") || !strings.Contains(err.Error(), "save retention") {
		t.Fatalf("expected both failures reported, got %v", err)
	}
}
