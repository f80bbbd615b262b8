package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.SendBuffer != 16 {
		t.Errorf("expected default send buffer 16, got %d", cfg.SendBuffer)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `listen_addr: ":9090"
redis_addr: "localhost:6379"
max_conns: 100
idle_timeout: 5m
command_rate: 20
command_window: 1s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("expected :9090, got %q", cfg.ListenAddr)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis addr, got %q", cfg.RedisAddr)
	}
	if cfg.MaxConns != 100 {
		t.Errorf("expected max_conns 100, got %d", cfg.MaxConns)
	}
	if cfg.IdleTimeout.Std() != 5*time.Minute {
		t.Errorf("expected 5m idle timeout, got %v", cfg.IdleTimeout.Std())
	}
	if cfg.CommandRate != 20 || cfg.CommandWindow.Std() != time.Second {
		t.Errorf("unexpected rate limit config: %d per %v", cfg.CommandRate, cfg.CommandWindow.Std())
	}
	// Unset keys keep their defaults.
	if cfg.JournalSize != 100 {
		t.Errorf("expected default journal size, got %d", cfg.JournalSize)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("idle_timeout: banana\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":7000")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("expected env override :7000, got %q", cfg.ListenAddr)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("expected env override redis:6379, got %q", cfg.RedisAddr)
	}
}
