package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it can be written as "30s" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds server settings. Core protocol semantics are not
// configurable; these tune the transport collaborator and observability.
type Config struct {
	ListenAddr    string   `yaml:"listen_addr"`
	RedisAddr     string   `yaml:"redis_addr"`
	MaxConns      int      `yaml:"max_conns"`
	IdleTimeout   Duration `yaml:"idle_timeout"`
	SendBuffer    int      `yaml:"send_buffer"`
	ReadLimit     int64    `yaml:"read_limit"`
	JournalSize   int      `yaml:"journal_size"`
	CommandRate   int      `yaml:"command_rate"`
	CommandWindow Duration `yaml:"command_window"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		MaxConns:      0, // unlimited
		IdleTimeout:   0, // disabled
		SendBuffer:    16,
		ReadLimit:     4096,
		JournalSize:   100,
		CommandRate:   0, // disabled
		CommandWindow: Duration(time.Second),
	}
}

// Load reads the YAML file at path, falling back to defaults when the
// file does not exist. LISTEN_ADDR and REDIS_ADDR environment variables
// override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}

	return cfg, nil
}
