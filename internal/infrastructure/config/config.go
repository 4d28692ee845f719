package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all broker configuration.
type Config struct {
	Server    ServerConfig
	Terminal  TerminalConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP/WebSocket server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// TerminalConfig holds Terminal Multiplexer resource and backend
// configuration.
type TerminalConfig struct {
	ScrollbackCapBytes int    `envconfig:"TERM_SCROLLBACK_CAP" default:"65536"`
	QueueCap           int    `envconfig:"TERM_QUEUE_CAP" default:"256"`
	EvictThreshBytes   int64  `envconfig:"TERM_EVICT_THRESH" default:"1048576"`
	KillGraceMillis    int    `envconfig:"TERM_KILL_GRACE_MS" default:"500"`
	OpTimeoutMillis    int    `envconfig:"TERM_OP_TIMEOUT_MS" default:"1000"`
	TmuxEnabled        bool   `envconfig:"TERM_TMUX_ENABLED" default:"true"`
	TmuxBinary         string `envconfig:"TERM_TMUX_BINARY" default:"tmux"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Terminal: TerminalConfig{
			ScrollbackCapBytes: 64 * 1024,
			QueueCap:           256,
			EvictThreshBytes:   1024 * 1024,
			KillGraceMillis:    500,
			OpTimeoutMillis:    1000,
			TmuxEnabled:        true,
			TmuxBinary:         "tmux",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
