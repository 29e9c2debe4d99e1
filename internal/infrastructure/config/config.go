package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Terminal  TerminalConfig
	Stream    StreamConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
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

// TerminalConfig holds PTY session defaults.
type TerminalConfig struct {
	Shell           string `envconfig:"TERMINAL_SHELL"`
	Term            string `envconfig:"TERMINAL_TERM" default:"xterm-256color"`
	Cols            uint16 `envconfig:"TERMINAL_COLS" default:"80"`
	Rows            uint16 `envconfig:"TERMINAL_ROWS" default:"24"`
	ReadBufferSize  int    `envconfig:"TERMINAL_READ_BUFFER" default:"4096"`
	EventBufferSize int    `envconfig:"TERMINAL_EVENT_BUFFER" default:"1024"`
	MaxSessions     int    `envconfig:"TERMINAL_MAX_SESSIONS" default:"0"`
}

// StreamConfig holds WebSocket event stream configuration.
type StreamConfig struct {
	SendBuffer     int      `envconfig:"STREAM_SEND_BUFFER" default:"256"`
	AllowedOrigins []string `envconfig:"STREAM_ALLOWED_ORIGINS" default:"*"`
}

// Validate rejects values that would leave the server unusable.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.Terminal.Cols == 0 || c.Terminal.Rows == 0 {
		return fmt.Errorf("terminal geometry must be positive, got %dx%d", c.Terminal.Cols, c.Terminal.Rows)
	}
	if c.Terminal.ReadBufferSize <= 0 {
		return fmt.Errorf("terminal read buffer must be positive, got %d", c.Terminal.ReadBufferSize)
	}
	if c.Terminal.MaxSessions < 0 {
		return fmt.Errorf("terminal max sessions must not be negative, got %d", c.Terminal.MaxSessions)
	}
	if c.Stream.SendBuffer <= 0 {
		return fmt.Errorf("stream send buffer must be positive, got %d", c.Stream.SendBuffer)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit must be positive when enabled, got %d", c.RateLimit.RequestsPerSecond)
	}
	return nil
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// AllowsAnyOrigin reports whether the origin list is the wildcard.
func (s StreamConfig) AllowsAnyOrigin() bool {
	for _, o := range s.AllowedOrigins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return len(s.AllowedOrigins) == 0
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
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
			Host: "127.0.0.1",
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
		Terminal: TerminalConfig{
			Term:            "xterm-256color",
			Cols:            80,
			Rows:            24,
			ReadBufferSize:  4096,
			EventBufferSize: 1024,
		},
		Stream: StreamConfig{
			SendBuffer:     256,
			AllowedOrigins: []string{"*"},
		},
	}
}
