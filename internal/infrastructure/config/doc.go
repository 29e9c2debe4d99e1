// Package config provides 12-factor configuration management for ptyd.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Terminal: Default shell, TERM, geometry and buffer sizes for sessions
//   - Stream: WebSocket send buffer and allowed origins
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Server.Address())
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - TERMINAL_SHELL, TERMINAL_TERM, TERMINAL_COLS, TERMINAL_ROWS
//   - TERMINAL_READ_BUFFER, TERMINAL_EVENT_BUFFER, TERMINAL_MAX_SESSIONS
//   - STREAM_SEND_BUFFER, STREAM_ALLOWED_ORIGINS
package config
