// Package main is the entry point for ptyd, the PTY session daemon.
//
// ptyd spawns shells attached to pseudo-terminals and exposes them over a
// REST API and a WebSocket event stream. Output is streamed as pty-output
// frames and every session ends with exactly one pty-exit frame.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./ptyd -port 8000 -host 127.0.0.1 -shell /bin/bash
//
//	# Development mode (colored logs, debug level)
//	./ptyd -dev
//
// Signals:
//   - SIGINT, SIGTERM: kill all sessions and shut down
package main
