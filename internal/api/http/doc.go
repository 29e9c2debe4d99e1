// Package http exposes the session registry and the tool registry over a
// JSON REST API built on gin.
//
// Routes:
//   - GET /, GET /health: liveness and session count
//   - GET /sessions, POST /sessions: list and create
//   - GET /sessions/:id, DELETE /sessions/:id: describe and kill
//   - POST /sessions/:id/input, POST /sessions/:id/resize: write and resize
//   - GET /services, POST /services/execute: tool catalog and invocation
//
// Errors carry {"error", "kind"}; StatusFor maps terminal error kinds to
// status codes. Session output is not served here; subscribe to /stream.
package http
