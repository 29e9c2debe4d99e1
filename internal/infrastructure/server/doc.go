// Package server wires configuration, logging, metrics, the session registry,
// the tool registry and both transports into one HTTP server.
//
// Startup order matters: the websocket hub is created before the session
// registry because it is the registry's event sink. Shutdown runs in reverse:
// the listener stops, every session is killed and its exit event delivered,
// then websocket clients are disconnected.
package server
