// Package service provides the tool registry shared by the HTTP and WebSocket
// transports.
//
// Providers describe themselves with a types.Service and execute the tools
// they list. The registry routes a tool id such as "terminal.write" to the
// provider registered under the part before the first dot.
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	registry.Register(terminalProvider)
//	result, err := registry.Execute(ctx, "terminal.write", params, appCtx)
package service
