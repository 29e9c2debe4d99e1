// Package types provides the data structures shared by the service registry,
// its providers and the transports that expose them.
//
// Core Types:
//   - Service: Service provider definition
//   - Tool: Service tool specification
//   - Context: Execution context for a tool call
//   - Result: Standard operation result
//   - ExecuteRequest: Tool invocation over HTTP
package types
