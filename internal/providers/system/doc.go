// Package system exposes daemon information as service tools.
//
// Tools:
//   - system.info: Version, runtime stats and live session count
//   - system.time: Current server time
//   - system.ping: Liveness check
package system
