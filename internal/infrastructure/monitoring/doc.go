/*
Package monitoring provides Prometheus metrics for ptyd.

# Overview

Every collector is registered on the prometheus.Registerer passed to
NewMetrics, so tests can use a fresh registry and production can use the
default one.

# Metrics

- HTTP requests by method, route template and status, with latency
- Sessions active, created, failed to spawn and ended by reason
- Registry operations by result, with latency
- Bytes written to and read from PTYs
- WebSocket connections, frames by direction and type, dropped clients
- Process uptime

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(monitoring.Handler(reg)))

	timer := monitoring.NewTimer(metrics, "resize")
	// ... perform operation ...
	timer.Stop("ok")
*/
package monitoring
