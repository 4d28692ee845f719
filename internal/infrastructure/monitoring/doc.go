/*
Package monitoring provides performance monitoring and metrics collection
for the terminal multiplexer broker.

# Overview

This package implements Prometheus-based metrics collection, tracking HTTP
requests, window lifecycle, subscriber fanout, and Coordinator operation
latency.

# Features

- HTTP request metrics (latency, throughput, size)
- Window lifecycle metrics (created/active by source, killed)
- Fanout metrics (subscribers active, bytes written/read/dropped, slow
  consumer evictions)
- Coordinator operation metrics (duration by operation and outcome)
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record domain metrics
	metrics.IncWindowsActive("direct-pty")
	metrics.AddBytesDropped(128)

	// Time a Coordinator operation
	timer := monitoring.NewTimer(metrics, "create")
	// ... perform operation ...
	timer.Stop("ok")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
