package monitoring

import "strings"

// GetMetricsPrometheus returns a fixed header of Prometheus comment
// lines and no metric values; the exposition itself is served by
// promhttp on /metrics.
func (m *Metrics) GetMetricsPrometheus() string {
	var sb strings.Builder

	// Note: Prometheus client_golang already handles exposition format
	// This is a placeholder for custom metrics if needed
	sb.WriteString("# Terminal Broker Metrics\n")
	sb.WriteString("# All metrics are collected via Prometheus client_golang\n")
	sb.WriteString("# Access via /metrics endpoint\n")

	return sb.String()
}
