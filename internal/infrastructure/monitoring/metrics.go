package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the broker.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Window metrics
	WindowsActive  *prometheus.GaugeVec
	WindowsCreated *prometheus.CounterVec
	WindowsKilled  prometheus.Counter

	// Fanout metrics
	SubscribersActive  prometheus.Gauge
	BytesWritten       prometheus.Counter
	BytesRead          prometheus.Counter
	BytesDropped       prometheus.Counter
	SlowConsumerEvicts prometheus.Counter

	// Operation metrics
	OperationDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for a JSON status endpoint.
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	WindowsActive     int64
	ActiveConnections int64
	TotalDuration     float64
	RequestCount      int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "broker_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "broker_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "broker_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		WindowsActive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "broker_windows_active",
				Help: "Number of windows currently tracked, by source",
			},
			[]string{"source"},
		),
		WindowsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_windows_created_total",
				Help: "Total number of windows created, by source",
			},
			[]string{"source"},
		),
		WindowsKilled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "broker_windows_killed_total",
				Help: "Total number of windows killed",
			},
		),

		SubscribersActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "broker_subscribers_active",
				Help: "Number of subscribers currently attached across all windows",
			},
		),
		BytesWritten: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "broker_bytes_written_total",
				Help: "Total input bytes written to window hosts",
			},
		),
		BytesRead: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "broker_bytes_read_total",
				Help: "Total output bytes read from window hosts",
			},
		),
		BytesDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "broker_bytes_dropped_total",
				Help: "Total output bytes dropped by slow-consumer backpressure",
			},
		),
		SlowConsumerEvicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "broker_slow_consumer_evictions_total",
				Help: "Total number of subscribers evicted as slow consumers",
			},
		),

		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "broker_operation_duration_seconds",
				Help:    "Coordinator operation duration in seconds, by operation and outcome",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation", "status"},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "broker_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "broker_uptime_seconds",
				Help: "Broker uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric.
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordOperation records a Coordinator operation's outcome and duration.
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message.
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWindowsActive increments the active-window gauge for source.
func (m *Metrics) IncWindowsActive(source string) {
	m.WindowsActive.WithLabelValues(source).Inc()
	m.WindowsCreated.WithLabelValues(source).Inc()
	m.mu.Lock()
	m.snapshot.WindowsActive++
	m.mu.Unlock()
}

// DecWindowsActive decrements the active-window gauge for source.
func (m *Metrics) DecWindowsActive(source string) {
	m.WindowsActive.WithLabelValues(source).Dec()
	m.WindowsKilled.Inc()
	m.mu.Lock()
	if m.snapshot.WindowsActive > 0 {
		m.snapshot.WindowsActive--
	}
	m.mu.Unlock()
}

// AddBytesWritten records input bytes written to a host.
func (m *Metrics) AddBytesWritten(n int) {
	m.BytesWritten.Add(float64(n))
}

// AddBytesRead records output bytes read from a host.
func (m *Metrics) AddBytesRead(n int) {
	m.BytesRead.Add(float64(n))
}

// AddBytesDropped records bytes dropped by backpressure.
func (m *Metrics) AddBytesDropped(n int) {
	m.BytesDropped.Add(float64(n))
}

// IncSlowConsumerEvictions records a slow-consumer eviction.
func (m *Metrics) IncSlowConsumerEvictions() {
	m.SlowConsumerEvicts.Inc()
}

// IncSubscribersActive increments the active-subscriber gauge.
func (m *Metrics) IncSubscribersActive() {
	m.SubscribersActive.Inc()
}

// DecSubscribersActive decrements the active-subscriber gauge.
func (m *Metrics) DecSubscribersActive() {
	m.SubscribersActive.Dec()
}

// IncWSConnections increments the WebSocket connection gauge.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements the WebSocket connection gauge.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
