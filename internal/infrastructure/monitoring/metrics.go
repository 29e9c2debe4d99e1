package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SpawnFailures   prometheus.Counter
	SessionExits    *prometheus.CounterVec

	// Control path metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Stream metrics
	BytesIn  prometheus.Counter
	BytesOut prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	WSDropped     prometheus.Counter

	startTime time.Time
}

// NewMetrics creates a metrics collector registered on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ptyd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ptyd_sessions_active",
				Help: "Number of sessions currently in the registry",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyd_sessions_created_total",
				Help: "Total number of sessions spawned",
			},
		),
		SpawnFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyd_spawn_failures_total",
				Help: "Total number of failed session spawns",
			},
		),
		SessionExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_session_exits_total",
				Help: "Total number of ended sessions by reason",
			},
			[]string{"reason"},
		),

		// Control path metrics
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_operations_total",
				Help: "Total number of control operations by result",
			},
			[]string{"op", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ptyd_operation_duration_seconds",
				Help:    "Control operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op"},
		),

		// Stream metrics
		BytesIn: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyd_input_bytes_total",
				Help: "Total bytes written to sessions",
			},
		),
		BytesOut: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyd_output_bytes_total",
				Help: "Total bytes read from sessions",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ptyd_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
		WSDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyd_ws_dropped_clients_total",
				Help: "Clients disconnected because their send queue was full",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ptyd_uptime_seconds",
			Help: "Daemon uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOperation records a control-path call and its outcome
func (m *Metrics) RecordOperation(op, result string, duration time.Duration) {
	m.Operations.WithLabelValues(op, result).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetSessionsActive sets the number of live sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
}

// IncSessionsCreated increments the spawned sessions counter
func (m *Metrics) IncSessionsCreated() {
	m.SessionsCreated.Inc()
}

// IncSpawnFailures increments the failed spawns counter
func (m *Metrics) IncSpawnFailures() {
	m.SpawnFailures.Inc()
}

// RecordSessionExit records why a session ended
func (m *Metrics) RecordSessionExit(reason string) {
	m.SessionExits.WithLabelValues(reason).Inc()
}

// AddBytesIn adds to the input byte counter
func (m *Metrics) AddBytesIn(n int) {
	m.BytesIn.Add(float64(n))
}

// AddBytesOut adds to the output byte counter
func (m *Metrics) AddBytesOut(n int) {
	m.BytesOut.Add(float64(n))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// IncWSDropped counts a client dropped for falling behind
func (m *Metrics) IncWSDropped() {
	m.WSDropped.Inc()
}
