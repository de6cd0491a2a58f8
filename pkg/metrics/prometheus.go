package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the meeting service
type Metrics struct {
	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Videoserver Gateway Metrics
	gatewayCommandsTotal   *prometheus.CounterVec
	gatewayCommandDuration *prometheus.HistogramVec
	gatewayErrorsTotal     *prometheus.CounterVec

	// Meeting Metrics
	meetingsActive     prometheus.Gauge
	meetingsTotal      prometheus.Counter
	participantsActive prometheus.Gauge
	participantsTotal  prometheus.Counter

	// WebSocket Metrics
	websocketConnections prometheus.Gauge
	eventsDeliveredTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	serviceLabel := prometheus.Labels{"service": serviceName}

	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: serviceLabel,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: serviceLabel,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: serviceLabel,
			},
		),
		gatewayCommandsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "videoserver_commands_total",
				Help:        "Total number of gateway commands sent",
				ConstLabels: serviceLabel,
			},
			[]string{"action"},
		),
		gatewayCommandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "videoserver_command_duration_seconds",
				Help:        "Gateway command latency in seconds",
				ConstLabels: serviceLabel,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		gatewayErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "videoserver_errors_total",
				Help:        "Total number of failed gateway commands",
				ConstLabels: serviceLabel,
			},
			[]string{"action", "kind"},
		),
		meetingsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "meetings_active",
				Help:        "Number of currently active meetings",
				ConstLabels: serviceLabel,
			},
		),
		meetingsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "meetings_started_total",
				Help:        "Total number of meetings started",
				ConstLabels: serviceLabel,
			},
		),
		participantsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "meeting_participants_active",
				Help:        "Number of participants currently in meetings",
				ConstLabels: serviceLabel,
			},
		),
		participantsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "meeting_participants_joined_total",
				Help:        "Total number of participant joins",
				ConstLabels: serviceLabel,
			},
		),
		websocketConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of active WebSocket event connections",
				ConstLabels: serviceLabel,
			},
		),
		eventsDeliveredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "events_delivered_total",
				Help:        "Total number of domain events delivered over WebSocket",
				ConstLabels: serviceLabel,
			},
			[]string{"type"},
		),
	}
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight request gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight request gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordGatewayCommand records a completed gateway command
func (m *Metrics) RecordGatewayCommand(action string, duration time.Duration) {
	m.gatewayCommandsTotal.WithLabelValues(action).Inc()
	m.gatewayCommandDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordGatewayError records a failed gateway command
func (m *Metrics) RecordGatewayError(action, kind string) {
	m.gatewayErrorsTotal.WithLabelValues(action, kind).Inc()
}

// MeetingStarted updates meeting gauges on start
func (m *Metrics) MeetingStarted() {
	m.meetingsTotal.Inc()
	m.meetingsActive.Inc()
}

// MeetingStopped updates meeting gauges on stop
func (m *Metrics) MeetingStopped() {
	m.meetingsActive.Dec()
}

// ParticipantJoined updates participant gauges on join
func (m *Metrics) ParticipantJoined() {
	m.participantsTotal.Inc()
	m.participantsActive.Inc()
}

// ParticipantLeft updates participant gauges on leave
func (m *Metrics) ParticipantLeft() {
	m.participantsActive.Dec()
}

// WebSocketConnected increments the WebSocket connection gauge
func (m *Metrics) WebSocketConnected() {
	m.websocketConnections.Inc()
}

// WebSocketDisconnected decrements the WebSocket connection gauge
func (m *Metrics) WebSocketDisconnected() {
	m.websocketConnections.Dec()
}

// EventDelivered records a delivered domain event
func (m *Metrics) EventDelivered(eventType string) {
	m.eventsDeliveredTotal.WithLabelValues(eventType).Inc()
}
