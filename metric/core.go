package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the platform-level metrics for simulation components.
type Metrics struct {
	// Component metrics
	ComponentState    *prometheus.GaugeVec
	CurrentEpoch      *prometheus.GaugeVec
	EpochsCompleted   *prometheus.CounterVec
	MessagesReceived  *prometheus.CounterVec
	MessagesPublished *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec

	// Message bus metrics
	BusConnected  prometheus.Gauge
	BusReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "simulation",
				Subsystem: "component",
				Name:      "state",
				Help:      "Component run state (0=stopped, 1=running)",
			},
			[]string{"component"},
		),

		CurrentEpoch: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "simulation",
				Subsystem: "component",
				Name:      "current_epoch",
				Help:      "Latest epoch number received from the epoch coordinator",
			},
			[]string{"component"},
		),

		EpochsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simulation",
				Subsystem: "component",
				Name:      "epochs_completed_total",
				Help:      "Total number of epochs this component has completed",
			},
			[]string{"component"},
		),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simulation",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of messages received",
			},
			[]string{"component", "type"},
		),

		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simulation",
				Subsystem: "messages",
				Name:      "published_total",
				Help:      "Total number of messages published",
			},
			[]string{"component", "topic"},
		),

		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simulation",
				Subsystem: "messages",
				Name:      "dropped_total",
				Help:      "Total number of messages dropped (wrong simulation, bad payload, duplicates)",
			},
			[]string{"component", "reason"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simulation",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		BusConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "simulation",
				Subsystem: "bus",
				Name:      "connected",
				Help:      "Message bus connection status (0=disconnected, 1=connected)",
			},
		),

		BusReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "simulation",
				Subsystem: "bus",
				Name:      "reconnects_total",
				Help:      "Total number of message bus reconnections",
			},
		),
	}
}

// RecordComponentState updates the component run state metric.
func (m *Metrics) RecordComponentState(component string, running bool) {
	value := 0.0
	if running {
		value = 1.0
	}
	m.ComponentState.WithLabelValues(component).Set(value)
}

// RecordCurrentEpoch updates the latest received epoch number.
func (m *Metrics) RecordCurrentEpoch(component string, epoch int64) {
	m.CurrentEpoch.WithLabelValues(component).Set(float64(epoch))
}

// RecordEpochCompleted increments the completed epoch counter.
func (m *Metrics) RecordEpochCompleted(component string) {
	m.EpochsCompleted.WithLabelValues(component).Inc()
}

// RecordMessageReceived increments the received message counter.
func (m *Metrics) RecordMessageReceived(component, messageType string) {
	m.MessagesReceived.WithLabelValues(component, messageType).Inc()
}

// RecordMessagePublished increments the published message counter.
func (m *Metrics) RecordMessagePublished(component, topic string) {
	m.MessagesPublished.WithLabelValues(component, topic).Inc()
}

// RecordMessageDropped increments the dropped message counter.
func (m *Metrics) RecordMessageDropped(component, reason string) {
	m.MessagesDropped.WithLabelValues(component, reason).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordBusStatus updates the message bus connection status.
func (m *Metrics) RecordBusStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.BusConnected.Set(value)
}

// RecordBusReconnect increments the reconnection counter.
func (m *Metrics) RecordBusReconnect() {
	m.BusReconnects.Inc()
}
