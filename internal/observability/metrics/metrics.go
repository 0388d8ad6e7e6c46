// Package metrics exposes prometheus instrumentation for the intake flow.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the conversation pipeline.
// All observer methods are nil-safe so wiring metrics stays optional.
type IntakeMetrics struct {
	messagesTotal  *prometheus.CounterVec
	bookingsTotal  *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Messages handled, by step and outcome",
		}, []string{"step", "outcome"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts, by result",
		}, []string{"status"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "docai",
			Name:      "gateway_latency_seconds",
			Help:      "Latency of document understanding calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.bookingsTotal, m.gatewayLatency)
	return m
}

func (m *IntakeMetrics) ObserveMessage(step, outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(step, outcome).Inc()
}

func (m *IntakeMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *IntakeMetrics) ObserveGatewayLatency(op string, seconds float64) {
	if m == nil {
		return
	}
	m.gatewayLatency.WithLabelValues(op).Observe(seconds)
}
