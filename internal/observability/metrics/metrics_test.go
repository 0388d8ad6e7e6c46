package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveMessageIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)

	m.ObserveMessage("ask_email", "retry")
	m.ObserveMessage("ask_email", "retry")
	m.ObserveMessage("choose_slot", "advanced")

	if got := testutil.ToFloat64(m.messagesTotal.WithLabelValues("ask_email", "retry")); got != 2 {
		t.Errorf("messages_total{ask_email,retry} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.messagesTotal.WithLabelValues("choose_slot", "advanced")); got != 1 {
		t.Errorf("messages_total{choose_slot,advanced} = %v, want 1", got)
	}
}

func TestObserveBooking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)

	m.ObserveBooking("confirmed")
	m.ObserveBooking("conflict")
	m.ObserveBooking("conflict")

	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("conflict")); got != 2 {
		t.Errorf("bookings_total{conflict} = %v, want 2", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *IntakeMetrics
	m.ObserveMessage("ask_email", "retry")
	m.ObserveBooking("confirmed")
	m.ObserveGatewayLatency("validate", 0.1)
}
