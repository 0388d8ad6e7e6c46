// Package scheduling owns the provider roster, slot generation and booking
// bookkeeping for the intake flow.
package scheduling

import "fmt"

// Provider is a doctor that can be booked for an appointment.
type Provider struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// DisplayName renders the provider the way it appears in chat replies.
func (p Provider) DisplayName() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Specialty)
}

// DefaultProviders returns the administratively configured roster.
func DefaultProviders() []Provider {
	return []Provider{
		{ID: 1, Name: "Dr. S. Rao", Specialty: "Pulmonology"},
		{ID: 2, Name: "Dr. A. Patel", Specialty: "General Medicine"},
	}
}

// SlotOffer is a transient (provider, time) pairing presented to the user.
// It is cached on the session until the next refresh and never persisted.
type SlotOffer struct {
	ProviderID   int    `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	Specialty    string `json:"specialty"`
	Slot         string `json:"slot"`
}

// Booking is a committed (provider, time) reservation. No two bookings may
// share both fields.
type Booking struct {
	ProviderID int
	Slot       string
}
