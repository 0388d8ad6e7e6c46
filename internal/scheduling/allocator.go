package scheduling

import (
	"errors"
	"sync"
	"time"
)

// SlotTimeLayout is the exact wire format for appointment times.
const SlotTimeLayout = "2006-01-02 15:04"

const (
	maxOffers    = 5
	firstHour    = 9
	lastHour     = 17 // hours after this roll to the next day
	maxBookAhead = 366 * 24 * time.Hour
)

var (
	// ErrBadSlotFormat indicates a slot string that does not match SlotTimeLayout.
	ErrBadSlotFormat = errors.New("scheduling: invalid slot format")
	// ErrSlotTaken indicates the (provider, time) pair is already booked.
	ErrSlotTaken = errors.New("scheduling: slot already booked")
	// ErrUnknownProvider indicates a provider id outside the roster.
	ErrUnknownProvider = errors.New("scheduling: unknown provider")
)

// Allocator computes available appointment slots and records bookings.
// The booking list is shared mutable state across every chat, so the
// check-then-append in BookSlot is serialized under one mutex.
type Allocator struct {
	mu        sync.Mutex
	providers []Provider
	bookings  []Booking
	now       func() time.Time
}

// AllocatorOption configures the allocator.
type AllocatorOption func(*Allocator)

// WithClock overrides the wall clock; tests inject a fixed time.
func WithClock(now func() time.Time) AllocatorOption {
	return func(a *Allocator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAllocator creates an allocator over the given provider roster.
func NewAllocator(providers []Provider, opts ...AllocatorOption) *Allocator {
	if len(providers) == 0 {
		providers = DefaultProviders()
	}
	a := &Allocator{
		providers: providers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ListAvailableSlots returns up to five offers, walking candidate hours from
// 09:00 the day after now and providers in roster order. The search is greedy
// and deterministic: identical calls under an unchanged booking set return
// identical output.
func (a *Allocator) ListAvailableSlots() []SlotOffer {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.now()
	cur := time.Date(n.Year(), n.Month(), n.Day()+1, firstHour, 0, 0, 0, n.Location())
	horizon := n.Add(maxBookAhead)

	offers := make([]SlotOffer, 0, maxOffers)
	for len(offers) < maxOffers && cur.Before(horizon) {
		if cur.Hour() > lastHour {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day()+1, firstHour, 0, 0, 0, cur.Location())
			continue
		}
		slot := cur.Format(SlotTimeLayout)
		for _, p := range a.providers {
			if a.isBookedLocked(p.ID, slot) {
				continue
			}
			offers = append(offers, SlotOffer{
				ProviderID:   p.ID,
				ProviderName: p.Name,
				Specialty:    p.Specialty,
				Slot:         slot,
			})
			if len(offers) == maxOffers {
				break
			}
		}
		cur = cur.Add(time.Hour)
	}
	return offers
}

// BookSlot validates the slot string, enforces the uniqueness invariant and
// appends the booking. Returns the assigned provider on success.
func (a *Allocator) BookSlot(providerID int, slot string) (Provider, error) {
	parsed, err := time.Parse(SlotTimeLayout, slot)
	if err != nil {
		return Provider{}, ErrBadSlotFormat
	}
	// Re-serialize so "2025-1-2 9:05" style inputs cannot alias a canonical slot.
	canonical := parsed.Format(SlotTimeLayout)

	provider, ok := a.providerByID(providerID)
	if !ok {
		return Provider{}, ErrUnknownProvider
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isBookedLocked(providerID, canonical) {
		return Provider{}, ErrSlotTaken
	}
	a.bookings = append(a.bookings, Booking{ProviderID: providerID, Slot: canonical})
	return provider, nil
}

// Bookings returns a snapshot of committed reservations.
func (a *Allocator) Bookings() []Booking {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Booking, len(a.bookings))
	copy(out, a.bookings)
	return out
}

func (a *Allocator) isBookedLocked(providerID int, slot string) bool {
	for _, b := range a.bookings {
		if b.ProviderID == providerID && b.Slot == slot {
			return true
		}
	}
	return false
}

func (a *Allocator) providerByID(id int) (Provider, bool) {
	for _, p := range a.providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}
