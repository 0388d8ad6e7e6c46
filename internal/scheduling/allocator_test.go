package scheduling

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestListAvailableSlotsStartsNextMorning(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	a := NewAllocator(DefaultProviders(), WithClock(fixedClock(now)))

	offers := a.ListAvailableSlots()
	require.Len(t, offers, 5)

	assert.Equal(t, "2026-03-11 09:00", offers[0].Slot)
	assert.Equal(t, 1, offers[0].ProviderID)
	assert.Equal(t, "2026-03-11 09:00", offers[1].Slot)
	assert.Equal(t, 2, offers[1].ProviderID)
	assert.Equal(t, "2026-03-11 10:00", offers[2].Slot)
	assert.Equal(t, "2026-03-11 10:00", offers[3].Slot)
	assert.Equal(t, "2026-03-11 11:00", offers[4].Slot)
}

func TestListAvailableSlotsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	a := NewAllocator(DefaultProviders(), WithClock(fixedClock(now)))

	assert.Equal(t, a.ListAvailableSlots(), a.ListAvailableSlots())
}

func TestListAvailableSlotsSkipsBookedPairs(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	a := NewAllocator(DefaultProviders(), WithClock(fixedClock(now)))

	_, err := a.BookSlot(1, "2026-03-11 09:00")
	require.NoError(t, err)

	for _, offer := range a.ListAvailableSlots() {
		if offer.ProviderID == 1 && offer.Slot == "2026-03-11 09:00" {
			t.Fatal("booked pair offered again")
		}
	}
	// The other provider keeps the hour.
	offers := a.ListAvailableSlots()
	assert.Equal(t, 2, offers[0].ProviderID)
	assert.Equal(t, "2026-03-11 09:00", offers[0].Slot)
}

func TestListAvailableSlotsRollsPastFullDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	a := NewAllocator(DefaultProviders(), WithClock(fixedClock(now)))

	// Fill every hour of the next working day for both providers.
	for hour := 9; hour <= 17; hour++ {
		for _, p := range DefaultProviders() {
			slot := fmt.Sprintf("2026-03-11 %02d:00", hour)
			_, err := a.BookSlot(p.ID, slot)
			require.NoError(t, err)
		}
	}

	offers := a.ListAvailableSlots()
	require.Len(t, offers, 5)
	assert.Equal(t, "2026-03-12 09:00", offers[0].Slot)
}

func TestBookSlotRejectsBadFormat(t *testing.T) {
	a := NewAllocator(DefaultProviders())

	for _, slot := range []string{"", "tomorrow", "2026-03-11", "2026-03-11T09:00", "09:00 2026-03-11"} {
		_, err := a.BookSlot(1, slot)
		assert.ErrorIs(t, err, ErrBadSlotFormat, "slot %q", slot)
	}
}

func TestBookSlotConflict(t *testing.T) {
	a := NewAllocator(DefaultProviders())

	provider, err := a.BookSlot(1, "2026-03-11 09:00")
	require.NoError(t, err)
	assert.Equal(t, "Dr. S. Rao (Pulmonology)", provider.DisplayName())

	_, err = a.BookSlot(1, "2026-03-11 09:00")
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Same hour with the other provider is still free.
	_, err = a.BookSlot(2, "2026-03-11 09:00")
	assert.NoError(t, err)

	assert.Len(t, a.Bookings(), 2)
}

func TestBookSlotUnknownProvider(t *testing.T) {
	a := NewAllocator(DefaultProviders())
	_, err := a.BookSlot(99, "2026-03-11 09:00")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestBookSlotConcurrentSingleWinner(t *testing.T) {
	a := NewAllocator(DefaultProviders())

	const racers = 8
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		go func() {
			_, err := a.BookSlot(1, "2026-03-11 10:00")
			errs <- err
		}()
	}

	var wins, conflicts int
	for i := 0; i < racers; i++ {
		switch err := <-errs; {
		case err == nil:
			wins++
		default:
			assert.ErrorIs(t, err, ErrSlotTaken)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)
	assert.Len(t, a.Bookings(), 1)
}
