package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopleops/recreation-booking/internal/model"
	"github.com/peopleops/recreation-booking/internal/service"
)

func seedBookedSlot(m *memStore) (*model.Game, *model.Slot, *model.Booking) {
	game := m.addGame(model.Game{Name: "Table Tennis", MaxPlayers: 4})
	slot := m.addSlot(model.Slot{GameID: game.ID, StartsAt: slotStart, Status: model.SlotBooked})
	booking := m.addBooking(model.Booking{
		GameID: game.ID, SlotID: slot.ID,
		BookingDate: midnight(slotStart),
		CreatedBy:   10, Participants: []uint64{10, 11},
	})
	return game, slot, booking
}

func TestCancelBookingReopensSlotAndBackfills(t *testing.T) {
	m := newMemStore()
	_, slot, booking := seedBookedSlot(m)

	runner := &recordingRunner{}
	now := slotStart.Add(-2 * time.Hour)
	svc := service.NewBookingService(m, m, runner, fixedClock(now))

	require.NoError(t, svc.CancelBooking(context.Background(), booking.ID, 11))

	got, err := m.BookingByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, now, *got.CancelledAt)

	assert.Equal(t, model.SlotOpen, m.slotStatus(slot.ID))
	require.Equal(t, []uint64{slot.ID}, runner.slots)
	assert.Equal(t, []model.RequestStatus{model.RequestWaitlisted}, runner.sources)
}

func TestCancelBookingAuthorization(t *testing.T) {
	m := newMemStore()
	_, _, booking := seedBookedSlot(m)
	svc := service.NewBookingService(m, m, &recordingRunner{}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.CancelBooking(ctx, 404, 10), service.ErrNotFound)
	assert.ErrorIs(t, svc.CancelBooking(ctx, booking.ID, 99), service.ErrForbidden)
}

func TestCancelBookingAlreadyCancelledIsNoop(t *testing.T) {
	m := newMemStore()
	_, _, booking := seedBookedSlot(m)
	runner := &recordingRunner{}
	svc := service.NewBookingService(m, m, runner, nil)
	ctx := context.Background()

	require.NoError(t, svc.CancelBooking(ctx, booking.ID, 10))
	require.Len(t, runner.slots, 1)

	// Second cancel changes nothing and triggers no second backfill.
	require.NoError(t, svc.CancelBooking(ctx, booking.ID, 10))
	assert.Len(t, runner.slots, 1)
}

func TestCancelBookingBySlotNoActiveBooking(t *testing.T) {
	m := newMemStore()
	game := m.addGame(model.Game{Name: "Table Tennis"})
	slot := m.addSlot(model.Slot{GameID: game.ID, StartsAt: slotStart})
	runner := &recordingRunner{}
	svc := service.NewBookingService(m, m, runner, nil)

	// Silent no-op so request cancellation can race booking cancellation.
	require.NoError(t, svc.CancelBookingBySlot(context.Background(), slot.ID, 10))
	assert.Empty(t, runner.slots)
}

func TestCancelBookingSurvivesBackfillFailure(t *testing.T) {
	m := newMemStore()
	_, slot, booking := seedBookedSlot(m)
	runner := &recordingRunner{err: errors.New("backfill broke")}
	svc := service.NewBookingService(m, m, runner, nil)

	require.NoError(t, svc.CancelBooking(context.Background(), booking.ID, 10))
	got, err := m.BookingByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, model.SlotOpen, m.slotStatus(slot.ID))
}

func TestCancelBookingPromotesWaitlistEndToEnd(t *testing.T) {
	m := newMemStore()
	_, slot, booking := seedBookedSlot(m)
	waiting := m.addRequest(model.SlotRequest{
		SlotID: slot.ID, RequesterID: 20,
		Status: model.RequestWaitlisted, CreatedAt: slotStart.Add(-3 * time.Hour),
	})

	// Real allocator: the cancellation must hand the slot straight to
	// the waitlisted group.
	alloc := service.NewAllocator(m, nil)
	now := slotStart.Add(-2 * time.Hour)
	svc := service.NewBookingService(m, m, alloc, fixedClock(now))

	require.NoError(t, svc.CancelBooking(context.Background(), booking.ID, 10))

	assert.Equal(t, model.RequestAssigned, m.requestStatus(waiting.ID))
	assert.Equal(t, model.SlotBooked, m.slotStatus(slot.ID))
	active := m.activeBookings()
	require.Len(t, active, 1)
	assert.Equal(t, uint64(20), active[0].CreatedBy)
}

func TestListMyBookings(t *testing.T) {
	m := newMemStore()
	game, slot, _ := seedBookedSlot(m)

	// A cancelled booking and someone else's booking must not show up.
	other := m.addSlot(model.Slot{GameID: game.ID, StartsAt: slotStart.Add(2 * time.Hour), Status: model.SlotBooked})
	m.addBooking(model.Booking{GameID: game.ID, SlotID: other.ID, BookingDate: midnight(slotStart), CreatedBy: 99, Participants: []uint64{99}})
	cancelledAt := slotStart
	m.addBooking(model.Booking{GameID: game.ID, SlotID: slot.ID, BookingDate: midnight(slotStart), CreatedBy: 10, Status: model.BookingCancelled, CancelledAt: &cancelledAt})

	svc := service.NewBookingService(m, m, &recordingRunner{}, nil)
	got, err := svc.ListMyBookings(context.Background(), 11, midnight(slotStart), midnight(slotStart).AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, game.Name, got[0].GameName)
	assert.Equal(t, slotStart, got[0].SlotStart)
}
