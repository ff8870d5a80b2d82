package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopleops/recreation-booking/internal/model"
	"github.com/peopleops/recreation-booking/internal/service"
)

type intakeFixture struct {
	store  *memStore
	runner *recordingRunner
	svc    *service.IntakeService
	game   *model.Game
	slot   *model.Slot
	now    time.Time
}

// newIntakeFixture seeds a game with one open slot starting three hours
// from now, safely outside the immediate allocation window.
func newIntakeFixture(t *testing.T, blockBookedDay bool) *intakeFixture {
	t.Helper()
	m := newMemStore()
	game := m.addGame(model.Game{Name: "Table Tennis", MaxPlayers: 4})
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(3 * time.Hour)})
	runner := &recordingRunner{}
	svc := service.NewIntakeService(m, m, m, m, m, &noopCanceller{}, runner, fixedClock(now), blockBookedDay)
	return &intakeFixture{store: m, runner: runner, svc: svc, game: game, slot: slot, now: now}
}

type noopCanceller struct{ calls []uint64 }

func (n *noopCanceller) CancelBookingBySlot(_ context.Context, slotID, _ uint64) error {
	n.calls = append(n.calls, slotID)
	return nil
}

func TestRequestSlotPending(t *testing.T) {
	f := newIntakeFixture(t, true)

	req, err := f.svc.RequestSlot(context.Background(), f.game.ID, f.slot.ID, 10, []uint64{11, 12})
	require.NoError(t, err)

	assert.Equal(t, model.RequestPending, req.Status)
	assert.Equal(t, uint64(10), req.RequesterID)
	assert.Equal(t, []uint64{11, 12}, req.Participants)
	// Outside the immediate window nothing is allocated synchronously.
	assert.Empty(t, f.runner.slots)
}

func TestRequestSlotImmediateWindowAllocates(t *testing.T) {
	m := newMemStore()
	game := m.addGame(model.Game{Name: "Table Tennis", MaxPlayers: 4})
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(45 * time.Minute)})

	// Wire the real allocator so the returned request reflects the
	// outcome of the synchronous pass.
	alloc := service.NewAllocator(m, nil)
	svc := service.NewIntakeService(m, m, m, m, m, &noopCanceller{}, alloc, fixedClock(now), true)

	req, err := svc.RequestSlot(context.Background(), game.ID, slot.ID, 10, nil)
	require.NoError(t, err)

	assert.Equal(t, model.RequestAssigned, req.Status)
	assert.Equal(t, model.SlotBooked, m.slotStatus(slot.ID))
	assert.Len(t, m.activeBookings(), 1)
}

func TestRequestSlotDedupesParticipants(t *testing.T) {
	f := newIntakeFixture(t, true)

	// Duplicates, zeros and the requester are filtered before the
	// teammate cap applies.
	req, err := f.svc.RequestSlot(context.Background(), f.game.ID, f.slot.ID, 10, []uint64{11, 11, 10, 0, 12})
	require.NoError(t, err)
	assert.Equal(t, []uint64{11, 12}, req.Participants)
}

func TestRequestSlotValidation(t *testing.T) {
	f := newIntakeFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.RequestSlot(ctx, f.game.ID, 404, 10, nil)
	assert.ErrorIs(t, err, service.ErrNotFound)

	// Slot belongs to a different game.
	other := f.store.addGame(model.Game{Name: "Darts", MaxPlayers: 4})
	_, err = f.svc.RequestSlot(ctx, other.ID, f.slot.ID, 10, nil)
	assert.ErrorIs(t, err, service.ErrNotFound)

	locked := f.store.addSlot(model.Slot{GameID: f.game.ID, StartsAt: f.now.Add(4 * time.Hour), Status: model.SlotLocked})
	_, err = f.svc.RequestSlot(ctx, f.game.ID, locked.ID, 10, nil)
	assert.ErrorIs(t, err, service.ErrSlotUnavailable)

	started := f.store.addSlot(model.Slot{GameID: f.game.ID, StartsAt: f.now.Add(-time.Hour)})
	_, err = f.svc.RequestSlot(ctx, f.game.ID, started.ID, 10, nil)
	assert.ErrorIs(t, err, service.ErrSlotStarted)

	_, err = f.svc.RequestSlot(ctx, f.game.ID, f.slot.ID, 10, []uint64{11, 12, 13, 14})
	assert.ErrorIs(t, err, service.ErrTooManyParticipants)

	// Group of three fits the teammate cap but not this game's capacity.
	small := f.store.addGame(model.Game{Name: "Chess", MaxPlayers: 2})
	smallSlot := f.store.addSlot(model.Slot{GameID: small.ID, StartsAt: f.now.Add(5 * time.Hour)})
	_, err = f.svc.RequestSlot(ctx, small.ID, smallSlot.ID, 10, []uint64{11, 12})
	assert.ErrorIs(t, err, service.ErrCapacityExceeded)
}

func TestRequestSlotInterestGate(t *testing.T) {
	f := newIntakeFixture(t, true)
	ctx := context.Background()

	// Nobody interested: the gate is bypassed entirely.
	_, err := f.svc.RequestSlot(ctx, f.game.ID, f.slot.ID, 10, []uint64{11})
	require.NoError(t, err)

	// With an interest list every group member must be on it.
	require.NoError(t, f.store.SetInterest(ctx, 20, f.game.ID, true))
	slot2 := f.store.addSlot(model.Slot{GameID: f.game.ID, StartsAt: f.now.Add(4 * time.Hour)})
	_, err = f.svc.RequestSlot(ctx, f.game.ID, slot2.ID, 20, []uint64{21})
	assert.ErrorIs(t, err, service.ErrNotInterested)

	require.NoError(t, f.store.SetInterest(ctx, 21, f.game.ID, true))
	_, err = f.svc.RequestSlot(ctx, f.game.ID, slot2.ID, 20, []uint64{21})
	assert.NoError(t, err)
}

func TestRequestSlotOneActiveRequestPerDay(t *testing.T) {
	f := newIntakeFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.RequestSlot(ctx, f.game.ID, f.slot.ID, 10, nil)
	require.NoError(t, err)

	// Same day, different slot, overlapping member: rejected.
	later := f.store.addSlot(model.Slot{GameID: f.game.ID, StartsAt: f.now.Add(5 * time.Hour)})
	_, err = f.svc.RequestSlot(ctx, f.game.ID, later.ID, 20, []uint64{10})
	assert.ErrorIs(t, err, service.ErrDuplicateRequest)

	// Next day is fine.
	tomorrow := f.store.addSlot(model.Slot{GameID: f.game.ID, StartsAt: f.now.AddDate(0, 0, 1)})
	_, err = f.svc.RequestSlot(ctx, f.game.ID, tomorrow.ID, 10, nil)
	assert.NoError(t, err)
}

func TestRequestSlotBookedDayPolicy(t *testing.T) {
	seedBooking := func(f *intakeFixture) {
		f.store.addBooking(model.Booking{
			GameID: f.game.ID, SlotID: 999,
			BookingDate: midnight(f.slot.StartsAt),
			CreatedBy:   10, Participants: []uint64{10},
		})
	}

	strict := newIntakeFixture(t, true)
	seedBooking(strict)
	_, err := strict.svc.RequestSlot(context.Background(), strict.game.ID, strict.slot.ID, 10, nil)
	assert.ErrorIs(t, err, service.ErrDuplicateRequest)

	lax := newIntakeFixture(t, false)
	seedBooking(lax)
	_, err = lax.svc.RequestSlot(context.Background(), lax.game.ID, lax.slot.ID, 10, nil)
	assert.NoError(t, err)
}

func TestCancelRequest(t *testing.T) {
	f := newIntakeFixture(t, true)
	ctx := context.Background()

	req, err := f.svc.RequestSlot(ctx, f.game.ID, f.slot.ID, 10, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.CancelRequest(ctx, 404, 10), service.ErrNotFound)
	assert.ErrorIs(t, f.svc.CancelRequest(ctx, req.ID, 99), service.ErrForbidden)

	require.NoError(t, f.svc.CancelRequest(ctx, req.ID, 10))
	assert.Equal(t, model.RequestCancelled, f.store.requestStatus(req.ID))

	// Cancelling again is a no-op.
	require.NoError(t, f.svc.CancelRequest(ctx, req.ID, 10))
}

func TestCancelAssignedRequestDropsBooking(t *testing.T) {
	m := newMemStore()
	game := m.addGame(model.Game{Name: "Table Tennis", MaxPlayers: 4})
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(3 * time.Hour), Status: model.SlotBooked})
	req := m.addRequest(model.SlotRequest{SlotID: slot.ID, RequesterID: 10, Status: model.RequestAssigned, CreatedAt: now})

	canceller := &noopCanceller{}
	svc := service.NewIntakeService(m, m, m, m, m, canceller, &recordingRunner{}, fixedClock(now), true)

	require.NoError(t, svc.CancelRequest(context.Background(), req.ID, 10))
	assert.Equal(t, model.RequestCancelled, m.requestStatus(req.ID))
	assert.Equal(t, []uint64{slot.ID}, canceller.calls)
}

func TestSetInterest(t *testing.T) {
	f := newIntakeFixture(t, true)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SetInterest(ctx, 10, 404, true), service.ErrNotFound)

	require.NoError(t, f.svc.SetInterest(ctx, 10, f.game.ID, true))
	ids, err := f.store.InterestedUserIDs(ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10}, ids)

	require.NoError(t, f.svc.SetInterest(ctx, 10, f.game.ID, false))
	ids, err = f.store.InterestedUserIDs(ctx, f.game.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListMyRequests(t *testing.T) {
	f := newIntakeFixture(t, true)
	ctx := context.Background()

	mine, err := f.svc.RequestSlot(ctx, f.game.ID, f.slot.ID, 10, nil)
	require.NoError(t, err)
	other := f.store.addSlot(model.Slot{GameID: f.game.ID, StartsAt: f.now.Add(5 * time.Hour)})
	_, err = f.svc.RequestSlot(ctx, f.game.ID, other.ID, 20, nil)
	require.NoError(t, err)

	got, err := f.svc.ListMyRequests(ctx, 10, midnight(f.now), midnight(f.now).AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)
}
