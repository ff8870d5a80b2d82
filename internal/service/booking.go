package service

import (
	"context"
	"log"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// BookingService cancels confirmed bookings and lists a user's
// bookings.  Cancelling frees the slot and immediately runs a backfill
// allocation pass over the slot's waitlist.
type BookingService struct {
	bookings BookingStore
	slots    SlotStore
	alloc    AllocationRunner
	clock    Clock
}

// NewBookingService wires a BookingService.  A nil clock falls back to
// the system clock.
func NewBookingService(bookings BookingStore, slots SlotStore, alloc AllocationRunner, clock Clock) *BookingService {
	if clock == nil {
		clock = RealClock{}
	}
	return &BookingService{bookings: bookings, slots: slots, alloc: alloc, clock: clock}
}

// CancelBooking cancels a booking by ID.  Only a participant or the
// creator may cancel; an already-cancelled booking is a no-op.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, requesterID uint64) error {
	b, err := s.bookings.BookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrNotFound
	}
	return s.cancel(ctx, b, requesterID)
}

// CancelBookingBySlot cancels the slot's active booking.  When the slot
// has none this is a silent no-op: a request cancellation can race a
// booking cancellation and both must settle cleanly.
func (s *BookingService) CancelBookingBySlot(ctx context.Context, slotID, requesterID uint64) error {
	b, err := s.bookings.ActiveBookingBySlot(ctx, slotID)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	return s.cancel(ctx, b, requesterID)
}

func (s *BookingService) cancel(ctx context.Context, b *model.Booking, requesterID uint64) error {
	if !b.HasParticipant(requesterID) {
		return ErrForbidden
	}
	if b.Status == model.BookingCancelled {
		return nil
	}
	now := s.clock.Now()
	if err := s.bookings.CancelBooking(ctx, b.ID, now); err != nil {
		return err
	}
	if b.SlotID == 0 {
		return nil
	}
	// The slot is no longer booked; reopen it so the backfill pass (or
	// its availability refresh) can re-derive the right status from the
	// current time.
	if err := s.slots.UpdateSlotStatus(ctx, b.SlotID, model.SlotOpen); err != nil {
		return err
	}
	if err := s.alloc.AllocateForSlot(ctx, b.SlotID, now, model.RequestWaitlisted); err != nil {
		// The cancellation stands either way; the freed slot just stays
		// unfilled until something else touches it.
		log.Printf("booking: backfill for slot %d: %v", b.SlotID, err)
	}
	return nil
}

// ListMyBookings returns the user's non-cancelled bookings whose slot
// starts inside [from, to), enriched with participant display data and
// ordered by start time ascending.
func (s *BookingService) ListMyBookings(ctx context.Context, userID uint64, from, to time.Time) ([]model.BookingDetail, error) {
	return s.bookings.BookingsForUser(ctx, userID, from, to)
}
