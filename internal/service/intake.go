package service

import (
	"context"
	"log"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// immediateWindow is how close to a slot's start a new request gets
// allocated synchronously instead of waiting for the scheduler tick.
const immediateWindow = 60 * time.Minute

// maxExtraParticipants is how many teammates a requester may bring.
const maxExtraParticipants = 3

// BookingCanceller is the slice of the booking lifecycle that request
// cancellation needs: dropping the booking of an assigned request.
type BookingCanceller interface {
	CancelBookingBySlot(ctx context.Context, slotID, requesterID uint64) error
}

// IntakeService validates and records slot requests and handles request
// cancellation.
type IntakeService struct {
	games     GameStore
	slots     SlotStore
	requests  RequestStore
	interests InterestStore
	bookings  BookingStore
	canceller BookingCanceller
	alloc     AllocationRunner
	clock     Clock

	// blockBookedDay additionally rejects a request when a group member
	// already holds a booking on the slot's day.  Allocation would skip
	// such a group anyway; rejecting here turns a silent waitlist stall
	// into a synchronous error.
	blockBookedDay bool
}

// NewIntakeService wires an IntakeService.  A nil clock falls back to
// the system clock.
func NewIntakeService(games GameStore, slots SlotStore, requests RequestStore,
	interests InterestStore, bookings BookingStore, canceller BookingCanceller,
	alloc AllocationRunner, clock Clock, blockBookedDay bool) *IntakeService {
	if clock == nil {
		clock = RealClock{}
	}
	return &IntakeService{
		games:          games,
		slots:          slots,
		requests:       requests,
		interests:      interests,
		bookings:       bookings,
		canceller:      canceller,
		alloc:          alloc,
		clock:          clock,
		blockBookedDay: blockBookedDay,
	}
}

// RequestSlot records a group's request for an open slot.  The group is
// the requester plus up to three deduplicated teammates and must fit
// the game's capacity.  Every member needs an active interest flag for
// the game unless the game has no interested users at all, and no
// member may already hold an active request (or, policy permitting, a
// booking) on the slot's day.  Requests landing inside the immediate
// window are allocated synchronously before returning.
func (s *IntakeService) RequestSlot(ctx context.Context, gameID, slotID, requesterID uint64, participantIDs []uint64) (*model.SlotRequest, error) {
	slot, err := s.slots.SlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil || slot.GameID != gameID {
		return nil, ErrNotFound
	}
	game, err := s.games.GameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrNotFound
	}

	now := s.clock.Now()
	if slot.Status != model.SlotOpen {
		return nil, ErrSlotUnavailable
	}
	if slot.StartsAt.Before(now) {
		return nil, ErrSlotStarted
	}

	participants := dedupeParticipants(participantIDs, requesterID)
	if len(participants) > maxExtraParticipants {
		return nil, ErrTooManyParticipants
	}
	group := append([]uint64{requesterID}, participants...)
	if len(group) > game.MaxPlayers {
		return nil, ErrCapacityExceeded
	}

	interested, err := s.interests.InterestedUserIDs(ctx, gameID)
	if err != nil {
		return nil, err
	}
	// With zero interested users the interest gate is bypassed and
	// everyone counts as eligible.
	if len(interested) > 0 {
		flagged := make(map[uint64]struct{}, len(interested))
		for _, id := range interested {
			flagged[id] = struct{}{}
		}
		for _, id := range group {
			if _, ok := flagged[id]; !ok {
				return nil, ErrNotInterested
			}
		}
	}

	day := dateOf(slot.StartsAt)
	active, err := s.requests.ActiveRequesters(ctx, day, group)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, ErrDuplicateRequest
	}
	if s.blockBookedDay {
		booked, err := s.bookings.BookedUserIDsOn(ctx, day, group)
		if err != nil {
			return nil, err
		}
		if len(booked) > 0 {
			return nil, ErrDuplicateRequest
		}
	}

	req := &model.SlotRequest{
		SlotID:       slotID,
		RequesterID:  requesterID,
		Participants: participants,
		Status:       model.RequestPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	if !slot.StartsAt.After(now.Add(immediateWindow)) {
		// Same-hour request: resolve it now rather than leaving it for
		// a tick that may never cover this slot again.
		if err := s.alloc.AllocateForSlot(ctx, slotID, now, model.RequestPending); err != nil {
			log.Printf("intake: immediate allocation for slot %d: %v", slotID, err)
		} else if fresh, err := s.requests.RequestByID(ctx, req.ID); err == nil && fresh != nil {
			req = fresh
		}
	}
	return req, nil
}

// CancelRequest cancels one of the requester's own requests.  Cancelled
// and rejected requests are left untouched.  An assigned request first
// drops its booking, which triggers waitlist backfill for the slot.
func (s *IntakeService) CancelRequest(ctx context.Context, requestID, requesterID uint64) error {
	req, err := s.requests.RequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrNotFound
	}
	if req.RequesterID != requesterID {
		return ErrForbidden
	}
	switch req.Status {
	case model.RequestCancelled, model.RequestRejected:
		return nil
	case model.RequestAssigned:
		if err := s.canceller.CancelBookingBySlot(ctx, req.SlotID, requesterID); err != nil {
			return err
		}
	}
	return s.requests.UpdateRequestStatus(ctx, requestID, model.RequestCancelled)
}

// ListMyRequests returns the user's requests whose slot starts inside
// [from, to).
func (s *IntakeService) ListMyRequests(ctx context.Context, userID uint64, from, to time.Time) ([]model.SlotRequest, error) {
	return s.requests.RequestsByUser(ctx, userID, from, to)
}

// SetInterest toggles the user's fairness opt-in for a game.
func (s *IntakeService) SetInterest(ctx context.Context, userID, gameID uint64, active bool) error {
	game, err := s.games.GameByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrNotFound
	}
	return s.interests.SetInterest(ctx, userID, gameID, active)
}

// dedupeParticipants removes duplicates and the requester from the
// participant list while keeping the original order.
func dedupeParticipants(ids []uint64, requesterID uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := map[uint64]struct{}{requesterID: {}}
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
