package service

import (
	"context"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// The interfaces below are the storage collaborator consumed by the
// core.  The repository package implements them over MySQL; tests use
// in-memory fakes.  Lookup methods return (nil, nil) when the entity
// does not exist so callers can map absence to ErrNotFound without
// depending on driver error values.

// GameStore reads game configuration.
type GameStore interface {
	GameByID(ctx context.Context, id uint64) (*model.Game, error)
}

// SlotStore reads and writes slots outside of allocation transactions.
type SlotStore interface {
	SlotByID(ctx context.Context, id uint64) (*model.Slot, error)
	// SlotStartsByGame returns the set of start times of slots already
	// generated for the game inside [from, to).
	SlotStartsByGame(ctx context.Context, gameID uint64, from, to time.Time) (map[time.Time]struct{}, error)
	// CreateSlots persists new slots and returns them with IDs assigned.
	// Duplicate (game, start) pairs are silently skipped.
	CreateSlots(ctx context.Context, slots []model.Slot) ([]model.Slot, error)
	UpdateSlotStatus(ctx context.Context, slotID uint64, status model.SlotStatus) error
	// SlotsForRange lists slots whose start falls inside [from, to),
	// optionally restricted to one game (gameID 0 means all games).
	SlotsForRange(ctx context.Context, gameID uint64, from, to time.Time) ([]model.Slot, error)
	// OpenSlotsStartingBetween lists OPEN slots with start in [from, to).
	OpenSlotsStartingBetween(ctx context.Context, from, to time.Time) ([]model.Slot, error)
}

// RequestStore reads and writes slot requests outside of allocation
// transactions.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *model.SlotRequest) error
	RequestByID(ctx context.Context, id uint64) (*model.SlotRequest, error)
	UpdateRequestStatus(ctx context.Context, id uint64, status model.RequestStatus) error
	// ActiveRequesters returns which of the given users hold a PENDING,
	// WAITLISTED or ASSIGNED request whose slot falls on the given day.
	ActiveRequesters(ctx context.Context, day time.Time, userIDs []uint64) (map[uint64]struct{}, error)
	RequestsByUser(ctx context.Context, userID uint64, from, to time.Time) ([]model.SlotRequest, error)
}

// InterestStore reads and writes per-game interest flags.
type InterestStore interface {
	InterestedUserIDs(ctx context.Context, gameID uint64) ([]uint64, error)
	SetInterest(ctx context.Context, userID, gameID uint64, active bool) error
}

// BookingStore reads and writes bookings outside of allocation
// transactions.
type BookingStore interface {
	BookingByID(ctx context.Context, id uint64) (*model.Booking, error)
	// ActiveBookingBySlot returns the slot's non-cancelled booking, or
	// (nil, nil) when the slot has none.
	ActiveBookingBySlot(ctx context.Context, slotID uint64) (*model.Booking, error)
	CancelBooking(ctx context.Context, id uint64, at time.Time) error
	// BookedUserIDsOn returns which of the given users participate in a
	// non-cancelled booking dated on the given day.
	BookedUserIDsOn(ctx context.Context, day time.Time, userIDs []uint64) (map[uint64]struct{}, error)
	BookingsForUser(ctx context.Context, userID uint64, from, to time.Time) ([]model.BookingDetail, error)
}

// UnitOfWork opens the transaction that spans one allocation pass.
// Everything done through the returned AllocationTx commits or rolls
// back as a whole, which is what keeps "at most one active booking per
// slot" true under partial failure.
type UnitOfWork interface {
	Begin(ctx context.Context) (AllocationTx, error)
}

// AllocationTx is the transactional slice of storage the allocation
// engine needs.  The caller must Commit or Rollback.
type AllocationTx interface {
	Commit() error
	Rollback() error

	// SlotForUpdate loads the slot with a row lock so overlapping
	// allocation passes for the same slot serialize on the database as
	// well as on the in-process keyed mutex.
	SlotForUpdate(ctx context.Context, slotID uint64) (*model.Slot, error)
	GameByID(ctx context.Context, gameID uint64) (*model.Game, error)
	RequestsBySlotStatus(ctx context.Context, slotID uint64, status model.RequestStatus) ([]model.SlotRequest, error)
	InterestedUserIDs(ctx context.Context, gameID uint64) ([]uint64, error)
	// ActiveCycle returns the most recent fairness cycle of the game, or
	// (nil, nil) when the game never had one.
	ActiveCycle(ctx context.Context, gameID uint64) (*model.Cycle, error)
	CloseCycle(ctx context.Context, gameID uint64, start, end time.Time) error
	// PlayCounts returns slots-played per user within the cycle; users
	// without a row are absent from the map.
	PlayCounts(ctx context.Context, gameID uint64, cycleStart time.Time, userIDs []uint64) (map[uint64]int, error)
	BookedUserIDsOn(ctx context.Context, day time.Time, userIDs []uint64) (map[uint64]struct{}, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	// RecordPlay upserts the user's play-history row for the cycle,
	// incrementing slots_played by one.
	RecordPlay(ctx context.Context, gameID, userID uint64, cycleStart, playedAt time.Time) error
	UpdateRequestStatus(ctx context.Context, requestID uint64, status model.RequestStatus) error
	// WaitlistPendingSiblings demotes every PENDING request on the slot
	// except the winner to WAITLISTED.
	WaitlistPendingSiblings(ctx context.Context, slotID, winnerID uint64) error
	UpdateSlotStatus(ctx context.Context, slotID uint64, status model.SlotStatus) error
}

// Notifier is the outbound notification collaborator.  Implementations
// are best-effort: the allocation engine logs failures and never rolls
// a booking back because of one.
type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []uint64, title, message string) error
}

// AllocationRunner is the allocation engine entry point shared by the
// scheduler loop, request intake and the booking lifecycle.
type AllocationRunner interface {
	AllocateForSlot(ctx context.Context, slotID uint64, now time.Time, source model.RequestStatus) error
}
