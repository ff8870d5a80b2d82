package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
	"github.com/peopleops/recreation-booking/internal/service"
)

// Store bundles the repositories and exposes the allocation unit of
// work.  One Store serves the whole process; repositories share its
// *sql.DB pool.
type Store struct {
	DB        *sql.DB
	Games     *GameRepo
	Slots     *SlotRepo
	Requests  *RequestRepo
	Bookings  *BookingRepo
	History   *HistoryRepo
	Interests *InterestRepo
}

// NewStore builds a Store over one database pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:        db,
		Games:     NewGameRepo(db),
		Slots:     NewSlotRepo(db),
		Requests:  NewRequestRepo(db),
		Bookings:  NewBookingRepo(db),
		History:   NewHistoryRepo(db),
		Interests: NewInterestRepo(db),
	}
}

// Begin opens the transaction backing one allocation pass.  The
// returned AllocationTx must be committed or rolled back by the caller.
func (s *Store) Begin(ctx context.Context) (service.AllocationTx, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &allocTx{tx: tx, s: s}, nil
}

// allocTx adapts the repositories' Tx methods to the allocation
// engine's transactional contract.
type allocTx struct {
	tx *sql.Tx
	s  *Store
}

func (a *allocTx) Commit() error   { return a.tx.Commit() }
func (a *allocTx) Rollback() error { return a.tx.Rollback() }

func (a *allocTx) SlotForUpdate(ctx context.Context, slotID uint64) (*model.Slot, error) {
	return a.s.Slots.SlotForUpdateTx(ctx, a.tx, slotID)
}

func (a *allocTx) GameByID(ctx context.Context, gameID uint64) (*model.Game, error) {
	return a.s.Games.GameByIDTx(ctx, a.tx, gameID)
}

func (a *allocTx) RequestsBySlotStatus(ctx context.Context, slotID uint64, status model.RequestStatus) ([]model.SlotRequest, error) {
	return a.s.Requests.RequestsBySlotStatusTx(ctx, a.tx, slotID, status)
}

func (a *allocTx) InterestedUserIDs(ctx context.Context, gameID uint64) ([]uint64, error) {
	return a.s.Interests.InterestedUserIDsTx(ctx, a.tx, gameID)
}

func (a *allocTx) ActiveCycle(ctx context.Context, gameID uint64) (*model.Cycle, error) {
	return a.s.History.ActiveCycleTx(ctx, a.tx, gameID)
}

func (a *allocTx) CloseCycle(ctx context.Context, gameID uint64, start, end time.Time) error {
	return a.s.History.CloseCycleTx(ctx, a.tx, gameID, start, end)
}

func (a *allocTx) PlayCounts(ctx context.Context, gameID uint64, cycleStart time.Time, userIDs []uint64) (map[uint64]int, error) {
	return a.s.History.PlayCountsTx(ctx, a.tx, gameID, cycleStart, userIDs)
}

func (a *allocTx) BookedUserIDsOn(ctx context.Context, day time.Time, userIDs []uint64) (map[uint64]struct{}, error) {
	return a.s.Bookings.BookedUserIDsOnTx(ctx, a.tx, day, userIDs)
}

func (a *allocTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return a.s.Bookings.CreateBookingTx(ctx, a.tx, b)
}

func (a *allocTx) RecordPlay(ctx context.Context, gameID, userID uint64, cycleStart, playedAt time.Time) error {
	return a.s.History.RecordPlayTx(ctx, a.tx, gameID, userID, cycleStart, playedAt)
}

func (a *allocTx) UpdateRequestStatus(ctx context.Context, requestID uint64, status model.RequestStatus) error {
	return a.s.Requests.UpdateRequestStatusTx(ctx, a.tx, requestID, status)
}

func (a *allocTx) WaitlistPendingSiblings(ctx context.Context, slotID, winnerID uint64) error {
	return a.s.Requests.WaitlistPendingSiblingsTx(ctx, a.tx, slotID, winnerID)
}

func (a *allocTx) UpdateSlotStatus(ctx context.Context, slotID uint64, status model.SlotStatus) error {
	return a.s.Slots.UpdateSlotStatusTx(ctx, a.tx, slotID, status)
}
