package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// Allocator runs allocation passes: given all requests on a slot in a
// source status (PENDING for normal passes, WAITLISTED for backfill
// after a cancellation) it confirms at most one winning group per pass.
// Winners are picked by fewest plays of the requester in the game's
// current fairness cycle, ties broken by earliest request — a strict,
// reproducible total order with no randomness.
//
// A pass is serialized per slot by an in-process keyed mutex and runs
// inside a single storage transaction, so a slot can never end up with
// two active bookings no matter how intake, the scheduler and backfill
// interleave.
type Allocator struct {
	uow      UnitOfWork
	notifier Notifier
	locks    *slotLocks
}

// NewAllocator wires an Allocator.  notifier may be nil, in which case
// winners are simply not notified.
func NewAllocator(uow UnitOfWork, notifier Notifier) *Allocator {
	return &Allocator{uow: uow, notifier: notifier, locks: newSlotLocks()}
}

// candidate pairs a request with its resolved group and fairness score
// for one pass.
type candidate struct {
	req   model.SlotRequest
	group []uint64
	score int
}

// assignment is what a committed pass reports back for notification.
type assignment struct {
	winners  []uint64
	gameName string
	startsAt time.Time
}

// AllocateForSlot evaluates every request on the slot carrying the
// source status and confirms at most one of them.  When no request is
// eligible the slot's availability is refreshed instead and no state
// beyond that changes.  Losing PENDING requests are demoted to
// WAITLISTED; losing WAITLISTED requests stay where they are.
func (a *Allocator) AllocateForSlot(ctx context.Context, slotID uint64, now time.Time, source model.RequestStatus) error {
	a.locks.acquire(slotID)
	defer a.locks.release(slotID)

	tx, err := a.uow.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	won, err := a.allocate(ctx, tx, slotID, now, source)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	if won != nil && a.notifier != nil {
		title := "Slot confirmed"
		msg := fmt.Sprintf("Your %s slot at %s is confirmed.",
			won.gameName, won.startsAt.Format("15:04 on Jan 2"))
		if err := a.notifier.NotifyUsers(ctx, won.winners, title, msg); err != nil {
			// Best effort only; the booking stands.
			log.Printf("allocator: notify winners of slot %d: %v", slotID, err)
		}
	}
	return nil
}

func (a *Allocator) allocate(ctx context.Context, tx AllocationTx, slotID uint64, now time.Time, source model.RequestStatus) (*assignment, error) {
	slot, err := tx.SlotForUpdate(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, ErrNotFound
	}
	// The slot may have been settled between the caller's read and this
	// pass taking the row lock (intake validates OPEN, then a scheduler
	// tick books the slot before the immediate allocation runs).  A
	// BOOKED or CANCELLED slot takes no further allocation.
	if slot.Status == model.SlotBooked || slot.Status == model.SlotCancelled {
		return nil, nil
	}
	game, err := tx.GameByID(ctx, slot.GameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrNotFound
	}

	requests, err := tx.RequestsBySlotStatus(ctx, slotID, source)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, refreshAvailability(ctx, tx, slot, now)
	}

	candidates := make([]candidate, 0, len(requests))
	for _, req := range requests {
		candidates = append(candidates, candidate{req: req, group: req.Group()})
	}

	// Fairness population: the game's interested users, or — named
	// fallback — the union of all candidate groups when nobody at all
	// opted in.
	population, err := tx.InterestedUserIDs(ctx, slot.GameID)
	if err != nil {
		return nil, err
	}
	if len(population) == 0 {
		population = unionGroups(candidates)
	}

	// Counts are queried for the population plus every requester: a
	// requester who toggled interest off after filing still scores with
	// their real play count, not zero.
	requesters := make([]uint64, 0, len(candidates))
	for _, c := range candidates {
		if c.req.RequesterID != 0 {
			requesters = append(requesters, c.req.RequesterID)
		}
	}
	cycleStart, counts, err := a.resolveCycle(ctx, tx, slot, population, union(population, requesters))
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		candidates[i].score = counts[candidates[i].req.RequesterID]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.score != cj.score {
			return ci.score < cj.score
		}
		if !ci.req.CreatedAt.Equal(cj.req.CreatedAt) {
			return ci.req.CreatedAt.Before(cj.req.CreatedAt)
		}
		return ci.req.ID < cj.req.ID
	})

	day := dateOf(slot.StartsAt)
	booked, err := tx.BookedUserIDsOn(ctx, day, union(population, unionGroups(candidates)))
	if err != nil {
		return nil, err
	}

	winner := pickWinner(candidates, game.MaxPlayers, booked)
	if winner == nil {
		return nil, refreshAvailability(ctx, tx, slot, now)
	}

	// Booking creator: the requester, or — named fallback — the first
	// group member when no requester resolved on the request row.
	creator := winner.req.RequesterID
	if creator == 0 {
		creator = winner.group[0]
	}
	booking := &model.Booking{
		GameID:       slot.GameID,
		SlotID:       slot.ID,
		BookingDate:  day,
		StartTime:    slot.StartsAt.Format("15:04"),
		EndTime:      slot.EndsAt.Format("15:04"),
		Status:       model.BookingBooked,
		CreatedBy:    creator,
		Participants: winner.group,
	}
	if err := tx.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}
	for _, uid := range winner.group {
		if err := tx.RecordPlay(ctx, slot.GameID, uid, cycleStart, slot.StartsAt); err != nil {
			return nil, err
		}
	}
	if err := tx.UpdateRequestStatus(ctx, winner.req.ID, model.RequestAssigned); err != nil {
		return nil, err
	}
	if source == model.RequestPending {
		if err := tx.WaitlistPendingSiblings(ctx, slot.ID, winner.req.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.UpdateSlotStatus(ctx, slot.ID, model.SlotBooked); err != nil {
		return nil, err
	}
	return &assignment{winners: winner.group, gameName: game.Name, startsAt: slot.StartsAt}, nil
}

// resolveCycle finds the game's active fairness cycle for this slot,
// opening a new one when none exists or the last one ended before the
// slot starts, and closing-and-reopening when every population member
// has already played in it.  It returns the effective cycle start and
// the scored users' play counts within that cycle (zeroed after a
// rollover).  Rollover is judged on the population alone; scored may
// additionally carry requesters outside it.
func (a *Allocator) resolveCycle(ctx context.Context, tx AllocationTx, slot *model.Slot, population, scored []uint64) (time.Time, map[uint64]int, error) {
	cycle, err := tx.ActiveCycle(ctx, slot.GameID)
	if err != nil {
		return time.Time{}, nil, err
	}
	cycleStart := slot.StartsAt
	if cycle != nil && !cycle.Closed(slot.StartsAt) {
		cycleStart = cycle.Start
	}

	counts, err := tx.PlayCounts(ctx, slot.GameID, cycleStart, scored)
	if err != nil {
		return time.Time{}, nil, err
	}
	if len(population) > 0 && everyonePlayed(population, counts) {
		// Cycle complete: close it at the slot start and begin a fresh
		// one with all counts back at zero.
		if err := tx.CloseCycle(ctx, slot.GameID, cycleStart, slot.StartsAt); err != nil {
			return time.Time{}, nil, err
		}
		cycleStart = slot.StartsAt
		counts = make(map[uint64]int, len(scored))
	}
	return cycleStart, counts, nil
}

// pickWinner returns the first candidate in sorted order whose group
// fits the capacity and has no member already booked that day.
func pickWinner(candidates []candidate, maxPlayers int, booked map[uint64]struct{}) *candidate {
	for i := range candidates {
		c := &candidates[i]
		if len(c.group) == 0 || len(c.group) > maxPlayers {
			continue
		}
		if anyBooked(c.group, booked) {
			continue
		}
		return c
	}
	return nil
}

// refreshAvailability re-derives the slot's OPEN/LOCKED status when a
// pass books nobody, so a slot entering its lock window still locks on
// schedule.
func refreshAvailability(ctx context.Context, tx AllocationTx, slot *model.Slot, now time.Time) error {
	status, changed := AvailabilityTransition(slot, now)
	if !changed {
		return nil
	}
	return tx.UpdateSlotStatus(ctx, slot.ID, status)
}

func everyonePlayed(population []uint64, counts map[uint64]int) bool {
	for _, uid := range population {
		if counts[uid] < 1 {
			return false
		}
	}
	return true
}

func anyBooked(group []uint64, booked map[uint64]struct{}) bool {
	for _, uid := range group {
		if _, ok := booked[uid]; ok {
			return true
		}
	}
	return false
}

func unionGroups(candidates []candidate) []uint64 {
	var all []uint64
	for _, c := range candidates {
		all = union(all, c.group)
	}
	return all
}

func union(a, b []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(a)+len(b))
	out := make([]uint64, 0, len(a)+len(b))
	for _, s := range [][]uint64{a, b} {
		for _, id := range s {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
