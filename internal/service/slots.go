package service

import (
	"context"
	"log"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// availabilityLead is how close to its start a slot gets locked for new
// requests.
const availabilityLead = time.Minute

// SlotService generates slots from a game's operating hours and keeps
// slot availability consistent with the current time.
type SlotService struct {
	games GameStore
	slots SlotStore
	clock Clock
}

// NewSlotService wires a SlotService.  A nil clock falls back to the
// system clock.
func NewSlotService(games GameStore, slots SlotStore, clock Clock) *SlotService {
	if clock == nil {
		clock = RealClock{}
	}
	return &SlotService{games: games, slots: slots, clock: clock}
}

// GenerateSlots creates OPEN slots for every day in [startDate, endDate]
// by walking the game's operating window in slot-duration steps.  When
// the configured close time is not after the open time the window spans
// midnight and closes the next day.  Start times that already have a
// slot are skipped, so repeated calls over overlapping ranges never
// produce duplicates.  Returns the newly created slots.
func (s *SlotService) GenerateSlots(ctx context.Context, gameID uint64, startDate, endDate time.Time) ([]model.Slot, error) {
	game, err := s.games.GameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrNotFound
	}

	startDate = dateOf(startDate)
	endDate = dateOf(endDate)
	if endDate.Before(startDate) {
		return nil, ErrInvalidRange
	}
	if game.SlotMinutes <= 0 {
		return nil, ErrInvalidConfig
	}
	open, err := parseClockTime(game.OpenTime)
	if err != nil {
		return nil, ErrInvalidConfig
	}
	close, err := parseClockTime(game.CloseTime)
	if err != nil {
		return nil, ErrInvalidConfig
	}
	slotDur := time.Duration(game.SlotMinutes) * time.Minute

	// A midnight-spanning window on the last day can produce slots up
	// to two days past endDate's midnight, so widen the existing-slot
	// query accordingly.
	existing, err := s.slots.SlotStartsByGame(ctx, gameID, startDate, endDate.AddDate(0, 0, 2))
	if err != nil {
		return nil, err
	}

	var fresh []model.Slot
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		winStart := day.Add(open)
		winEnd := day.Add(close)
		if close <= open {
			winEnd = winEnd.AddDate(0, 0, 1)
		}
		for t := winStart; !t.Add(slotDur).After(winEnd); t = t.Add(slotDur) {
			if _, ok := existing[t]; ok {
				continue
			}
			fresh = append(fresh, model.Slot{
				GameID:   gameID,
				StartsAt: t,
				EndsAt:   t.Add(slotDur),
				Status:   model.SlotOpen,
			})
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	return s.slots.CreateSlots(ctx, fresh)
}

// AvailabilityTransition computes the automatic OPEN<->LOCKED toggle
// for a slot at the given instant.  It returns the status the slot
// should have and whether that differs from its current one.  BOOKED
// and CANCELLED slots never toggle.
func AvailabilityTransition(slot *model.Slot, now time.Time) (model.SlotStatus, bool) {
	switch slot.Status {
	case model.SlotBooked, model.SlotCancelled:
		return slot.Status, false
	}
	if !slot.StartsAt.After(now.Add(availabilityLead)) {
		if slot.Status == model.SlotOpen {
			return model.SlotLocked, true
		}
		return slot.Status, false
	}
	if slot.Status == model.SlotLocked {
		return model.SlotOpen, true
	}
	return slot.Status, false
}

// UpdateAvailability applies AvailabilityTransition and persists the
// slot when it changed.  It reports whether a transition occurred.
func (s *SlotService) UpdateAvailability(ctx context.Context, slot *model.Slot, now time.Time) (bool, error) {
	status, changed := AvailabilityTransition(slot, now)
	if !changed {
		return false, nil
	}
	if err := s.slots.UpdateSlotStatus(ctx, slot.ID, status); err != nil {
		return false, err
	}
	slot.Status = status
	return true, nil
}

// ListSlotsForRange returns slots starting inside [from, to) for one
// game (or all games when gameID is 0).  Reads self-heal: any slot
// whose availability is stale is toggled before being returned, so a
// display listing never shows an OPEN slot that is about to start.
func (s *SlotService) ListSlotsForRange(ctx context.Context, gameID uint64, from, to time.Time) ([]model.Slot, error) {
	slots, err := s.slots.SlotsForRange(ctx, gameID, from, to)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for i := range slots {
		if _, err := s.UpdateAvailability(ctx, &slots[i], now); err != nil {
			// Stale status in a listing is tolerable; the scheduler or
			// the next read will retry the persist.
			log.Printf("slots: refresh slot %d: %v", slots[i].ID, err)
		}
	}
	return slots, nil
}

// ListSlotsForDate returns the slots of one calendar day.
func (s *SlotService) ListSlotsForDate(ctx context.Context, gameID uint64, day time.Time) ([]model.Slot, error) {
	start := dateOf(day)
	return s.ListSlotsForRange(ctx, gameID, start, start.AddDate(0, 0, 1))
}
