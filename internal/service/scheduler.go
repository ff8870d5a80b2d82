package service

import (
	"context"
	"log"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// Scheduler tick geometry: every tickInterval the loop allocates all
// OPEN slots starting between now+allocWindowFrom and now+allocWindowTo.
// With a one-minute tick each slot is covered by exactly one window,
// about five minutes before it locks.
const (
	tickInterval    = time.Minute
	allocWindowFrom = 55 * time.Minute
	allocWindowTo   = 60 * time.Minute
)

// Scheduler is the background loop that drives allocation for slots
// entering their allocation window.
type Scheduler struct {
	slots    SlotStore
	alloc    AllocationRunner
	clock    Clock
	interval time.Duration
}

// NewScheduler wires a Scheduler with the standard one-minute tick.  A
// nil clock falls back to the system clock.
func NewScheduler(slots SlotStore, alloc AllocationRunner, clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{slots: slots, alloc: alloc, clock: clock, interval: tickInterval}
}

// Run ticks until the context is cancelled.  Cancellation is honored
// between ticks only, never mid-tick, so in-flight allocations are not
// torn down halfway.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("scheduler: started (tick %s)", s.interval)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopped: %v", ctx.Err())
			return
		case <-t.C:
			s.RunAllocationTick(ctx, s.clock.Now())
		}
	}
}

// RunAllocationTick allocates every open slot entering the allocation
// window.  A failure on one slot is logged and does not stop the rest
// of the tick; the failed slot's state is unchanged so the next pass
// over it retries naturally.
func (s *Scheduler) RunAllocationTick(ctx context.Context, now time.Time) {
	slots, err := s.slots.OpenSlotsStartingBetween(ctx, now.Add(allocWindowFrom), now.Add(allocWindowTo))
	if err != nil {
		log.Printf("scheduler: list slots: %v", err)
		return
	}
	for _, sl := range slots {
		if err := s.alloc.AllocateForSlot(ctx, sl.ID, now, model.RequestPending); err != nil {
			log.Printf("scheduler: allocate slot %d: %v", sl.ID, err)
		}
	}
}
