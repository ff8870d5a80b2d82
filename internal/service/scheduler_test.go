package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/peopleops/recreation-booking/internal/model"
	"github.com/peopleops/recreation-booking/internal/service"
)

func TestTickAllocatesWindowOnly(t *testing.T) {
	m := newMemStore()
	game := m.addGame(model.Game{Name: "Table Tennis"})
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(54 * time.Minute)})
	in1 := m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(55 * time.Minute)})
	in2 := m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(59 * time.Minute)})
	m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(60 * time.Minute)})
	m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(57 * time.Minute), Status: model.SlotLocked})

	runner := &recordingRunner{}
	sched := service.NewScheduler(m, runner, fixedClock(now))
	sched.RunAllocationTick(context.Background(), now)

	// Only OPEN slots starting in [now+55m, now+60m) are allocated; a
	// one-minute tick therefore covers each slot exactly once.
	assert.ElementsMatch(t, []uint64{in1.ID, in2.ID}, runner.slots)
	for _, src := range runner.sources {
		assert.Equal(t, model.RequestPending, src)
	}
}

func TestTickIsolatesPerSlotFailures(t *testing.T) {
	m := newMemStore()
	game := m.addGame(model.Game{Name: "Table Tennis"})
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	bad := m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(56 * time.Minute)})
	good := m.addSlot(model.Slot{GameID: game.ID, StartsAt: now.Add(57 * time.Minute)})

	runner := &recordingRunner{errFor: map[uint64]error{bad.ID: errors.New("deadlock")}}
	sched := service.NewScheduler(m, runner, fixedClock(now))
	sched.RunAllocationTick(context.Background(), now)

	// The failed slot does not stop the rest of the tick.
	assert.ElementsMatch(t, []uint64{bad.ID, good.ID}, runner.slots)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	m := newMemStore()
	sched := service.NewScheduler(m, &recordingRunner{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
