package model

import "time"

// SlotStatus enumerates the lifecycle states of a slot.  OPEN and LOCKED
// toggle automatically as the current time approaches the slot start;
// BOOKED is set only by the allocation engine and CANCELLED only by an
// administrator.  BOOKED and CANCELLED are never touched by the
// automatic availability toggle.
type SlotStatus string

const (
	SlotOpen      SlotStatus = "OPEN"
	SlotLocked    SlotStatus = "LOCKED"
	SlotBooked    SlotStatus = "BOOKED"
	SlotCancelled SlotStatus = "CANCELLED"
)

// Slot is one bookable time window on a game.  Exactly one slot exists
// per (game, start time); generation is idempotent and slots are never
// deleted once created.
//
// Fields:
//  ID        – primary key identifier.
//  GameID    – owning game.
//  StartsAt  – absolute start timestamp (UTC).
//  EndsAt    – absolute end timestamp (UTC).
//  Status    – current SlotStatus.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Slot struct {
	ID        uint64     // slots.id
	GameID    uint64     // slots.game_id
	StartsAt  time.Time  // slots.starts_at
	EndsAt    time.Time  // slots.ends_at
	Status    SlotStatus // slots.status
	CreatedAt time.Time  // slots.created_at
	UpdatedAt time.Time  // slots.updated_at
}
