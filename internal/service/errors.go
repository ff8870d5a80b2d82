// Package service implements the slot allocation core: slot generation
// and availability, request intake, the fairness allocation engine, the
// booking lifecycle and the scheduler loop.  Handlers translate the
// sentinel errors below into HTTP responses; nothing in this package
// knows about transports.
package service

import "errors"

// Validation and lookup failures surfaced synchronously to callers.
// Compare with errors.Is; none of these are retried automatically.
var (
	// ErrNotFound is returned when a referenced game, slot, request or
	// booking does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRange is returned by slot generation when the end date
	// precedes the start date.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidConfig is returned by slot generation when the game's
	// slot duration or operating window is unusable.
	ErrInvalidConfig = errors.New("invalid game configuration")

	// ErrSlotUnavailable is returned when the target slot is not OPEN.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrSlotStarted is returned when the target slot already started.
	ErrSlotStarted = errors.New("slot already started")

	// ErrTooManyParticipants is returned when more than three additional
	// participants remain after deduplication.
	ErrTooManyParticipants = errors.New("too many participants")

	// ErrCapacityExceeded is returned when the group would exceed the
	// game's max players per slot.
	ErrCapacityExceeded = errors.New("group exceeds slot capacity")

	// ErrNotInterested is returned when a group member lacks an active
	// interest flag for the game while the game has interested users.
	ErrNotInterested = errors.New("group member not interested in game")

	// ErrDuplicateRequest is returned when a group member already has an
	// active request, or an existing booking, on the same calendar day.
	ErrDuplicateRequest = errors.New("active request or booking exists for that day")

	// ErrForbidden is returned when a caller tries to cancel a request
	// or booking they do not own or participate in.
	ErrForbidden = errors.New("forbidden")
)
