package model

import "time"

// BookingStatus enumerates booking states.  A booking is created BOOKED
// by the allocation engine and only ever transitions to CANCELLED.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "BOOKED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking is a confirmed assignment of a group to a slot.  The date and
// time-of-day bounds are denormalized from the slot so the record stays
// meaningful even if the slot row is later mutated.  At most one
// non-cancelled booking may exist per slot at any time.
//
// Fields:
//  ID           – primary key identifier.
//  GameID       – game the slot belongs to.
//  SlotID       – slot that was allocated.
//  BookingDate  – calendar date of the slot (midnight UTC).
//  StartTime    – slot start time of day ("HH:MM").
//  EndTime      – slot end time of day ("HH:MM").
//  Status       – BOOKED or CANCELLED.
//  CreatedBy    – user credited as creator (the winning requester, or a
//                 group member when no requester resolved).
//  CancelledAt  – cancellation timestamp, nil while active.
//  Participants – user IDs of the winning group.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Booking struct {
	ID           uint64        // bookings.id
	GameID       uint64        // bookings.game_id
	SlotID       uint64        // bookings.slot_id
	BookingDate  time.Time     // bookings.booking_date
	StartTime    string        // bookings.start_time
	EndTime      string        // bookings.end_time
	Status       BookingStatus // bookings.status
	CreatedBy    uint64        // bookings.created_by
	CancelledAt  *time.Time    // bookings.cancelled_at (nullable)
	Participants []uint64      // booking_participants.user_id
	CreatedAt    time.Time     // bookings.created_at
	UpdatedAt    time.Time     // bookings.updated_at
}

// HasParticipant reports whether the user belongs to the booking's
// group or created it.
func (b *Booking) HasParticipant(userID uint64) bool {
	if userID == b.CreatedBy {
		return true
	}
	for _, id := range b.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Participant carries display data for one member of a booking, used
// when listing bookings back to users.
type Participant struct {
	UserID      uint64 `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// BookingDetail is a booking enriched with game and participant display
// information for the listing endpoints.
type BookingDetail struct {
	Booking
	GameName  string        `json:"game_name"`
	SlotStart time.Time     `json:"slot_start"`
	SlotEnd   time.Time     `json:"slot_end"`
	People    []Participant `json:"participants"`
}
