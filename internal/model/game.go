package model

import "time"

// Game represents a shared recreational resource (table tennis table,
// foosball table, pool table and so on) whose availability is divided
// into fixed-length slots.  Operating hours are stored as times of day
// in "HH:MM" form; when CloseTime is less than or equal to OpenTime the
// window spans midnight and closes on the following day.  Administrative
// edits never retroactively change slots that were already generated.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique display name of the game.
//  OpenTime    – time of day the resource opens ("HH:MM").
//  CloseTime   – time of day the resource closes ("HH:MM").
//  SlotMinutes – length of each generated slot in minutes.
//  MaxPlayers  – maximum group size allowed per slot.
//  IsActive    – whether the game accepts new requests.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Game struct {
	ID          uint64    // games.id
	Name        string    // games.name
	OpenTime    string    // games.open_time
	CloseTime   string    // games.close_time
	SlotMinutes int       // games.slot_minutes
	MaxPlayers  int       // games.max_players
	IsActive    bool      // games.is_active
	CreatedAt   time.Time // games.created_at
	UpdatedAt   time.Time // games.updated_at
}
