package model

import "time"

// Cycle identifies one fairness epoch of a game.  A cycle opens when the
// previous one is exhausted (every interested user has played at least
// once) and stays open — End is nil — until it is closed.  The pair
// (game, Start) is the cycle's identity; play history rows reference it
// through their cycle_start column.
type Cycle struct {
	GameID uint64     // play_history.game_id
	Start  time.Time  // play_history.cycle_start
	End    *time.Time // play_history.cycle_end (nil while open)
}

// Closed reports whether the cycle has an end date at or before the
// given instant.  An open cycle (End nil) is never closed.
func (c *Cycle) Closed(at time.Time) bool {
	return c.End != nil && c.End.Before(at)
}

// PlayHistory counts how often a user played a game within one cycle.
// A row is created lazily the first time the user wins an allocation in
// the cycle and SlotsPlayed increments exactly once per confirmed
// booking the user participates in.  SlotsPlayed never decreases.
//
// Fields:
//  ID          – primary key identifier.
//  GameID      – game the cycle belongs to.
//  UserID      – user the count belongs to.
//  CycleStart  – start of the cycle this row counts toward.
//  CycleEnd    – end of the cycle, nil while the cycle is open.
//  SlotsPlayed – number of slots played within the cycle.
//  LastPlayed  – start time of the most recent slot played.
type PlayHistory struct {
	ID          uint64     // play_history.id
	GameID      uint64     // play_history.game_id
	UserID      uint64     // play_history.user_id
	CycleStart  time.Time  // play_history.cycle_start
	CycleEnd    *time.Time // play_history.cycle_end (nullable)
	SlotsPlayed int        // play_history.slots_played
	LastPlayed  time.Time  // play_history.last_played
}
