package model

import "time"

// Interest is a user's opt-in flag for a game.  Only interested users
// belong to the game's fairness population; when nobody at all is
// flagged for a game the allocation engine falls back to treating the
// current candidates as the population.
type Interest struct {
	ID        uint64    // interests.id
	UserID    uint64    // interests.user_id
	GameID    uint64    // interests.game_id
	IsActive  bool      // interests.is_active
	UpdatedAt time.Time // interests.updated_at
}
