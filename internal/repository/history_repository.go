package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// HistoryRepo provides operations over play_history, the per-cycle play
// counters that drive fairness scoring.  Every method runs inside the
// allocation transaction: history only ever changes as part of a pass.
type HistoryRepo struct{ DB *sql.DB }

// NewHistoryRepo returns a HistoryRepo bound to the given database.
func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{DB: db} }

// ActiveCycleTx returns the game's most recent cycle (its start and,
// when closed, end), or (nil, nil) when the game never had one.
func (r *HistoryRepo) ActiveCycleTx(ctx context.Context, tx *sql.Tx, gameID uint64) (*model.Cycle, error) {
	var c model.Cycle
	var end sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT cycle_start, cycle_end FROM play_history
		 WHERE game_id = ? ORDER BY cycle_start DESC LIMIT 1`,
		gameID).Scan(&c.Start, &end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.GameID = gameID
	c.Start = c.Start.UTC()
	if end.Valid {
		t := end.Time.UTC()
		c.End = &t
	}
	return &c, nil
}

// CloseCycleTx stamps the end date onto every row of the cycle.
func (r *HistoryRepo) CloseCycleTx(ctx context.Context, tx *sql.Tx, gameID uint64, start, end time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE play_history SET cycle_end = ? WHERE game_id = ? AND cycle_start = ?`,
		end, gameID, start)
	return err
}

// PlayCountsTx returns slots_played per user for the cycle.  Users
// without a row are absent from the map and count as zero.
func (r *HistoryRepo) PlayCountsTx(ctx context.Context, tx *sql.Tx, gameID uint64, cycleStart time.Time, userIDs []uint64) (map[uint64]int, error) {
	counts := make(map[uint64]int, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}
	in, args := placeholders(userIDs)
	all := append([]interface{}{gameID, cycleStart}, args...)
	rows, err := tx.QueryContext(ctx,
		`SELECT user_id, slots_played FROM play_history
		 WHERE game_id = ? AND cycle_start = ? AND user_id IN (`+in+`)`, all...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var uid uint64
		var n int
		if err := rows.Scan(&uid, &n); err != nil {
			return nil, err
		}
		counts[uid] = n
	}
	return counts, rows.Err()
}

// RecordPlayTx upserts the user's row for the cycle, incrementing
// slots_played by one.  The unique key (game_id, user_id, cycle_start)
// makes the lazily-created row and the increment the same statement.
func (r *HistoryRepo) RecordPlayTx(ctx context.Context, tx *sql.Tx, gameID, userID uint64, cycleStart, playedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO play_history (game_id, user_id, cycle_start, slots_played, last_played)
		 VALUES (?,?,?,1,?)
		 ON DUPLICATE KEY UPDATE slots_played = slots_played + 1, last_played = VALUES(last_played)`,
		gameID, userID, cycleStart, playedAt)
	return err
}
