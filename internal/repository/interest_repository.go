package repository

import (
	"context"
	"database/sql"
)

// InterestRepo provides operations over the interests table, the
// per-game fairness opt-in flags.
type InterestRepo struct{ DB *sql.DB }

// NewInterestRepo returns an InterestRepo bound to the given database.
func NewInterestRepo(db *sql.DB) *InterestRepo { return &InterestRepo{DB: db} }

// SetInterest upserts the user's flag for the game.
func (r *InterestRepo) SetInterest(ctx context.Context, userID, gameID uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO interests (user_id, game_id, is_active)
		 VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE is_active = VALUES(is_active), updated_at = NOW()`,
		userID, gameID, active)
	return err
}

// InterestedUserIDs lists users with an active flag for the game.
func (r *InterestRepo) InterestedUserIDs(ctx context.Context, gameID uint64) ([]uint64, error) {
	return interestedUserIDs(ctx, r.DB.QueryContext, gameID)
}

// InterestedUserIDsTx is InterestedUserIDs inside a caller-owned
// transaction, used by the allocation pass.
func (r *InterestRepo) InterestedUserIDsTx(ctx context.Context, tx *sql.Tx, gameID uint64) ([]uint64, error) {
	return interestedUserIDs(ctx, tx.QueryContext, gameID)
}

func interestedUserIDs(ctx context.Context, query queryFunc, gameID uint64) ([]uint64, error) {
	rows, err := query(ctx,
		`SELECT user_id FROM interests WHERE game_id = ? AND is_active = 1 ORDER BY user_id`,
		gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var uid uint64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		ids = append(ids, uid)
	}
	return ids, rows.Err()
}
