package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// SlotRepo provides operations over the slots table.  Slots carry a
// unique key on (game_id, starts_at) which makes generation idempotent
// at the storage level as well as in the service walk.
type SlotRepo struct{ DB *sql.DB }

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{DB: db} }

const slotColumns = `id, game_id, starts_at, ends_at, status, created_at, updated_at`

// CreateSlots inserts the given slots, skipping any whose (game, start)
// already exists, and returns the rows that were actually created with
// their IDs populated.  All inserts share one transaction.
func (r *SlotRepo) CreateSlots(ctx context.Context, slots []model.Slot) ([]model.Slot, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	created := make([]model.Slot, 0, len(slots))
	for _, s := range slots {
		res, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO slots (game_id, starts_at, ends_at, status) VALUES (?,?,?,?)`,
			s.GameID, s.StartsAt, s.EndsAt, s.Status)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Lost a race with a concurrent generation call; the slot
			// already exists and is not ours to report.
			continue
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		s.ID = uint64(id)
		created = append(created, s)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return created, nil
}

// SlotByID fetches one slot, or (nil, nil) when it does not exist.
func (r *SlotRepo) SlotByID(ctx context.Context, id uint64) (*model.Slot, error) {
	return scanSlotRow(r.DB.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ?`, id))
}

// SlotForUpdateTx loads a slot with a row lock inside the caller's
// transaction, serializing concurrent allocation passes on the slot.
func (r *SlotRepo) SlotForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Slot, error) {
	return scanSlotRow(tx.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ? FOR UPDATE`, id))
}

// SlotStartsByGame returns the set of start times already generated for
// the game inside [from, to).
func (r *SlotRepo) SlotStartsByGame(ctx context.Context, gameID uint64, from, to time.Time) (map[time.Time]struct{}, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT starts_at FROM slots WHERE game_id = ? AND starts_at >= ? AND starts_at < ?`,
		gameID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	starts := make(map[time.Time]struct{})
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		starts[t.UTC()] = struct{}{}
	}
	return starts, rows.Err()
}

// SlotsForRange lists slots starting inside [from, to) ordered by start
// time.  gameID 0 means all games.
func (r *SlotRepo) SlotsForRange(ctx context.Context, gameID uint64, from, to time.Time) ([]model.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM slots WHERE starts_at >= ? AND starts_at < ?`
	args := []interface{}{from, to}
	if gameID != 0 {
		q += ` AND game_id = ?`
		args = append(args, gameID)
	}
	q += ` ORDER BY starts_at, game_id`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

// OpenSlotsStartingBetween lists OPEN slots with start in [from, to);
// this is the scheduler tick query.
func (r *SlotRepo) OpenSlotsStartingBetween(ctx context.Context, from, to time.Time) ([]model.Slot, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots
		 WHERE status = ? AND starts_at >= ? AND starts_at < ?
		 ORDER BY starts_at, id`,
		model.SlotOpen, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

// UpdateSlotStatus persists a status transition.
func (r *SlotRepo) UpdateSlotStatus(ctx context.Context, slotID uint64, status model.SlotStatus) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE slots SET status = ?, updated_at = NOW() WHERE id = ?`, status, slotID)
	return err
}

// UpdateSlotStatusTx is UpdateSlotStatus inside a caller-owned
// transaction.
func (r *SlotRepo) UpdateSlotStatusTx(ctx context.Context, tx *sql.Tx, slotID uint64, status model.SlotStatus) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE slots SET status = ?, updated_at = NOW() WHERE id = ?`, status, slotID)
	return err
}

func scanSlotRow(row *sql.Row) (*model.Slot, error) {
	var s model.Slot
	err := row.Scan(&s.ID, &s.GameID, &s.StartsAt, &s.EndsAt, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.StartsAt = s.StartsAt.UTC()
	s.EndsAt = s.EndsAt.UTC()
	return &s, nil
}

func collectSlots(rows *sql.Rows) ([]model.Slot, error) {
	slots := make([]model.Slot, 0)
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.GameID, &s.StartsAt, &s.EndsAt, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.StartsAt = s.StartsAt.UTC()
		s.EndsAt = s.EndsAt.UTC()
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
