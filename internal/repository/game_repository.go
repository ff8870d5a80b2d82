package repository

import (
	"context"
	"database/sql"

	"github.com/peopleops/recreation-booking/internal/model"
)

// GameRepo provides CRUD operations over the games table.
type GameRepo struct{ DB *sql.DB }

// NewGameRepo returns a GameRepo bound to the given database.
func NewGameRepo(db *sql.DB) *GameRepo { return &GameRepo{DB: db} }

const gameColumns = `id, name, open_time, close_time, slot_minutes, max_players, is_active, created_at, updated_at`

// Create inserts a new game and populates its generated ID.
func (r *GameRepo) Create(ctx context.Context, g *model.Game) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO games (name, open_time, close_time, slot_minutes, max_players, is_active)
		 VALUES (?,?,?,?,?,?)`,
		g.Name, g.OpenTime, g.CloseTime, g.SlotMinutes, g.MaxPlayers, g.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// GameByID fetches one game, or (nil, nil) when it does not exist.
func (r *GameRepo) GameByID(ctx context.Context, id uint64) (*model.Game, error) {
	return scanGame(r.DB.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
}

// GameByIDTx is GameByID inside a caller-owned transaction.
func (r *GameRepo) GameByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Game, error) {
	return scanGame(tx.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
}

// List returns all games ordered by name.
func (r *GameRepo) List(ctx context.Context) ([]model.Game, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	games := make([]model.Game, 0)
	for rows.Next() {
		var g model.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.OpenTime, &g.CloseTime,
			&g.SlotMinutes, &g.MaxPlayers, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func scanGame(row *sql.Row) (*model.Game, error) {
	var g model.Game
	err := row.Scan(&g.ID, &g.Name, &g.OpenTime, &g.CloseTime,
		&g.SlotMinutes, &g.MaxPlayers, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}
