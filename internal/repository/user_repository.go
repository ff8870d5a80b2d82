package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/peopleops/recreation-booking/internal/utils"
)

// User mirrors the users table.
type User struct {
	ID           uint64
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepo provides account lookups and creation.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID.  The email is normalized
// to lower case; a duplicate yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, displayName, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, display_name, password_hash, role) VALUES (?,?,?,?)`,
		email, displayName, hash, role)
	if err != nil {
		// 1062 is the MySQL duplicate-key error code.
		if strings.Contains(err.Error(), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email, or (nil, nil) when no
// account exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, role, is_active, created_at, updated_at
		 FROM users WHERE email = ? LIMIT 1`, email))
}

// GetByID fetches a user by ID, or (nil, nil) when no account exists.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, role, is_active, created_at, updated_at
		 FROM users WHERE id = ? LIMIT 1`, id))
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
