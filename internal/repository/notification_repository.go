package repository

import (
	"context"
	"database/sql"

	"github.com/peopleops/recreation-booking/internal/model"
)

// NotificationRepo stores the in-app notifications created by the
// assignment consumer.
type NotificationRepo struct{ DB *sql.DB }

// NewNotificationRepo returns a NotificationRepo bound to the given
// database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Create inserts one notification row.
func (r *NotificationRepo) Create(ctx context.Context, userID uint64, title, message string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO notifications (user_id, title, message) VALUES (?,?,?)`,
		userID, title, message)
	return err
}

// ListByUser returns the user's newest notifications, capped at limit.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, title, message, is_read, created_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkAllRead flags every unread notification of the user as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	return err
}
