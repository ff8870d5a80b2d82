package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// BookingRepo provides operations over bookings and their participant
// rows.  Bookings are only ever created by the allocation engine inside
// its transaction, so creation exists solely as a Tx method.
type BookingRepo struct{ DB *sql.DB }

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingColumns = `id, game_id, slot_id, booking_date, start_time, end_time, status, created_by, cancelled_at, created_at, updated_at`

// CreateBookingTx inserts a booking plus its participant rows inside
// the caller's transaction and populates the generated ID.
func (r *BookingRepo) CreateBookingTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (game_id, slot_id, booking_date, start_time, end_time, status, created_by)
		 VALUES (?,?,?,?,?,?,?)`,
		b.GameID, b.SlotID, b.BookingDate, b.StartTime, b.EndTime, b.Status, b.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(b.Participants) > 0 {
		q := `INSERT INTO booking_participants (booking_id, user_id) VALUES `
		args := make([]interface{}, 0, len(b.Participants)*2)
		for i, uid := range b.Participants {
			if i > 0 {
				q += ","
			}
			q += "(?,?)"
			args = append(args, b.ID, uid)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// BookingByID fetches one booking with its participants, or (nil, nil)
// when it does not exist.
func (r *BookingRepo) BookingByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.scanBooking(ctx, r.DB.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
}

// ActiveBookingBySlot returns the slot's non-cancelled booking, or
// (nil, nil) when the slot has none.
func (r *BookingRepo) ActiveBookingBySlot(ctx context.Context, slotID uint64) (*model.Booking, error) {
	return r.scanBooking(ctx, r.DB.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE slot_id = ? AND status <> ? LIMIT 1`,
		slotID, model.BookingCancelled))
}

// CancelBooking marks the booking cancelled at the given instant.  An
// already-cancelled booking keeps its original cancellation timestamp.
func (r *BookingRepo) CancelBooking(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET status = ?, cancelled_at = ?, updated_at = NOW()
		 WHERE id = ? AND status <> ?`,
		model.BookingCancelled, at, id, model.BookingCancelled)
	return err
}

// BookedUserIDsOn returns which of the given users participate in (or
// created) a non-cancelled booking dated on the given day.
func (r *BookingRepo) BookedUserIDsOn(ctx context.Context, day time.Time, userIDs []uint64) (map[uint64]struct{}, error) {
	return bookedUserIDsOn(ctx, r.DB.QueryContext, day, userIDs)
}

// BookedUserIDsOnTx is BookedUserIDsOn inside a caller-owned
// transaction, used by the allocation pass.
func (r *BookingRepo) BookedUserIDsOnTx(ctx context.Context, tx *sql.Tx, day time.Time, userIDs []uint64) (map[uint64]struct{}, error) {
	return bookedUserIDsOn(ctx, tx.QueryContext, day, userIDs)
}

func bookedUserIDsOn(ctx context.Context, query queryFunc, day time.Time, userIDs []uint64) (map[uint64]struct{}, error) {
	found := make(map[uint64]struct{})
	if len(userIDs) == 0 {
		return found, nil
	}
	in, args := placeholders(userIDs)
	q := `SELECT bp.user_id
	      FROM booking_participants bp
	      JOIN bookings b ON b.id = bp.booking_id
	      WHERE b.booking_date = ? AND b.status <> ? AND bp.user_id IN (` + in + `)
	      UNION
	      SELECT b.created_by
	      FROM bookings b
	      WHERE b.booking_date = ? AND b.status <> ? AND b.created_by IN (` + in + `)`
	all := append([]interface{}{day, model.BookingCancelled}, args...)
	all = append(all, day, model.BookingCancelled)
	all = append(all, args...)
	rows, err := query(ctx, q, all...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var uid uint64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		found[uid] = struct{}{}
	}
	return found, rows.Err()
}

// BookingsForUser lists the user's non-cancelled bookings whose slot
// starts inside [from, to), ordered by start ascending, enriched with
// the game name, slot bounds and participant display data.
func (r *BookingRepo) BookingsForUser(ctx context.Context, userID uint64, from, to time.Time) ([]model.BookingDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT b.id, b.game_id, b.slot_id, b.booking_date, b.start_time, b.end_time,
		        b.status, b.created_by, b.cancelled_at, b.created_at, b.updated_at,
		        g.name, s.starts_at, s.ends_at
		 FROM bookings b
		 JOIN games g ON g.id = b.game_id
		 JOIN slots s ON s.id = b.slot_id
		 LEFT JOIN booking_participants bp ON bp.booking_id = b.id
		 WHERE b.status <> ? AND s.starts_at >= ? AND s.starts_at < ?
		   AND (bp.user_id = ? OR b.created_by = ?)
		 ORDER BY s.starts_at, b.id`,
		model.BookingCancelled, from, to, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]model.BookingDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var d model.BookingDetail
		var cancelledAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.GameID, &d.SlotID, &d.BookingDate,
			&d.StartTime, &d.EndTime, &d.Status, &d.CreatedBy, &cancelledAt,
			&d.CreatedAt, &d.UpdatedAt, &d.GameName, &d.SlotStart, &d.SlotEnd); err != nil {
			return nil, err
		}
		if cancelledAt.Valid {
			t := cancelledAt.Time.UTC()
			d.CancelledAt = &t
		}
		d.SlotStart = d.SlotStart.UTC()
		d.SlotEnd = d.SlotEnd.UTC()
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	ids := make([]uint64, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
	}
	in, args := placeholders(ids)
	prows, err := r.DB.QueryContext(ctx,
		`SELECT bp.booking_id, bp.user_id, u.display_name, u.email
		 FROM booking_participants bp
		 JOIN users u ON u.id = bp.user_id
		 WHERE bp.booking_id IN (`+in+`)
		 ORDER BY bp.booking_id, bp.id`, args...)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var bid uint64
		var p model.Participant
		if err := prows.Scan(&bid, &p.UserID, &p.DisplayName, &p.Email); err != nil {
			return nil, err
		}
		i, ok := index[bid]
		if !ok {
			continue
		}
		details[i].Participants = append(details[i].Participants, p.UserID)
		details[i].People = append(details[i].People, p)
	}
	return details, prows.Err()
}

func (r *BookingRepo) scanBooking(ctx context.Context, row *sql.Row) (*model.Booking, error) {
	var b model.Booking
	var cancelledAt sql.NullTime
	err := row.Scan(&b.ID, &b.GameID, &b.SlotID, &b.BookingDate, &b.StartTime,
		&b.EndTime, &b.Status, &b.CreatedBy, &cancelledAt, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		b.CancelledAt = &t
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT user_id FROM booking_participants WHERE booking_id = ? ORDER BY id`, b.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var uid uint64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		b.Participants = append(b.Participants, uid)
	}
	return &b, rows.Err()
}
