package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
)

// RequestRepo provides operations over slot_requests and their
// participant rows.  A request's additional participants live in
// slot_request_participants; the requester is an implicit participant
// and is not duplicated there.
type RequestRepo struct{ DB *sql.DB }

// NewRequestRepo returns a RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{DB: db} }

const requestColumns = `id, slot_id, requester_id, status, created_at, updated_at`

// CreateRequest inserts a request plus its participant rows in one
// transaction and populates the generated ID.
func (r *RequestRepo) CreateRequest(ctx context.Context, req *model.SlotRequest) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO slot_requests (slot_id, requester_id, status, created_at, updated_at)
		 VALUES (?,?,?,?,?)`,
		req.SlotID, req.RequesterID, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)

	if len(req.Participants) > 0 {
		q := `INSERT INTO slot_request_participants (request_id, user_id) VALUES `
		args := make([]interface{}, 0, len(req.Participants)*2)
		for i, uid := range req.Participants {
			if i > 0 {
				q += ","
			}
			q += "(?,?)"
			args = append(args, req.ID, uid)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// RequestByID fetches one request with its participants, or (nil, nil)
// when it does not exist.
func (r *RequestRepo) RequestByID(ctx context.Context, id uint64) (*model.SlotRequest, error) {
	var req model.SlotRequest
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM slot_requests WHERE id = ?`, id).
		Scan(&req.ID, &req.SlotID, &req.RequesterID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	req.CreatedAt = req.CreatedAt.UTC()
	parts, err := r.participantsFor(ctx, r.DB.QueryContext, []uint64{req.ID})
	if err != nil {
		return nil, err
	}
	req.Participants = parts[req.ID]
	return &req, nil
}

// UpdateRequestStatus persists a status transition.
func (r *RequestRepo) UpdateRequestStatus(ctx context.Context, id uint64, status model.RequestStatus) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE slot_requests SET status = ?, updated_at = NOW() WHERE id = ?`, status, id)
	return err
}

// UpdateRequestStatusTx is UpdateRequestStatus inside a caller-owned
// transaction.
func (r *RequestRepo) UpdateRequestStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.RequestStatus) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE slot_requests SET status = ?, updated_at = NOW() WHERE id = ?`, status, id)
	return err
}

// WaitlistPendingSiblingsTx demotes every PENDING request on the slot
// except the winner to WAITLISTED.
func (r *RequestRepo) WaitlistPendingSiblingsTx(ctx context.Context, tx *sql.Tx, slotID, winnerID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE slot_requests SET status = ?, updated_at = NOW()
		 WHERE slot_id = ? AND status = ? AND id <> ?`,
		model.RequestWaitlisted, slotID, model.RequestPending, winnerID)
	return err
}

// RequestsBySlotStatusTx lists the slot's requests carrying the given
// status, with participants, ordered by creation time then ID so the
// allocation tie-break is reproducible.
func (r *RequestRepo) RequestsBySlotStatusTx(ctx context.Context, tx *sql.Tx, slotID uint64, status model.RequestStatus) ([]model.SlotRequest, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM slot_requests
		 WHERE slot_id = ? AND status = ?
		 ORDER BY created_at, id`,
		slotID, status)
	if err != nil {
		return nil, err
	}
	reqs, err := collectRequests(rows)
	if err != nil {
		return nil, err
	}
	return r.attachParticipants(ctx, tx.QueryContext, reqs)
}

// ActiveRequesters returns which of the given users are the requester
// of, or a participant in, a PENDING/WAITLISTED/ASSIGNED request whose
// slot falls on the given calendar day.
func (r *RequestRepo) ActiveRequesters(ctx context.Context, day time.Time, userIDs []uint64) (map[uint64]struct{}, error) {
	if len(userIDs) == 0 {
		return map[uint64]struct{}{}, nil
	}
	in, args := placeholders(userIDs)
	dayEnd := day.AddDate(0, 0, 1)
	base := []interface{}{
		model.RequestPending, model.RequestWaitlisted, model.RequestAssigned,
		day, dayEnd,
	}
	q := `SELECT sr.requester_id
	      FROM slot_requests sr
	      JOIN slots s ON s.id = sr.slot_id
	      WHERE sr.status IN (?,?,?) AND s.starts_at >= ? AND s.starts_at < ?
	        AND sr.requester_id IN (` + in + `)
	      UNION
	      SELECT srp.user_id
	      FROM slot_request_participants srp
	      JOIN slot_requests sr ON sr.id = srp.request_id
	      JOIN slots s ON s.id = sr.slot_id
	      WHERE sr.status IN (?,?,?) AND s.starts_at >= ? AND s.starts_at < ?
	        AND srp.user_id IN (` + in + `)`
	all := append(append([]interface{}{}, base...), args...)
	all = append(all, base...)
	all = append(all, args...)
	rows, err := r.DB.QueryContext(ctx, q, all...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[uint64]struct{})
	for rows.Next() {
		var uid uint64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		found[uid] = struct{}{}
	}
	return found, rows.Err()
}

// RequestsByUser lists the user's own requests (as requester) whose
// slot starts inside [from, to), newest first, with participants.
func (r *RequestRepo) RequestsByUser(ctx context.Context, userID uint64, from, to time.Time) ([]model.SlotRequest, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT sr.id, sr.slot_id, sr.requester_id, sr.status, sr.created_at, sr.updated_at
		 FROM slot_requests sr
		 JOIN slots s ON s.id = sr.slot_id
		 WHERE sr.requester_id = ? AND s.starts_at >= ? AND s.starts_at < ?
		 ORDER BY s.starts_at DESC, sr.id DESC`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	reqs, err := collectRequests(rows)
	if err != nil {
		return nil, err
	}
	return r.attachParticipants(ctx, r.DB.QueryContext, reqs)
}

type queryFunc func(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

// participantsFor loads participant user IDs for the given request IDs
// grouped by request.
func (r *RequestRepo) participantsFor(ctx context.Context, query queryFunc, requestIDs []uint64) (map[uint64][]uint64, error) {
	out := make(map[uint64][]uint64, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	in, args := placeholders(requestIDs)
	rows, err := query(ctx,
		`SELECT request_id, user_id FROM slot_request_participants
		 WHERE request_id IN (`+in+`) ORDER BY request_id, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rid, uid uint64
		if err := rows.Scan(&rid, &uid); err != nil {
			return nil, err
		}
		out[rid] = append(out[rid], uid)
	}
	return out, rows.Err()
}

func (r *RequestRepo) attachParticipants(ctx context.Context, query queryFunc, reqs []model.SlotRequest) ([]model.SlotRequest, error) {
	ids := make([]uint64, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.ID)
	}
	parts, err := r.participantsFor(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	for i := range reqs {
		reqs[i].Participants = parts[reqs[i].ID]
	}
	return reqs, nil
}

func collectRequests(rows *sql.Rows) ([]model.SlotRequest, error) {
	defer rows.Close()
	reqs := make([]model.SlotRequest, 0)
	for rows.Next() {
		var req model.SlotRequest
		if err := rows.Scan(&req.ID, &req.SlotID, &req.RequesterID, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		req.CreatedAt = req.CreatedAt.UTC()
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// placeholders builds an "?,?,?" list and its argument slice for an IN
// clause over user or request IDs.
func placeholders(ids []uint64) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}
