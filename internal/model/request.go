package model

import "time"

// RequestStatus enumerates the state machine of a slot request:
// PENDING -> ASSIGNED (won an allocation pass), PENDING -> WAITLISTED
// (lost a pass), WAITLISTED -> ASSIGNED (won a backfill pass), any
// non-terminal state -> CANCELLED (by the requester).  REJECTED is a
// terminal administrative state reserved in the enum.
type RequestStatus string

const (
	RequestPending    RequestStatus = "PENDING"
	RequestWaitlisted RequestStatus = "WAITLISTED"
	RequestAssigned   RequestStatus = "ASSIGNED"
	RequestCancelled  RequestStatus = "CANCELLED"
	RequestRejected   RequestStatus = "REJECTED"
)

// SlotRequest is a group's application for a specific slot.  The
// requester is always an implicit participant; Participants holds the
// up to three additional user IDs, so the full group size is
// 1 + len(Participants).
//
// Fields:
//  ID           – primary key identifier.
//  SlotID       – target slot.
//  RequesterID  – user who filed the request.
//  Participants – additional participant user IDs, insertion order.
//  Status       – current RequestStatus.
//  CreatedAt    – creation timestamp; the allocation tie-break key.
//  UpdatedAt    – last status change timestamp.
type SlotRequest struct {
	ID           uint64        // slot_requests.id
	SlotID       uint64        // slot_requests.slot_id
	RequesterID  uint64        // slot_requests.requester_id
	Participants []uint64      // slot_request_participants.user_id
	Status       RequestStatus // slot_requests.status
	CreatedAt    time.Time     // slot_requests.created_at
	UpdatedAt    time.Time     // slot_requests.updated_at
}

// Group returns the requester plus participants, deduplicated, with the
// requester first.  A zero requester ID (legacy rows imported without
// one) is skipped.
func (r *SlotRequest) Group() []uint64 {
	out := make([]uint64, 0, 1+len(r.Participants))
	seen := make(map[uint64]struct{}, 1+len(r.Participants))
	if r.RequesterID != 0 {
		out = append(out, r.RequesterID)
		seen[r.RequesterID] = struct{}{}
	}
	for _, id := range r.Participants {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
