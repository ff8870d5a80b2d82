package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/peopleops/recreation-booking/internal/model"
	"github.com/peopleops/recreation-booking/internal/service"
)

// RequestHandler exposes slot request intake and management.
type RequestHandler struct {
	Intake *service.IntakeService
}

func NewRequestHandler(intake *service.IntakeService) *RequestHandler {
	return &RequestHandler{Intake: intake}
}

type createRequestReq struct {
	GameID       uint64   `json:"game_id"`
	SlotID       uint64   `json:"slot_id"`
	Participants []uint64 `json:"participants"` // teammates, requester excluded
}

type requestResp struct {
	ID           uint64    `json:"id"`
	SlotID       uint64    `json:"slot_id"`
	RequesterID  uint64    `json:"requester_id"`
	Participants []uint64  `json:"participants"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func toRequestResp(r model.SlotRequest) requestResp {
	participants := r.Participants
	if participants == nil {
		participants = []uint64{}
	}
	return requestResp{
		ID:           r.ID,
		SlotID:       r.SlotID,
		RequesterID:  r.RequesterID,
		Participants: participants,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
	}
}

// Create files a slot request for the authenticated user's group.  A
// request inside the immediate allocation window is resolved before the
// response, so the returned status may already be ASSIGNED or
// WAITLISTED.
func (h *RequestHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.GameID == 0 || req.SlotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "game_id and slot_id required"})
	}

	sr, err := h.Intake.RequestSlot(c.Request().Context(), req.GameID, req.SlotID, uid, req.Participants)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toRequestResp(*sr))
}

// Cancel withdraws the authenticated user's request.  Cancelling an
// assigned request also cancels the booking it won, which reopens the
// slot for waitlisted groups.
func (h *RequestHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	if err := h.Intake.CancelRequest(c.Request().Context(), id, uid); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMine returns the authenticated user's requests in a date range
// (default the next seven days).
func (h *RequestHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	from, to, err := dateRange(c, 7)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	reqs, err := h.Intake.ListMyRequests(c.Request().Context(), uid, from, to)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]requestResp, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestResp(r))
	}
	return c.JSON(http.StatusOK, out)
}
