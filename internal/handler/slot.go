package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/peopleops/recreation-booking/internal/model"
	"github.com/peopleops/recreation-booking/internal/service"
)

// SlotHandler exposes slot generation and browsing.
type SlotHandler struct {
	Slots *service.SlotService
}

func NewSlotHandler(slots *service.SlotService) *SlotHandler {
	return &SlotHandler{Slots: slots}
}

type generateSlotsReq struct {
	From string `json:"from"` // "YYYY-MM-DD", inclusive
	To   string `json:"to"`   // "YYYY-MM-DD", inclusive
}

type slotResp struct {
	ID       uint64    `json:"id"`
	GameID   uint64    `json:"game_id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Status   string    `json:"status"`
}

func toSlotResp(s model.Slot) slotResp {
	return slotResp{
		ID:       s.ID,
		GameID:   s.GameID,
		StartsAt: s.StartsAt,
		EndsAt:   s.EndsAt,
		Status:   string(s.Status),
	}
}

// Generate creates the slot grid for a game over a date range.  The
// operation is idempotent: slots already present for a start time are
// left untouched and only newly created ones are returned.
func (h *SlotHandler) Generate(c echo.Context) error {
	gameID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
	}
	var req generateSlotsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	from, err := parseDay(req.From)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
	}
	to, err := parseDay(req.To)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
	}

	created, err := h.Slots.GenerateSlots(c.Request().Context(), gameID, from, to)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]slotResp, 0, len(created))
	for _, s := range created {
		out = append(out, toSlotResp(s))
	}
	return c.JSON(http.StatusCreated, echo.Map{"created": len(out), "slots": out})
}

// List returns slots in a date range, availability freshly re-derived.
// Optional query parameters: game_id (0 or absent for all games), date
// (single day) or from/to.
func (h *SlotHandler) List(c echo.Context) error {
	var gameID uint64
	if s := c.QueryParam("game_id"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game_id"})
		}
		gameID = n
	}

	var (
		slots []model.Slot
		err   error
	)
	if s := c.QueryParam("date"); s != "" {
		day, perr := parseDay(s)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		slots, err = h.Slots.ListSlotsForDate(c.Request().Context(), gameID, day)
	} else {
		from, to, perr := dateRange(c, 7)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": perr.Error()})
		}
		slots, err = h.Slots.ListSlotsForRange(c.Request().Context(), gameID, from, to)
	}
	if err != nil {
		return serviceError(c, err)
	}

	out := make([]slotResp, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResp(s))
	}
	return c.JSON(http.StatusOK, out)
}
