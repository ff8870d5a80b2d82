package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peopleops/recreation-booking/internal/service"
)

// InterestHandler toggles per-game interest flags.  Interested users
// form the fairness population of a game's allocation cycles.
type InterestHandler struct {
	Intake *service.IntakeService
}

func NewInterestHandler(intake *service.IntakeService) *InterestHandler {
	return &InterestHandler{Intake: intake}
}

type setInterestReq struct {
	Active bool `json:"active"`
}

// Set flags or unflags the authenticated user's interest in a game.
func (h *InterestHandler) Set(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	gameID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
	}
	var req setInterestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Intake.SetInterest(c.Request().Context(), uid, gameID, req.Active); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"game_id": gameID, "active": req.Active})
}
