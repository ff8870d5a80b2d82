package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/peopleops/recreation-booking/internal/model"
	"github.com/peopleops/recreation-booking/internal/repository"
)

// GameHandler exposes the administrative game catalogue.
type GameHandler struct {
	Games *repository.GameRepo
}

func NewGameHandler(games *repository.GameRepo) *GameHandler {
	return &GameHandler{Games: games}
}

type createGameReq struct {
	Name        string `json:"name"`
	OpenTime    string `json:"open_time"`  // "HH:MM"
	CloseTime   string `json:"close_time"` // "HH:MM"
	SlotMinutes int    `json:"slot_minutes"`
	MaxPlayers  int    `json:"max_players"`
}

type gameResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	OpenTime    string `json:"open_time"`
	CloseTime   string `json:"close_time"`
	SlotMinutes int    `json:"slot_minutes"`
	MaxPlayers  int    `json:"max_players"`
	IsActive    bool   `json:"is_active"`
}

func toGameResp(g model.Game) gameResp {
	return gameResp{
		ID:          g.ID,
		Name:        g.Name,
		OpenTime:    g.OpenTime,
		CloseTime:   g.CloseTime,
		SlotMinutes: g.SlotMinutes,
		MaxPlayers:  g.MaxPlayers,
		IsActive:    g.IsActive,
	}
}

// Create registers a new game.  Operating hours are times of day; a
// close time at or before the open time means the window spans
// midnight.  Edits never touch slots that already exist.
func (h *GameHandler) Create(c echo.Context) error {
	var req createGameReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if !validClockTime(req.OpenTime) || !validClockTime(req.CloseTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "open_time/close_time must be HH:MM"})
	}
	if req.SlotMinutes <= 0 || req.MaxPlayers <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot_minutes and max_players must be positive"})
	}

	g := model.Game{
		Name:        req.Name,
		OpenTime:    req.OpenTime,
		CloseTime:   req.CloseTime,
		SlotMinutes: req.SlotMinutes,
		MaxPlayers:  req.MaxPlayers,
		IsActive:    true,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Games.Create(ctx, &g); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create game failed"})
	}
	return c.JSON(http.StatusCreated, toGameResp(g))
}

// List returns all games.
func (h *GameHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	games, err := h.Games.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list games failed"})
	}
	out := make([]gameResp, 0, len(games))
	for _, g := range games {
		out = append(out, toGameResp(g))
	}
	return c.JSON(http.StatusOK, out)
}

func validClockTime(s string) bool {
	if _, err := time.Parse("15:04", s); err != nil {
		return false
	}
	return true
}
