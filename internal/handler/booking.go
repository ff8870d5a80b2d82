package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/peopleops/recreation-booking/internal/model"
	"github.com/peopleops/recreation-booking/internal/service"
)

// BookingHandler exposes booking listing and cancellation.
type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: bookings}
}

type bookingResp struct {
	ID           uint64              `json:"id"`
	GameID       uint64              `json:"game_id"`
	GameName     string              `json:"game_name"`
	SlotID       uint64              `json:"slot_id"`
	BookingDate  string              `json:"booking_date"`
	StartsAt     time.Time           `json:"starts_at"`
	EndsAt       time.Time           `json:"ends_at"`
	Status       string              `json:"status"`
	CreatedBy    uint64              `json:"created_by"`
	Participants []model.Participant `json:"participants"`
}

func toBookingResp(d model.BookingDetail) bookingResp {
	people := d.People
	if people == nil {
		people = []model.Participant{}
	}
	return bookingResp{
		ID:           d.ID,
		GameID:       d.GameID,
		GameName:     d.GameName,
		SlotID:       d.SlotID,
		BookingDate:  d.BookingDate.Format("2006-01-02"),
		StartsAt:     d.SlotStart,
		EndsAt:       d.SlotEnd,
		Status:       string(d.Status),
		CreatedBy:    d.CreatedBy,
		Participants: people,
	}
}

// ListMine returns the authenticated user's bookings in a date range
// (default the next seven days).
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	from, to, err := dateRange(c, 7)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	details, err := h.Bookings.ListMyBookings(c.Request().Context(), uid, from, to)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]bookingResp, 0, len(details))
	for _, d := range details {
		out = append(out, toBookingResp(d))
	}
	return c.JSON(http.StatusOK, out)
}

// Cancel cancels a booking the authenticated user belongs to.  The slot
// reopens and waitlisted groups are considered for backfill before the
// response returns.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Bookings.CancelBooking(c.Request().Context(), id, uid); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
