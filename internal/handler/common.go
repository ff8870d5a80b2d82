// Package handler contains the HTTP handlers.  Handlers bind and
// validate request payloads, call into the service or repository layer
// and translate sentinel errors to HTTP status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/peopleops/recreation-booking/internal/service"
)

// getUserID extracts the authenticated user ID placed in context by the
// JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// parseDay parses a "YYYY-MM-DD" query value as midnight UTC.
func parseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// dateRange reads optional from/to query parameters, defaulting to the
// next defaultDays days starting today.
func dateRange(c echo.Context, defaultDays int) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, defaultDays)

	if s := c.QueryParam("from"); s != "" {
		d, err := parseDay(s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = d
		to = from.AddDate(0, 0, defaultDays)
	}
	if s := c.QueryParam("to"); s != "" {
		d, err := parseDay(s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// Inclusive end date.
		to = d.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("to must be on or after from")
	}
	return from, to, nil
}

// serviceError converts a service sentinel into the matching HTTP
// response.  Unknown errors map to 500 with a generic message so
// internals never leak to clients.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateRequest):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrSlotStarted),
		errors.Is(err, service.ErrTooManyParticipants),
		errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrNotInterested):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidRange), errors.Is(err, service.ErrInvalidConfig):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
