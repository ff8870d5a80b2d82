package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// requestUserID returns a stable identifier for the authenticated user,
// used by the rate limiter and cache key strategies.  Unauthenticated
// requests share the "guest" identity.
func requestUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		// JWT numeric claims decode as float64.
		if v > 0 {
			return strconv.FormatUint(uint64(v), 10)
		}
	case uint64:
		if v > 0 {
			return strconv.FormatUint(v, 10)
		}
	}
	return "guest"
}
