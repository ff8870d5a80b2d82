// Package router wires the HTTP routes to their handlers and
// middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/peopleops/recreation-booking/internal/config"
	"github.com/peopleops/recreation-booking/internal/handler"
	"github.com/peopleops/recreation-booking/internal/middleware"
)

// Handlers groups every handler the router needs.
type Handlers struct {
	Auth          *handler.AuthHandler
	Games         *handler.GameHandler
	Slots         *handler.SlotHandler
	Requests      *handler.RequestHandler
	Interests     *handler.InterestHandler
	Bookings      *handler.BookingHandler
	Notifications *handler.NotificationHandler
}

// Register sets up every route.  Health and auth live outside the JWT
// guard; everything else requires a valid access token, and the admin
// group additionally requires the ADMIN role.  Redis-backed rate
// limiting and response caching wrap the read-heavy slot listing.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole("ADMIN", "EMPLOYEE"))

	v1.GET("/me", h.Auth.Me)

	v1.GET("/games", h.Games.List)
	v1.PUT("/games/:id/interest", h.Interests.Set)

	// Slot browsing is the hottest read path; it gets the token bucket
	// limiter plus the response cache.
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	v1.GET("/slots", h.Slots.List, limiter, cache)

	v1.POST("/requests", h.Requests.Create)
	v1.GET("/requests", h.Requests.ListMine)
	v1.DELETE("/requests/:id", h.Requests.Cancel)

	v1.GET("/bookings", h.Bookings.ListMine)
	v1.DELETE("/bookings/:id", h.Bookings.Cancel)

	v1.GET("/notifications", h.Notifications.ListMine)
	v1.POST("/notifications/read", h.Notifications.MarkAllRead)

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/games", h.Games.Create)
	admin.POST("/games/:id/slots", h.Slots.Generate)
}
