package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/peopleops/recreation-booking/internal/config"
	"github.com/peopleops/recreation-booking/internal/database"
	"github.com/peopleops/recreation-booking/internal/handler"
	"github.com/peopleops/recreation-booking/internal/queue"
	"github.com/peopleops/recreation-booking/internal/repository"
	"github.com/peopleops/recreation-booking/internal/router"
	"github.com/peopleops/recreation-booking/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Optional: rate limiting and caching degrade to no-ops without Redis.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting and caching disabled")
	}

	store := repository.NewStore(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	notifications := repository.NewNotificationRepo(db)

	alloc := service.NewAllocator(store, queue.NewPublisher())
	slotSvc := service.NewSlotService(store.Games, store.Slots, nil)
	bookingSvc := service.NewBookingService(store.Bookings, store.Slots, alloc, nil)
	intakeSvc := service.NewIntakeService(store.Games, store.Slots, store.Requests,
		store.Interests, store.Bookings, bookingSvc, alloc, nil, cfg.IntakeBlockBookedDay)
	scheduler := service.NewScheduler(store.Slots, alloc, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Run(ctx)
	go queue.StartAssignmentConsumer(notifications, users)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users, tokens),
		Games:         handler.NewGameHandler(store.Games),
		Slots:         handler.NewSlotHandler(slotSvc),
		Requests:      handler.NewRequestHandler(intakeSvc),
		Interests:     handler.NewInterestHandler(intakeSvc),
		Bookings:      handler.NewBookingHandler(bookingSvc),
		Notifications: handler.NewNotificationHandler(notifications),
	}, cfg, rdb)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
