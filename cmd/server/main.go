package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"backend-booking/internal/announce"
	"backend-booking/internal/config"
	"backend-booking/internal/dispatch"
	"backend-booking/internal/http/handler"
	"backend-booking/internal/http/middleware"
	"backend-booking/internal/models"
	"backend-booking/internal/poller"
	"backend-booking/internal/realtime"
	"backend-booking/internal/store"
	"backend-booking/internal/store/memory"
	"backend-booking/internal/store/mysql"
	"backend-booking/internal/store/redisstate"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type stores struct {
	bookings store.BookingStore
	windows  store.WindowRegistry
	users    store.UserStore
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	config.LoadEnv()
	settings, err := config.LoadApp()
	config.InitLogger("backend-booking", settings.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	opts := store.Options{
		Location: settings.Location,
		OpenAt:   settings.OpenAt,
		CloseAt:  settings.CloseAt,
	}

	var st stores
	switch settings.StoreDriver {
	case config.DriverMySQL:
		config.InitDB(settings.Location)
		defer config.CloseDB()
		config.InitRedis()
		defer config.CloseRedis()

		s := mysql.NewStore(config.DB, redisstate.NewSequence(config.Redis), redisstate.NewServing(config.Redis), opts)
		st = stores{bookings: s, windows: s, users: s}
	case config.DriverMemory:
		s := memory.New(opts)
		if err := seedMemory(s); err != nil {
			log.Fatal().Err(err).Msg("seeding memory store failed")
		}
		st = stores{bookings: s, windows: s, users: s}
		log.Warn().Msg("using in-memory store, data is lost on restart")
	}

	display := realtime.NewDisplayHub(settings.TonePath)
	display.SetAckTimeout(settings.AckTimeout)
	voice := announce.NewEngine(display, announce.Config{
		Primary:       settings.PrimaryLocale,
		Secondary:     settings.SecondaryLocale,
		ToneTimeout:   settings.ToneTimeout,
		SpeechTimeout: settings.SpeechTimeout,
	})
	defer voice.Close()

	statusPoller := poller.New(st.bookings, settings.PollInterval, settings.FetchTimeout)
	statusPoller.Subscribe(display.PublishSnapshot)
	statusPoller.Subscribe(func(snap models.StatusSnapshot) {
		voice.Handle(snap)
	})

	h := handler.New(handler.Deps{
		Bookings:    st.bookings,
		Windows:     st.windows,
		Users:       st.users,
		Coordinator: dispatch.NewCoordinator(st.bookings, st.windows, settings.WindowTimeout),
		Poller:      statusPoller,
		Voice:       voice,
		Display:     display,
		Options:     opts,
	})

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))

	h.Register(app, middleware.DisplayAuth(settings.DisplayUser, settings.DisplayPass))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go statusPoller.Run(ctx)
	go display.Run(ctx)

	go func() {
		addr := settings.Addr()
		log.Info().Str("addr", addr).Str("store", settings.StoreDriver).Msg("server listening")
		if err := app.Listen(addr); err != nil {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// seedMemory creates WINDOW_COUNT windows and an admin account from
// ADMIN_EMAIL / ADMIN_PASSWORD.
func seedMemory(s *memory.Store) error {
	count := config.GetEnvInt("WINDOW_COUNT", 3)
	for i := 1; i <= count; i++ {
		s.AddWindow(models.Window{
			ID:       int64(i),
			Name:     fmt.Sprintf("Window %d", i),
			Number:   i,
			IsActive: true,
		})
	}

	password := config.GetEnv("ADMIN_PASSWORD", "")
	if password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required for the memory store")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.AddUser(models.User{
		ID:        1,
		Name:      config.GetEnv("ADMIN_NAME", "Administrator"),
		Email:     config.GetEnv("ADMIN_EMAIL", "admin@example.com"),
		Password:  string(hash),
		Role:      models.RoleAdmin,
		CreatedAt: time.Now(),
	})
	return nil
}
