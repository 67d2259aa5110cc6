package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/arnif/event-registry/internal/config"
	"github.com/arnif/event-registry/internal/database"
	"github.com/arnif/event-registry/internal/handler"
	"github.com/arnif/event-registry/internal/queue"
	"github.com/arnif/event-registry/internal/repository"
	"github.com/arnif/event-registry/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env always wins

	config.NewLogger()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, response cache disabled")
	}

	userRepo := repository.NewUserRepo(db)
	eventRepo := repository.NewEventRepo(db)
	regRepo := repository.NewRegistrationRepo(db)

	events := handler.NewEventHandler(eventRepo, regRepo)
	users := handler.NewUserHandler(cfg, userRepo)
	regs := handler.NewRegistrationHandler(regRepo)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Cfg:           cfg,
		CacheCfg:      config.LoadCacheConfig(),
		Redis:         rdb,
		Users:         users,
		Events:        events,
		Registrations: regs,
		Principals:    userRepo,
		UserFinder:    userRepo,
	})

	go func() {
		if err := queue.StartRegistrationConsumer(); err != nil {
			log.Error().Err(err).Msg("registration consumer stopped")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
