// Package main is the entry point for the evaluation API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"riskgate/internal/app"
	"riskgate/internal/config"
	"riskgate/internal/logger"
	"riskgate/internal/routes"
	"riskgate/internal/services/evaluation"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	log, err := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log = logger.New()
		log.Fatal().Err(err).Msg("invalid logging configuration")
	}

	stores, err := app.OpenStores(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close stores")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go stores.LogPoolStats(ctx, time.Minute, log)

	evaluationService := evaluation.NewService(stores.TransactionLog, nil, log)

	server := fiber.New(fiber.Config{
		AppName:               "riskgate",
		DisableStartupMessage: config.IsProduction(),
	})
	server.Use(recover.New())
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(server, routes.Dependencies{
		Evaluation:   evaluationService,
		HealthChecks: stores.HealthChecks(),
		AuthSecret:   cfg.AuthSecret,
		Log:          log,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	if cfg.AuthSecret == "" {
		log.Warn().Msg("AUTH_SECRET not set, evaluation API is unauthenticated")
	}
	log.Info().Str("port", cfg.Port).Msg("evaluation API listening")
	if err := server.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
