package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/foxxcyber/docfields/internal/config"
	"github.com/foxxcyber/docfields/internal/database"
	"github.com/foxxcyber/docfields/internal/handlers"
	"github.com/foxxcyber/docfields/internal/logging"
	"github.com/foxxcyber/docfields/internal/middleware"
	"github.com/foxxcyber/docfields/internal/pipeline"
	"github.com/foxxcyber/docfields/internal/storage"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	cfg := config.Load()

	log := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: logging.FormatFor(cfg.LogFormat, cfg.IsDevelopment()),
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to initialize storage")
	}

	// Extraction history is optional
	var history handlers.History
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}

		if cfg.DocumentRetention > 0 {
			go cleanupExpiredDocuments(ctx, db, store, cfg.DocumentRetention, log)
		}
		history = db
	} else {
		log.Info().Msg("DATABASE_URL not set, extraction history disabled")
	}

	p, err := pipeline.Build(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build extraction pipeline")
	}
	defer p.Close()

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    int(cfg.MaxFileSize) + 1024*1024,
		ReadTimeout:  30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	app.Get("/health", handlers.Health)

	// API routes
	api := app.Group("/api")
	if cfg.AuthEnabled() {
		api.Use(middleware.AuthRequired(cfg))
	} else {
		log.Warn().Msg("JWT_SECRET not set, API is unauthenticated")
	}

	documents := handlers.NewDocumentHandler(cfg, store, p.Orchestrator, history, log)
	documents.RegisterRoutes(api)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("environment", cfg.Environment).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}

// cleanupExpiredDocuments drops expired rows and then their stored files
func cleanupExpiredDocuments(ctx context.Context, db *database.DB, store storage.DocumentStore, retention time.Duration, log zerolog.Logger) {
	keys, err := db.CleanupExpiredDocuments(ctx, retention)
	if err != nil {
		log.Warn().Err(err).Msg("failed to clean up expired documents")
		return
	}
	if len(keys) == 0 {
		return
	}

	log.Info().Int("count", len(keys)).Msg("cleaned up expired documents from database")
	if err := store.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Msg("failed to delete some expired files")
		return
	}
	log.Info().Int("count", len(keys)).Msg("deleted expired files from storage")
}
