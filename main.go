package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"buchungsportal-backend/audit"
	"buchungsportal-backend/background"
	"buchungsportal-backend/config"
	"buchungsportal-backend/database"
	"buchungsportal-backend/logging"
	"buchungsportal-backend/metrics"
	"buchungsportal-backend/middlewares"
	"buchungsportal-backend/routes"
	"buchungsportal-backend/upstream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func main() {
	logging.Init()
	log := logging.With().Str("component", "main").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// ---- Database
	if err := database.Connect(cfg); err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}
	if err := database.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// ---- Metrics
	metrics.Init()

	// ---- Gateway components (config injected, no ambient state)
	queue := background.NewQueue(cfg.QueueSize, cfg.QueueWorkers)
	defer queue.Stop()

	sanitizer := audit.NewSanitizer(cfg.SensitivePatterns)
	auditor := audit.NewWriter(database.NewAuditStore(database.DB), queue, sanitizer)
	client := upstream.NewClient(cfg, auditor)

	tenantStore := database.NewTenantStore(database.DB)
	idemStore := database.NewIdempotencyStore(database.DB, cfg.IdempotencyTTL)

	// ---- Idempotency record retention (store-side reaping)
	go reapLoop(idemStore)

	// ---- Fiber app with global error handler
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
	})

	// ---- CORS
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter
	app.Use(limiter.New(limiter.Config{
		Max:        envInt("RATE_LIMIT_MAX", 60),
		Expiration: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}))

	// ---- Routes
	routes.Register(app, routes.Deps{
		Cfg:         cfg,
		TenantStore: tenantStore,
		IdemStore:   idemStore,
		Queue:       queue,
		Client:      client,
	})

	// ---- Graceful shutdown: stop accepting, then drain the queue
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	log.Info().Str("port", cfg.Port).Msg("API server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// reapLoop deletes expired idempotency records once an hour.
func reapLoop(store *database.IdempotencyStore) {
	log := logging.With().Str("component", "reaper").Logger()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		n, err := store.ReapExpired()
		if err != nil {
			log.Error().Err(err).Msg("idempotency reap failed")
			continue
		}
		if n > 0 {
			log.Info().Int64("deleted", n).Msg("reaped expired idempotency records")
		}
	}
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
