package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"pointsmall-backend/database"
	"pointsmall-backend/idempotency"
	"pointsmall-backend/middlewares"
	"pointsmall-backend/routes"
	"pointsmall-backend/utils"
)

func main() {
	// ---- Database
	database.Connect()
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	// ---- Idempotency service
	store := database.NewGormStore(database.DB)
	svc, err := idempotency.NewService(store, idempotency.ConfigFromEnv())
	if err != nil {
		log.Fatalf("idempotency service: %v", err)
	}

	// ---- Fiber app with global error handler + body limit
	bodyLimitBytes := utils.EnvInt("BODY_LIMIT_BYTES", 0)
	if bodyLimitBytes <= 0 {
		bodyLimitBytes = utils.EnvInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    bodyLimitBytes,
	})

	// ---- CORS
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: false, // Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter
	rlMax := utils.EnvInt("RATE_LIMIT_MAX", 60)
	rlWindow := time.Duration(utils.EnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
	app.Use(limiter.New(limiter.Config{
		Max:        rlMax,
		Expiration: rlWindow,
	}))

	// ---- Routes
	routes.Register(app, svc, store)

	// ---- Lifecycle sweeper cadence (stands in for an external cron).
	// Sweep failures are logged and retried next cycle, never fatal.
	sweepEvery := utils.EnvDuration("IDEMPOTENCY_SWEEP_INTERVAL", time.Minute)
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := svc.CleanupExpired(); err != nil {
				log.Printf("idempotency sweep failed: %v", err)
			}
		}
	}()

	// ---- Start
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := app.Listen(":" + port); err != nil {
		panic(err)
	}
}
