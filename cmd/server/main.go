// Package main is the entry point for the matching engine service.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"log"
	"time"

	"fxmatch/internal/config"
	"fxmatch/internal/repositories"
	"fxmatch/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	// Load environment variables
	config.LoadEnv()

	// Initialize PostgreSQL (settlement journal) and Redis (rate
	// snapshots). The engine itself is in-memory: persistence failures
	// degrade to an unjournaled engine rather than refusing to start.
	if err := repositories.InitDB(); err != nil {
		log.Printf("persistence unavailable, running in-memory only: %v", err)
	}
	defer func() {
		if repositories.RateCache != nil {
			if err := repositories.RateCache.Close(); err != nil {
				log.Printf("failed to close Redis connection: %v", err)
			}
		}
	}()

	// Create Fiber app
	app := fiber.New()

	// CORS middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,DELETE",
	}))

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/transfers", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("SUBMIT_RATE_LIMIT", 30),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	// Routes
	matchingEngine := routes.SetupRoutes(app)
	defer matchingEngine.Close()

	// Start server
	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}
