package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/passbi/raptor_core/internal/api"
	"github.com/passbi/raptor_core/internal/cache"
	"github.com/passbi/raptor_core/internal/middleware"
	"github.com/passbi/raptor_core/internal/timetable"
)

func main() {
	log.Println("Starting raptor query API...")

	dataDir := getEnv("RAPTOR_DATA", "./Public-Transit-Data")
	dataset := getEnv("RAPTOR_DATASET", "")
	algo := timetable.Algorithm(getEnv("RAPTOR_ALGO", string(timetable.AlgoHLR)))

	if dataset == "" {
		log.Fatal("RAPTOR_DATASET must be set")
	}

	// Load the timetable into memory; it is shared read-only by every
	// request after this point.
	tt, err := timetable.Load(dataDir+"/"+dataset, dataset, algo)
	if err != nil {
		log.Fatalf("Failed to load timetable: %v", err)
	}
	tt.Summary()

	// Redis is optional: without it the API just skips caching and
	// rate limiting.
	useCache := false
	rdb, err := cache.GetClient()
	if err != nil {
		log.Printf("Redis unavailable, caching disabled: %v", err)
	} else {
		useCache = true
		defer cache.Close()
		log.Println("Redis connection established")
	}

	app := fiber.New(fiber.Config{
		AppName:      "raptor_core API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	if useCache {
		perSecond, _ := strconv.Atoi(getEnv("RATE_LIMIT_PER_SECOND", "10"))
		perDay, _ := strconv.Atoi(getEnv("RATE_LIMIT_PER_DAY", "100000"))
		app.Use(middleware.RateLimitMiddleware(rdb, perSecond, perDay))
	}

	h := api.New(tt, useCache)

	app.Get("/health", h.Health)
	app.Get("/v1/arrival", h.Arrival)
	app.Get("/v1/profile", h.Profile)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Server listening on http://localhost%s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
