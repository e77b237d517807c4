package server

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Lernia/authgate/internal/cache"
	"github.com/Lernia/authgate/internal/config"
	"github.com/Lernia/authgate/internal/database"
	"github.com/Lernia/authgate/internal/domain/token"
	"github.com/Lernia/authgate/internal/migrations"
	"github.com/Lernia/authgate/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Start initializes logging, configures the Fiber app, connects to the
// database and Redis, runs migrations, registers routes, and starts
// listening on the configured address.
func Start(cfg *config.Config, env *config.Environment) error {
	initLogger(cfg.Logging.Level)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var apiErr *utils.APIError
			if errors.As(err, &apiErr) {
				return utils.ErrorResponse(c, apiErr)
			}

			var e *fiber.Error
			if errors.As(err, &e) {
				return utils.ErrorResponse(c, utils.NewAPIError(
					"HTTP_ERROR",
					e.Message,
					e.Code,
				))
			}

			return utils.ErrorResponse(c, utils.ErrInternalServer)
		},
	})

	// Use Helmet for security headers
	app.Use(helmet.New())

	// Coarse per-IP request limiter in front of everything; the auth
	// failure limiter in internal/ratelimit is separate and stricter
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.RateLimit.MaxAttempts * 20,
		Expiration: time.Duration(cfg.Server.RateLimit.WindowSecs) * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, utils.NewAPIError(
				"TOO_MANY_REQUESTS",
				"Too many requests, please try again later.",
				fiber.StatusTooManyRequests,
			))
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
		ExposeHeaders:    "Content-Length",
		MaxAge:           3600,
	}))

	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	slog.Info("Database connected successfully")

	if err := migrations.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	go purgeExpiredTokens(token.NewRepository(db))

	var store cache.Store
	redisStore, err := cache.NewRedisStore(&cfg.Redis)
	if err != nil {
		// The cache is a best-effort accelerator; the server still runs
		// on an in-process store when Redis is unreachable
		slog.Warn("Redis unavailable, using in-memory cache", "error", err)
		store = cache.NewMemoryStore()
	} else {
		store = redisStore
	}

	if err := SetupRoutes(app, db, store, cfg, env); err != nil {
		slog.Error("Failed to setup routes", "error", err)
		return err
	}

	addr := cfg.Server.Address()
	slog.Info("Server starting",
		"address", addr,
		"app", cfg.App.Name,
		"version", cfg.App.Version,
	)
	if err := app.Listen(addr); err != nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

// purgeExpiredTokens deletes token rows long past their expiry. Rows are
// kept for 24 hours after expiring so recent revocations stay visible in
// the table for debugging.
func purgeExpiredTokens(repo token.Repository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		n, err := repo.DeleteExpired(time.Now().UTC().Add(-24 * time.Hour))
		if err != nil {
			slog.Warn("Expired token cleanup failed", "error", err)
			continue
		}
		if n > 0 {
			slog.Info("Expired tokens purged", "count", n)
		}
	}
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
