package server

import (
	"fmt"

	"github.com/Lernia/authgate/internal/cache"
	"github.com/Lernia/authgate/internal/config"
	"github.com/Lernia/authgate/internal/crypto"
	"github.com/Lernia/authgate/internal/domain/auth"
	"github.com/Lernia/authgate/internal/domain/cookie"
	"github.com/Lernia/authgate/internal/domain/token"
	"github.com/Lernia/authgate/internal/domain/user"
	"github.com/Lernia/authgate/internal/fingerprint"
	"github.com/Lernia/authgate/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes wires repositories, the cookie manager and the auth surface
// onto the provided Fiber app. Everything is constructed here and passed
// down explicitly; no package holds global state.
func SetupRoutes(app *fiber.App, db *gorm.DB, store cache.Store, cfg *config.Config, env *config.Environment) error {
	secret, err := env.SecretKey()
	if err != nil {
		return fmt.Errorf("invalid application secret: %w", err)
	}

	cipher, err := crypto.NewCipher(secret[:crypto.KeySize])
	if err != nil {
		return fmt.Errorf("failed to construct cipher: %w", err)
	}

	userRepo := user.NewRepository(db)
	tokenRepo := token.NewRepository(db)

	prints := fingerprint.NewGenerator(secret)
	failLimiter := ratelimit.New(store, cfg.Server.RateLimit)
	cookieManager := cookie.NewManager(tokenRepo, store, failLimiter, prints, cipher, cfg.Cookie)

	authService := auth.NewService(userRepo, cookieManager, failLimiter)
	authHandler := auth.NewHandler(authService, cfg.Cookie.Name)

	api := app.Group("/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/logout", authHandler.Logout)

	protected := api.Group("/auth")
	protected.Use(auth.RequireAuth(cookieManager, cfg.Server.LoginPath))
	protected.Get("/me", authHandler.Me)

	return nil
}
