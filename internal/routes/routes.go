package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stellarpass/stellarpass/internal/auth"
	"github.com/stellarpass/stellarpass/internal/bootstrap"
	"github.com/stellarpass/stellarpass/internal/config"
	"github.com/stellarpass/stellarpass/internal/identity"
	"github.com/stellarpass/stellarpass/internal/middleware"
	"github.com/stellarpass/stellarpass/internal/payments"
	"github.com/stellarpass/stellarpass/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Core   *bootstrap.Core
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Core == nil {
		return fmt.Errorf("routes: core is required")
	}
	if !d.Cfg.IsDev() && d.Cfg.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	core := d.Core
	authHandler := auth.NewHandler(core.Manager, core.Tokens, core.Notices)
	identityHandler := identity.NewHandler(core.Directory)
	walletHandler := wallet.NewHandler(core.Wallet)
	chainHandler := payments.NewHandler(core.Payments)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, authHandler, middleware.AuthRateLimit(d.Cache, d.Cfg.LoginRateLimit))
	RegisterIdentityRoutes(api, identityHandler)
	api.Get("/session", authHandler.Session)
	api.Get("/chain/users/:username", chainHandler.User)
	api.Get("/chain/tiplinks/:username", chainHandler.TipLink)
	api.Get("/chain/payments/:address", chainHandler.Payments)
	api.Get("/chain/stats", chainHandler.Stats)

	// Protected routes
	protected := api.Group("", middleware.Session(core.Tokens, core.Manager))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, middleware.IdempotencyConfig{
			TTL:    d.Cfg.IdempotencyTTL,
			Logger: d.Logger,
		}))
	}
	protected.Post("/auth/logout", authHandler.Logout)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterChainRoutes(protected, chainHandler)

	return nil
}
