package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

// ServerConfig carries everything NewApp needs besides the services.
type ServerConfig struct {
	Name           string
	Version        string
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Gatherer       prometheus.Gatherer
	Health         map[string]handlers.Pinger
	Users          repository.UserRepository
}

// NewApp builds the Fiber application with middlewares and every route.
func NewApp(cfg ServerConfig, services service.Services) *fiber.App {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: true,
		// Errors are rendered by the error middleware; this only catches
		// failures raised before it runs.
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			writeError(c, logger, cfg.Metrics, err)
			return nil
		},
	})
	RegisterMiddlewares(app, logger, cfg.Metrics, cfg.RequestTimeout)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.Name, cfg.Version, cfg.Health),
		Auth:           handlers.NewAuthHandler(services.Auth),
		Catalog:        handlers.NewCatalogHandler(services.Catalog),
		Tickets:        handlers.NewTicketsHandler(services.Tickets, services.Relations),
		Collections:    handlers.NewCollectionsHandler(services.Collections),
		Invoices:       handlers.NewInvoicesHandler(services.Invoices),
		Notifications:  handlers.NewNotificationsHandler(services.Notifications),
		AuthMiddleware: auth.NewAuthMiddleware(services.Auth.TokenManager(), cfg.Users),
		Gatherer:       cfg.Gatherer,
	})
	return app
}
