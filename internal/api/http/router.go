package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Catalog        *handlers.CatalogHandler
	Tickets        *handlers.TicketsHandler
	Collections    *handlers.CollectionsHandler
	Invoices       *handlers.InvoicesHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/catalog", cfg.Catalog.GetCatalog)
	api.Get("/notifications", cfg.Notifications.List)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.PutTicket)
	tickets.Patch("/:id", cfg.Tickets.PatchTicket)
	tickets.Post("/:id/verify", cfg.Tickets.VerifyTicket)
	tickets.Get("/:id/invoice", cfg.Invoices.GetTicketInvoice)

	relations := map[string]repository.RelationKind{
		"agents":       repository.RelationAgents,
		"notify-users": repository.RelationNotifyUsers,
		"labels":       repository.RelationLabels,
	}
	for segment, kind := range relations {
		tickets.Post("/:id/"+segment+"/:memberId", cfg.Tickets.AttachMember(kind))
		tickets.Delete("/:id/"+segment+"/:memberId", cfg.Tickets.DetachMember(kind))
	}

	tickets.Get("/:id/notes", cfg.Collections.ListNotes)
	tickets.Post("/:id/notes", cfg.Collections.AddNote)
	tickets.Delete("/:id/notes/:itemId", cfg.Collections.DeleteNote)
	tickets.Get("/:id/tasks", cfg.Collections.ListTasks)
	tickets.Post("/:id/tasks", cfg.Collections.AddTask)
	tickets.Delete("/:id/tasks/:itemId", cfg.Collections.DeleteTask)
	tickets.Get("/:id/attachments", cfg.Collections.ListAttachments)
	tickets.Post("/:id/attachments", cfg.Collections.AddAttachment)
	tickets.Delete("/:id/attachments/:itemId", cfg.Collections.DeleteAttachment)
	tickets.Get("/:id/spare-parts", cfg.Collections.ListSpareParts)
	tickets.Post("/:id/spare-parts", cfg.Collections.AddSparePart)
	tickets.Delete("/:id/spare-parts/:itemId", cfg.Collections.DeleteSparePart)

	invoices := api.Group("/invoices")
	invoices.Post("/", cfg.Invoices.CreateInvoice)
	invoices.Post("/:id/payments", auth.RequireRole(domain.UserRoleAdmin), cfg.Invoices.RecordPayment)
}
