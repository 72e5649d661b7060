package service

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Services bundles the application services.
type Services struct {
	Auth          *AuthService
	Tickets       *TicketService
	Relations     *RelationService
	Collections   *CollectionService
	Invoices      *InvoiceService
	Catalog       *CatalogService
	Notifications *NotificationService
}

// New wires every service over repos. Events go to dispatcher; the
// notification service subscribes to it.
func New(repos repository.Repositories, dispatcher events.Dispatcher, tokens *auth.TokenManager, metrics NotificationRecorder, logger *zap.Logger) Services {
	notifications := NewNotificationService(NotificationDependencies{
		Dispatcher:   dispatcher,
		RelationRepo: repos.Relations,
		Store:        repos.Notifications,
		Metrics:      metrics,
		Logger:       logger,
	})
	notifications.RegisterHandlers()

	return Services{
		Auth: NewAuthService(repos.Users, tokens),
		Tickets: NewTicketService(TicketDependencies{
			TicketRepo:   repos.Tickets,
			CustomerRepo: repos.Customers,
			RelationRepo: repos.Relations,
			ActivityRepo: repos.Activities,
			CatalogRepo:  repos.Catalog,
			Dispatcher:   dispatcher,
		}),
		Relations: NewRelationService(RelationDependencies{
			TicketRepo:   repos.Tickets,
			RelationRepo: repos.Relations,
			Dispatcher:   dispatcher,
		}),
		Collections: NewCollectionService(CollectionDependencies{
			TicketRepo:     repos.Tickets,
			UserRepo:       repos.Users,
			NoteRepo:       repos.Notes,
			TaskRepo:       repos.Tasks,
			AttachmentRepo: repos.Attachments,
			SparePartRepo:  repos.SpareParts,
			ProductRepo:    repos.Products,
			Dispatcher:     dispatcher,
		}),
		Invoices: NewInvoiceService(InvoiceDependencies{
			TicketRepo:    repos.Tickets,
			InvoiceRepo:   repos.Invoices,
			ProductRepo:   repos.Products,
			SparePartRepo: repos.SpareParts,
			ActivityRepo:  repos.Activities,
			Dispatcher:    dispatcher,
		}),
		Catalog:       NewCatalogService(repos.Catalog, logger),
		Notifications: notifications,
	}
}
