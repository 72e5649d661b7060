package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Repositories bundles every store the services depend on.
type Repositories struct {
	Tickets       TicketRepository
	Customers     CustomerRepository
	Users         UserRepository
	Relations     RelationRepository
	Notes         NoteRepository
	Tasks         TaskRepository
	Attachments   AttachmentRepository
	SpareParts    SparePartRepository
	Products      ProductRepository
	Activities    ActivityRepository
	Catalog       CatalogRepository
	Invoices      InvoiceRepository
	Notifications NotificationStore
}

// NewRepositories builds the Postgres repositories and the Redis
// notification store. retain caps each user's notification list.
func NewRepositories(pool *pgxpool.Pool, redisClient *redis.Client, retain int) Repositories {
	return Repositories{
		Tickets:       NewTicketRepository(pool),
		Customers:     NewCustomerRepository(pool),
		Users:         NewUserRepository(pool),
		Relations:     NewRelationRepository(pool),
		Notes:         NewNoteRepository(pool),
		Tasks:         NewTaskRepository(pool),
		Attachments:   NewAttachmentRepository(pool),
		SpareParts:    NewSparePartRepository(pool),
		Products:      NewProductRepository(pool),
		Activities:    NewActivityRepository(pool),
		Catalog:       NewCatalogRepository(pool),
		Invoices:      NewInvoiceRepository(pool),
		Notifications: NewRedisNotificationStore(redisClient, retain),
	}
}
