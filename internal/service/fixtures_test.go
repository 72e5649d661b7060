package service

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository/repotest"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

var testCatalog = domain.Catalog{
	Statuses: []domain.Status{
		{ID: 1, Name: "Open"},
		{ID: 2, Name: "In Progress"},
		{ID: 3, Name: "Closed", IsClosed: true},
		{ID: 4, Name: "Completed", IsClosed: true},
	},
	Priorities: []domain.Priority{{ID: 1, Name: "Low"}, {ID: 2, Name: "Medium"}, {ID: 3, Name: "High"}},
	Branches:   []domain.Branch{{ID: 1, Name: "Downtown"}, {ID: 2, Name: "Airport"}},
}

func seededStore() *repotest.Store {
	store := repotest.New()
	store.SetCatalog(testCatalog)
	store.PutCustomer(domain.Customer{ID: 5, Name: "Ada"})
	store.PutTicket(domain.Ticket{ID: 42, CustomerID: 5, Issue: "Printer jam", StatusID: 1, PriorityID: 2, BranchID: 1})
	store.PutUser(domain.User{ID: 7, Name: "Agent Seven", Email: "seven@example.com", Role: domain.UserRoleAgent, Active: true})
	store.PutUser(domain.User{ID: 8, Name: "Agent Eight", Email: "eight@example.com", Role: domain.UserRoleAgent, Active: true})
	store.PutUser(domain.User{ID: 9, Name: "Retired", Role: domain.UserRoleAgent, Active: false})
	store.PutLabel(domain.RelatedMember{ID: 11, Name: "urgent", Color: "#ff0000"})
	store.PutProduct(domain.Product{ID: 100, Name: "Toner", Price: 2500})
	store.PutProduct(domain.Product{ID: 101, Name: "Roller", Price: 1200})
	return store
}

func newTicketService(store *repotest.Store, d events.Dispatcher) *TicketService {
	svc := NewTicketService(TicketDependencies{
		TicketRepo:   store.Tickets(),
		CustomerRepo: store.Customers(),
		RelationRepo: store.Relations(),
		ActivityRepo: store.ActivityLog(),
		CatalogRepo:  store.Catalog(),
		Dispatcher:   d,
	})
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func ptr[T any](v T) *T { return &v }
