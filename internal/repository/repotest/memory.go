// Package repotest provides in-memory implementations of the repository
// interfaces for service, handler and client tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Store is the shared backing state of every in-memory repository.
type Store struct {
	mu sync.Mutex

	nextID        int64
	tickets       map[int64]domain.Ticket
	customers     map[int64]domain.Customer
	users         map[int64]domain.User
	labels        map[int64]domain.RelatedMember
	products      map[int64]domain.Product
	relations     map[repository.RelationKind]map[int64][]int64
	notes         []domain.Note
	tasks         []domain.Task
	attachments   []domain.Attachment
	spareParts    []domain.SparePart
	activities    []domain.Activity
	invoices      map[int64]domain.Invoice
	payments      []domain.Payment
	catalog       domain.Catalog
	notifications map[int64][]domain.Notification

	activityErr error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nextID:        1000,
		tickets:       map[int64]domain.Ticket{},
		customers:     map[int64]domain.Customer{},
		users:         map[int64]domain.User{},
		labels:        map[int64]domain.RelatedMember{},
		products:      map[int64]domain.Product{},
		relations:     map[repository.RelationKind]map[int64][]int64{},
		invoices:      map[int64]domain.Invoice{},
		notifications: map[int64][]domain.Notification{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// PutTicket inserts or replaces a ticket.
func (s *Store) PutTicket(t domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
		t.UpdatedAt = t.CreatedAt
	}
	s.tickets[t.ID] = t
}

// PutCustomer inserts or replaces a customer.
func (s *Store) PutCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutLabel inserts or replaces a label.
func (s *Store) PutLabel(l domain.RelatedMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[l.ID] = l
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// SetCatalog replaces the enum tables.
func (s *Store) SetCatalog(c domain.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
}

// Ticket returns a copy of the stored ticket.
func (s *Store) Ticket(id int64) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	return t, ok
}

// Members returns the member ids of a ticket relation in attach order.
func (s *Store) Members(kind repository.RelationKind, ticketID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.relations[kind][ticketID]...)
}

// Activities returns all timeline entries of a ticket.
func (s *Store) Activities(ticketID int64) []domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Activity
	for _, a := range s.activities {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out
}

// FailActivityWrites makes every later timeline insert fail with err. A nil
// err restores normal behavior.
func (s *Store) FailActivityWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activityErr = err
}

// Tickets returns the ticket repository view of the store.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Customers returns the customer repository view of the store.
func (s *Store) Customers() repository.CustomerRepository { return customerRepo{s} }

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Relations returns the relation repository view of the store.
func (s *Store) Relations() repository.RelationRepository { return relationRepo{s} }

// Notes returns the note repository view of the store.
func (s *Store) Notes() repository.NoteRepository { return noteRepo{s} }

// Tasks returns the task repository view of the store.
func (s *Store) Tasks() repository.TaskRepository { return taskRepo{s} }

// Attachments returns the attachment repository view of the store.
func (s *Store) Attachments() repository.AttachmentRepository { return attachmentRepo{s} }

// SpareParts returns the spare part repository view of the store.
func (s *Store) SpareParts() repository.SparePartRepository { return sparePartRepo{s} }

// Products returns the product repository view of the store.
func (s *Store) Products() repository.ProductRepository { return productRepo{s} }

// ActivityLog returns the activity repository view of the store.
func (s *Store) ActivityLog() repository.ActivityRepository { return activityRepo{s} }

// Catalog returns the catalog repository view of the store.
func (s *Store) Catalog() repository.CatalogRepository { return catalogRepo{s} }

// Invoices returns the invoice repository view of the store.
func (s *Store) Invoices() repository.InvoiceRepository { return invoiceRepo{s} }

// Notifications returns the notification store view of the store.
func (s *Store) Notifications() repository.NotificationStore { return notificationRepo{s} }

type ticketRepo struct{ s *Store }

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.CreatedAt = existing.CreatedAt
	ticket.UpdatedAt = time.Now()
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

// Apply checks every step before mutating so a failure leaves the store as
// a rolled back transaction would.
func (r ticketRepo) Apply(_ context.Context, change *repository.TicketChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.tickets[change.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	if len(change.Activities) > 0 && r.s.activityErr != nil {
		return r.s.activityErr
	}
	if change.Ticket != nil {
		change.Ticket.CreatedAt = existing.CreatedAt
		change.Ticket.UpdatedAt = time.Now()
		r.s.tickets[change.TicketID] = *change.Ticket
	}
	for kind, memberIDs := range change.Members {
		r.s.replace(kind, change.TicketID, memberIDs)
	}
	for i := range change.Activities {
		r.s.appendActivity(&change.Activities[i])
	}
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if filter.CustomerID != nil && t.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.BranchID != nil && t.BranchID != *filter.BranchID {
			continue
		}
		if filter.AgentID != nil && !containsID(r.s.relations[repository.RelationAgents][t.ID], *filter.AgentID) {
			continue
		}
		if len(filter.StatusIDs) > 0 && !containsID(filter.StatusIDs, t.StatusID) {
			continue
		}
		if len(filter.PriorityIDs) > 0 && !containsID(filter.PriorityIDs, t.PriorityID) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if !strings.Contains(strings.ToLower(t.Issue), term) && !strings.Contains(strings.ToLower(t.Description), term) {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, filter.Limit, filter.Offset), nil
}

type customerRepo struct{ s *Store }

func (r customerRepo) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type relationRepo struct{ s *Store }

func (r relationRepo) Attach(_ context.Context, kind repository.RelationKind, ticketID, memberID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.relations[kind] == nil {
		r.s.relations[kind] = map[int64][]int64{}
	}
	if containsID(r.s.relations[kind][ticketID], memberID) {
		return nil
	}
	r.s.relations[kind][ticketID] = append(r.s.relations[kind][ticketID], memberID)
	return nil
}

func (r relationRepo) Detach(_ context.Context, kind repository.RelationKind, ticketID, memberID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := r.s.relations[kind][ticketID]
	for i, id := range ids {
		if id == memberID {
			r.s.relations[kind][ticketID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (r relationRepo) Replace(_ context.Context, kind repository.RelationKind, ticketID int64, memberIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.replace(kind, ticketID, memberIDs)
	return nil
}

func (s *Store) replace(kind repository.RelationKind, ticketID int64, memberIDs []int64) {
	if s.relations[kind] == nil {
		s.relations[kind] = map[int64][]int64{}
	}
	ids := []int64{}
	for _, id := range memberIDs {
		if !containsID(ids, id) {
			ids = append(ids, id)
		}
	}
	s.relations[kind][ticketID] = ids
}

func (r relationRepo) List(_ context.Context, kind repository.RelationKind, ticketID int64) ([]domain.RelatedMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.RelatedMember{}
	for _, id := range r.s.relations[kind][ticketID] {
		m, _ := r.s.member(kind, id)
		out = append(out, m)
	}
	return out, nil
}

func (r relationRepo) MemberExists(_ context.Context, kind repository.RelationKind, memberID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.member(kind, memberID)
	return ok, nil
}

func (s *Store) member(kind repository.RelationKind, id int64) (domain.RelatedMember, bool) {
	if kind == repository.RelationLabels {
		l, ok := s.labels[id]
		return l, ok
	}
	u, ok := s.users[id]
	if !ok || !u.Active {
		return domain.RelatedMember{ID: id}, false
	}
	return domain.RelatedMember{ID: u.ID, Name: u.Name}, true
}

type noteRepo struct{ s *Store }

func (r noteRepo) Create(_ context.Context, note *domain.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	note.ID = r.s.id()
	note.CreatedAt = time.Now()
	if note.AuthorID != nil {
		note.AuthorName = r.s.users[*note.AuthorID].Name
	}
	r.s.notes = append(r.s.notes, *note)
	return nil
}

func (r noteRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return newestFirst(r.s.notes, func(n domain.Note) bool { return n.TicketID == ticketID }), nil
}

func (r noteRepo) Delete(_ context.Context, ticketID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ok bool
	r.s.notes, ok = deleteWhere(r.s.notes, func(n domain.Note) bool { return n.TicketID == ticketID && n.ID == id })
	return notFoundUnless(ok)
}

type taskRepo struct{ s *Store }

func (r taskRepo) Create(_ context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task.ID = r.s.id()
	task.CreatedAt = time.Now()
	r.s.tasks = append(r.s.tasks, *task)
	return nil
}

func (r taskRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return newestFirst(r.s.tasks, func(t domain.Task) bool { return t.TicketID == ticketID }), nil
}

func (r taskRepo) Delete(_ context.Context, ticketID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ok bool
	r.s.tasks, ok = deleteWhere(r.s.tasks, func(t domain.Task) bool { return t.TicketID == ticketID && t.ID == id })
	return notFoundUnless(ok)
}

type attachmentRepo struct{ s *Store }

func (r attachmentRepo) Create(_ context.Context, a *domain.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.id()
	a.CreatedAt = time.Now()
	r.s.attachments = append(r.s.attachments, *a)
	return nil
}

func (r attachmentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return newestFirst(r.s.attachments, func(a domain.Attachment) bool { return a.TicketID == ticketID }), nil
}

func (r attachmentRepo) Delete(_ context.Context, ticketID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ok bool
	r.s.attachments, ok = deleteWhere(r.s.attachments, func(a domain.Attachment) bool { return a.TicketID == ticketID && a.ID == id })
	return notFoundUnless(ok)
}

type sparePartRepo struct{ s *Store }

func (r sparePartRepo) Create(_ context.Context, p *domain.SparePart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.products[p.ProductID]
	if !ok {
		return pgx.ErrNoRows
	}
	p.ID = r.s.id()
	p.ProductName = product.Name
	p.CreatedAt = time.Now()
	r.s.spareParts = append(r.s.spareParts, *p)
	return nil
}

func (r sparePartRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.SparePart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return newestFirst(r.s.spareParts, func(p domain.SparePart) bool { return p.TicketID == ticketID }), nil
}

func (r sparePartRepo) Delete(_ context.Context, ticketID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ok bool
	r.s.spareParts, ok = deleteWhere(r.s.spareParts, func(p domain.SparePart) bool { return p.TicketID == ticketID && p.ID == id })
	return notFoundUnless(ok)
}

type productRepo struct{ s *Store }

func (r productRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

type activityRepo struct{ s *Store }

func (r activityRepo) Create(_ context.Context, a *domain.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.activityErr != nil {
		return r.s.activityErr
	}
	r.s.appendActivity(a)
	return nil
}

func (s *Store) appendActivity(a *domain.Activity) {
	a.ID = s.id()
	a.CreatedAt = time.Now()
	s.activities = append(s.activities, *a)
}

func (r activityRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Activity{}
	for _, a := range r.s.activities {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

type catalogRepo struct{ s *Store }

func (r catalogRepo) Load(context.Context) (*domain.Catalog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := domain.Catalog{
		Statuses:   append([]domain.Status{}, r.s.catalog.Statuses...),
		Priorities: append([]domain.Priority{}, r.s.catalog.Priorities...),
		Branches:   append([]domain.Branch{}, r.s.catalog.Branches...),
	}
	return &c, nil
}

func (r catalogRepo) Upsert(_ context.Context, c *domain.Catalog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.catalog = *c
	return nil
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) Create(_ context.Context, inv *domain.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.invoices {
		if existing.TicketID == inv.TicketID {
			return errUniqueViolation
		}
	}
	inv.ID = r.s.id()
	inv.CreatedAt = time.Now()
	for i := range inv.Items {
		inv.Items[i].ID = r.s.id()
		inv.Items[i].InvoiceID = inv.ID
	}
	stored := *inv
	stored.Items = append([]domain.InvoiceItem(nil), inv.Items...)
	r.s.invoices[inv.ID] = stored
	return nil
}

func (r invoiceRepo) GetByID(_ context.Context, id int64) (*domain.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &inv, nil
}

func (r invoiceRepo) GetByTicket(_ context.Context, ticketID int64) (*domain.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.TicketID == ticketID {
			return &inv, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r invoiceRepo) AddPayment(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[p.InvoiceID]
	if !ok || inv.PaidAmount+p.Amount > inv.TotalAmount {
		return pgx.ErrNoRows
	}
	inv.PaidAmount += p.Amount
	r.s.invoices[inv.ID] = inv
	p.ID = r.s.id()
	p.CreatedAt = time.Now()
	r.s.payments = append(r.s.payments, *p)
	return nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Push(_ context.Context, n domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifications[n.UserID] = append([]domain.Notification{n}, r.s.notifications[n.UserID]...)
	return nil
}

func (r notificationRepo) List(_ context.Context, userID int64, limit int) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.notifications[userID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]domain.Notification{}, list...), nil
}

// Repositories returns every repository view bundled for service wiring.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Tickets:       s.Tickets(),
		Customers:     s.Customers(),
		Users:         s.Users(),
		Relations:     s.Relations(),
		Notes:         s.Notes(),
		Tasks:         s.Tasks(),
		Attachments:   s.Attachments(),
		SpareParts:    s.SpareParts(),
		Products:      s.Products(),
		Activities:    s.ActivityLog(),
		Catalog:       s.Catalog(),
		Invoices:      s.Invoices(),
		Notifications: s.Notifications(),
	}
}
