package workspace_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/workspace"
)

type updateCall struct {
	req  dto.UpdateTicketRequest
	full bool
}

// fakeAPI is an in-memory server. Requests take effect in the order they
// arrive; hooks run before the response is returned so tests can reorder
// responses.
type fakeAPI struct {
	mu          sync.Mutex
	ticket      dto.TicketResponse
	catalog     dto.CatalogResponse
	people      map[int64]string
	labels      map[int64]dto.MemberRef
	products    map[int64]int64
	notes       []dto.NoteResponse
	tasks       []dto.TaskResponse
	attachments []dto.AttachmentResponse
	spareParts  []dto.SparePartResponse
	invoice     *dto.InvoiceResponse
	nextID      int64
	calls       map[string]int
	updates     []updateCall
	invoiceReqs []dto.CreateInvoiceRequest
	deleted     bool

	updateErr  error
	attachErr  error
	detachErr  error
	deleteErr  error
	listErr    error
	updateHook func(n int)
	attachHook func(memberID int64)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		ticket: dto.TicketResponse{
			ID:          42,
			CustomerID:  5,
			Customer:    &dto.CustomerResponse{ID: 5, Name: "Ada"},
			Issue:       "Printer jam",
			StatusID:    1,
			PriorityID:  2,
			BranchID:    1,
			Agents:      []dto.MemberRef{},
			NotifyUsers: []dto.MemberRef{},
			Labels:      []dto.MemberRef{},
			Activities:  []dto.ActivityResponse{},
		},
		catalog: dto.CatalogResponse{
			Statuses: []dto.StatusResponse{
				{ID: 1, Name: "Open"},
				{ID: 2, Name: "In Progress"},
				{ID: 3, Name: "Closed", IsClosed: true},
				{ID: 4, Name: "Completed", IsClosed: true},
			},
			Priorities: []dto.EnumResponse{{ID: 1, Name: "Low"}, {ID: 2, Name: "Medium"}, {ID: 3, Name: "High"}},
			Branches:   []dto.EnumResponse{{ID: 1, Name: "Downtown"}, {ID: 2, Name: "Airport"}},
		},
		people:   map[int64]string{7: "Agent Seven", 8: "Agent Eight"},
		labels:   map[int64]dto.MemberRef{11: {ID: 11, Name: "urgent", Color: "#ff0000"}},
		products: map[int64]int64{100: 2500, 101: 1200},
		nextID:   500,
		calls:    map[string]int{},
	}
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) server() dto.TicketResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneTicket(f.ticket)
}

func (f *fakeAPI) recordedUpdates() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updates)
}

func (f *fakeAPI) id() int64 {
	f.nextID++
	return f.nextID
}

func cloneTicket(t dto.TicketResponse) dto.TicketResponse {
	out := t
	out.Agents = slices.Clone(t.Agents)
	out.NotifyUsers = slices.Clone(t.NotifyUsers)
	out.Labels = slices.Clone(t.Labels)
	out.Activities = slices.Clone(t.Activities)
	return out
}

func (f *fakeAPI) members(rel dto.Relation) *[]dto.MemberRef {
	switch rel {
	case dto.RelationAgents:
		return &f.ticket.Agents
	case dto.RelationNotifyUsers:
		return &f.ticket.NotifyUsers
	}
	return &f.ticket.Labels
}

func (f *fakeAPI) ref(rel dto.Relation, id int64) (dto.MemberRef, bool) {
	if rel == dto.RelationLabels {
		l, ok := f.labels[id]
		return l, ok
	}
	name, ok := f.people[id]
	return dto.MemberRef{ID: id, Name: name}, ok
}

func (f *fakeAPI) activity(kind, message string) {
	f.ticket.Activities = append([]dto.ActivityResponse{{
		ID:        f.id(),
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}}, f.ticket.Activities...)
}

func (f *fakeAPI) GetTicket(_ context.Context, ticketID int64) (*dto.TicketResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get"]++
	if ticketID != f.ticket.ID {
		return nil, fmt.Errorf("ticket %d: %w", ticketID, workspace.ErrNotFound)
	}
	t := cloneTicket(f.ticket)
	return &t, nil
}

func (f *fakeAPI) UpdateTicket(_ context.Context, _ int64, req dto.UpdateTicketRequest, full bool) (*dto.TicketResponse, error) {
	f.mu.Lock()
	f.calls["update"]++
	n := f.calls["update"]
	f.updates = append(f.updates, updateCall{req: req, full: full})
	err := f.updateErr
	var resp dto.TicketResponse
	if err == nil {
		f.applyUpdate(req, full)
		resp = cloneTicket(f.ticket)
	}
	hook := f.updateHook
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *fakeAPI) applyUpdate(req dto.UpdateTicketRequest, full bool) {
	if req.StatusID != nil && *req.StatusID != f.ticket.StatusID {
		f.activity("STATUS_CHANGE", fmt.Sprintf("Status changed from %d to %d", f.ticket.StatusID, *req.StatusID))
		f.ticket.StatusID = *req.StatusID
		closed := false
		for _, s := range f.catalog.Statuses {
			if s.ID == *req.StatusID {
				closed = s.IsClosed
			}
		}
		if !closed {
			f.ticket.ClosedTime = nil
		} else if f.ticket.ClosedTime == nil {
			now := time.Now().UTC()
			f.ticket.ClosedTime = &now
		}
	}
	if req.PriorityID != nil && *req.PriorityID != f.ticket.PriorityID {
		f.activity("PRIORITY_CHANGE", "priority changed")
		f.ticket.PriorityID = *req.PriorityID
	}
	if req.BranchID != nil && *req.BranchID != f.ticket.BranchID {
		f.activity("BRANCH_CHANGE", "branch changed")
		f.ticket.BranchID = *req.BranchID
	}
	if req.DueDate.Set {
		f.ticket.DueDate = req.DueDate.Time
	}
	if !full {
		return
	}
	for rel, ids := range map[dto.Relation][]int64{
		dto.RelationAgents:      req.AssignedUsers,
		dto.RelationNotifyUsers: req.NotifyUsers,
		dto.RelationLabels:      req.TicketLabels,
	} {
		list := []dto.MemberRef{}
		for _, id := range ids {
			if ref, ok := f.ref(rel, id); ok {
				list = append(list, ref)
			}
		}
		*f.members(rel) = list
	}
}

func (f *fakeAPI) AttachMember(_ context.Context, rel dto.Relation, _ int64, memberID int64) ([]dto.MemberRef, error) {
	f.mu.Lock()
	f.calls["attach"]++
	hook := f.attachHook
	f.mu.Unlock()
	if hook != nil {
		hook(memberID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	ref, ok := f.ref(rel, memberID)
	if !ok {
		return nil, fmt.Errorf("member %d: %w", memberID, workspace.ErrNotFound)
	}
	list := f.members(rel)
	if !slices.ContainsFunc(*list, func(m dto.MemberRef) bool { return m.ID == memberID }) {
		*list = append(*list, ref)
	}
	return slices.Clone(*list), nil
}

func (f *fakeAPI) DetachMember(_ context.Context, rel dto.Relation, _ int64, memberID int64) ([]dto.MemberRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["detach"]++
	if f.detachErr != nil {
		return nil, f.detachErr
	}
	list := f.members(rel)
	*list = slices.DeleteFunc(*list, func(m dto.MemberRef) bool { return m.ID == memberID })
	return slices.Clone(*list), nil
}

func (f *fakeAPI) VerifyTicket(_ context.Context, _ int64, req dto.VerifyTicketRequest) (*dto.TicketResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["verify"]++
	now := time.Now().UTC()
	f.ticket.VerifiedAt = &now
	f.ticket.VerificationRemarks = req.Remarks
	f.activity("VERIFIED", "Ticket verified")
	t := cloneTicket(f.ticket)
	return &t, nil
}

func (f *fakeAPI) GetCatalog(context.Context) (*dto.CatalogResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["catalog"]++
	c := f.catalog
	return &c, nil
}

func (f *fakeAPI) ListNotes(context.Context, int64) ([]dto.NoteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["notes"]++
	return slices.Clone(f.notes), nil
}

func (f *fakeAPI) AddNote(_ context.Context, ticketID int64, req dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := dto.NoteResponse{ID: f.id(), TicketID: ticketID, Body: req.Body, CreatedAt: time.Now().UTC()}
	f.notes = append([]dto.NoteResponse{n}, f.notes...)
	return &n, nil
}

func (f *fakeAPI) DeleteNote(_ context.Context, _ int64, noteID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.notes = slices.DeleteFunc(f.notes, func(n dto.NoteResponse) bool { return n.ID == noteID })
	return nil
}

func (f *fakeAPI) ListTasks(context.Context, int64) ([]dto.TaskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["tasks"]++
	return slices.Clone(f.tasks), nil
}

func (f *fakeAPI) AddTask(_ context.Context, ticketID int64, req dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := dto.TaskResponse{ID: f.id(), TicketID: ticketID, Title: req.Title, AssigneeID: req.AssigneeID, DueDate: req.DueDate}
	f.tasks = append([]dto.TaskResponse{t}, f.tasks...)
	return &t, nil
}

func (f *fakeAPI) DeleteTask(context.Context, int64, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeAPI) ListAttachments(context.Context, int64) ([]dto.AttachmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["attachments"]++
	return slices.Clone(f.attachments), nil
}

func (f *fakeAPI) AddAttachment(_ context.Context, ticketID int64, req dto.AttachmentRequest) (*dto.AttachmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := dto.AttachmentResponse{ID: f.id(), TicketID: ticketID, StorageKey: "tickets/key", FileName: req.FileName, MimeType: req.MimeType, SizeBytes: req.SizeBytes}
	f.attachments = append([]dto.AttachmentResponse{a}, f.attachments...)
	return &a, nil
}

func (f *fakeAPI) DeleteAttachment(context.Context, int64, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeAPI) ListSpareParts(context.Context, int64) ([]dto.SparePartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["spare_parts"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.spareParts), nil
}

func (f *fakeAPI) AddSparePart(_ context.Context, ticketID int64, req dto.CreateSparePartRequest) (*dto.SparePartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.products[req.ProductID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", req.ProductID, workspace.ErrNotFound)
	}
	if req.UnitPrice != nil {
		price = *req.UnitPrice
	}
	p := dto.SparePartResponse{
		ID:         f.id(),
		TicketID:   ticketID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		UnitPrice:  price,
		TotalPrice: req.Quantity * price,
	}
	f.spareParts = append([]dto.SparePartResponse{p}, f.spareParts...)
	return &p, nil
}

func (f *fakeAPI) DeleteSparePart(_ context.Context, _ int64, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.spareParts = slices.DeleteFunc(f.spareParts, func(p dto.SparePartResponse) bool { return p.ID == id })
	return nil
}

func (f *fakeAPI) GetTicketInvoice(_ context.Context, ticketID int64) (*dto.InvoiceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get_invoice"]++
	if ticketID != f.ticket.ID || f.deleted {
		return nil, fmt.Errorf("ticket %d: %w", ticketID, workspace.ErrNotFound)
	}
	if f.invoice == nil {
		return nil, nil
	}
	inv := *f.invoice
	return &inv, nil
}

func (f *fakeAPI) CreateInvoice(_ context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create_invoice"]++
	f.invoiceReqs = append(f.invoiceReqs, req)
	if f.invoice != nil {
		return nil, fmt.Errorf("invoice exists: %w", workspace.ErrConflict)
	}
	var itemCost int64
	for _, p := range req.Products {
		itemCost += p.Quantity * *p.UnitPrice
	}
	f.invoice = &dto.InvoiceResponse{
		ID:            f.id(),
		TicketID:      req.TicketID,
		CustomerID:    f.ticket.CustomerID,
		ItemCost:      itemCost,
		ServiceCharge: req.ServiceCharge,
		Discount:      req.Discount,
		TotalAmount:   req.TotalAmount,
		Outstanding:   req.TotalAmount,
		PaymentMode:   req.PaymentMode,
	}
	f.activity("INVOICE_CREATED", "Invoice created")
	inv := *f.invoice
	return &inv, nil
}

func ptr[T any](v T) *T { return &v }
