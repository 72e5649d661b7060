package workspace

import (
	"math"
	"slices"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// Facet names one independently editable part of a ticket.
type Facet string

const (
	FacetTicket      Facet = "ticket"
	FacetStatus      Facet = "status"
	FacetPriority    Facet = "priority"
	FacetBranch      Facet = "branch"
	FacetDueDate     Facet = "due_date"
	FacetAgents      Facet = "agents"
	FacetNotifyUsers Facet = "notify_users"
	FacetLabels      Facet = "labels"
	FacetNotes       Facet = "notes"
	FacetTasks       Facet = "tasks"
	FacetAttachments Facet = "attachments"
	FacetSpareParts  Facet = "spare_parts"
	FacetVerify      Facet = "verify"
	FacetInvoice     Facet = "invoice"
)

var scalarFacets = []Facet{FacetStatus, FacetPriority, FacetBranch, FacetDueDate}

func relationFacet(rel dto.Relation) (Facet, bool) {
	switch rel {
	case dto.RelationAgents:
		return FacetAgents, true
	case dto.RelationNotifyUsers:
		return FacetNotifyUsers, true
	case dto.RelationLabels:
		return FacetLabels, true
	}
	return "", false
}

// membersOf returns the member list a relation facet lives in.
func membersOf(t *dto.TicketResponse, f Facet) *[]dto.MemberRef {
	switch f {
	case FacetAgents:
		return &t.Agents
	case FacetNotifyUsers:
		return &t.NotifyUsers
	case FacetLabels:
		return &t.Labels
	}
	return nil
}

// copyScalar copies one scalar facet from src to dst.
func copyScalar(dst, src *dto.TicketResponse, f Facet) {
	switch f {
	case FacetStatus:
		dst.StatusID = src.StatusID
		dst.ClosedTime = src.ClosedTime
	case FacetPriority:
		dst.PriorityID = src.PriorityID
	case FacetBranch:
		dst.BranchID = src.BranchID
	case FacetDueDate:
		dst.DueDate = src.DueDate
	}
}

// Snapshot is a point-in-time copy of the workspace state. It shares no
// memory with the workspace.
type Snapshot struct {
	Ticket      dto.TicketResponse       `json:"ticket"`
	Catalog     dto.CatalogResponse      `json:"catalog"`
	Notes       []dto.NoteResponse       `json:"notes"`
	Tasks       []dto.TaskResponse       `json:"tasks"`
	Attachments []dto.AttachmentResponse `json:"attachments"`
	SpareParts  []dto.SparePartResponse  `json:"spare_parts"`
	// Pending lists facets with requests in flight.
	Pending []Facet `json:"pending,omitempty"`
}

// StatusName resolves the ticket status through the live catalog.
func (s Snapshot) StatusName() string {
	for _, st := range s.Catalog.Statuses {
		if st.ID == s.Ticket.StatusID {
			return st.Name
		}
	}
	return ""
}

// IsClosed reports whether the current status is flagged closed in the catalog.
func (s Snapshot) IsClosed() bool {
	for _, st := range s.Catalog.Statuses {
		if st.ID == s.Ticket.StatusID {
			return st.IsClosed
		}
	}
	return false
}

// ItemCost sums the server-computed spare part totals. A sum beyond the
// int64 range saturates; CreateInvoice refuses to send it.
func (s Snapshot) ItemCost() int64 {
	sum, err := s.itemCost()
	if err != nil {
		return math.MaxInt64
	}
	return sum
}

func (s Snapshot) itemCost() (int64, error) {
	totals := make([]int64, len(s.SpareParts))
	for i, p := range s.SpareParts {
		totals[i] = p.TotalPrice
	}
	return domain.AddAmounts(totals...)
}

// InvoiceEstimate is the display total for an invoice built from the
// current spare parts. The server computes the same value at creation.
func (s Snapshot) InvoiceEstimate(serviceCharge, discount int64) int64 {
	return estimate(s.ItemCost(), serviceCharge, discount)
}

// estimate is domain.InvoiceTotal saturated for display.
func estimate(itemCost, serviceCharge, discount int64) int64 {
	total, err := domain.InvoiceTotal(itemCost, serviceCharge, discount)
	if err != nil {
		return math.MaxInt64
	}
	return total
}

// HasMember reports whether memberID is in the relation.
func (s Snapshot) HasMember(rel dto.Relation, memberID int64) bool {
	f, ok := relationFacet(rel)
	if !ok {
		return false
	}
	t := s.Ticket
	return indexOfMember(*membersOf(&t, f), memberID) >= 0
}

func cloneTicket(t dto.TicketResponse) dto.TicketResponse {
	out := t
	if t.Customer != nil {
		c := *t.Customer
		out.Customer = &c
	}
	out.Agents = slices.Clone(t.Agents)
	out.NotifyUsers = slices.Clone(t.NotifyUsers)
	out.Labels = slices.Clone(t.Labels)
	out.Activities = slices.Clone(t.Activities)
	return out
}

func cloneCatalog(c dto.CatalogResponse) dto.CatalogResponse {
	return dto.CatalogResponse{
		Statuses:   slices.Clone(c.Statuses),
		Priorities: slices.Clone(c.Priorities),
		Branches:   slices.Clone(c.Branches),
	}
}

func indexOfMember(members []dto.MemberRef, id int64) int {
	return slices.IndexFunc(members, func(m dto.MemberRef) bool { return m.ID == id })
}

func memberIDs(members []dto.MemberRef) []int64 {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}

// itemList is an append/remove-only sub-collection, newest first.
type itemList[T any] struct {
	items []T
	id    func(T) int64
}

func newItemList[T any](items []T, id func(T) int64) itemList[T] {
	return itemList[T]{items: slices.Clone(items), id: id}
}

func (l *itemList[T]) index(id int64) int {
	return slices.IndexFunc(l.items, func(v T) bool { return l.id(v) == id })
}

func (l *itemList[T]) prepend(v T) {
	if l.index(l.id(v)) >= 0 {
		return
	}
	l.items = slices.Insert(l.items, 0, v)
}

func (l *itemList[T]) remove(id int64) (T, int, bool) {
	i := l.index(id)
	if i < 0 {
		var zero T
		return zero, -1, false
	}
	v := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	return v, i, true
}

// restore puts v back at pos, or at the end when the list has shrunk.
func (l *itemList[T]) restore(pos int, v T) {
	if l.index(l.id(v)) >= 0 {
		return
	}
	pos = min(pos, len(l.items))
	l.items = slices.Insert(l.items, pos, v)
}

func (l *itemList[T]) snapshot() []T {
	return slices.Clone(l.items)
}
