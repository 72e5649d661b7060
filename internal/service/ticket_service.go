package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	customers  repository.CustomerRepository
	relations  repository.RelationRepository
	activities repository.ActivityRepository
	catalog    repository.CatalogRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CustomerRepo repository.CustomerRepository
	RelationRepo repository.RelationRepository
	ActivityRepo repository.ActivityRepository
	CatalogRepo  repository.CatalogRepository
	Dispatcher   events.Dispatcher
}

// TicketListFilter describes console listing filters.
type TicketListFilter struct {
	CustomerID  *int64
	BranchID    *int64
	AgentID     *int64
	StatusIDs   []int64
	PriorityIDs []int64
	SearchTerm  *string
	Limit       int
	Offset      int
}

// TicketUpdateInput carries the facets to change. Nil fields are left alone.
// A full-object update sets every field, including the relation id lists,
// which then replace the current members.
type TicketUpdateInput struct {
	StatusID   *int64
	PriorityID *int64
	BranchID   *int64
	// DueDateSet distinguishes "clear the due date" (DueDate nil) from
	// "leave it unchanged".
	DueDateSet    bool
	DueDate       *time.Time
	AgentIDs      []int64
	NotifyUserIDs []int64
	LabelIDs      []int64
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		customers:  deps.CustomerRepo,
		relations:  deps.RelationRepo,
		activities: deps.ActivityRepo,
		catalog:    deps.CatalogRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// List returns paginated tickets.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CustomerID:  filter.CustomerID,
		BranchID:    filter.BranchID,
		AgentID:     filter.AgentID,
		StatusIDs:   filter.StatusIDs,
		PriorityIDs: filter.PriorityIDs,
		SearchTerm:  filter.SearchTerm,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetDetail loads a ticket with customer, relations and activity timeline.
func (s *TicketService) GetDetail(ctx context.Context, ticketID int64) (*domain.TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	detail := &domain.TicketDetail{Ticket: *ticket}

	customer, err := s.customers.GetByID(ctx, ticket.CustomerID)
	switch {
	case err == nil:
		detail.Customer = customer
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, apperrors.MapError(err)
	}

	if detail.Agents, err = s.relations.List(ctx, repository.RelationAgents, ticketID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if detail.NotifyUsers, err = s.relations.List(ctx, repository.RelationNotifyUsers, ticketID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if detail.Labels, err = s.relations.List(ctx, repository.RelationLabels, ticketID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if detail.Activities, err = s.activities.ListByTicket(ctx, ticketID); err != nil {
		return nil, apperrors.MapError(err)
	}
	return detail, nil
}

// Update applies a partial or full-object update. Status, priority, branch
// and due date changes each leave an activity entry.
func (s *TicketService) Update(ctx context.Context, actorID *int64, ticketID int64, input TicketUpdateInput) (*domain.TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	catalog, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	before := *ticket
	var pending []domain.Activity
	var published []events.Event

	if input.StatusID != nil && *input.StatusID != ticket.StatusID {
		oldStatus, _ := catalog.Status(ticket.StatusID)
		newStatus, ok := catalog.Status(*input.StatusID)
		if !ok {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status_id": *input.StatusID})
		}
		ticket.StatusID = newStatus.ID
		switch {
		case newStatus.IsClosed && ticket.ClosedTime == nil:
			now := s.now()
			ticket.ClosedTime = &now
		case !newStatus.IsClosed:
			ticket.ClosedTime = nil
		}
		pending = append(pending, domain.Activity{
			Kind:     domain.ActivityStatusChanged,
			Message:  fmt.Sprintf("Status changed from %s to %s", nameOr(oldStatus.Name, before.StatusID), newStatus.Name),
			OldValue: map[string]any{"status_id": before.StatusID},
			NewValue: map[string]any{"status_id": newStatus.ID},
		})
		published = append(published, events.Event{
			Type: events.EventTicketStatusChanged,
			Payload: events.TicketStatusChangedPayload{
				OldStatusID: before.StatusID,
				NewStatusID: newStatus.ID,
				NewStatus:   newStatus.Name,
				Closed:      newStatus.IsClosed,
			},
		})
	}

	if input.PriorityID != nil && *input.PriorityID != ticket.PriorityID {
		if !catalog.HasPriority(*input.PriorityID) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority_id": *input.PriorityID})
		}
		ticket.PriorityID = *input.PriorityID
		pending = append(pending, domain.Activity{
			Kind:     domain.ActivityPriorityChanged,
			Message:  "Priority changed",
			OldValue: map[string]any{"priority_id": before.PriorityID},
			NewValue: map[string]any{"priority_id": ticket.PriorityID},
		})
		published = append(published, events.Event{
			Type: events.EventTicketPriorityChanged,
			Payload: events.TicketPriorityChangedPayload{
				OldPriorityID: before.PriorityID,
				NewPriorityID: ticket.PriorityID,
			},
		})
	}

	if input.BranchID != nil && *input.BranchID != ticket.BranchID {
		if !catalog.HasBranch(*input.BranchID) {
			return nil, apperrors.NewValidationError("unknown branch", map[string]any{"branch_id": *input.BranchID})
		}
		ticket.BranchID = *input.BranchID
		pending = append(pending, domain.Activity{
			Kind:     domain.ActivityBranchChanged,
			Message:  "Branch changed",
			OldValue: map[string]any{"branch_id": before.BranchID},
			NewValue: map[string]any{"branch_id": ticket.BranchID},
		})
	}

	if input.DueDateSet && !sameTime(input.DueDate, ticket.DueDate) {
		ticket.DueDate = input.DueDate
		pending = append(pending, domain.Activity{
			Kind:     domain.ActivityDueDateChanged,
			Message:  "Due date changed",
			OldValue: map[string]any{"due_date": before.DueDate},
			NewValue: map[string]any{"due_date": ticket.DueDate},
		})
	}

	if err := s.validateMembers(ctx, repository.RelationAgents, input.AgentIDs); err != nil {
		return nil, err
	}
	if err := s.validateMembers(ctx, repository.RelationNotifyUsers, input.NotifyUserIDs); err != nil {
		return nil, err
	}
	if err := s.validateMembers(ctx, repository.RelationLabels, input.LabelIDs); err != nil {
		return nil, err
	}

	change := &repository.TicketChange{TicketID: ticketID, Members: map[repository.RelationKind][]int64{}}
	if len(pending) > 0 {
		change.Ticket = ticket
	}
	for kind, ids := range map[repository.RelationKind][]int64{
		repository.RelationAgents:      input.AgentIDs,
		repository.RelationNotifyUsers: input.NotifyUserIDs,
		repository.RelationLabels:      input.LabelIDs,
	} {
		if ids != nil {
			change.Members[kind] = ids
		}
	}
	for i := range pending {
		pending[i].TicketID = ticketID
		pending[i].ActorID = actorID
	}
	change.Activities = pending
	if change.Ticket != nil || len(change.Members) > 0 {
		if err := s.tickets.Apply(ctx, change); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	for _, event := range published {
		event.TicketID = ticketID
		event.ActorID = actorID
		publishEvent(ctx, s.dispatcher, event)
	}
	return s.GetDetail(ctx, ticketID)
}

// Verify stamps verified_at and records the remarks. Verification gates
// invoice creation.
func (s *TicketService) Verify(ctx context.Context, actorID *int64, ticketID int64, remarks string) (*domain.TicketDetail, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return nil, apperrors.NewValidationError("remarks required", map[string]any{"field": "remarks"})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	now := s.now()
	ticket.VerifiedAt = &now
	ticket.VerificationRemarks = remarks
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.activities.Create(ctx, &domain.Activity{
		TicketID: ticketID,
		ActorID:  actorID,
		Kind:     domain.ActivityVerified,
		Message:  "Ticket verified: " + stringPreview(remarks, 120),
		NewValue: map[string]any{"remarks": remarks},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketVerified,
		TicketID: ticketID,
		ActorID:  actorID,
		Payload:  events.TicketVerifiedPayload{Remarks: remarks},
	})
	return s.GetDetail(ctx, ticketID)
}

func (s *TicketService) validateMembers(ctx context.Context, kind repository.RelationKind, ids []int64) error {
	for _, id := range ids {
		ok, err := s.relations.MemberExists(ctx, kind, id)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !ok {
			return apperrors.NewValidationError("unknown member", map[string]any{"relation": string(kind), "id": id})
		}
	}
	return nil
}

func nameOr(name string, id int64) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
