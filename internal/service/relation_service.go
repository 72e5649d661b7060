package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// RelationService attaches and detaches single agents, notified users and
// labels. Attaching a present member and detaching an absent one succeed
// without side effects.
type RelationService struct {
	tickets    repository.TicketRepository
	relations  repository.RelationRepository
	dispatcher events.Dispatcher
}

// RelationDependencies bundles repositories.
type RelationDependencies struct {
	TicketRepo   repository.TicketRepository
	RelationRepo repository.RelationRepository
	Dispatcher   events.Dispatcher
}

// NewRelationService creates the service.
func NewRelationService(deps RelationDependencies) *RelationService {
	return &RelationService{
		tickets:    deps.TicketRepo,
		relations:  deps.RelationRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Attach adds memberID to the ticket relation and returns the resulting members.
func (s *RelationService) Attach(ctx context.Context, actorID *int64, kind repository.RelationKind, ticketID, memberID int64) ([]domain.RelatedMember, error) {
	members, err := s.current(ctx, kind, ticketID)
	if err != nil {
		return nil, err
	}
	if containsMember(members, memberID) {
		return members, nil
	}
	exists, err := s.relations.MemberExists(ctx, kind, memberID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !exists {
		return nil, apperrors.NewNotFound(memberResource(kind), map[string]any{"id": memberID})
	}
	if err := s.relations.Attach(ctx, kind, ticketID, memberID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if kind == repository.RelationAgents {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketAgentAttached,
			TicketID: ticketID,
			ActorID:  actorID,
			Payload:  events.TicketAgentAttachedPayload{AgentID: memberID},
		})
	}
	return s.list(ctx, kind, ticketID)
}

// Detach removes memberID from the ticket relation and returns the remaining members.
func (s *RelationService) Detach(ctx context.Context, kind repository.RelationKind, ticketID, memberID int64) ([]domain.RelatedMember, error) {
	members, err := s.current(ctx, kind, ticketID)
	if err != nil {
		return nil, err
	}
	if !containsMember(members, memberID) {
		return members, nil
	}
	if err := s.relations.Detach(ctx, kind, ticketID, memberID); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.list(ctx, kind, ticketID)
}

func (s *RelationService) current(ctx context.Context, kind repository.RelationKind, ticketID int64) ([]domain.RelatedMember, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return s.list(ctx, kind, ticketID)
}

func (s *RelationService) list(ctx context.Context, kind repository.RelationKind, ticketID int64) ([]domain.RelatedMember, error) {
	members, err := s.relations.List(ctx, kind, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

func containsMember(members []domain.RelatedMember, id int64) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}

func memberResource(kind repository.RelationKind) string {
	if kind == repository.RelationLabels {
		return "label"
	}
	return "user"
}
