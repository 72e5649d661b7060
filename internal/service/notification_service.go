package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// NotificationRecorder counts delivered notifications.
type NotificationRecorder interface {
	RecordNotification(event string, err error)
}

// NotificationService turns domain events into in-app notifications for the
// ticket's agents and notified users.
type NotificationService struct {
	dispatcher events.Dispatcher
	relations  repository.RelationRepository
	store      repository.NotificationStore
	metrics    NotificationRecorder
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher   events.Dispatcher
	RelationRepo repository.RelationRepository
	Store        repository.NotificationStore
	Metrics      NotificationRecorder
	Logger       *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		relations:  deps.RelationRepo,
		store:      deps.Store,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventTicketAgentAttached,
		events.EventTicketNoteAdded,
		events.EventTicketVerified,
		events.EventInvoiceCreated,
		events.EventPaymentRecorded,
	} {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

// List returns the newest notifications for a user.
func (n *NotificationService) List(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	list, err := n.store.List(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	err := n.deliver(ctx, event)
	if n.metrics != nil {
		n.metrics.RecordNotification(string(event.Type), err)
	}
	return err
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event) error {
	recipients, err := n.recipients(ctx, event)
	if err != nil {
		return fmt.Errorf("resolve recipients for ticket %d: %w", event.TicketID, err)
	}
	message := renderMessage(event)
	createdAt := event.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	for _, userID := range recipients {
		notification := domain.Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      string(event.Type),
			TicketID:  event.TicketID,
			Message:   message,
			CreatedAt: createdAt,
		}
		if err := n.store.Push(ctx, notification); err != nil {
			return fmt.Errorf("push notification to user %d: %w", userID, err)
		}
	}
	n.logger.Debug("notifications delivered",
		zap.String("event", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int("recipients", len(recipients)),
	)
	return nil
}

// recipients returns agents then notified users, deduplicated, without the actor.
func (n *NotificationService) recipients(ctx context.Context, event events.Event) ([]int64, error) {
	seen := map[int64]bool{}
	if event.ActorID != nil {
		seen[*event.ActorID] = true
	}
	var out []int64
	for _, kind := range []repository.RelationKind{repository.RelationAgents, repository.RelationNotifyUsers} {
		members, err := n.relations.List(ctx, kind, event.TicketID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if !seen[m.ID] {
				seen[m.ID] = true
				out = append(out, m.ID)
			}
		}
	}
	return out, nil
}

func renderMessage(event events.Event) string {
	switch p := event.Payload.(type) {
	case events.TicketStatusChangedPayload:
		return fmt.Sprintf("Ticket #%d moved to %s", event.TicketID, p.NewStatus)
	case events.TicketPriorityChangedPayload:
		return fmt.Sprintf("Ticket #%d priority changed", event.TicketID)
	case events.TicketAgentAttachedPayload:
		return fmt.Sprintf("Agent %d assigned to ticket #%d", p.AgentID, event.TicketID)
	case events.TicketNoteAddedPayload:
		return fmt.Sprintf("New note on ticket #%d: %s", event.TicketID, p.BodyPreview)
	case events.TicketVerifiedPayload:
		return fmt.Sprintf("Ticket #%d verified", event.TicketID)
	case events.InvoiceCreatedPayload:
		return fmt.Sprintf("Invoice #%d created for ticket #%d", p.InvoiceID, event.TicketID)
	case events.PaymentRecordedPayload:
		return fmt.Sprintf("Payment of %d recorded on invoice #%d", p.Amount, p.InvoiceID)
	default:
		return fmt.Sprintf("Ticket #%d updated", event.TicketID)
	}
}
