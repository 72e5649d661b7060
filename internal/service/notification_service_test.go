package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordNotification(event string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	key := event
	if err != nil {
		key += ":error"
	}
	r.counts[key]++
}

func TestNotificationsReachAgentsAndNotifyUsersExceptActor(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	require.NoError(t, store.Relations().Attach(ctx, repository.RelationAgents, 42, 7))
	require.NoError(t, store.Relations().Attach(ctx, repository.RelationNotifyUsers, 42, 8))
	require.NoError(t, store.Relations().Attach(ctx, repository.RelationNotifyUsers, 42, 7))

	dispatcher := events.NewInMemoryDispatcher(nil)
	recorder := &countingRecorder{}
	svc := NewNotificationService(NotificationDependencies{
		Dispatcher:   dispatcher,
		RelationRepo: store.Relations(),
		Store:        store.Notifications(),
		Metrics:      recorder,
	})
	svc.RegisterHandlers()

	actor := int64(8)
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:      events.EventTicketStatusChanged,
		TicketID:  42,
		ActorID:   &actor,
		Timestamp: time.Now(),
		Payload:   events.TicketStatusChangedPayload{NewStatus: "Closed"},
	}))

	seven, err := svc.List(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, seven, 1)
	assert.Equal(t, "Ticket #42 moved to Closed", seven[0].Message)
	assert.Equal(t, string(events.EventTicketStatusChanged), seven[0].Type)

	eight, err := svc.List(ctx, 8, 0)
	require.NoError(t, err)
	assert.Empty(t, eight)
	assert.Equal(t, 1, recorder.counts["ticket_status_changed"])
}

func TestRenderMessageFallsBack(t *testing.T) {
	assert.Equal(t, "Ticket #3 updated", renderMessage(events.Event{TicketID: 3}))
	assert.Equal(t, "Payment of 500 recorded on invoice #9",
		renderMessage(events.Event{Payload: events.PaymentRecordedPayload{InvoiceID: 9, Amount: 500}}))
}
