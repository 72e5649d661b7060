package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func newRelationService(t *testing.T) (*RelationService, *recordingDispatcher) {
	t.Helper()
	store := seededStore()
	d := &recordingDispatcher{}
	return NewRelationService(RelationDependencies{
		TicketRepo:   store.Tickets(),
		RelationRepo: store.Relations(),
		Dispatcher:   d,
	}), d
}

func TestAttachIsIdempotent(t *testing.T) {
	svc, d := newRelationService(t)

	first, err := svc.Attach(context.Background(), nil, repository.RelationAgents, 42, 7)
	require.NoError(t, err)
	second, err := svc.Attach(context.Background(), nil, repository.RelationAgents, 42, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, second, 1)
	assert.Equal(t, "Agent Seven", second[0].Name)
	assert.Equal(t, []events.EventType{events.EventTicketAgentAttached}, d.types())
}

func TestAttachRejectsUnknownMembersAndTickets(t *testing.T) {
	svc, _ := newRelationService(t)

	_, err := svc.Attach(context.Background(), nil, repository.RelationAgents, 42, 9)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)

	_, err = svc.Attach(context.Background(), nil, repository.RelationLabels, 404, 11)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestDetachAbsentMemberSucceeds(t *testing.T) {
	svc, _ := newRelationService(t)

	members, err := svc.Detach(context.Background(), repository.RelationNotifyUsers, 42, 8)
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = svc.Attach(context.Background(), nil, repository.RelationNotifyUsers, 42, 8)
	require.NoError(t, err)
	members, err = svc.Detach(context.Background(), repository.RelationNotifyUsers, 42, 8)
	require.NoError(t, err)
	assert.Empty(t, members)
}
