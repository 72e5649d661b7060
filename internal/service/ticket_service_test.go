package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestGetDetailIncludesRelations(t *testing.T) {
	store := seededStore()
	require.NoError(t, store.Relations().Attach(context.Background(), repository.RelationLabels, 42, 11))
	svc := newTicketService(store, nil)

	detail, err := svc.GetDetail(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), detail.Ticket.ID)
	require.NotNil(t, detail.Customer)
	assert.Equal(t, "Ada", detail.Customer.Name)
	assert.Empty(t, detail.Agents)
	require.Len(t, detail.Labels, 1)
	assert.Equal(t, "#ff0000", detail.Labels[0].Color)

	_, err = svc.GetDetail(context.Background(), 999)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestUpdateStatusTracksClosedTime(t *testing.T) {
	store := seededStore()
	d := &recordingDispatcher{}
	svc := newTicketService(store, d)
	actor := ptr(int64(7))

	detail, err := svc.Update(context.Background(), actor, 42, TicketUpdateInput{StatusID: ptr(int64(3))})
	require.NoError(t, err)
	assert.Equal(t, int64(3), detail.Ticket.StatusID)
	require.NotNil(t, detail.Ticket.ClosedTime)
	require.Len(t, detail.Activities, 1)
	assert.Equal(t, domain.ActivityStatusChanged, detail.Activities[0].Kind)
	assert.Equal(t, "Status changed from Open to Closed", detail.Activities[0].Message)
	assert.Equal(t, []events.EventType{events.EventTicketStatusChanged}, d.types())

	// Closed to another closed status keeps the original closing time.
	closedAt := *detail.Ticket.ClosedTime
	svc.now = func() time.Time { return closedAt.Add(time.Hour) }
	detail, err = svc.Update(context.Background(), actor, 42, TicketUpdateInput{StatusID: ptr(int64(4))})
	require.NoError(t, err)
	assert.True(t, closedAt.Equal(*detail.Ticket.ClosedTime))

	detail, err = svc.Update(context.Background(), actor, 42, TicketUpdateInput{StatusID: ptr(int64(2))})
	require.NoError(t, err)
	assert.Nil(t, detail.Ticket.ClosedTime)
	assert.Len(t, detail.Activities, 3)
}

func TestUpdateUnchangedValuesWriteNothing(t *testing.T) {
	store := seededStore()
	d := &recordingDispatcher{}
	svc := newTicketService(store, d)

	detail, err := svc.Update(context.Background(), nil, 42, TicketUpdateInput{StatusID: ptr(int64(1)), PriorityID: ptr(int64(2))})
	require.NoError(t, err)
	assert.Empty(t, detail.Activities)
	assert.Empty(t, d.types())
}

func TestUpdateRejectsUnknownCatalogIDs(t *testing.T) {
	svc := newTicketService(seededStore(), nil)
	cases := map[string]TicketUpdateInput{
		"status":   {StatusID: ptr(int64(99))},
		"priority": {PriorityID: ptr(int64(99))},
		"branch":   {BranchID: ptr(int64(99))},
		"agent":    {AgentIDs: []int64{9}},
		"label":    {LabelIDs: []int64{12}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), nil, 42, input)
			assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
		})
	}
}

func TestFullObjectUpdateReplacesRelationsAndDueDate(t *testing.T) {
	store := seededStore()
	require.NoError(t, store.Relations().Attach(context.Background(), repository.RelationAgents, 42, 8))
	svc := newTicketService(store, nil)
	due := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	detail, err := svc.Update(context.Background(), nil, 42, TicketUpdateInput{
		StatusID:      ptr(int64(1)),
		PriorityID:    ptr(int64(3)),
		BranchID:      ptr(int64(2)),
		DueDateSet:    true,
		DueDate:       &due,
		AgentIDs:      []int64{7},
		NotifyUserIDs: []int64{8},
		LabelIDs:      []int64{},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), detail.Ticket.PriorityID)
	assert.Equal(t, int64(2), detail.Ticket.BranchID)
	require.NotNil(t, detail.Ticket.DueDate)
	assert.True(t, due.Equal(*detail.Ticket.DueDate))
	assert.Equal(t, []int64{7}, store.Members(repository.RelationAgents, 42))
	assert.Equal(t, []int64{8}, store.Members(repository.RelationNotifyUsers, 42))
	assert.Len(t, detail.Activities, 3)

	detail, err = svc.Update(context.Background(), nil, 42, TicketUpdateInput{DueDateSet: true})
	require.NoError(t, err)
	assert.Nil(t, detail.Ticket.DueDate)
}

func TestUpdateFailureLeavesTicketUntouched(t *testing.T) {
	store := seededStore()
	require.NoError(t, store.Relations().Attach(context.Background(), repository.RelationAgents, 42, 8))
	d := &recordingDispatcher{}
	svc := newTicketService(store, d)
	store.FailActivityWrites(errors.New("connection reset"))

	_, err := svc.Update(context.Background(), nil, 42, TicketUpdateInput{
		StatusID: ptr(int64(3)),
		AgentIDs: []int64{7},
	})
	require.Error(t, err)

	ticket, ok := store.Ticket(42)
	require.True(t, ok)
	assert.Equal(t, int64(1), ticket.StatusID)
	assert.Nil(t, ticket.ClosedTime)
	assert.Equal(t, []int64{8}, store.Members(repository.RelationAgents, 42))
	assert.Empty(t, store.Activities(42))
	assert.Empty(t, d.types())

	store.FailActivityWrites(nil)
	detail, err := svc.Update(context.Background(), nil, 42, TicketUpdateInput{
		StatusID: ptr(int64(3)),
		AgentIDs: []int64{7},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), detail.Ticket.StatusID)
	assert.Equal(t, []int64{7}, store.Members(repository.RelationAgents, 42))
	assert.Len(t, detail.Activities, 1)
}

func TestVerify(t *testing.T) {
	store := seededStore()
	d := &recordingDispatcher{}
	svc := newTicketService(store, d)

	_, err := svc.Verify(context.Background(), nil, 42, "   ")
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	detail, err := svc.Verify(context.Background(), ptr(int64(7)), 42, "checked on site")
	require.NoError(t, err)
	assert.True(t, detail.Ticket.Verified())
	assert.Equal(t, "checked on site", detail.Ticket.VerificationRemarks)
	require.Len(t, detail.Activities, 1)
	assert.Equal(t, domain.ActivityVerified, detail.Activities[0].Kind)
	assert.Equal(t, []events.EventType{events.EventTicketVerified}, d.types())
}

func TestListAppliesFilters(t *testing.T) {
	store := seededStore()
	store.PutTicket(domain.Ticket{ID: 43, CustomerID: 5, Issue: "Broken screen", StatusID: 2, PriorityID: 3, BranchID: 2})
	svc := newTicketService(store, nil)

	all, err := svc.List(context.Background(), TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byStatus, err := svc.List(context.Background(), TicketListFilter{StatusIDs: []int64{2}})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, int64(43), byStatus[0].ID)

	bySearch, err := svc.List(context.Background(), TicketListFilter{SearchTerm: ptr("printer")})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, int64(42), bySearch[0].ID)
}
