package workspace_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/workspace"
)

var errBoom = errors.New("boom")

func open(t *testing.T, api workspace.API, opts ...workspace.Option) *workspace.Workspace {
	t.Helper()
	opts = append([]workspace.Option{workspace.WithLogger(zaptest.NewLogger(t))}, opts...)
	ws, err := workspace.Open(context.Background(), api, 42, opts...)
	require.NoError(t, err)
	t.Cleanup(ws.Close)
	return ws
}

func agentIDs(s workspace.Snapshot) []int64 {
	ids := []int64{}
	for _, a := range s.Ticket.Agents {
		ids = append(ids, a.ID)
	}
	return ids
}

type errorLog struct {
	mu     sync.Mutex
	facets []workspace.Facet
}

func (l *errorLog) record(f workspace.Facet, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.facets = append(l.facets, f)
}

func (l *errorLog) list() []workspace.Facet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]workspace.Facet(nil), l.facets...)
}

func TestOpenLoadsTicketAndCollections(t *testing.T) {
	api := newFakeAPI()
	api.notes = []dto.NoteResponse{{ID: 1, TicketID: 42, Body: "called customer"}}
	api.spareParts = []dto.SparePartResponse{{ID: 2, TicketID: 42, ProductID: 100, Quantity: 1, UnitPrice: 2500, TotalPrice: 2500}}

	ws := open(t, api)
	snap := ws.Snapshot()

	assert.Equal(t, int64(42), snap.Ticket.ID)
	assert.Equal(t, "Open", snap.StatusName())
	assert.False(t, snap.IsClosed())
	assert.Len(t, snap.Catalog.Statuses, 4)
	assert.Len(t, snap.Notes, 1)
	assert.Len(t, snap.SpareParts, 1)
	assert.Empty(t, snap.Pending)
	for _, op := range []string{"get", "catalog", "notes", "tasks", "attachments", "spare_parts"} {
		assert.Equal(t, 1, api.count(op), op)
	}
}

func TestOpenFailsWhenAnyReadFails(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errBoom

	ws, err := workspace.Open(context.Background(), api, 42)
	assert.Nil(t, ws)
	assert.ErrorIs(t, err, errBoom)

	_, err = workspace.Open(context.Background(), newFakeAPI(), 0)
	var verr *workspace.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAttachIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	ctx := context.Background()

	require.NoError(t, ws.AssignAgent(ctx, 7))
	once := agentIDs(ws.Snapshot())
	require.NoError(t, ws.AssignAgent(ctx, 7))

	assert.Equal(t, once, agentIDs(ws.Snapshot()))
	assert.Equal(t, []int64{7}, agentIDs(ws.Snapshot()))
	assert.Equal(t, 1, api.count("attach"))
	assert.Len(t, api.server().Agents, 1)
	assert.Equal(t, "Agent Seven", ws.Snapshot().Ticket.Agents[0].Name)
}

func TestStatusRoundTrip(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	ctx := context.Background()

	require.NoError(t, ws.SetStatus(ctx, 3))
	assert.Equal(t, int64(3), ws.Snapshot().Ticket.StatusID)

	require.NoError(t, ws.Refresh(ctx))
	snap := ws.Snapshot()
	assert.Equal(t, int64(3), snap.Ticket.StatusID)
	assert.Equal(t, int64(3), api.server().StatusID)
	assert.True(t, snap.IsClosed())
	assert.NotNil(t, snap.Ticket.ClosedTime)

	require.NoError(t, ws.SetStatus(ctx, 2))
	assert.Nil(t, ws.Snapshot().Ticket.ClosedTime)
}

func TestFailedAttachRevertsAgentSet(t *testing.T) {
	api := newFakeAPI()
	api.ticket.Agents = []dto.MemberRef{{ID: 8, Name: "Agent Eight"}}
	errs := &errorLog{}
	ws := open(t, api, workspace.OnError(errs.record))
	before := agentIDs(ws.Snapshot())

	api.attachErr = errBoom
	err := ws.AssignAgent(context.Background(), 7)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, before, agentIDs(ws.Snapshot()))
	assert.Equal(t, []workspace.Facet{workspace.FacetAgents}, errs.list())
}

func TestFailedDetachRestoresPosition(t *testing.T) {
	api := newFakeAPI()
	api.ticket.Agents = []dto.MemberRef{{ID: 7, Name: "Agent Seven"}, {ID: 8, Name: "Agent Eight"}}
	ws := open(t, api)

	api.detachErr = errBoom
	assert.ErrorIs(t, ws.UnassignAgent(context.Background(), 7), errBoom)
	assert.Equal(t, []int64{7, 8}, agentIDs(ws.Snapshot()))

	// absent members are a no-op
	require.NoError(t, ws.UnassignAgent(context.Background(), 99))
	assert.Equal(t, 1, api.count("detach"))
}

func TestSetMembersForEachRelation(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	ctx := context.Background()

	require.NoError(t, ws.AddNotifyUser(ctx, 8))
	require.NoError(t, ws.AddLabel(ctx, 11))
	snap := ws.Snapshot()
	assert.True(t, snap.HasMember(dto.RelationNotifyUsers, 8))
	assert.True(t, snap.HasMember(dto.RelationLabels, 11))
	assert.Equal(t, "#ff0000", snap.Ticket.Labels[0].Color)
	assert.False(t, snap.HasMember(dto.RelationAgents, 8))

	require.NoError(t, ws.RemoveNotifyUser(ctx, 8))
	require.NoError(t, ws.RemoveLabel(ctx, 11))
	snap = ws.Snapshot()
	assert.Empty(t, snap.Ticket.NotifyUsers)
	assert.Empty(t, snap.Ticket.Labels)
	// set edits never reload the ticket
	assert.Equal(t, 1, api.count("get"))

	err := ws.Attach(ctx, dto.Relation("owners"), dto.MemberRef{ID: 1})
	var verr *workspace.ValidationError
	assert.ErrorAs(t, err, &verr)
}

// gate blocks numbered update responses until released.
type gate struct {
	received chan int
	release  map[int]chan struct{}
}

func newGate(calls ...int) *gate {
	g := &gate{received: make(chan int, 8), release: map[int]chan struct{}{}}
	for _, n := range calls {
		g.release[n] = make(chan struct{})
	}
	return g
}

func (g *gate) hook(n int) {
	g.received <- n
	if ch, ok := g.release[n]; ok {
		<-ch
	}
}

func (g *gate) await(t *testing.T, n int) {
	t.Helper()
	select {
	case got := <-g.received:
		require.Equal(t, n, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("update %d never reached the server", n)
	}
}

func TestStaleStatusResponseIsDiscarded(t *testing.T) {
	for name, order := range map[string][]int{
		"newest answers first": {2, 1},
		"oldest answers first": {1, 2},
	} {
		t.Run(name, func(t *testing.T) {
			api := newFakeAPI()
			g := newGate(1, 2)
			api.updateHook = g.hook
			ws := open(t, api)
			ctx := context.Background()

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				assert.NoError(t, ws.SetStatus(ctx, 2))
			}()
			g.await(t, 1)
			go func() {
				defer wg.Done()
				assert.NoError(t, ws.SetStatus(ctx, 3))
			}()
			g.await(t, 2)
			assert.Equal(t, int64(3), ws.Snapshot().Ticket.StatusID)

			for _, n := range order {
				close(g.release[n])
			}
			wg.Wait()

			snap := ws.Snapshot()
			assert.Equal(t, int64(3), snap.Ticket.StatusID)
			assert.Equal(t, int64(3), api.server().StatusID)
			assert.Empty(t, snap.Pending)
			// one reload once both edits settled
			assert.Equal(t, 2, api.count("get"))
		})
	}
}

func TestFailedStatusRevertsToConfirmedValue(t *testing.T) {
	api := newFakeAPI()
	errs := &errorLog{}
	ws := open(t, api, workspace.OnError(errs.record))

	api.updateErr = errBoom
	err := ws.SetStatus(context.Background(), 3)

	assert.ErrorIs(t, err, errBoom)
	snap := ws.Snapshot()
	assert.Equal(t, int64(1), snap.Ticket.StatusID)
	assert.Nil(t, snap.Ticket.ClosedTime)
	assert.Equal(t, []workspace.Facet{workspace.FacetStatus}, errs.list())
	assert.Equal(t, 1, api.count("get"))
}

func TestUnknownEnumIsRejectedLocally(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	ctx := context.Background()

	var verr *workspace.ValidationError
	assert.ErrorAs(t, ws.SetStatus(ctx, 99), &verr)
	assert.Equal(t, "status_id", verr.Field)
	assert.ErrorAs(t, ws.SetPriority(ctx, 99), &verr)
	assert.ErrorAs(t, ws.SetBranch(ctx, 99), &verr)
	assert.Equal(t, 0, api.count("update"))
}

func TestPartialModeSendsOnlyTheChangedFacet(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	due := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, ws.SetBranch(context.Background(), 2))
	require.NoError(t, ws.SetDueDate(context.Background(), &due))

	updates := api.recordedUpdates()
	require.Len(t, updates, 2)
	assert.False(t, updates[0].full)
	assert.Equal(t, int64(2), *updates[0].req.BranchID)
	assert.Nil(t, updates[0].req.StatusID)
	assert.False(t, updates[0].req.DueDate.Set)
	assert.Nil(t, updates[0].req.AssignedUsers)
	assert.True(t, updates[1].req.DueDate.Set)
	assert.Nil(t, updates[1].req.BranchID)
	assert.True(t, due.Equal(*ws.Snapshot().Ticket.DueDate))
}

func TestFullObjectModeSerializesScalarEdits(t *testing.T) {
	api := newFakeAPI()
	api.ticket.Agents = []dto.MemberRef{{ID: 7, Name: "Agent Seven"}}
	g := newGate(1)
	api.updateHook = g.hook
	ws := open(t, api, workspace.WithMode(workspace.ModeFullObject))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, ws.SetStatus(ctx, 3))
	}()
	g.await(t, 1)
	go func() {
		defer wg.Done()
		assert.NoError(t, ws.SetPriority(ctx, 1))
	}()

	assert.Never(t, func() bool { return api.count("update") > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return ws.Snapshot().Ticket.PriorityID == 1 }, time.Second, 5*time.Millisecond)
	close(g.release[1])
	g.await(t, 2)
	wg.Wait()

	updates := api.recordedUpdates()
	require.Len(t, updates, 2)
	for _, u := range updates {
		assert.True(t, u.full)
		assert.Equal(t, []int64{7}, u.req.AssignedUsers)
		assert.NotNil(t, u.req.NotifyUsers)
		assert.True(t, u.req.DueDate.Set)
	}
	assert.Equal(t, int64(2), *updates[0].req.PriorityID)
	assert.Equal(t, int64(3), *updates[1].req.StatusID)
	assert.Equal(t, int64(1), *updates[1].req.PriorityID)

	server := api.server()
	assert.Equal(t, int64(3), server.StatusID)
	assert.Equal(t, int64(1), server.PriorityID)
	assert.Len(t, server.Agents, 1)
}

func TestFullObjectModeSendsOnlyAcknowledgedMembers(t *testing.T) {
	tests := []struct {
		name      string
		attachErr error
		want      []int64
	}{
		{name: "attach fails", attachErr: errors.New("boom"), want: []int64{}},
		{name: "attach succeeds", want: []int64{8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.attachErr = tt.attachErr
			entered := make(chan struct{})
			release := make(chan struct{})
			api.attachHook = func(int64) {
				close(entered)
				<-release
			}
			ws := open(t, api, workspace.WithMode(workspace.ModeFullObject))
			ctx := context.Background()

			attached := make(chan error, 1)
			go func() { attached <- ws.AssignAgent(ctx, 8) }()
			<-entered

			require.NoError(t, ws.SetStatus(ctx, 2))
			updates := api.recordedUpdates()
			require.Len(t, updates, 1)
			assert.Equal(t, int64(2), *updates[0].req.StatusID)
			assert.Empty(t, updates[0].req.AssignedUsers)
			assert.Equal(t, []int64{8}, agentIDs(ws.Snapshot()))

			close(release)
			err := <-attached
			if tt.attachErr != nil {
				assert.ErrorIs(t, err, tt.attachErr)
			} else {
				assert.NoError(t, err)
			}

			server := api.server()
			serverIDs := []int64{}
			for _, a := range server.Agents {
				serverIDs = append(serverIDs, a.ID)
			}
			assert.Equal(t, tt.want, serverIDs)
			assert.Equal(t, tt.want, agentIDs(ws.Snapshot()))
			assert.Equal(t, int64(2), ws.Snapshot().Ticket.StatusID)
			// one refetch after the status update, one to reconcile agents
			assert.Equal(t, 3, api.count("get"))
		})
	}
}

func TestFullObjectModeKeepsQueuedFacetsOutOfEarlierPut(t *testing.T) {
	api := newFakeAPI()
	api.updateErr = errors.New("down")
	g := newGate(1)
	api.updateHook = g.hook
	ws := open(t, api, workspace.WithMode(workspace.ModeFullObject))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.Error(t, ws.SetBranch(ctx, 2))
	}()
	g.await(t, 1)
	go func() {
		defer wg.Done()
		assert.Error(t, ws.SetPriority(ctx, 3))
	}()
	assert.Eventually(t, func() bool { return ws.Snapshot().Ticket.PriorityID == 3 }, time.Second, 5*time.Millisecond)
	close(g.release[1])
	g.await(t, 2)
	wg.Wait()

	updates := api.recordedUpdates()
	require.Len(t, updates, 2)
	assert.Equal(t, int64(2), *updates[0].req.BranchID)
	assert.Equal(t, int64(2), *updates[0].req.PriorityID)
	assert.Equal(t, int64(1), *updates[1].req.BranchID, "failed branch edit must not ride along")
	assert.Equal(t, int64(3), *updates[1].req.PriorityID)

	snap := ws.Snapshot()
	assert.Equal(t, int64(1), snap.Ticket.BranchID)
	assert.Equal(t, int64(2), snap.Ticket.PriorityID)
}

func TestRefreshKeepsPendingMembers(t *testing.T) {
	api := newFakeAPI()
	entered := make(chan struct{})
	release := make(chan struct{})
	api.attachHook = func(int64) {
		close(entered)
		<-release
	}
	ws := open(t, api)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- ws.AssignAgent(ctx, 7) }()
	<-entered

	require.NoError(t, ws.Refresh(ctx))
	snap := ws.Snapshot()
	assert.Equal(t, []int64{7}, agentIDs(snap))
	assert.Contains(t, snap.Pending, workspace.FacetAgents)

	close(release)
	require.NoError(t, <-done)
	snap = ws.Snapshot()
	require.Len(t, snap.Ticket.Agents, 1)
	assert.Equal(t, "Agent Seven", snap.Ticket.Agents[0].Name)
	assert.Empty(t, snap.Pending)
}

func TestResponsesAfterCloseAreIgnored(t *testing.T) {
	api := newFakeAPI()
	g := newGate(1)
	api.updateHook = g.hook
	var (
		mu      sync.Mutex
		changes int
	)
	ws, err := workspace.Open(context.Background(), api, 42, workspace.OnChange(func(workspace.Snapshot) {
		mu.Lock()
		changes++
		mu.Unlock()
	}))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ws.SetStatus(context.Background(), 3) }()
	g.await(t, 1)
	ws.Close()
	mu.Lock()
	seen := changes
	mu.Unlock()

	close(g.release[1])
	require.NoError(t, <-done)

	mu.Lock()
	assert.Equal(t, seen, changes)
	mu.Unlock()
	assert.Equal(t, 1, api.count("get"))
	assert.ErrorIs(t, ws.SetPriority(context.Background(), 1), workspace.ErrClosed)
	assert.ErrorIs(t, ws.AssignAgent(context.Background(), 7), workspace.ErrClosed)
	_, err = ws.AddNote(context.Background(), "late")
	assert.ErrorIs(t, err, workspace.ErrClosed)
}

func TestTicketScenario(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	ctx := context.Background()

	snap := ws.Snapshot()
	require.Equal(t, int64(1), snap.Ticket.StatusID)
	require.Equal(t, int64(2), snap.Ticket.PriorityID)
	require.Empty(t, snap.Ticket.Agents)
	activities := len(snap.Ticket.Activities)

	require.NoError(t, ws.AssignAgent(ctx, 7))
	assert.Equal(t, []int64{7}, agentIDs(ws.Snapshot()))
	assert.Equal(t, 1, api.count("get"))

	require.NoError(t, ws.SetStatus(ctx, 3))
	assert.Equal(t, 2, api.count("get"))
	snap = ws.Snapshot()
	assert.Equal(t, int64(3), snap.Ticket.StatusID)
	assert.Len(t, snap.Ticket.Activities, activities+1)
	assert.Equal(t, []int64{7}, agentIDs(snap))
}
