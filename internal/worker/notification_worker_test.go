package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/events"
)

type dropCounter struct{ n atomic.Int64 }

func (d *dropCounter) RecordDroppedEvent() { d.n.Add(1) }

func TestWorkerDeliversQueuedEventsBeforeStop(t *testing.T) {
	w := NewNotificationWorker(events.NewInMemoryDispatcher(nil), 3, 16, nil, nil)
	var mu sync.Mutex
	seen := map[int64]bool{}
	w.Subscribe(events.EventTicketNoteAdded, func(_ context.Context, e events.Event) error {
		mu.Lock()
		seen[e.TicketID] = true
		mu.Unlock()
		return nil
	})
	w.Start()

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, w.Publish(context.Background(), events.Event{Type: events.EventTicketNoteAdded, TicketID: i}))
	}
	require.NoError(t, w.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 10)
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	drops := &dropCounter{}
	w := NewNotificationWorker(events.NewInMemoryDispatcher(nil), 1, 1, nil, drops)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	w.Subscribe(events.EventInvoiceCreated, func(context.Context, events.Event) error {
		started <- struct{}{}
		<-release
		return nil
	})
	w.Start()

	require.NoError(t, w.Publish(context.Background(), events.Event{Type: events.EventInvoiceCreated, TicketID: 1}))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("handler did not start")
	}
	// One event occupies the worker, one fills the queue, the rest are dropped.
	require.NoError(t, w.Publish(context.Background(), events.Event{Type: events.EventInvoiceCreated, TicketID: 2}))
	require.NoError(t, w.Publish(context.Background(), events.Event{Type: events.EventInvoiceCreated, TicketID: 3}))
	require.NoError(t, w.Publish(context.Background(), events.Event{Type: events.EventInvoiceCreated, TicketID: 4}))
	assert.Equal(t, int64(2), drops.n.Load())

	close(release)
	require.NoError(t, w.Stop(context.Background()))
}

func TestPublishAfterStop(t *testing.T) {
	w := NewNotificationWorker(events.NewInMemoryDispatcher(nil), 1, 1, nil, nil)
	w.Start()
	require.NoError(t, w.Stop(context.Background()))
	require.NoError(t, w.Stop(context.Background()))
	assert.ErrorIs(t, w.Publish(context.Background(), events.Event{Type: events.EventTicketVerified}), ErrStopped)
}

func TestQueuedEventSurvivesRequestCancellation(t *testing.T) {
	w := NewNotificationWorker(events.NewInMemoryDispatcher(nil), 1, 4, nil, nil)
	got := make(chan error, 1)
	w.Subscribe(events.EventTicketVerified, func(ctx context.Context, _ events.Event) error {
		got <- ctx.Err()
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Publish(ctx, events.Event{Type: events.EventTicketVerified}))
	cancel()
	w.Start()
	require.NoError(t, w.Stop(context.Background()))
	assert.NoError(t, <-got)
}
