package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
)

// ErrStopped is returned by Publish once the worker has been stopped.
var ErrStopped = errors.New("notification worker stopped")

// DropRecorder counts events discarded because the queue was full.
type DropRecorder interface {
	RecordDroppedEvent()
}

// NotificationWorker delivers published events to subscribers on a fixed set
// of goroutines so request handlers never wait on notification fan-out.
type NotificationWorker struct {
	next    events.Dispatcher
	queue   chan queued
	workers int
	logger  *zap.Logger
	drops   DropRecorder

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

type queued struct {
	ctx   context.Context
	event events.Event
}

// NewNotificationWorker wraps next. Subscriptions go straight to next while
// Publish only enqueues.
func NewNotificationWorker(next events.Dispatcher, workers, queueSize int, logger *zap.Logger, drops DropRecorder) *NotificationWorker {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		next:    next,
		queue:   make(chan queued, queueSize),
		workers: workers,
		logger:  logger,
		drops:   drops,
	}
}

// Start launches the worker goroutines.
func (w *NotificationWorker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	w.logger.Info("notification worker started", zap.Int("workers", w.workers), zap.Int("queue_size", cap(w.queue)))
}

// Stop closes the queue and waits until every queued event was delivered or
// ctx expires.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish enqueues the event. A full queue drops the event.
func (w *NotificationWorker) Publish(ctx context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	// Handlers outlive the request, so only its values are carried over.
	item := queued{ctx: context.WithoutCancel(ctx), event: event}
	select {
	case w.queue <- item:
	default:
		w.logger.Warn("notification queue full, dropping event",
			zap.String("event", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
		)
		if w.drops != nil {
			w.drops.RecordDroppedEvent()
		}
	}
	return nil
}

// Subscribe registers handler on the wrapped dispatcher.
func (w *NotificationWorker) Subscribe(eventType events.EventType, handler events.EventHandler) {
	w.next.Subscribe(eventType, handler)
}

func (w *NotificationWorker) run() {
	defer w.wg.Done()
	for item := range w.queue {
		if err := w.next.Publish(item.ctx, item.event); err != nil {
			w.logger.Error("deliver event", zap.String("event", string(item.event.Type)), zap.Error(err))
		}
	}
}
