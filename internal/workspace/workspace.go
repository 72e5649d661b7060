package workspace

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/helpdesk/internal/api/dto"
)

var relationFacets = []Facet{FacetAgents, FacetNotifyUsers, FacetLabels}

// Workspace holds the editable state of one open ticket. It is safe for
// concurrent use; the lock is never held across a request.
type Workspace struct {
	api      API
	ticketID int64
	mode     Mode
	logger   *zap.Logger
	onChange func(Snapshot)
	onError  func(Facet, error)

	// slot serializes scalar edits in ModeFullObject.
	slot chan struct{}

	mu          sync.Mutex
	closed      bool
	ticket      dto.TicketResponse // displayed, optimistic values included
	confirmed   dto.TicketResponse // last values the server acknowledged
	catalog     dto.CatalogResponse
	notes       itemList[dto.NoteResponse]
	tasks       itemList[dto.TaskResponse]
	attachments itemList[dto.AttachmentResponse]
	spareParts  itemList[dto.SparePartResponse]

	// seq is the newest request sequence issued per facet.
	seq map[Facet]uint64
	// inflight counts scalar requests not yet settled.
	inflight map[Facet]int
	// confirmedSeq is the sequence of the response confirmed holds per scalar facet.
	confirmedSeq map[Facet]uint64
	// failed is set when the newest scalar request of a facet failed.
	failed map[Facet]bool
	// unsynced marks a facet whose successful edit has not been refetched yet.
	unsynced map[Facet]bool
	// pending maps relation facet -> member id -> sequence of the newest
	// request for that member still in flight.
	pending map[Facet]map[int64]uint64
	// confirmedMember is the sequence of the request confirmed reflects
	// per relation facet and member.
	confirmedMember map[Facet]map[int64]uint64
	// putting counts full-object updates in flight.
	putting int
	// reconcile marks relation facets whose member requests overlapped a
	// full-object update. Either may have overwritten the other on the
	// server, so the facet is re-fetched once both settled.
	reconcile map[Facet]bool
	// settled is the refetch sequence current when a facet last settled.
	// Refetches issued up to that point may predate the change.
	settled    map[Facet]uint64
	refetchSeq uint64
}

// Open fetches the ticket, the catalog and every sub-collection in parallel
// and builds the workspace once all of them succeeded.
func Open(ctx context.Context, api API, ticketID int64, opts ...Option) (*Workspace, error) {
	if ticketID <= 0 {
		return nil, invalid("ticket_id", "must be positive")
	}
	w := &Workspace{
		api:          api,
		ticketID:     ticketID,
		mode:         ModePartial,
		logger:       zap.NewNop(),
		slot:         make(chan struct{}, 1),
		seq:          map[Facet]uint64{},
		inflight:     map[Facet]int{},
		confirmedSeq: map[Facet]uint64{},
		failed:       map[Facet]bool{},
		unsynced:     map[Facet]bool{},
		pending:      map[Facet]map[int64]uint64{},
		settled:      map[Facet]uint64{},

		confirmedMember: map[Facet]map[int64]uint64{},
		reconcile:       map[Facet]bool{},
	}
	for _, opt := range opts {
		opt(w)
	}

	var (
		ticket      *dto.TicketResponse
		catalog     *dto.CatalogResponse
		notes       []dto.NoteResponse
		tasks       []dto.TaskResponse
		attachments []dto.AttachmentResponse
		spareParts  []dto.SparePartResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ticket, err = api.GetTicket(gctx, ticketID)
		return err
	})
	g.Go(func() (err error) {
		catalog, err = api.GetCatalog(gctx)
		return err
	})
	g.Go(func() (err error) {
		notes, err = api.ListNotes(gctx, ticketID)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = api.ListTasks(gctx, ticketID)
		return err
	})
	g.Go(func() (err error) {
		attachments, err = api.ListAttachments(gctx, ticketID)
		return err
	})
	g.Go(func() (err error) {
		spareParts, err = api.ListSpareParts(gctx, ticketID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("open ticket %d: %w", ticketID, err)
	}
	if ticket == nil {
		return nil, fmt.Errorf("open ticket %d: %w", ticketID, ErrNotFound)
	}

	w.ticket = cloneTicket(*ticket)
	w.confirmed = cloneTicket(*ticket)
	if catalog != nil {
		w.catalog = cloneCatalog(*catalog)
	}
	w.notes = newItemList(notes, func(n dto.NoteResponse) int64 { return n.ID })
	w.tasks = newItemList(tasks, func(t dto.TaskResponse) int64 { return t.ID })
	w.attachments = newItemList(attachments, func(a dto.AttachmentResponse) int64 { return a.ID })
	w.spareParts = newItemList(spareParts, func(p dto.SparePartResponse) int64 { return p.ID })

	w.logger.Debug("workspace opened",
		zap.Int64("ticket_id", ticketID),
		zap.Stringer("mode", w.mode),
		zap.Int("notes", len(notes)),
		zap.Int("spare_parts", len(spareParts)))
	return w, nil
}

// TicketID returns the id of the open ticket.
func (w *Workspace) TicketID() int64 { return w.ticketID }

// Close discards the state. Responses that arrive afterwards are ignored
// and further operations fail with ErrClosed.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.logger.Debug("workspace closed", zap.Int64("ticket_id", w.ticketID))
}

// Snapshot returns a copy of the current state.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Refresh re-fetches the ticket and merges it. Facets with requests in
// flight keep their optimistic values.
func (w *Workspace) Refresh(ctx context.Context) error {
	return w.refetch(ctx, nil)
}

func (w *Workspace) snapshotLocked() Snapshot {
	snap := Snapshot{
		Ticket:      cloneTicket(w.ticket),
		Catalog:     cloneCatalog(w.catalog),
		Notes:       w.notes.snapshot(),
		Tasks:       w.tasks.snapshot(),
		Attachments: w.attachments.snapshot(),
		SpareParts:  w.spareParts.snapshot(),
	}
	for f, n := range w.inflight {
		if n > 0 {
			snap.Pending = append(snap.Pending, f)
		}
	}
	for f, members := range w.pending {
		if len(members) > 0 {
			snap.Pending = append(snap.Pending, f)
		}
	}
	slices.Sort(snap.Pending)
	return snap
}

func (w *Workspace) checkOpen() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return nil
}

// busy reports whether local values of f must survive a refetch issued
// with sequence seq.
func (w *Workspace) busy(f Facet, seq uint64) bool {
	return w.inflight[f] > 0 || len(w.pending[f]) > 0 || w.settled[f] >= seq
}

// refetch loads the ticket again. When the load fails and fallback is set,
// fallback is applied instead since it is an equally authoritative reply.
func (w *Workspace) refetch(ctx context.Context, fallback *dto.TicketResponse) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.refetchSeq++
	seq := w.refetchSeq
	w.mu.Unlock()

	ticket, err := w.api.GetTicket(ctx, w.ticketID)
	if err != nil {
		if fallback == nil {
			return fmt.Errorf("refetch ticket %d: %w", w.ticketID, err)
		}
		w.logger.Warn("refetch failed, applying update response",
			zap.Int64("ticket_id", w.ticketID), zap.Error(err))
		ticket = fallback
	}
	w.applyRefetch(seq, ticket)
	return nil
}

func (w *Workspace) applyRefetch(seq uint64, ticket *dto.TicketResponse) {
	w.mu.Lock()
	if w.closed || seq != w.refetchSeq {
		w.mu.Unlock()
		w.logger.Debug("stale refetch discarded", zap.Int64("ticket_id", w.ticketID), zap.Uint64("seq", seq))
		return
	}
	fresh := cloneTicket(*ticket)
	prev := w.confirmed
	w.confirmed = cloneTicket(fresh)
	for _, f := range scalarFacets {
		if w.settled[f] >= seq {
			copyScalar(&w.confirmed, &prev, f)
		}
		if w.busy(f, seq) {
			copyScalar(&fresh, &w.ticket, f)
		}
	}
	for _, f := range relationFacets {
		if w.settled[f] >= seq {
			*membersOf(&w.confirmed, f) = slices.Clone(*membersOf(&prev, f))
		}
		if w.busy(f, seq) {
			*membersOf(&fresh, f) = slices.Clone(*membersOf(&w.ticket, f))
		}
	}
	w.ticket = fresh
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.emit(snap)
}

// reconcileDue reports whether a relation facet flagged for
// reconciliation has settled together with every full-object update, and
// clears the flag.
func (w *Workspace) reconcileDue() bool {
	if w.putting > 0 {
		return false
	}
	due := false
	for _, f := range relationFacets {
		if w.reconcile[f] && len(w.pending[f]) == 0 {
			w.reconcile[f] = false
			due = true
		}
	}
	return due
}

func (w *Workspace) emit(snap Snapshot) {
	if w.onChange != nil {
		w.onChange(snap)
	}
}

func (w *Workspace) report(f Facet, err error) {
	w.logger.Warn("workspace mutation failed",
		zap.Int64("ticket_id", w.ticketID), zap.String("facet", string(f)), zap.Error(err))
	if w.onError != nil {
		w.onError(f, err)
	}
}
