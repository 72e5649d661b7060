package workspace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
)

// SetStatus changes the ticket status. The id must exist in the live
// catalog; closed_time follows the catalog's is_closed flag.
func (w *Workspace) SetStatus(ctx context.Context, statusID int64) error {
	w.mu.Lock()
	status, ok := w.findStatus(statusID)
	w.mu.Unlock()
	if !ok {
		return invalid("status_id", fmt.Sprintf("unknown status %d", statusID))
	}
	return w.updateScalar(ctx, FacetStatus,
		func(t *dto.TicketResponse) {
			t.StatusID = statusID
			switch {
			case !status.IsClosed:
				t.ClosedTime = nil
			case t.ClosedTime == nil:
				now := time.Now().UTC()
				t.ClosedTime = &now
			}
		},
		func(r *dto.UpdateTicketRequest) { r.StatusID = &statusID })
}

// SetPriority changes the ticket priority.
func (w *Workspace) SetPriority(ctx context.Context, priorityID int64) error {
	w.mu.Lock()
	ok := hasEnum(w.catalog.Priorities, priorityID)
	w.mu.Unlock()
	if !ok {
		return invalid("priority_id", fmt.Sprintf("unknown priority %d", priorityID))
	}
	return w.updateScalar(ctx, FacetPriority,
		func(t *dto.TicketResponse) { t.PriorityID = priorityID },
		func(r *dto.UpdateTicketRequest) { r.PriorityID = &priorityID })
}

// SetBranch moves the ticket to another branch.
func (w *Workspace) SetBranch(ctx context.Context, branchID int64) error {
	w.mu.Lock()
	ok := hasEnum(w.catalog.Branches, branchID)
	w.mu.Unlock()
	if !ok {
		return invalid("branch_id", fmt.Sprintf("unknown branch %d", branchID))
	}
	return w.updateScalar(ctx, FacetBranch,
		func(t *dto.TicketResponse) { t.BranchID = branchID },
		func(r *dto.UpdateTicketRequest) { r.BranchID = &branchID })
}

// SetDueDate sets the due date; nil clears it.
func (w *Workspace) SetDueDate(ctx context.Context, due *time.Time) error {
	due = cloneTime(due)
	return w.updateScalar(ctx, FacetDueDate,
		func(t *dto.TicketResponse) { t.DueDate = cloneTime(due) },
		func(r *dto.UpdateTicketRequest) { r.DueDate = dto.SetTime(cloneTime(due)) })
}

// updateScalar applies an optimistic scalar edit and sends it. On success
// the ticket is re-fetched once no other edit of the facet is in flight.
// On failure of the newest edit the facet reverts to the confirmed value.
func (w *Workspace) updateScalar(ctx context.Context, f Facet, apply func(*dto.TicketResponse), patch func(*dto.UpdateTicketRequest)) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.seq[f]++
	seq := w.seq[f]
	w.inflight[f]++
	w.failed[f] = false
	apply(&w.ticket)
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.emit(snap)

	full := w.mode == ModeFullObject
	if full {
		select {
		case w.slot <- struct{}{}:
			defer func() { <-w.slot }()
		case <-ctx.Done():
			_, _, err := w.settleScalar(f, seq, nil, ctx.Err(), false)
			return err
		}
	}

	var req dto.UpdateTicketRequest
	if full {
		// Built after acquiring the slot so it carries the settled result
		// of the previous edit.
		req = w.fullRequest(f)
	} else {
		patch(&req)
	}
	resp, err := w.api.UpdateTicket(ctx, w.ticketID, req, full)
	refetchDue, latest, err := w.settleScalar(f, seq, resp, err, full)
	if err != nil && latest {
		w.report(f, err)
	}
	if refetchDue {
		if rerr := w.refetch(ctx, resp); err == nil {
			err = rerr
		}
	}
	return err
}

// settleScalar records the outcome of a scalar request. It reports whether
// a refetch is due and whether the request was the newest for its facet.
func (w *Workspace) settleScalar(f Facet, seq uint64, resp *dto.TicketResponse, err error, full bool) (bool, bool, error) {
	w.mu.Lock()
	w.inflight[f]--
	if full {
		w.putting--
	}
	w.settled[f] = w.refetchSeq
	if err != nil {
		err = fmt.Errorf("update %s of ticket %d: %w", f, w.ticketID, err)
	}
	if w.closed {
		w.mu.Unlock()
		return false, false, err
	}
	latest := seq == w.seq[f]
	if !latest {
		w.logger.Debug("superseded response", zap.String("facet", string(f)), zap.Uint64("seq", seq))
	}
	if err == nil && resp != nil && seq > w.confirmedSeq[f] {
		copyScalar(&w.confirmed, resp, f)
		w.confirmedSeq[f] = seq
	}
	if err != nil && latest {
		w.failed[f] = true
	}
	if w.failed[f] {
		copyScalar(&w.ticket, &w.confirmed, f)
	}

	refetchDue := false
	if w.inflight[f] == 0 {
		refetchDue = err == nil || w.unsynced[f]
		w.unsynced[f] = false
	} else if err == nil {
		w.unsynced[f] = true
	}
	if err != nil {
		refetchDue = false
	}
	if w.reconcileDue() {
		refetchDue = true
	}
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.emit(snap)
	return refetchDue, latest, err
}

// fullRequest builds the PUT body for an edit of f. Only f carries its
// optimistic value. Every other facet, member lists included, is sent as
// the server last acknowledged it, so a pending edit is never persisted
// ahead of its own request. Member requests in flight are flagged for
// reconciliation.
func (w *Workspace) fullRequest(f Facet) dto.UpdateTicketRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.putting++
	for _, rf := range relationFacets {
		if len(w.pending[rf]) > 0 {
			w.reconcile[rf] = true
		}
	}
	base := w.confirmed
	copyScalar(&base, &w.ticket, f)
	status, priority, branch := base.StatusID, base.PriorityID, base.BranchID
	return dto.UpdateTicketRequest{
		StatusID:      &status,
		PriorityID:    &priority,
		BranchID:      &branch,
		DueDate:       dto.SetTime(cloneTime(base.DueDate)),
		AssignedUsers: memberIDs(base.Agents),
		NotifyUsers:   memberIDs(base.NotifyUsers),
		TicketLabels:  memberIDs(base.Labels),
	}
}

func (w *Workspace) findStatus(id int64) (dto.StatusResponse, bool) {
	for _, s := range w.catalog.Statuses {
		if s.ID == id {
			return s, true
		}
	}
	return dto.StatusResponse{}, false
}

func hasEnum(values []dto.EnumResponse, id int64) bool {
	for _, v := range values {
		if v.ID == id {
			return true
		}
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
