package workspace

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
)

// Attach adds member to a relation. The member shows up immediately and
// is removed again if the server rejects it. Attaching a present member
// is a no-op. Member edits are not serialized: each targets one row.
func (w *Workspace) Attach(ctx context.Context, rel dto.Relation, member dto.MemberRef) error {
	f, ok := relationFacet(rel)
	if !ok {
		return invalid("relation", fmt.Sprintf("unknown relation %q", rel))
	}
	if member.ID <= 0 {
		return invalid("member_id", "must be positive")
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	list := membersOf(&w.ticket, f)
	if indexOfMember(*list, member.ID) >= 0 {
		w.mu.Unlock()
		return nil
	}
	seq := w.nextMemberSeq(f, member.ID)
	*list = append(*list, member)
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.emit(snap)

	server, err := w.api.AttachMember(ctx, rel, w.ticketID, member.ID)
	return w.settleMember(ctx, f, member.ID, seq, server, err, func(list *[]dto.MemberRef) {
		if i := indexOfMember(*list, member.ID); i >= 0 {
			*list = slices.Delete(*list, i, i+1)
		}
	})
}

// Detach removes a member from a relation, restoring it at its old
// position on failure. Detaching an absent member is a no-op.
func (w *Workspace) Detach(ctx context.Context, rel dto.Relation, memberID int64) error {
	f, ok := relationFacet(rel)
	if !ok {
		return invalid("relation", fmt.Sprintf("unknown relation %q", rel))
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	list := membersOf(&w.ticket, f)
	pos := indexOfMember(*list, memberID)
	if pos < 0 {
		w.mu.Unlock()
		return nil
	}
	removed := (*list)[pos]
	*list = slices.Delete(*list, pos, pos+1)
	seq := w.nextMemberSeq(f, memberID)
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.emit(snap)

	server, err := w.api.DetachMember(ctx, rel, w.ticketID, memberID)
	return w.settleMember(ctx, f, memberID, seq, server, err, func(list *[]dto.MemberRef) {
		if indexOfMember(*list, memberID) < 0 {
			*list = slices.Insert(*list, min(pos, len(*list)), removed)
		}
	})
}

// AssignAgent attaches an agent to the ticket.
func (w *Workspace) AssignAgent(ctx context.Context, userID int64) error {
	return w.Attach(ctx, dto.RelationAgents, dto.MemberRef{ID: userID})
}

// UnassignAgent detaches an agent from the ticket.
func (w *Workspace) UnassignAgent(ctx context.Context, userID int64) error {
	return w.Detach(ctx, dto.RelationAgents, userID)
}

// AddNotifyUser subscribes a user to ticket notifications.
func (w *Workspace) AddNotifyUser(ctx context.Context, userID int64) error {
	return w.Attach(ctx, dto.RelationNotifyUsers, dto.MemberRef{ID: userID})
}

// RemoveNotifyUser unsubscribes a user.
func (w *Workspace) RemoveNotifyUser(ctx context.Context, userID int64) error {
	return w.Detach(ctx, dto.RelationNotifyUsers, userID)
}

// AddLabel tags the ticket.
func (w *Workspace) AddLabel(ctx context.Context, labelID int64) error {
	return w.Attach(ctx, dto.RelationLabels, dto.MemberRef{ID: labelID})
}

// RemoveLabel untags the ticket.
func (w *Workspace) RemoveLabel(ctx context.Context, labelID int64) error {
	return w.Detach(ctx, dto.RelationLabels, labelID)
}

func (w *Workspace) nextMemberSeq(f Facet, memberID int64) uint64 {
	w.seq[f]++
	if w.pending[f] == nil {
		w.pending[f] = map[int64]uint64{}
	}
	w.pending[f][memberID] = w.seq[f]
	if w.putting > 0 {
		w.reconcile[f] = true
	}
	return w.seq[f]
}

// settleMember applies the outcome of an attach or detach. A response for
// a member that has a newer request in flight is ignored. The server's
// member list replaces the local one once nothing else is pending for the
// facet.
func (w *Workspace) settleMember(ctx context.Context, f Facet, memberID int64, seq uint64, server []dto.MemberRef, err error, revert func(*[]dto.MemberRef)) error {
	if err != nil {
		err = fmt.Errorf("%s member %d of ticket %d: %w", f, memberID, w.ticketID, err)
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return err
	}
	w.settled[f] = w.refetchSeq
	latest := w.pending[f][memberID] == seq
	if latest {
		delete(w.pending[f], memberID)
	}
	if err == nil {
		w.confirmMember(f, memberID, seq, server)
	}
	switch {
	case !latest:
		w.logger.Debug("superseded response", zap.String("facet", string(f)), zap.Int64("member_id", memberID))
	case err != nil:
		revert(membersOf(&w.ticket, f))
	case server != nil && len(w.pending[f]) == 0:
		*membersOf(&w.ticket, f) = slices.Clone(server)
	}
	reconcile := w.reconcileDue()
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.emit(snap)

	if err != nil && latest {
		w.report(f, err)
	}
	if reconcile {
		if rerr := w.refetch(ctx, nil); err == nil {
			err = rerr
		}
	}
	return err
}

// confirmMember records in confirmed whether the server holds memberID
// after a successful request. Responses older than the one already
// recorded for the member are ignored.
func (w *Workspace) confirmMember(f Facet, memberID int64, seq uint64, server []dto.MemberRef) {
	if w.confirmedMember[f] == nil {
		w.confirmedMember[f] = map[int64]uint64{}
	}
	if seq <= w.confirmedMember[f][memberID] {
		return
	}
	w.confirmedMember[f][memberID] = seq

	src := server
	if src == nil {
		src = *membersOf(&w.ticket, f)
	}
	list := membersOf(&w.confirmed, f)
	at, held := indexOfMember(*list, memberID), indexOfMember(src, memberID)
	switch {
	case held >= 0 && at < 0:
		*list = append(slices.Clone(*list), src[held])
	case held < 0 && at >= 0:
		*list = slices.Delete(slices.Clone(*list), at, at+1)
	}
}
