package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// AddNote appends a note. The server's copy is prepended once it exists.
func (w *Workspace) AddNote(ctx context.Context, body string) (*dto.NoteResponse, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalid("body", "required")
	}
	return addItem(ctx, w, FacetNotes, &w.notes, func(ctx context.Context) (*dto.NoteResponse, error) {
		return w.api.AddNote(ctx, w.ticketID, dto.CreateNoteRequest{Body: body})
	})
}

// RemoveNote deletes a note.
func (w *Workspace) RemoveNote(ctx context.Context, noteID int64) error {
	return removeItem(ctx, w, FacetNotes, &w.notes, noteID, func(ctx context.Context) error {
		return w.api.DeleteNote(ctx, w.ticketID, noteID)
	})
}

// AddTask appends a follow-up task.
func (w *Workspace) AddTask(ctx context.Context, req dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, invalid("title", "required")
	}
	return addItem(ctx, w, FacetTasks, &w.tasks, func(ctx context.Context) (*dto.TaskResponse, error) {
		return w.api.AddTask(ctx, w.ticketID, req)
	})
}

// RemoveTask deletes a task.
func (w *Workspace) RemoveTask(ctx context.Context, taskID int64) error {
	return removeItem(ctx, w, FacetTasks, &w.tasks, taskID, func(ctx context.Context) error {
		return w.api.DeleteTask(ctx, w.ticketID, taskID)
	})
}

// AddAttachment records uploaded file metadata.
func (w *Workspace) AddAttachment(ctx context.Context, req dto.AttachmentRequest) (*dto.AttachmentResponse, error) {
	if strings.TrimSpace(req.FileName) == "" {
		return nil, invalid("file_name", "required")
	}
	if req.SizeBytes < 0 {
		return nil, invalid("size_bytes", "must not be negative")
	}
	return addItem(ctx, w, FacetAttachments, &w.attachments, func(ctx context.Context) (*dto.AttachmentResponse, error) {
		return w.api.AddAttachment(ctx, w.ticketID, req)
	})
}

// RemoveAttachment deletes attachment metadata.
func (w *Workspace) RemoveAttachment(ctx context.Context, attachmentID int64) error {
	return removeItem(ctx, w, FacetAttachments, &w.attachments, attachmentID, func(ctx context.Context) error {
		return w.api.DeleteAttachment(ctx, w.ticketID, attachmentID)
	})
}

// AddSparePart records a consumed product. Its total is computed by the
// server, so nothing is shown until the server answers.
func (w *Workspace) AddSparePart(ctx context.Context, req dto.CreateSparePartRequest) (*dto.SparePartResponse, error) {
	if req.ProductID <= 0 {
		return nil, invalid("product_id", "required")
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity", "must be positive")
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return nil, invalid("unit_price", "must not be negative")
		}
		if _, err := domain.LineTotal(req.Quantity, *req.UnitPrice); err != nil {
			return nil, invalid("unit_price", "total out of range")
		}
	}
	return addItem(ctx, w, FacetSpareParts, &w.spareParts, func(ctx context.Context) (*dto.SparePartResponse, error) {
		return w.api.AddSparePart(ctx, w.ticketID, req)
	})
}

// RemoveSparePart deletes a spare part.
func (w *Workspace) RemoveSparePart(ctx context.Context, sparePartID int64) error {
	return removeItem(ctx, w, FacetSpareParts, &w.spareParts, sparePartID, func(ctx context.Context) error {
		return w.api.DeleteSparePart(ctx, w.ticketID, sparePartID)
	})
}

func addItem[T any](ctx context.Context, w *Workspace, f Facet, list *itemList[T], create func(context.Context) (*T, error)) (*T, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}
	item, err := create(ctx)
	if err != nil {
		w.report(f, err)
		return nil, fmt.Errorf("add to %s of ticket %d: %w", f, w.ticketID, err)
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return item, nil
	}
	list.prepend(*item)
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.emit(snap)
	return item, nil
}

// removeItem drops the item at once and puts it back at the same position
// if the server refuses.
func removeItem[T any](ctx context.Context, w *Workspace, f Facet, list *itemList[T], id int64, del func(context.Context) error) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	item, pos, ok := list.remove(id)
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("%s item %d: %w", f, id, ErrNotFound)
	}
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.emit(snap)

	err := del(ctx)
	if errors.Is(err, ErrNotFound) {
		// Already gone on the server.
		return nil
	}
	if err != nil {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return err
		}
		list.restore(pos, item)
		snap := w.snapshotLocked()
		w.mu.Unlock()
		w.emit(snap)
		w.report(f, err)
		return fmt.Errorf("remove %s item %d: %w", f, id, err)
	}
	return nil
}
