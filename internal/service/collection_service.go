package service

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// CollectionService manages the append/remove-only lists hanging off a
// ticket: notes, tasks, attachments and spare parts.
type CollectionService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	notes       repository.NoteRepository
	tasks       repository.TaskRepository
	attachments repository.AttachmentRepository
	spareParts  repository.SparePartRepository
	products    repository.ProductRepository
	dispatcher  events.Dispatcher
}

// CollectionDependencies bundles repositories.
type CollectionDependencies struct {
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	NoteRepo       repository.NoteRepository
	TaskRepo       repository.TaskRepository
	AttachmentRepo repository.AttachmentRepository
	SparePartRepo  repository.SparePartRepository
	ProductRepo    repository.ProductRepository
	Dispatcher     events.Dispatcher
}

// TaskInput describes a new task.
type TaskInput struct {
	Title      string
	AssigneeID *int64
	DueDate    *time.Time
}

// AttachmentInput defines attachment metadata. StorageKey is generated when empty.
type AttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// SparePartInput describes a consumed product. The product price is used
// when UnitPrice is nil.
type SparePartInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice *int64
}

// NewCollectionService creates the service.
func NewCollectionService(deps CollectionDependencies) *CollectionService {
	return &CollectionService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		notes:       deps.NoteRepo,
		tasks:       deps.TaskRepo,
		attachments: deps.AttachmentRepo,
		spareParts:  deps.SparePartRepo,
		products:    deps.ProductRepo,
		dispatcher:  deps.Dispatcher,
	}
}

func (s *CollectionService) ensureTicket(ctx context.Context, ticketID int64) error {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return nil
}

// ListNotes returns notes newest first.
func (s *CollectionService) ListNotes(ctx context.Context, ticketID int64) ([]domain.Note, error) {
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	notes, err := s.notes.ListByTicket(ctx, ticketID)
	return notes, apperrors.MapError(err)
}

// AddNote appends a note authored by actorID.
func (s *CollectionService) AddNote(ctx context.Context, actorID *int64, ticketID int64, body string) (*domain.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("note body required", map[string]any{"field": "body"})
	}
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	note := &domain.Note{TicketID: ticketID, AuthorID: actorID, Body: body}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketNoteAdded,
		TicketID: ticketID,
		ActorID:  actorID,
		Payload: events.TicketNoteAddedPayload{
			NoteID:      note.ID,
			BodyPreview: stringPreview(note.Body, 120),
		},
	})
	return note, nil
}

// DeleteNote removes a note.
func (s *CollectionService) DeleteNote(ctx context.Context, ticketID, noteID int64) error {
	if err := s.notes.Delete(ctx, ticketID, noteID); err != nil {
		return notFoundOr(err, "note", map[string]any{"ticket_id": ticketID, "note_id": noteID})
	}
	return nil
}

// ListTasks returns tasks newest first.
func (s *CollectionService) ListTasks(ctx context.Context, ticketID int64) ([]domain.Task, error) {
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByTicket(ctx, ticketID)
	return tasks, apperrors.MapError(err)
}

// AddTask appends a task.
func (s *CollectionService) AddTask(ctx context.Context, ticketID int64, input TaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("task title required", map[string]any{"field": "title"})
	}
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	if input.AssigneeID != nil {
		user, err := s.users.GetByID(ctx, *input.AssigneeID)
		if err != nil {
			return nil, notFoundOr(err, "user", map[string]any{"user_id": *input.AssigneeID})
		}
		if !user.Active {
			return nil, apperrors.NewConflict("assignee inactive", map[string]any{"user_id": user.ID})
		}
	}
	task := &domain.Task{TicketID: ticketID, Title: title, AssigneeID: input.AssigneeID, DueDate: input.DueDate}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

// DeleteTask removes a task.
func (s *CollectionService) DeleteTask(ctx context.Context, ticketID, taskID int64) error {
	if err := s.tasks.Delete(ctx, ticketID, taskID); err != nil {
		return notFoundOr(err, "task", map[string]any{"ticket_id": ticketID, "task_id": taskID})
	}
	return nil
}

// ListAttachments returns attachments newest first.
func (s *CollectionService) ListAttachments(ctx context.Context, ticketID int64) ([]domain.Attachment, error) {
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	return attachments, apperrors.MapError(err)
}

// AddAttachment records attachment metadata.
func (s *CollectionService) AddAttachment(ctx context.Context, ticketID int64, input AttachmentInput) (*domain.Attachment, error) {
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, apperrors.NewValidationError("file name required", map[string]any{"field": "file_name"})
	}
	if input.SizeBytes < 0 {
		return nil, apperrors.NewValidationError("size must not be negative", map[string]any{"field": "size_bytes"})
	}
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(input.StorageKey)
	if key == "" {
		key = "tickets/" + uuid.NewString() + path.Ext(fileName)
	}
	attachment := &domain.Attachment{
		TicketID:   ticketID,
		StorageKey: key,
		FileName:   fileName,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// DeleteAttachment removes attachment metadata.
func (s *CollectionService) DeleteAttachment(ctx context.Context, ticketID, attachmentID int64) error {
	if err := s.attachments.Delete(ctx, ticketID, attachmentID); err != nil {
		return notFoundOr(err, "attachment", map[string]any{"ticket_id": ticketID, "attachment_id": attachmentID})
	}
	return nil
}

// ListSpareParts returns spare parts newest first.
func (s *CollectionService) ListSpareParts(ctx context.Context, ticketID int64) ([]domain.SparePart, error) {
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	parts, err := s.spareParts.ListByTicket(ctx, ticketID)
	return parts, apperrors.MapError(err)
}

// AddSparePart records a consumed product; the total price is computed here.
func (s *CollectionService) AddSparePart(ctx context.Context, ticketID int64, input SparePartInput) (*domain.SparePart, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity must be positive", map[string]any{"field": "quantity"})
	}
	if input.UnitPrice != nil && *input.UnitPrice < 0 {
		return nil, apperrors.NewValidationError("unit price must not be negative", map[string]any{"field": "unit_price"})
	}
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, notFoundOr(err, "product", map[string]any{"product_id": input.ProductID})
	}
	unitPrice := product.Price
	if input.UnitPrice != nil {
		unitPrice = *input.UnitPrice
	}
	total, err := domain.LineTotal(input.Quantity, unitPrice)
	if err != nil {
		return nil, amountError(err, map[string]any{"quantity": input.Quantity, "unit_price": unitPrice})
	}
	part := &domain.SparePart{
		TicketID:    ticketID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    input.Quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  total,
	}
	if err := s.spareParts.Create(ctx, part); err != nil {
		return nil, apperrors.MapError(err)
	}
	return part, nil
}

// DeleteSparePart removes a spare part.
func (s *CollectionService) DeleteSparePart(ctx context.Context, ticketID, partID int64) error {
	if err := s.spareParts.Delete(ctx, ticketID, partID); err != nil {
		return notFoundOr(err, "spare part", map[string]any{"ticket_id": ticketID, "spare_part_id": partID})
	}
	return nil
}
