// Package workspace keeps one ticket's editable state in sync with the
// help-desk API. Every mutation is applied optimistically, sent as its own
// request and then either merged or rolled back.
package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/helpdesk/internal/api/dto"
)

// API is the server contract the workspace consumes. apiclient.Client
// implements it over HTTP.
type API interface {
	GetTicket(ctx context.Context, ticketID int64) (*dto.TicketResponse, error)
	// UpdateTicket sends PUT when full is set and PATCH otherwise.
	UpdateTicket(ctx context.Context, ticketID int64, req dto.UpdateTicketRequest, full bool) (*dto.TicketResponse, error)
	AttachMember(ctx context.Context, rel dto.Relation, ticketID, memberID int64) ([]dto.MemberRef, error)
	DetachMember(ctx context.Context, rel dto.Relation, ticketID, memberID int64) ([]dto.MemberRef, error)
	VerifyTicket(ctx context.Context, ticketID int64, req dto.VerifyTicketRequest) (*dto.TicketResponse, error)
	GetCatalog(ctx context.Context) (*dto.CatalogResponse, error)

	ListNotes(ctx context.Context, ticketID int64) ([]dto.NoteResponse, error)
	AddNote(ctx context.Context, ticketID int64, req dto.CreateNoteRequest) (*dto.NoteResponse, error)
	DeleteNote(ctx context.Context, ticketID, noteID int64) error
	ListTasks(ctx context.Context, ticketID int64) ([]dto.TaskResponse, error)
	AddTask(ctx context.Context, ticketID int64, req dto.CreateTaskRequest) (*dto.TaskResponse, error)
	DeleteTask(ctx context.Context, ticketID, taskID int64) error
	ListAttachments(ctx context.Context, ticketID int64) ([]dto.AttachmentResponse, error)
	AddAttachment(ctx context.Context, ticketID int64, req dto.AttachmentRequest) (*dto.AttachmentResponse, error)
	DeleteAttachment(ctx context.Context, ticketID, attachmentID int64) error
	ListSpareParts(ctx context.Context, ticketID int64) ([]dto.SparePartResponse, error)
	AddSparePart(ctx context.Context, ticketID int64, req dto.CreateSparePartRequest) (*dto.SparePartResponse, error)
	DeleteSparePart(ctx context.Context, ticketID, sparePartID int64) error

	// GetTicketInvoice returns nil and no error when the ticket has not
	// been invoiced, and an error matching ErrNotFound when the ticket
	// itself is missing.
	GetTicketInvoice(ctx context.Context, ticketID int64) (*dto.InvoiceResponse, error)
	// CreateInvoice fails with an error matching ErrConflict when an invoice
	// already exists.
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
}

var (
	// ErrNotFound is matched by API errors for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict is matched by API errors for uniqueness conflicts.
	ErrConflict = errors.New("conflict")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("workspace closed")
)

// ValidationError rejects input before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
