package apiclient

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
)

const (
	notesPath       = "notes"
	tasksPath       = "tasks"
	attachmentsPath = "attachments"
	sparePartsPath  = "spare-parts"
)

func list[T any](ctx context.Context, c *Client, ticketID int64, collection string) ([]T, error) {
	var out []T
	if err := c.do(ctx, fiber.MethodGet, ticketPath(ticketID, collection), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func add[T any](ctx context.Context, c *Client, ticketID int64, collection string, req any) (*T, error) {
	var out T
	if err := c.do(ctx, fiber.MethodPost, ticketPath(ticketID, collection), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) remove(ctx context.Context, ticketID int64, collection string, itemID int64) error {
	return c.do(ctx, fiber.MethodDelete, ticketPath(ticketID, collection, fmt.Sprint(itemID)), nil, nil)
}

// ListNotes returns the ticket notes.
func (c *Client) ListNotes(ctx context.Context, ticketID int64) ([]dto.NoteResponse, error) {
	return list[dto.NoteResponse](ctx, c, ticketID, notesPath)
}

// AddNote creates a note on the ticket.
func (c *Client) AddNote(ctx context.Context, ticketID int64, req dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	return add[dto.NoteResponse](ctx, c, ticketID, notesPath, req)
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, ticketID, noteID int64) error {
	return c.remove(ctx, ticketID, notesPath, noteID)
}

// ListTasks returns the ticket tasks.
func (c *Client) ListTasks(ctx context.Context, ticketID int64) ([]dto.TaskResponse, error) {
	return list[dto.TaskResponse](ctx, c, ticketID, tasksPath)
}

// AddTask creates a task on the ticket.
func (c *Client) AddTask(ctx context.Context, ticketID int64, req dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	return add[dto.TaskResponse](ctx, c, ticketID, tasksPath, req)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, ticketID, taskID int64) error {
	return c.remove(ctx, ticketID, tasksPath, taskID)
}

// ListAttachments returns the ticket attachments.
func (c *Client) ListAttachments(ctx context.Context, ticketID int64) ([]dto.AttachmentResponse, error) {
	return list[dto.AttachmentResponse](ctx, c, ticketID, attachmentsPath)
}

// AddAttachment records an attachment on the ticket.
func (c *Client) AddAttachment(ctx context.Context, ticketID int64, req dto.AttachmentRequest) (*dto.AttachmentResponse, error) {
	return add[dto.AttachmentResponse](ctx, c, ticketID, attachmentsPath, req)
}

// DeleteAttachment removes an attachment.
func (c *Client) DeleteAttachment(ctx context.Context, ticketID, attachmentID int64) error {
	return c.remove(ctx, ticketID, attachmentsPath, attachmentID)
}

// ListSpareParts returns the spare parts billed to the ticket.
func (c *Client) ListSpareParts(ctx context.Context, ticketID int64) ([]dto.SparePartResponse, error) {
	return list[dto.SparePartResponse](ctx, c, ticketID, sparePartsPath)
}

// AddSparePart bills a spare part to the ticket.
func (c *Client) AddSparePart(ctx context.Context, ticketID int64, req dto.CreateSparePartRequest) (*dto.SparePartResponse, error) {
	return add[dto.SparePartResponse](ctx, c, ticketID, sparePartsPath, req)
}

// DeleteSparePart removes a spare part.
func (c *Client) DeleteSparePart(ctx context.Context, ticketID, sparePartID int64) error {
	return c.remove(ctx, ticketID, sparePartsPath, sparePartID)
}
