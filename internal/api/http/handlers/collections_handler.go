package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// CollectionsHandler serves notes, tasks, attachments and spare parts.
type CollectionsHandler struct {
	service *service.CollectionService
}

// NewCollectionsHandler constructs handler.
func NewCollectionsHandler(collections *service.CollectionService) *CollectionsHandler {
	return &CollectionsHandler{service: collections}
}

// ListNotes GET /api/tickets/:id/notes.
func (h *CollectionsHandler) ListNotes(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	notes, err := h.service.ListNotes(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mapSlice(notes, noteResponse)})
}

// AddNote POST /api/tickets/:id/notes.
func (h *CollectionsHandler) AddNote(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	note, err := h.service.AddNote(c.UserContext(), actorID(c), id, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": noteResponse(note)})
}

// DeleteNote DELETE /api/tickets/:id/notes/:itemId.
func (h *CollectionsHandler) DeleteNote(c *fiber.Ctx) error {
	return h.remove(c, h.service.DeleteNote)
}

// ListTasks GET /api/tickets/:id/tasks.
func (h *CollectionsHandler) ListTasks(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	tasks, err := h.service.ListTasks(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mapSlice(tasks, taskResponse)})
}

// AddTask POST /api/tickets/:id/tasks.
func (h *CollectionsHandler) AddTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.AddTask(c.UserContext(), id, service.TaskInput{
		Title:      req.Title,
		AssigneeID: req.AssigneeID,
		DueDate:    req.DueDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": taskResponse(task)})
}

// DeleteTask DELETE /api/tickets/:id/tasks/:itemId.
func (h *CollectionsHandler) DeleteTask(c *fiber.Ctx) error {
	return h.remove(c, h.service.DeleteTask)
}

// ListAttachments GET /api/tickets/:id/attachments.
func (h *CollectionsHandler) ListAttachments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	attachments, err := h.service.ListAttachments(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mapSlice(attachments, attachmentResponse)})
}

// AddAttachment POST /api/tickets/:id/attachments.
func (h *CollectionsHandler) AddAttachment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	attachment, err := h.service.AddAttachment(c.UserContext(), id, service.AttachmentInput{
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// DeleteAttachment DELETE /api/tickets/:id/attachments/:itemId.
func (h *CollectionsHandler) DeleteAttachment(c *fiber.Ctx) error {
	return h.remove(c, h.service.DeleteAttachment)
}

// ListSpareParts GET /api/tickets/:id/spare-parts.
func (h *CollectionsHandler) ListSpareParts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	parts, err := h.service.ListSpareParts(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mapSlice(parts, sparePartResponse)})
}

// AddSparePart POST /api/tickets/:id/spare-parts.
func (h *CollectionsHandler) AddSparePart(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateSparePartRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	part, err := h.service.AddSparePart(c.UserContext(), id, service.SparePartInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sparePartResponse(part)})
}

// DeleteSparePart DELETE /api/tickets/:id/spare-parts/:itemId.
func (h *CollectionsHandler) DeleteSparePart(c *fiber.Ctx) error {
	return h.remove(c, h.service.DeleteSparePart)
}

func (h *CollectionsHandler) remove(c *fiber.Ctx, del func(ctx context.Context, ticketID, itemID int64) error) error {
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := paramID(c, "itemId")
	if err != nil {
		return err
	}
	if err := del(c.UserContext(), ticketID, itemID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
