package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler manages ticket, relation and verification endpoints.
type TicketsHandler struct {
	tickets   *service.TicketService
	relations *service.RelationService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, relations *service.RelationService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, relations: relations}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mapSlice(tickets, ticketSummary)})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.tickets.GetDetail(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(detail)})
}

// PatchTicket PATCH /api/tickets/:id changes only the fields present.
func (h *TicketsHandler) PatchTicket(c *fiber.Ctx) error {
	return h.update(c, false)
}

// PutTicket PUT /api/tickets/:id replaces every editable field.
func (h *TicketsHandler) PutTicket(c *fiber.Ctx) error {
	return h.update(c, true)
}

func (h *TicketsHandler) update(c *fiber.Ctx, full bool) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.TicketUpdateInput{
		StatusID:      req.StatusID,
		PriorityID:    req.PriorityID,
		BranchID:      req.BranchID,
		DueDateSet:    req.DueDate.Set,
		DueDate:       req.DueDate.Time,
		AgentIDs:      req.AssignedUsers,
		NotifyUserIDs: req.NotifyUsers,
		LabelIDs:      req.TicketLabels,
	}
	if full {
		if req.StatusID == nil || req.PriorityID == nil || req.BranchID == nil {
			return apperrors.NewValidationError("status_id, priority_id, branch_id required", nil)
		}
		input.DueDateSet = true
		input.AgentIDs = orEmpty(req.AssignedUsers)
		input.NotifyUserIDs = orEmpty(req.NotifyUsers)
		input.LabelIDs = orEmpty(req.TicketLabels)
	}
	detail, err := h.tickets.Update(c.UserContext(), actorID(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(detail)})
}

// VerifyTicket POST /api/tickets/:id/verify.
func (h *TicketsHandler) VerifyTicket(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.VerifyTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	detail, err := h.tickets.Verify(c.UserContext(), actorID(c), id, req.Remarks)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(detail)})
}

// AttachMember returns the POST handler for one relation, e.g.
// /api/tickets/:id/agents/:memberId.
func (h *TicketsHandler) AttachMember(kind repository.RelationKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ticketID, memberID, err := memberParams(c)
		if err != nil {
			return err
		}
		members, err := h.relations.Attach(c.UserContext(), actorID(c), kind, ticketID, memberID)
		if err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"data": memberRefs(members)})
	}
}

// DetachMember returns the DELETE handler for one relation.
func (h *TicketsHandler) DetachMember(kind repository.RelationKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ticketID, memberID, err := memberParams(c)
		if err != nil {
			return err
		}
		members, err := h.relations.Detach(c.UserContext(), kind, ticketID, memberID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": memberRefs(members)})
	}
}

func memberParams(c *fiber.Ctx) (int64, int64, error) {
	ticketID, err := paramID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	memberID, err := paramID(c, "memberId")
	if err != nil {
		return 0, 0, err
	}
	return ticketID, memberID, nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	var filter service.TicketListFilter
	var err error
	if filter.StatusIDs, err = parseIDList(c.Query("status")); err != nil {
		return filter, err
	}
	if filter.PriorityIDs, err = parseIDList(c.Query("priority")); err != nil {
		return filter, err
	}
	if filter.BranchID, err = parseOptionalID(c.Query("branch")); err != nil {
		return filter, err
	}
	if filter.AgentID, err = parseOptionalID(c.Query("agent")); err != nil {
		return filter, err
	}
	if filter.CustomerID, err = parseOptionalID(c.Query("customer")); err != nil {
		return filter, err
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func orEmpty(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
