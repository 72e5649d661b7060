package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func actorID(c *fiber.Ctx) *int64 {
	principal, _ := auth.PrincipalFromContext(c)
	return principal.ActorID()
}

func parseIDList(val string) ([]int64, error) {
	if val == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(val, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid id list", map[string]any{"value": val})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalID(val string) (*int64, error) {
	if val == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid id", map[string]any{"value": val})
	}
	return &id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func memberRefs(members []domain.RelatedMember) []dto.MemberRef {
	out := make([]dto.MemberRef, 0, len(members))
	for _, m := range members {
		out = append(out, dto.MemberRef{ID: m.ID, Name: m.Name, Color: m.Color})
	}
	return out
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:         ticket.ID,
		CustomerID: ticket.CustomerID,
		Issue:      ticket.Issue,
		StatusID:   ticket.StatusID,
		PriorityID: ticket.PriorityID,
		BranchID:   ticket.BranchID,
		DueDate:    ticket.DueDate,
		ClosedTime: ticket.ClosedTime,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
	}
}

func ticketResponse(detail *domain.TicketDetail) dto.TicketResponse {
	t := detail.Ticket
	resp := dto.TicketResponse{
		ID:                  t.ID,
		CustomerID:          t.CustomerID,
		Issue:               t.Issue,
		Description:         t.Description,
		StatusID:            t.StatusID,
		PriorityID:          t.PriorityID,
		BranchID:            t.BranchID,
		DueDate:             t.DueDate,
		ClosedTime:          t.ClosedTime,
		VerifiedAt:          t.VerifiedAt,
		VerificationRemarks: t.VerificationRemarks,
		Agents:              memberRefs(detail.Agents),
		NotifyUsers:         memberRefs(detail.NotifyUsers),
		Labels:              memberRefs(detail.Labels),
		Activities:          make([]dto.ActivityResponse, 0, len(detail.Activities)),
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if c := detail.Customer; c != nil {
		resp.Customer = &dto.CustomerResponse{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email}
	}
	for _, a := range detail.Activities {
		resp.Activities = append(resp.Activities, dto.ActivityResponse{
			ID:        a.ID,
			ActorID:   a.ActorID,
			Kind:      string(a.Kind),
			Message:   a.Message,
			OldValue:  a.OldValue,
			NewValue:  a.NewValue,
			CreatedAt: a.CreatedAt,
		})
	}
	return resp
}

func noteResponse(n *domain.Note) dto.NoteResponse {
	return dto.NoteResponse{ID: n.ID, TicketID: n.TicketID, AuthorID: n.AuthorID, AuthorName: n.AuthorName, Body: n.Body, CreatedAt: n.CreatedAt}
}

func taskResponse(t *domain.Task) dto.TaskResponse {
	return dto.TaskResponse{ID: t.ID, TicketID: t.TicketID, Title: t.Title, AssigneeID: t.AssigneeID, DueDate: t.DueDate, Done: t.Done, CreatedAt: t.CreatedAt}
}

func attachmentResponse(a *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:         a.ID,
		TicketID:   a.TicketID,
		StorageKey: a.StorageKey,
		FileName:   a.FileName,
		MimeType:   a.MimeType,
		SizeBytes:  a.SizeBytes,
		CreatedAt:  a.CreatedAt,
	}
}

func sparePartResponse(p *domain.SparePart) dto.SparePartResponse {
	return dto.SparePartResponse{
		ID:          p.ID,
		TicketID:    p.TicketID,
		ProductID:   p.ProductID,
		ProductName: p.ProductName,
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice,
		TotalPrice:  p.TotalPrice,
		CreatedAt:   p.CreatedAt,
	}
}

func invoiceResponse(inv *domain.Invoice) dto.InvoiceResponse {
	items := make([]dto.InvoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, dto.InvoiceItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return dto.InvoiceResponse{
		ID:            inv.ID,
		TicketID:      inv.TicketID,
		CustomerID:    inv.CustomerID,
		ItemCost:      inv.ItemCost,
		ServiceCharge: inv.ServiceCharge,
		Discount:      inv.Discount,
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount,
		Outstanding:   inv.Outstanding(),
		PaymentMode:   string(inv.PaymentMode),
		Items:         items,
		CreatedAt:     inv.CreatedAt,
	}
}

func mapSlice[T, R any](items []T, fn func(*T) R) []R {
	out := make([]R, 0, len(items))
	for i := range items {
		out = append(out, fn(&items[i]))
	}
	return out
}
