package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// InvoicesHandler serves invoice and payment endpoints.
type InvoicesHandler struct {
	service *service.InvoiceService
}

// NewInvoicesHandler constructs handler.
func NewInvoicesHandler(invoices *service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{service: invoices}
}

// GetTicketInvoice GET /api/tickets/:id/invoice answers 404 when the ticket
// has not been invoiced yet.
func (h *InvoicesHandler) GetTicketInvoice(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	invoice, err := h.service.FindByTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceResponse(invoice)})
}

// CreateInvoice POST /api/invoices.
func (h *InvoicesHandler) CreateInvoice(c *fiber.Ctx) error {
	var req dto.CreateInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID <= 0 {
		return apperrors.NewValidationError("ticket_id required", nil)
	}
	items := make([]service.InvoiceItemInput, 0, len(req.Products))
	for _, p := range req.Products {
		items = append(items, service.InvoiceItemInput{ProductID: p.ProductID, Quantity: p.Quantity, UnitPrice: p.UnitPrice})
	}
	invoice, err := h.service.Create(c.UserContext(), actorID(c), service.InvoiceCreateInput{
		TicketID:      req.TicketID,
		ServiceCharge: req.ServiceCharge,
		Discount:      req.Discount,
		TotalAmount:   req.TotalAmount,
		PaymentMode:   domain.PaymentMode(req.PaymentMode),
		Items:         items,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": invoiceResponse(invoice)})
}

// RecordPayment POST /api/invoices/:id/payments.
func (h *InvoicesHandler) RecordPayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	invoice, payment, err := h.service.RecordPayment(c.UserContext(), actorID(c), id, service.PaymentInput{
		Amount:    req.Amount,
		Mode:      domain.PaymentMode(req.Mode),
		Reference: req.Reference,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.PaymentResponse{
		ID:        payment.ID,
		Amount:    payment.Amount,
		Mode:      string(payment.Mode),
		Reference: payment.Reference,
		CreatedAt: payment.CreatedAt,
		Invoice:   invoiceResponse(invoice),
	}})
}
