package apiclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
)

// GetTicketInvoice loads the ticket's invoice. It returns nil and no error
// when the ticket exists but has not been invoiced.
func (c *Client) GetTicketInvoice(ctx context.Context, ticketID int64) (*dto.InvoiceResponse, error) {
	var out dto.InvoiceResponse
	if err := c.do(ctx, fiber.MethodGet, ticketPath(ticketID, "invoice"), nil, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.missing("invoice") {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// CreateInvoice bills a ticket. An existing invoice yields an error
// matching workspace.ErrConflict.
func (c *Client) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	var out dto.InvoiceResponse
	if err := c.do(ctx, fiber.MethodPost, "/api/invoices", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordPayment posts a payment against an invoice. Admin only.
func (c *Client) RecordPayment(ctx context.Context, invoiceID int64, req dto.PaymentRequest) (*dto.PaymentResponse, error) {
	var out dto.PaymentResponse
	if err := c.do(ctx, fiber.MethodPost, fmt.Sprintf("/api/invoices/%d/payments", invoiceID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
