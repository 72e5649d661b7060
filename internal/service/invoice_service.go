package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// InvoiceService bills verified tickets and records payments.
type InvoiceService struct {
	tickets    repository.TicketRepository
	invoices   repository.InvoiceRepository
	products   repository.ProductRepository
	spareParts repository.SparePartRepository
	activities repository.ActivityRepository
	dispatcher events.Dispatcher
}

// InvoiceDependencies bundles repositories.
type InvoiceDependencies struct {
	TicketRepo    repository.TicketRepository
	InvoiceRepo   repository.InvoiceRepository
	ProductRepo   repository.ProductRepository
	SparePartRepo repository.SparePartRepository
	ActivityRepo  repository.ActivityRepository
	Dispatcher    events.Dispatcher
}

// InvoiceItemInput is one product line sent with an invoice.
type InvoiceItemInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice *int64
}

// InvoiceCreateInput describes a new invoice. Without items the ticket's
// spare parts are billed. A non-zero TotalAmount must match the computed total.
type InvoiceCreateInput struct {
	TicketID      int64
	ServiceCharge int64
	Discount      int64
	TotalAmount   int64
	PaymentMode   domain.PaymentMode
	Items         []InvoiceItemInput
}

// PaymentInput describes money received against an invoice.
type PaymentInput struct {
	Amount    int64
	Mode      domain.PaymentMode
	Reference string
}

// NewInvoiceService creates the service.
func NewInvoiceService(deps InvoiceDependencies) *InvoiceService {
	return &InvoiceService{
		tickets:    deps.TicketRepo,
		invoices:   deps.InvoiceRepo,
		products:   deps.ProductRepo,
		spareParts: deps.SparePartRepo,
		activities: deps.ActivityRepo,
		dispatcher: deps.Dispatcher,
	}
}

// FindByTicket returns the ticket's invoice or NOT_FOUND.
func (s *InvoiceService) FindByTicket(ctx context.Context, ticketID int64) (*domain.Invoice, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	invoice, err := s.invoices.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "invoice", map[string]any{"ticket_id": ticketID})
	}
	return invoice, nil
}

// Create bills a verified ticket. A second invoice for the same ticket is a CONFLICT.
func (s *InvoiceService) Create(ctx context.Context, actorID *int64, input InvoiceCreateInput) (*domain.Invoice, error) {
	if err := validateInvoiceInput(input); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, input.TicketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": input.TicketID})
	}
	if !ticket.Verified() {
		return nil, apperrors.NewPreconditionFailed("ticket must be verified before invoicing", map[string]any{"ticket_id": ticket.ID})
	}
	if existing, err := s.invoices.GetByTicket(ctx, ticket.ID); err == nil {
		return nil, apperrors.NewConflict("invoice already exists", map[string]any{"ticket_id": ticket.ID, "invoice_id": existing.ID})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	items, err := s.resolveItems(ctx, ticket.ID, input.Items)
	if err != nil {
		return nil, err
	}
	totals := make([]int64, len(items))
	for i, item := range items {
		totals[i] = item.TotalPrice
	}
	itemCost, err := domain.AddAmounts(totals...)
	if err != nil {
		return nil, amountError(err, map[string]any{"field": "products"})
	}
	total, err := domain.InvoiceTotal(itemCost, input.ServiceCharge, input.Discount)
	if err != nil {
		return nil, amountError(err, map[string]any{"item_cost": itemCost, "service_charge": input.ServiceCharge})
	}
	if input.TotalAmount != 0 && input.TotalAmount != total {
		return nil, apperrors.NewValidationError("total amount does not match computed total", map[string]any{
			"total_amount": input.TotalAmount,
			"computed":     total,
		})
	}

	invoice := &domain.Invoice{
		TicketID:      ticket.ID,
		CustomerID:    ticket.CustomerID,
		ItemCost:      itemCost,
		ServiceCharge: input.ServiceCharge,
		Discount:      input.Discount,
		TotalAmount:   total,
		PaymentMode:   input.PaymentMode,
		Items:         items,
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("invoice already exists", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.activities.Create(ctx, &domain.Activity{
		TicketID: ticket.ID,
		ActorID:  actorID,
		Kind:     domain.ActivityInvoiceCreated,
		Message:  fmt.Sprintf("Invoice #%d created", invoice.ID),
		NewValue: map[string]any{"invoice_id": invoice.ID, "total_amount": invoice.TotalAmount},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventInvoiceCreated,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload:  events.InvoiceCreatedPayload{InvoiceID: invoice.ID, TotalAmount: invoice.TotalAmount},
	})
	return invoice, nil
}

// RecordPayment adds a payment; it may not exceed the outstanding balance.
func (s *InvoiceService) RecordPayment(ctx context.Context, actorID *int64, invoiceID int64, input PaymentInput) (*domain.Invoice, *domain.Payment, error) {
	if input.Amount <= 0 {
		return nil, nil, apperrors.NewValidationError("amount must be positive", map[string]any{"field": "amount"})
	}
	if !input.Mode.Valid() {
		return nil, nil, apperrors.NewValidationError("invalid payment mode", map[string]any{"field": "mode", "mode": input.Mode})
	}
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, notFoundOr(err, "invoice", map[string]any{"invoice_id": invoiceID})
	}
	outstanding := map[string]any{"invoice_id": invoiceID, "outstanding": invoice.Outstanding()}
	if input.Amount > invoice.Outstanding() {
		return nil, nil, apperrors.NewPreconditionFailed("payment exceeds outstanding balance", outstanding)
	}
	payment := &domain.Payment{
		InvoiceID: invoiceID,
		Amount:    input.Amount,
		Mode:      input.Mode,
		Reference: strings.TrimSpace(input.Reference),
	}
	if err := s.invoices.AddPayment(ctx, payment); err != nil {
		// A concurrent payment consumed the balance between read and write.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewPreconditionFailed("payment exceeds outstanding balance", outstanding)
		}
		return nil, nil, apperrors.MapError(err)
	}
	invoice.PaidAmount += payment.Amount

	if err := s.activities.Create(ctx, &domain.Activity{
		TicketID: invoice.TicketID,
		ActorID:  actorID,
		Kind:     domain.ActivityPaymentRecorded,
		Message:  fmt.Sprintf("Payment of %d recorded on invoice #%d", payment.Amount, invoice.ID),
		NewValue: map[string]any{"payment_id": payment.ID, "amount": payment.Amount, "mode": payment.Mode},
	}); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventPaymentRecorded,
		TicketID: invoice.TicketID,
		ActorID:  actorID,
		Payload: events.PaymentRecordedPayload{
			InvoiceID:   invoice.ID,
			Amount:      payment.Amount,
			Outstanding: invoice.Outstanding(),
		},
	})
	return invoice, payment, nil
}

func validateInvoiceInput(input InvoiceCreateInput) error {
	if !input.PaymentMode.Valid() {
		return apperrors.NewValidationError("invalid payment mode", map[string]any{"field": "payment_mode", "payment_mode": input.PaymentMode})
	}
	if input.ServiceCharge < 0 || input.Discount < 0 || input.TotalAmount < 0 {
		return apperrors.NewValidationError("amounts must not be negative", nil)
	}
	for i, item := range input.Items {
		if item.Quantity <= 0 {
			return apperrors.NewValidationError("quantity must be positive", map[string]any{"item": i})
		}
		if item.UnitPrice != nil && *item.UnitPrice < 0 {
			return apperrors.NewValidationError("unit price must not be negative", map[string]any{"item": i})
		}
	}
	return nil
}

func (s *InvoiceService) resolveItems(ctx context.Context, ticketID int64, inputs []InvoiceItemInput) ([]domain.InvoiceItem, error) {
	if len(inputs) == 0 {
		parts, err := s.spareParts.ListByTicket(ctx, ticketID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		items := make([]domain.InvoiceItem, 0, len(parts))
		for _, p := range parts {
			items = append(items, domain.InvoiceItem{
				ProductID:  p.ProductID,
				Quantity:   p.Quantity,
				UnitPrice:  p.UnitPrice,
				TotalPrice: p.TotalPrice,
			})
		}
		return items, nil
	}
	items := make([]domain.InvoiceItem, 0, len(inputs))
	for _, in := range inputs {
		product, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, notFoundOr(err, "product", map[string]any{"product_id": in.ProductID})
		}
		unitPrice := product.Price
		if in.UnitPrice != nil {
			unitPrice = *in.UnitPrice
		}
		total, err := domain.LineTotal(in.Quantity, unitPrice)
		if err != nil {
			return nil, amountError(err, map[string]any{"product_id": product.ID, "quantity": in.Quantity, "unit_price": unitPrice})
		}
		items = append(items, domain.InvoiceItem{
			ProductID:  product.ID,
			Quantity:   in.Quantity,
			UnitPrice:  unitPrice,
			TotalPrice: total,
		})
	}
	return items, nil
}
