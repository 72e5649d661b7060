package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// InvoiceDraft is what the invoice form starts from. When the ticket has
// already been invoiced Existing is set and nothing else should be created.
type InvoiceDraft struct {
	Existing   *dto.InvoiceResponse     `json:"existing,omitempty"`
	TicketID   int64                    `json:"ticket_id"`
	CustomerID int64                    `json:"customer_id"`
	Verified   bool                     `json:"verified"`
	Items      []dto.InvoiceItemRequest `json:"items"`
	ItemCost   int64                    `json:"item_cost"`
}

// Total is the estimate shown next to the form.
func (d InvoiceDraft) Total(serviceCharge, discount int64) int64 {
	return estimate(d.ItemCost, serviceCharge, discount)
}

// InvoiceInput holds the fields the operator fills in.
type InvoiceInput struct {
	ServiceCharge int64
	Discount      int64
	PaymentMode   string
}

// InvoiceResult is the invoice of the ticket. AlreadyExisted reports that
// another invoice was found instead of creating one.
type InvoiceResult struct {
	Invoice        *dto.InvoiceResponse `json:"invoice"`
	AlreadyExisted bool                 `json:"already_existed"`
}

// Verify marks the ticket verified and reloads it, since the timeline gains
// an entry.
func (w *Workspace) Verify(ctx context.Context, remarks string) error {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return invalid("remarks", "required")
	}
	if err := w.checkOpen(); err != nil {
		return err
	}
	resp, err := w.api.VerifyTicket(ctx, w.ticketID, dto.VerifyTicketRequest{Remarks: remarks})
	if err != nil {
		w.report(FacetVerify, err)
		return fmt.Errorf("verify ticket %d: %w", w.ticketID, err)
	}
	return w.refetch(ctx, resp)
}

// PrepareInvoice checks whether the ticket was invoiced already and
// otherwise builds a draft from the current spare parts.
func (w *Workspace) PrepareInvoice(ctx context.Context) (*InvoiceDraft, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}
	existing, err := w.api.GetTicketInvoice(ctx, w.ticketID)
	if err != nil {
		w.report(FacetInvoice, err)
		return nil, fmt.Errorf("check invoice of ticket %d: %w", w.ticketID, err)
	}
	draft := draftFrom(w.Snapshot())
	draft.Existing = existing
	return &draft, nil
}

// CreateInvoice bills the ticket for its spare parts. Input is checked
// before anything is sent. An existing invoice is returned with
// AlreadyExisted set rather than as an error.
func (w *Workspace) CreateInvoice(ctx context.Context, in InvoiceInput) (*InvoiceResult, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}
	snap := w.Snapshot()
	if snap.Ticket.VerifiedAt == nil {
		return nil, invalid("verified_at", "ticket must be verified before invoicing")
	}
	mode := strings.ToUpper(strings.TrimSpace(in.PaymentMode))
	if mode == "" {
		return nil, invalid("payment_mode", "required")
	}
	if !domain.PaymentMode(mode).Valid() {
		return nil, invalid("payment_mode", fmt.Sprintf("unsupported mode %q", in.PaymentMode))
	}
	if in.ServiceCharge < 0 {
		return nil, invalid("service_charge", "must not be negative")
	}
	if in.Discount < 0 {
		return nil, invalid("discount", "must not be negative")
	}
	itemCost, err := snap.itemCost()
	if err != nil {
		return nil, invalid("products", "item cost out of range")
	}
	total, err := domain.InvoiceTotal(itemCost, in.ServiceCharge, in.Discount)
	if err != nil {
		return nil, invalid("service_charge", "total out of range")
	}

	draft := draftFrom(snap)
	invoice, err := w.api.CreateInvoice(ctx, dto.CreateInvoiceRequest{
		TicketID:      draft.TicketID,
		ServiceCharge: in.ServiceCharge,
		Discount:      in.Discount,
		TotalAmount:   total,
		PaymentMode:   mode,
		Products:      draft.Items,
	})
	if errors.Is(err, ErrConflict) {
		existing, getErr := w.api.GetTicketInvoice(ctx, w.ticketID)
		if getErr == nil && existing == nil {
			getErr = fmt.Errorf("server reported a conflict but no invoice: %w", err)
		}
		if getErr != nil {
			w.report(FacetInvoice, getErr)
			return nil, fmt.Errorf("load existing invoice of ticket %d: %w", w.ticketID, getErr)
		}
		return &InvoiceResult{Invoice: existing, AlreadyExisted: true}, nil
	}
	if err != nil {
		w.report(FacetInvoice, err)
		return nil, fmt.Errorf("create invoice for ticket %d: %w", w.ticketID, err)
	}
	if err := w.refetch(ctx, nil); err != nil {
		w.logger.Warn("refetch after invoice failed", zap.Int64("ticket_id", w.ticketID), zap.Error(err))
	}
	return &InvoiceResult{Invoice: invoice}, nil
}

func draftFrom(snap Snapshot) InvoiceDraft {
	draft := InvoiceDraft{
		TicketID:   snap.Ticket.ID,
		CustomerID: snap.Ticket.CustomerID,
		Verified:   snap.Ticket.VerifiedAt != nil,
		Items:      make([]dto.InvoiceItemRequest, 0, len(snap.SpareParts)),
		ItemCost:   snap.ItemCost(),
	}
	for _, p := range snap.SpareParts {
		price := p.UnitPrice
		draft.Items = append(draft.Items, dto.InvoiceItemRequest{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			UnitPrice: &price,
		})
	}
	return draft
}
