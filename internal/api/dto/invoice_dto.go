package dto

import "time"

// InvoiceItemRequest is one billed product.
type InvoiceItemRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice *int64 `json:"unit_price,omitempty"`
}

// CreateInvoiceRequest payload for POST /api/invoices.
type CreateInvoiceRequest struct {
	TicketID      int64                `json:"ticket_id"`
	ServiceCharge int64                `json:"service_charge"`
	Discount      int64                `json:"discount"`
	TotalAmount   int64                `json:"total_amount"`
	PaymentMode   string               `json:"payment_mode"`
	Products      []InvoiceItemRequest `json:"products"`
}

// InvoiceItemResponse is a billed line.
type InvoiceItemResponse struct {
	ID         int64 `json:"id"`
	ProductID  int64 `json:"product_id"`
	Quantity   int64 `json:"quantity"`
	UnitPrice  int64 `json:"unit_price"`
	TotalPrice int64 `json:"total_price"`
}

// InvoiceResponse is an invoice with its lines and balance.
type InvoiceResponse struct {
	ID            int64                 `json:"id"`
	TicketID      int64                 `json:"ticket_id"`
	CustomerID    int64                 `json:"customer_id"`
	ItemCost      int64                 `json:"item_cost"`
	ServiceCharge int64                 `json:"service_charge"`
	Discount      int64                 `json:"discount"`
	TotalAmount   int64                 `json:"total_amount"`
	PaidAmount    int64                 `json:"paid_amount"`
	Outstanding   int64                 `json:"outstanding"`
	PaymentMode   string                `json:"payment_mode"`
	Items         []InvoiceItemResponse `json:"items"`
	CreatedAt     time.Time             `json:"created_at"`
}

// PaymentRequest payload for POST /api/invoices/:id/payments.
type PaymentRequest struct {
	Amount    int64  `json:"amount"`
	Mode      string `json:"mode"`
	Reference string `json:"reference,omitempty"`
}

// PaymentResponse is a recorded payment together with the updated invoice.
type PaymentResponse struct {
	ID        int64           `json:"id"`
	Amount    int64           `json:"amount"`
	Mode      string          `json:"mode"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Invoice   InvoiceResponse `json:"invoice"`
}
