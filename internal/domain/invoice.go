package domain

import (
	"errors"
	"math"
	"math/bits"
	"time"
)

// ErrAmountOverflow reports money arithmetic that does not fit in int64 cents.
var ErrAmountOverflow = errors.New("amount out of range")

// PaymentMode enumerates accepted payment channels.
type PaymentMode string

const (
	PaymentModeCash     PaymentMode = "CASH"
	PaymentModeCard     PaymentMode = "CARD"
	PaymentModeTransfer PaymentMode = "TRANSFER"
)

// Valid reports whether the mode is one of the accepted channels.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCard, PaymentModeTransfer:
		return true
	}
	return false
}

// Invoice bills a customer for a serviced ticket. Amounts are minor units.
type Invoice struct {
	ID            int64
	TicketID      int64
	CustomerID    int64
	ItemCost      int64
	ServiceCharge int64
	Discount      int64
	TotalAmount   int64
	PaidAmount    int64
	PaymentMode   PaymentMode
	Items         []InvoiceItem
	CreatedAt     time.Time
}

// Outstanding returns the unpaid remainder.
func (i *Invoice) Outstanding() int64 {
	if i.PaidAmount >= i.TotalAmount {
		return 0
	}
	return i.TotalAmount - i.PaidAmount
}

// InvoiceItem is one billed product line.
type InvoiceItem struct {
	ID         int64
	InvoiceID  int64
	ProductID  int64
	Quantity   int64
	UnitPrice  int64
	TotalPrice int64
}

// Payment records money received against an invoice.
type Payment struct {
	ID        int64
	InvoiceID int64
	Amount    int64
	Mode      PaymentMode
	Reference string
	CreatedAt time.Time
}

// LineTotal is the price of quantity units. Both factors must be
// non-negative.
func LineTotal(quantity, unitPrice int64) (int64, error) {
	if quantity < 0 || unitPrice < 0 {
		return 0, ErrAmountOverflow
	}
	hi, lo := bits.Mul64(uint64(quantity), uint64(unitPrice))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, ErrAmountOverflow
	}
	return int64(lo), nil
}

// AddAmounts sums non-negative amounts.
func AddAmounts(amounts ...int64) (int64, error) {
	var sum int64
	for _, a := range amounts {
		if a < 0 || sum > math.MaxInt64-a {
			return 0, ErrAmountOverflow
		}
		sum += a
	}
	return sum, nil
}

// InvoiceTotal computes itemCost + serviceCharge - discount, clamped at zero.
// Both the workspace estimate and invoice creation use it.
func InvoiceTotal(itemCost, serviceCharge, discount int64) (int64, error) {
	gross, err := AddAmounts(itemCost, serviceCharge)
	if err != nil || discount < 0 {
		return 0, ErrAmountOverflow
	}
	if discount >= gross {
		return 0, nil
	}
	return gross - discount, nil
}
