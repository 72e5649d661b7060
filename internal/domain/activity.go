package domain

import "time"

// ActivityKind captures what happened in a timeline entry.
type ActivityKind string

const (
	ActivityStatusChanged   ActivityKind = "STATUS_CHANGE"
	ActivityPriorityChanged ActivityKind = "PRIORITY_CHANGE"
	ActivityBranchChanged   ActivityKind = "BRANCH_CHANGE"
	ActivityDueDateChanged  ActivityKind = "DUE_DATE_CHANGE"
	ActivityVerified        ActivityKind = "VERIFIED"
	ActivityInvoiceCreated  ActivityKind = "INVOICE_CREATED"
	ActivityPaymentRecorded ActivityKind = "PAYMENT_RECORDED"
)

// Activity is an immutable timeline entry.
type Activity struct {
	ID        int64
	TicketID  int64
	ActorID   *int64
	Kind      ActivityKind
	Message   string
	OldValue  map[string]any
	NewValue  map[string]any
	CreatedAt time.Time
}
