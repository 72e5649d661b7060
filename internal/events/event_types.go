package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAgentAttached   EventType = "ticket_agent_attached"
	EventTicketNoteAdded       EventType = "ticket_note_added"
	EventTicketVerified        EventType = "ticket_verified"
	EventInvoiceCreated        EventType = "invoice_created"
	EventPaymentRecorded       EventType = "payment_recorded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatusID int64  `json:"old_status_id"`
	NewStatusID int64  `json:"new_status_id"`
	NewStatus   string `json:"new_status"`
	Closed      bool   `json:"closed"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriorityID int64 `json:"old_priority_id"`
	NewPriorityID int64 `json:"new_priority_id"`
}

// TicketAgentAttachedPayload payload.
type TicketAgentAttachedPayload struct {
	AgentID int64 `json:"agent_id"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	NoteID      int64  `json:"note_id"`
	BodyPreview string `json:"body_preview"`
}

// TicketVerifiedPayload payload.
type TicketVerifiedPayload struct {
	Remarks string `json:"remarks"`
}

// InvoiceCreatedPayload payload.
type InvoiceCreatedPayload struct {
	InvoiceID   int64 `json:"invoice_id"`
	TotalAmount int64 `json:"total_amount"`
}

// PaymentRecordedPayload payload.
type PaymentRecordedPayload struct {
	InvoiceID   int64 `json:"invoice_id"`
	Amount      int64 `json:"amount"`
	Outstanding int64 `json:"outstanding"`
}
