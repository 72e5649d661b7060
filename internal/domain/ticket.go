package domain

import "time"

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                  int64
	CustomerID          int64
	Issue               string
	Description         string
	StatusID            int64
	PriorityID          int64
	BranchID            int64
	DueDate             *time.Time
	ClosedTime          *time.Time
	VerifiedAt          *time.Time
	VerificationRemarks string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Verified reports whether the ticket passed verification.
func (t *Ticket) Verified() bool {
	return t != nil && t.VerifiedAt != nil
}

// Customer is the party that filed a ticket.
type Customer struct {
	ID    int64
	Name  string
	Phone string
	Email string
}

// RelatedMember is one row of a ticket many-to-many relation: an agent,
// a notified user or a label. Color is only set for labels.
type RelatedMember struct {
	ID    int64
	Name  string
	Color string
}

// TicketDetail bundles a ticket with every relation the workspace shows.
type TicketDetail struct {
	Ticket      Ticket
	Customer    *Customer
	Agents      []RelatedMember
	NotifyUsers []RelatedMember
	Labels      []RelatedMember
	Activities  []Activity
}
