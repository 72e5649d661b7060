package dto

import (
	"encoding/json"
	"time"
)

// Relation names a ticket member relation as it appears in URLs.
type Relation string

const (
	RelationAgents      Relation = "agents"
	RelationNotifyUsers Relation = "notify-users"
	RelationLabels      Relation = "labels"
)

// MemberRef is one member of a ticket relation. Color is only set for labels.
type MemberRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// CustomerResponse is the customer nested in a ticket.
type CustomerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// ActivityResponse is one timeline entry.
type ActivityResponse struct {
	ID        int64          `json:"id"`
	ActorID   *int64         `json:"actor_id"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	OldValue  map[string]any `json:"old_value,omitempty"`
	NewValue  map[string]any `json:"new_value,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// TicketSummary is a list row.
type TicketSummary struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Issue      string     `json:"issue"`
	StatusID   int64      `json:"status_id"`
	PriorityID int64      `json:"priority_id"`
	BranchID   int64      `json:"branch_id"`
	DueDate    *time.Time `json:"due_date"`
	ClosedTime *time.Time `json:"closed_time"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TicketResponse is the ticket with every relation: the one shape returned by
// fetch, update and verify.
type TicketResponse struct {
	ID                  int64              `json:"id"`
	CustomerID          int64              `json:"customer_id"`
	Customer            *CustomerResponse  `json:"customer"`
	Issue               string             `json:"issue"`
	Description         string             `json:"description"`
	StatusID            int64              `json:"status_id"`
	PriorityID          int64              `json:"priority_id"`
	BranchID            int64              `json:"branch_id"`
	DueDate             *time.Time         `json:"due_date"`
	ClosedTime          *time.Time         `json:"closed_time"`
	VerifiedAt          *time.Time         `json:"verified_at"`
	VerificationRemarks string             `json:"verification_remarks"`
	Agents              []MemberRef        `json:"agents"`
	NotifyUsers         []MemberRef        `json:"notify_users"`
	Labels              []MemberRef        `json:"labels"`
	Activities          []ActivityResponse `json:"activities"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// OptionalTime distinguishes an absent JSON field from an explicit null.
type OptionalTime struct {
	Set  bool
	Time *time.Time
}

// SetTime returns a present OptionalTime; nil clears the value.
func SetTime(t *time.Time) OptionalTime {
	return OptionalTime{Set: true, Time: t}
}

// IsZero reports absence so omitzero drops the field.
func (o OptionalTime) IsZero() bool { return !o.Set }

func (o OptionalTime) MarshalJSON() ([]byte, error) {
	if o.Time == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Time)
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Time = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Time = &t
	return nil
}

// UpdateTicketRequest is the body of PATCH and PUT /api/tickets/:id. PATCH
// sends only changed fields. PUT sends every field and the member id lists
// replace the current relations.
type UpdateTicketRequest struct {
	StatusID      *int64       `json:"status_id,omitempty"`
	PriorityID    *int64       `json:"priority_id,omitempty"`
	BranchID      *int64       `json:"branch_id,omitempty"`
	DueDate       OptionalTime `json:"due_date,omitzero"`
	AssignedUsers []int64      `json:"assigned_users,omitzero"`
	NotifyUsers   []int64      `json:"notify_users,omitzero"`
	TicketLabels  []int64      `json:"ticket_labels,omitzero"`
}

// VerifyTicketRequest is the body of POST /api/tickets/:id/verify.
type VerifyTicketRequest struct {
	Remarks string `json:"remarks"`
}
