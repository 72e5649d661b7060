package domain

import "time"

// Notification is an in-app message shown to a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
