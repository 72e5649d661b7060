package dto

import "time"

// StatusResponse is a status enum row.
type StatusResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsClosed bool   `json:"is_closed"`
}

// EnumResponse is a priority or branch enum row.
type EnumResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CatalogResponse holds the live enum tables.
type CatalogResponse struct {
	Statuses   []StatusResponse `json:"statuses"`
	Priorities []EnumResponse   `json:"priorities"`
	Branches   []EnumResponse   `json:"branches"`
}

// NotificationResponse is one in-app notification.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
