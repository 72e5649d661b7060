package dto

import "time"

// NoteResponse is a ticket note.
type NoteResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	AuthorID   *int64    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Body string `json:"body"`
}

// TaskResponse is a ticket task.
type TaskResponse struct {
	ID         int64      `json:"id"`
	TicketID   int64      `json:"ticket_id"`
	Title      string     `json:"title"`
	AssigneeID *int64     `json:"assignee_id"`
	DueDate    *time.Time `json:"due_date"`
	Done       bool       `json:"done"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Title      string     `json:"title"`
	AssigneeID *int64     `json:"assignee_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttachmentRequest describes attachment input.
type AttachmentRequest struct {
	StorageKey string `json:"storage_key,omitempty"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// SparePartResponse is a consumed product with its server-computed total.
type SparePartResponse struct {
	ID          int64     `json:"id"`
	TicketID    int64     `json:"ticket_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int64     `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	TotalPrice  int64     `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateSparePartRequest payload. UnitPrice defaults to the product price.
type CreateSparePartRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice *int64 `json:"unit_price,omitempty"`
}
