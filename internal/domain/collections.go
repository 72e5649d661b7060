package domain

import "time"

// Note is an internal remark left on a ticket.
type Note struct {
	ID         int64
	TicketID   int64
	AuthorID   *int64
	AuthorName string
	Body       string
	CreatedAt  time.Time
}

// Task is a unit of follow-up work scoped to a ticket.
type Task struct {
	ID         int64
	TicketID   int64
	Title      string
	AssigneeID *int64
	DueDate    *time.Time
	Done       bool
	CreatedAt  time.Time
}

// Attachment stores metadata for a file uploaded against a ticket.
type Attachment struct {
	ID         int64
	TicketID   int64
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}

// SparePart is a product consumed while servicing a ticket.
// TotalPrice is always Quantity * UnitPrice and is computed server side.
type SparePart struct {
	ID          int64
	TicketID    int64
	ProductID   int64
	ProductName string
	Quantity    int64
	UnitPrice   int64
	TotalPrice  int64
	CreatedAt   time.Time
}

// Product is a catalog item that can be used as a spare part.
type Product struct {
	ID    int64
	Name  string
	Price int64
}
