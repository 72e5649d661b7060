package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures console search parameters.
type TicketFilter struct {
	CustomerID  *int64
	BranchID    *int64
	AgentID     *int64
	StatusIDs   []int64
	PriorityIDs []int64
	SearchTerm  *string
	Limit       int
	Offset      int
}

// TicketChange is a console edit applied in one transaction: the ticket
// row, whole member-set replacements and the timeline entries describing
// them.
type TicketChange struct {
	TicketID int64
	// Ticket is nil when no scalar field changed.
	Ticket *domain.Ticket
	// Members holds the replacement set per relation; absent kinds are
	// left alone.
	Members    map[RelationKind][]int64
	Activities []domain.Activity
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Update(ctx context.Context, ticket *domain.Ticket) error
	Apply(ctx context.Context, change *TicketChange) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, customer_id, issue, description, status_id, priority_id, branch_id,
               due_date, closed_time, verified_at, verification_remarks, created_at, updated_at`

// rowQuerier is satisfied by both the pool and an open transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	return updateTicket(ctx, r.pool, ticket)
}

func (r *ticketRepository) Apply(ctx context.Context, change *TicketChange) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if change.Ticket != nil {
		if err := updateTicket(ctx, tx, change.Ticket); err != nil {
			return err
		}
	}
	for _, kind := range []RelationKind{RelationAgents, RelationNotifyUsers, RelationLabels} {
		ids, ok := change.Members[kind]
		if !ok {
			continue
		}
		if err := replaceMembers(ctx, tx, kind, change.TicketID, ids); err != nil {
			return err
		}
	}
	for i := range change.Activities {
		if err := insertActivity(ctx, tx, &change.Activities[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func updateTicket(ctx context.Context, q rowQuerier, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET issue=$1, description=$2, status_id=$3, priority_id=$4, branch_id=$5,
            due_date=$6, closed_time=$7, verified_at=$8, verification_remarks=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	return q.QueryRow(ctx, query,
		ticket.Issue,
		ticket.Description,
		ticket.StatusID,
		ticket.PriorityID,
		ticket.BranchID,
		ticket.DueDate,
		ticket.ClosedTime,
		ticket.VerifiedAt,
		ticket.VerificationRemarks,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.BranchID != nil {
		args = append(args, *filter.BranchID)
		clauses = append(clauses, fmt.Sprintf("branch_id=$%d", len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("EXISTS (SELECT 1 FROM ticket_agents ta WHERE ta.ticket_id=tickets.id AND ta.user_id=$%d)", len(args)))
	}
	if len(filter.StatusIDs) > 0 {
		args = append(args, filter.StatusIDs)
		clauses = append(clauses, fmt.Sprintf("status_id = ANY($%d)", len(args)))
	}
	if len(filter.PriorityIDs) > 0 {
		args = append(args, filter.PriorityIDs)
		clauses = append(clauses, fmt.Sprintf("priority_id = ANY($%d)", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(issue) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.CustomerID,
		&ticket.Issue,
		&ticket.Description,
		&ticket.StatusID,
		&ticket.PriorityID,
		&ticket.BranchID,
		&ticket.DueDate,
		&ticket.ClosedTime,
		&ticket.VerifiedAt,
		&ticket.VerificationRemarks,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
