package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TaskRepository manages follow-up tasks of a ticket.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Task, error)
	Delete(ctx context.Context, ticketID, taskID int64) error
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository builds repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (ticket_id, title, assignee_id, due_date, done)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		task.TicketID,
		task.Title,
		task.AssigneeID,
		task.DueDate,
		task.Done,
	).Scan(&task.ID, &task.CreatedAt)
}

func (r *taskRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Task, error) {
	const query = `
        SELECT id, ticket_id, title, assignee_id, due_date, done, created_at
        FROM tasks WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Task{}
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(
			&task.ID,
			&task.TicketID,
			&task.Title,
			&task.AssigneeID,
			&task.DueDate,
			&task.Done,
			&task.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func (r *taskRepository) Delete(ctx context.Context, ticketID, taskID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE ticket_id=$1 AND id=$2`, ticketID, taskID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
