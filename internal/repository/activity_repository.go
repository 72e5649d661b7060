package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ActivityRepository stores ticket timeline entries.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	return insertActivity(ctx, r.pool, activity)
}

func insertActivity(ctx context.Context, q rowQuerier, activity *domain.Activity) error {
	const query = `
        INSERT INTO ticket_activities (ticket_id, actor_id, kind, message, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		activity.TicketID,
		activity.ActorID,
		activity.Kind,
		activity.Message,
		activity.OldValue,
		activity.NewValue,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Activity, error) {
	const query = `
        SELECT id, ticket_id, actor_id, kind, message, old_value, new_value, created_at
        FROM ticket_activities WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Activity{}
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.TicketID,
			&activity.ActorID,
			&activity.Kind,
			&activity.Message,
			&activity.OldValue,
			&activity.NewValue,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
