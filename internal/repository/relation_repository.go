package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RelationKind names one ticket many-to-many relation.
type RelationKind string

const (
	RelationAgents      RelationKind = "agents"
	RelationNotifyUsers RelationKind = "notify_users"
	RelationLabels      RelationKind = "labels"
)

type relationTable struct {
	join        string
	memberCol   string
	memberTable string
	colorExpr   string
	activeCheck string
}

var relationTables = map[RelationKind]relationTable{
	RelationAgents:      {join: "ticket_agents", memberCol: "user_id", memberTable: "users", colorExpr: "''", activeCheck: " AND active"},
	RelationNotifyUsers: {join: "ticket_notify_users", memberCol: "user_id", memberTable: "users", colorExpr: "''", activeCheck: " AND active"},
	RelationLabels:      {join: "ticket_labels", memberCol: "label_id", memberTable: "labels", colorExpr: "m.color"},
}

// RelationRepository attaches and detaches single members of ticket relations.
// Attach is idempotent and detaching an absent member is not an error.
type RelationRepository interface {
	Attach(ctx context.Context, kind RelationKind, ticketID, memberID int64) error
	Detach(ctx context.Context, kind RelationKind, ticketID, memberID int64) error
	Replace(ctx context.Context, kind RelationKind, ticketID int64, memberIDs []int64) error
	List(ctx context.Context, kind RelationKind, ticketID int64) ([]domain.RelatedMember, error)
	MemberExists(ctx context.Context, kind RelationKind, memberID int64) (bool, error)
}

type relationRepository struct {
	pool *pgxpool.Pool
}

// NewRelationRepository constructs repository.
func NewRelationRepository(pool *pgxpool.Pool) RelationRepository {
	return &relationRepository{pool: pool}
}

func tableFor(kind RelationKind) (relationTable, error) {
	t, ok := relationTables[kind]
	if !ok {
		return relationTable{}, fmt.Errorf("unknown relation %q", kind)
	}
	return t, nil
}

func (r *relationRepository) Attach(ctx context.Context, kind RelationKind, ticketID, memberID int64) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (ticket_id, %s) VALUES ($1,$2) ON CONFLICT DO NOTHING`, t.join, t.memberCol)
	_, err = r.pool.Exec(ctx, query, ticketID, memberID)
	return err
}

func (r *relationRepository) Detach(ctx context.Context, kind RelationKind, ticketID, memberID int64) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE ticket_id=$1 AND %s=$2`, t.join, t.memberCol)
	_, err = r.pool.Exec(ctx, query, ticketID, memberID)
	return err
}

func (r *relationRepository) Replace(ctx context.Context, kind RelationKind, ticketID int64, memberIDs []int64) error {
	if _, err := tableFor(kind); err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := replaceMembers(ctx, tx, kind, ticketID, memberIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func replaceMembers(ctx context.Context, tx pgx.Tx, kind RelationKind, ticketID int64, memberIDs []int64) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE ticket_id=$1`, t.join), ticketID); err != nil {
		return err
	}
	insert := fmt.Sprintf(`INSERT INTO %s (ticket_id, %s) VALUES ($1,$2) ON CONFLICT DO NOTHING`, t.join, t.memberCol)
	batch := &pgx.Batch{}
	for _, id := range memberIDs {
		batch.Queue(insert, ticketID, id)
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *relationRepository) List(ctx context.Context, kind RelationKind, ticketID int64) ([]domain.RelatedMember, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
        SELECT m.id, m.name, %s
        FROM %s j JOIN %s m ON m.id = j.%s
        WHERE j.ticket_id=$1 ORDER BY j.created_at ASC`, t.colorExpr, t.join, t.memberTable, t.memberCol)
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.RelatedMember{}
	for rows.Next() {
		var member domain.RelatedMember
		if err := rows.Scan(&member.ID, &member.Name, &member.Color); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

func (r *relationRepository) MemberExists(ctx context.Context, kind RelationKind, memberID int64) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id=$1%s)`, t.memberTable, t.activeCheck)
	var exists bool
	if err := r.pool.QueryRow(ctx, query, memberID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
