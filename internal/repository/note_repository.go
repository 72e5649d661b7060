package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NoteRepository manages ticket notes.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Note, error)
	Delete(ctx context.Context, ticketID, noteID int64) error
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository builds repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	const query = `
        WITH inserted AS (
            INSERT INTO ticket_notes (ticket_id, author_id, body)
            VALUES ($1,$2,$3)
            RETURNING id, author_id, created_at
        )
        SELECT i.id, COALESCE(u.name, ''), i.created_at
        FROM inserted i LEFT JOIN users u ON u.id = i.author_id`
	return r.pool.QueryRow(ctx, query,
		note.TicketID,
		note.AuthorID,
		note.Body,
	).Scan(&note.ID, &note.AuthorName, &note.CreatedAt)
}

func (r *noteRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Note, error) {
	const query = `
        SELECT n.id, n.ticket_id, n.author_id, COALESCE(u.name, ''), n.body, n.created_at
        FROM ticket_notes n LEFT JOIN users u ON u.id = n.author_id
        WHERE n.ticket_id=$1 ORDER BY n.created_at DESC, n.id DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Note{}
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.TicketID,
			&note.AuthorID,
			&note.AuthorName,
			&note.Body,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}

func (r *noteRepository) Delete(ctx context.Context, ticketID, noteID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_notes WHERE ticket_id=$1 AND id=$2`, ticketID, noteID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
