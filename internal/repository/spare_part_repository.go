package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SparePartRepository manages products consumed by a ticket.
type SparePartRepository interface {
	Create(ctx context.Context, part *domain.SparePart) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.SparePart, error)
	Delete(ctx context.Context, ticketID, partID int64) error
}

// ProductRepository reads the product catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type sparePartRepository struct {
	pool *pgxpool.Pool
}

// NewSparePartRepository builds repository.
func NewSparePartRepository(pool *pgxpool.Pool) SparePartRepository {
	return &sparePartRepository{pool: pool}
}

func (r *sparePartRepository) Create(ctx context.Context, part *domain.SparePart) error {
	const query = `
        WITH inserted AS (
            INSERT INTO spare_parts (ticket_id, product_id, quantity, unit_price, total_price)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, product_id, created_at
        )
        SELECT i.id, p.name, i.created_at
        FROM inserted i JOIN products p ON p.id = i.product_id`
	return r.pool.QueryRow(ctx, query,
		part.TicketID,
		part.ProductID,
		part.Quantity,
		part.UnitPrice,
		part.TotalPrice,
	).Scan(&part.ID, &part.ProductName, &part.CreatedAt)
}

func (r *sparePartRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.SparePart, error) {
	const query = `
        SELECT s.id, s.ticket_id, s.product_id, p.name, s.quantity, s.unit_price, s.total_price, s.created_at
        FROM spare_parts s JOIN products p ON p.id = s.product_id
        WHERE s.ticket_id=$1 ORDER BY s.created_at DESC, s.id DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.SparePart{}
	for rows.Next() {
		var part domain.SparePart
		if err := rows.Scan(
			&part.ID,
			&part.TicketID,
			&part.ProductID,
			&part.ProductName,
			&part.Quantity,
			&part.UnitPrice,
			&part.TotalPrice,
			&part.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, part)
	}
	return result, rows.Err()
}

func (r *sparePartRepository) Delete(ctx context.Context, ticketID, partID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM spare_parts WHERE ticket_id=$1 AND id=$2`, ticketID, partID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository builds repository.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	if err := r.pool.QueryRow(ctx, `SELECT id, name, price FROM products WHERE id=$1`, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
	); err != nil {
		return nil, err
	}
	return &product, nil
}
