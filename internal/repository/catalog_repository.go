package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CatalogRepository reads and seeds the enum tables.
type CatalogRepository interface {
	Load(ctx context.Context) (*domain.Catalog, error)
	Upsert(ctx context.Context, catalog *domain.Catalog) error
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository builds repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) Load(ctx context.Context) (*domain.Catalog, error) {
	catalog := &domain.Catalog{
		Statuses:   []domain.Status{},
		Priorities: []domain.Priority{},
		Branches:   []domain.Branch{},
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name, is_closed FROM ticket_statuses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var s domain.Status
		if err := rows.Scan(&s.ID, &s.Name, &s.IsClosed); err != nil {
			rows.Close()
			return nil, err
		}
		catalog.Statuses = append(catalog.Statuses, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `SELECT id, name FROM ticket_priorities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p domain.Priority
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			rows.Close()
			return nil, err
		}
		catalog.Priorities = append(catalog.Priorities, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `SELECT id, name FROM branches ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var b domain.Branch
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		catalog.Branches = append(catalog.Branches, b)
	}
	return catalog, rows.Err()
}

func (r *catalogRepository) Upsert(ctx context.Context, catalog *domain.Catalog) error {
	batch := &pgx.Batch{}
	for _, s := range catalog.Statuses {
		batch.Queue(`INSERT INTO ticket_statuses (id, name, is_closed) VALUES ($1,$2,$3)
            ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, is_closed=EXCLUDED.is_closed`, s.ID, s.Name, s.IsClosed)
	}
	for _, p := range catalog.Priorities {
		batch.Queue(`INSERT INTO ticket_priorities (id, name) VALUES ($1,$2)
            ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`, p.ID, p.Name)
	}
	for _, b := range catalog.Branches {
		batch.Queue(`INSERT INTO branches (id, name) VALUES ($1,$2)
            ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`, b.ID, b.Name)
	}
	if batch.Len() == 0 {
		return nil
	}
	return r.pool.SendBatch(ctx, batch).Close()
}
