package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// InvoiceRepository persists invoices, their items and payments.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	GetByTicket(ctx context.Context, ticketID int64) (*domain.Invoice, error)
	AddPayment(ctx context.Context, payment *domain.Payment) error
}

type invoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository builds repository.
func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepository{pool: pool}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertInvoice = `
        INSERT INTO invoices (ticket_id, customer_id, item_cost, service_charge, discount, total_amount, payment_mode)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, paid_amount, created_at`
	if err := tx.QueryRow(ctx, insertInvoice,
		invoice.TicketID,
		invoice.CustomerID,
		invoice.ItemCost,
		invoice.ServiceCharge,
		invoice.Discount,
		invoice.TotalAmount,
		invoice.PaymentMode,
	).Scan(&invoice.ID, &invoice.PaidAmount, &invoice.CreatedAt); err != nil {
		return err
	}

	const insertItem = `
        INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, total_price)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	for i := range invoice.Items {
		item := &invoice.Items[i]
		item.InvoiceID = invoice.ID
		if err := tx.QueryRow(ctx, insertItem,
			item.InvoiceID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
			item.TotalPrice,
		).Scan(&item.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const invoiceColumns = `id, ticket_id, customer_id, item_cost, service_charge, discount,
               total_amount, paid_amount, payment_mode, created_at`

func (r *invoiceRepository) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	return r.fetchSingle(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id)
}

func (r *invoiceRepository) GetByTicket(ctx context.Context, ticketID int64) (*domain.Invoice, error) {
	return r.fetchSingle(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE ticket_id=$1`, ticketID)
}

func (r *invoiceRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Invoice, error) {
	var invoice domain.Invoice
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&invoice.ID,
		&invoice.TicketID,
		&invoice.CustomerID,
		&invoice.ItemCost,
		&invoice.ServiceCharge,
		&invoice.Discount,
		&invoice.TotalAmount,
		&invoice.PaidAmount,
		&invoice.PaymentMode,
		&invoice.CreatedAt,
	); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, invoice_id, product_id, quantity, unit_price, total_price
        FROM invoice_items WHERE invoice_id=$1 ORDER BY id`, invoice.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	invoice.Items = []domain.InvoiceItem{}
	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, err
		}
		invoice.Items = append(invoice.Items, item)
	}
	return &invoice, rows.Err()
}

func (r *invoiceRepository) AddPayment(ctx context.Context, payment *domain.Payment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `
        UPDATE invoices SET paid_amount = paid_amount + $1
        WHERE id=$2 AND paid_amount + $1 <= total_amount`, payment.Amount, payment.InvoiceID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if err := tx.QueryRow(ctx, `
        INSERT INTO payments (invoice_id, amount, mode, reference)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`,
		payment.InvoiceID,
		payment.Amount,
		payment.Mode,
		payment.Reference,
	).Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
