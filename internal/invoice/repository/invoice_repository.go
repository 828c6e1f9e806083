package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"absstitch/internal/domain"
	"absstitch/internal/errors"
	"absstitch/internal/infrastructure/mysql"
	"absstitch/internal/query"
)

const invoiceSelect = `
	SELECT id, invoice_number, customer_id, title, total_amount, status, created_at
	FROM invoices
`

var invoiceColumns = map[string]string{
	"invoiceNumber": "invoice_number",
	"customerId":    "customer_id",
	"status":        "status",
	"totalAmount":   "total_amount",
	"createdAt":     "created_at",
}

type MySQLInvoiceRepository struct {
	db        *sql.DB
	converter *mysql.CriteriaConverter
}

func NewMySQLInvoiceRepository(db *sql.DB) *MySQLInvoiceRepository {
	return &MySQLInvoiceRepository{
		db:        db,
		converter: mysql.NewCriteriaConverter(invoiceColumns, []string{"invoice_number", "title"}),
	}
}

// Insert writes the invoice row inside the caller's transaction. There is
// deliberately no update path: an invoice's order set is immutable once
// created.
func (r *MySQLInvoiceRepository) Insert(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
	q := `
		INSERT INTO invoices (id, invoice_number, customer_id, title, total_amount, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, q,
		inv.ID, inv.InvoiceNumber, inv.CustomerID, inv.Title,
		inv.TotalAmount, string(inv.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting invoice: %w", err)
	}
	return nil
}

func (r *MySQLInvoiceRepository) LinkOrders(ctx context.Context, tx *sql.Tx, invoiceID string, orderIDs []string) error {
	q := `INSERT INTO invoice_orders (invoice_id, order_id) VALUES ` +
		strings.TrimSuffix(strings.Repeat("(?, ?), ", len(orderIDs)), ", ")

	args := make([]any, 0, len(orderIDs)*2)
	for _, orderID := range orderIDs {
		args = append(args, invoiceID, orderID)
	}

	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("linking invoice orders: %w", err)
	}
	return nil
}

// List is the invoices Fetcher.
func (r *MySQLInvoiceRepository) List(ctx context.Context, p query.Params) (query.Page[domain.Invoice], error) {
	countSQL, countArgs := r.converter.CountSQL("SELECT COUNT(*) FROM invoices", p)

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.Page[domain.Invoice]{}, errors.NewTransportError("counting invoices", err)
	}

	selectSQL, args := r.converter.SelectSQL(invoiceSelect, p)
	rows, err := r.db.QueryContext(ctx, selectSQL, args...)
	if err != nil {
		return query.Page[domain.Invoice]{}, errors.NewTransportError("querying invoices", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.Title,
			&inv.TotalAmount, &inv.Status, &inv.CreatedAt)
		if err != nil {
			return query.Page[domain.Invoice]{}, errors.NewTransportError("scanning invoice row", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return query.Page[domain.Invoice]{}, errors.NewTransportError("iterating invoice rows", err)
	}

	if err := r.attachOrderIDs(ctx, invoices); err != nil {
		return query.Page[domain.Invoice]{}, err
	}

	return query.NewPage(invoices, total, p.Page, p.PageSize), nil
}

func (r *MySQLInvoiceRepository) FindByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, invoiceSelect+" WHERE id = ?", id)

	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.Title,
		&inv.TotalAmount, &inv.Status, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("invoice %s not found", id))
	}
	if err != nil {
		return nil, errors.NewTransportError("querying invoice by id", err)
	}

	invoices := []domain.Invoice{inv}
	if err := r.attachOrderIDs(ctx, invoices); err != nil {
		return nil, err
	}
	return &invoices[0], nil
}

func (r *MySQLInvoiceRepository) CountCreatedAfter(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM invoices WHERE created_at > ?", since,
	).Scan(&count)
	if err != nil {
		return 0, errors.NewTransportError("counting new invoices", err)
	}
	return count, nil
}

func (r *MySQLInvoiceRepository) attachOrderIDs(ctx context.Context, invoices []domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(invoices)), ", ")
	q := "SELECT invoice_id, order_id FROM invoice_orders WHERE invoice_id IN (" + placeholders + ")"
	args := make([]any, len(invoices))
	index := make(map[string]*domain.Invoice, len(invoices))
	for i := range invoices {
		args[i] = invoices[i].ID
		index[invoices[i].ID] = &invoices[i]
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return errors.NewTransportError("querying invoice orders", err)
	}
	defer rows.Close()

	for rows.Next() {
		var invoiceID, orderID string
		if err := rows.Scan(&invoiceID, &orderID); err != nil {
			return errors.NewTransportError("scanning invoice order row", err)
		}
		if inv, ok := index[invoiceID]; ok {
			inv.OrderIDs = append(inv.OrderIDs, orderID)
		}
	}
	return rows.Err()
}
