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

const orderSelect = `
	SELECT id, order_number, customer_id, status,
	       assigned_sales_rep_id, assigned_designer_id, assigned_role,
	       total_amount, payment_status, created_at, updated_at
	FROM orders
`

// orderColumns maps public filter/sort field names to columns. Fields not
// listed here are ignored by the criteria converter.
var orderColumns = map[string]string{
	"orderNumber":        "order_number",
	"customerId":         "customer_id",
	"status":             "status",
	"paymentStatus":      "payment_status",
	"assignedSalesRepId": "assigned_sales_rep_id",
	"assignedDesignerId": "assigned_designer_id",
	"totalAmount":        "total_amount",
	"createdAt":          "created_at",
}

type MySQLOrderRepository struct {
	db        *sql.DB
	converter *mysql.CriteriaConverter
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{
		db:        db,
		converter: mysql.NewCriteriaConverter(orderColumns, []string{"order_number", "customer_id"}),
	}
}

// List is the orders Fetcher: one page of orders plus the filtered total.
// Store failures surface as TransportError so the coordinator retries them.
func (r *MySQLOrderRepository) List(ctx context.Context, p query.Params) (query.Page[domain.Order], error) {
	countSQL, countArgs := r.converter.CountSQL("SELECT COUNT(*) FROM orders", p)

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.Page[domain.Order]{}, errors.NewTransportError("counting orders", err)
	}

	selectSQL, args := r.converter.SelectSQL(orderSelect, p)
	rows, err := r.db.QueryContext(ctx, selectSQL, args...)
	if err != nil {
		return query.Page[domain.Order]{}, errors.NewTransportError("querying orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return query.Page[domain.Order]{}, errors.NewTransportError("scanning order row", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return query.Page[domain.Order]{}, errors.NewTransportError("iterating order rows", err)
	}

	return query.NewPage(orders, total, p.Page, p.PageSize), nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelect+" WHERE id = ?", id)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}
	if err != nil {
		return nil, errors.NewTransportError("querying order by id", err)
	}
	return &order, nil
}

// FindByIDsForUpdate locks the referenced orders inside the caller's
// transaction so invoice eligibility is re-checked against current rows,
// not a stale page.
func (r *MySQLOrderRepository) FindByIDsForUpdate(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	q := orderSelect + " WHERE id IN (" + placeholders + ") FOR UPDATE"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.NewTransportError("querying orders for update", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, errors.NewTransportError("scanning order row", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewTransportError("iterating order rows", err)
	}
	return orders, nil
}

// FindUnpaidByCustomer lists invoice candidates, optionally bounded by an
// inclusive creation-date range.
func (r *MySQLOrderRepository) FindUnpaidByCustomer(ctx context.Context, customerID string, dateFrom, dateTo *time.Time) ([]domain.Order, error) {
	q := orderSelect + " WHERE customer_id = ? AND payment_status = ?"
	args := []any{customerID, string(domain.PaymentStatusUnpaid)}

	if dateFrom != nil {
		q += " AND created_at >= ?"
		args = append(args, *dateFrom)
	}
	if dateTo != nil {
		q += " AND created_at <= ?"
		args = append(args, *dateTo)
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.NewTransportError("querying unpaid orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, errors.NewTransportError("scanning order row", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewTransportError("iterating order rows", err)
	}
	return orders, nil
}

// ApplyTransition persists the status and assignment fields produced by a
// lifecycle transition. Nothing else writes these columns.
func (r *MySQLOrderRepository) ApplyTransition(ctx context.Context, order domain.Order) error {
	q := `
		UPDATE orders
		SET status = ?, assigned_sales_rep_id = ?, assigned_designer_id = ?, assigned_role = ?
		WHERE id = ?
	`

	var role *string
	if order.AssignedRole != nil {
		s := string(*order.AssignedRole)
		role = &s
	}

	result, err := r.db.ExecContext(ctx, q,
		string(order.Status), order.AssignedSalesRepID, order.AssignedDesignerID, role, order.ID,
	)
	if err != nil {
		return errors.NewTransportError("updating order transition", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewTransportError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order %s not found", order.ID))
	}
	return nil
}

func (r *MySQLOrderRepository) CountCreatedAfter(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE created_at > ?", since,
	).Scan(&count)
	if err != nil {
		return 0, errors.NewTransportError("counting new orders", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var salesRep, designer, role sql.NullString

	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CustomerID, &order.Status,
		&salesRep, &designer, &role,
		&order.TotalAmount, &order.PaymentStatus, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	if salesRep.Valid {
		order.AssignedSalesRepID = &salesRep.String
	}
	if designer.Valid {
		order.AssignedDesignerID = &designer.String
	}
	if role.Valid {
		r := domain.AssignedRole(role.String)
		order.AssignedRole = &r
	}
	return order, nil
}
