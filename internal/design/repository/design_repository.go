package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"absstitch/internal/domain"
	"absstitch/internal/errors"
	"absstitch/internal/infrastructure/mysql"
	"absstitch/internal/query"
)

const designSelect = `
	SELECT id, title, category, price, is_active, created_at, updated_at
	FROM designs
`

var designColumns = map[string]string{
	"title":     "title",
	"category":  "category",
	"price":     "price",
	"isActive":  "is_active",
	"createdAt": "created_at",
}

type MySQLDesignRepository struct {
	db        *sql.DB
	converter *mysql.CriteriaConverter
}

func NewMySQLDesignRepository(db *sql.DB) *MySQLDesignRepository {
	return &MySQLDesignRepository{
		db:        db,
		converter: mysql.NewCriteriaConverter(designColumns, []string{"title", "category"}),
	}
}

// List is the designs Fetcher.
func (r *MySQLDesignRepository) List(ctx context.Context, p query.Params) (query.Page[domain.Design], error) {
	countSQL, countArgs := r.converter.CountSQL("SELECT COUNT(*) FROM designs", p)

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.Page[domain.Design]{}, errors.NewTransportError("counting designs", err)
	}

	selectSQL, args := r.converter.SelectSQL(designSelect, p)
	rows, err := r.db.QueryContext(ctx, selectSQL, args...)
	if err != nil {
		return query.Page[domain.Design]{}, errors.NewTransportError("querying designs", err)
	}
	defer rows.Close()

	var designs []domain.Design
	for rows.Next() {
		var d domain.Design
		err := rows.Scan(&d.ID, &d.Title, &d.Category, &d.Price, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return query.Page[domain.Design]{}, errors.NewTransportError("scanning design row", err)
		}
		designs = append(designs, d)
	}
	if err := rows.Err(); err != nil {
		return query.Page[domain.Design]{}, errors.NewTransportError("iterating design rows", err)
	}

	return query.NewPage(designs, total, p.Page, p.PageSize), nil
}

// SetActive flips a design's catalog visibility. The only design mutation;
// callers invalidate cached design pages afterwards.
func (r *MySQLDesignRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE designs SET is_active = ? WHERE id = ?", active, id,
	)
	if err != nil {
		return errors.NewTransportError("updating design visibility", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewTransportError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("design %s not found", id))
	}
	return nil
}

func (r *MySQLDesignRepository) CountCreatedAfter(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM designs WHERE created_at > ?", since,
	).Scan(&count)
	if err != nil {
		return 0, errors.NewTransportError("counting new designs", err)
	}
	return count, nil
}
