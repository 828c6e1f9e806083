package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Design is a stock stitch design sold through the catalog section of the
// dashboard.
type Design struct {
	ID        string
	Title     string
	Category  string
	Price     decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
