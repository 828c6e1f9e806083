package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusUnpaid InvoiceStatus = "unpaid"
	InvoiceStatusPaid   InvoiceStatus = "paid"
)

// Invoice is created once; its order set is never modified afterwards.
// Re-issuing means creating a new invoice.
type Invoice struct {
	ID            string
	InvoiceNumber string
	CustomerID    string
	Title         string
	OrderIDs      []string
	TotalAmount   decimal.Decimal
	Status        InvoiceStatus
	CreatedAt     time.Time
}
