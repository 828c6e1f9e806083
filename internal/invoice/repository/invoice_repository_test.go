package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"absstitch/internal/domain"
	apperrors "absstitch/internal/errors"
	"absstitch/internal/query"
	"absstitch/internal/testutil"
)

// Unit Tests

var invoiceRowColumns = []string{
	"id", "invoice_number", "customer_id", "title", "total_amount", "status", "created_at",
}

func TestMySQLInvoiceRepository_Insert(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectExec(`INSERT INTO invoices`).
		WithArgs("inv-1", "INV-AB12CD34EF", "c1", "March work", "55.5", "unpaid").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	repo := NewMySQLInvoiceRepository(db)
	err = repo.Insert(context.Background(), tx, domain.Invoice{
		ID:            "inv-1",
		InvoiceNumber: "INV-AB12CD34EF",
		CustomerID:    "c1",
		Title:         "March work",
		TotalAmount:   decimal.RequireFromString("55.50"),
		Status:        domain.InvoiceStatusUnpaid,
	})

	require.NoError(t, err)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestMySQLInvoiceRepository_LinkOrders(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectExec(`INSERT INTO invoice_orders \(invoice_id, order_id\) VALUES \(\?, \?\), \(\?, \?\)`).
		WithArgs("inv-1", "o1", "inv-1", "o2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	repo := NewMySQLInvoiceRepository(db)
	err = repo.LinkOrders(context.Background(), tx, "inv-1", []string{"o1", "o2"})

	require.NoError(t, err)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestMySQLInvoiceRepository_List_AttachesOrderIDs(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	dbMock.ExpectQuery(`SELECT COUNT\(\*\) FROM invoices`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	dbMock.ExpectQuery(`FROM invoices\s+LIMIT \? OFFSET \?`).
		WithArgs(25, 0).
		WillReturnRows(sqlmock.NewRows(invoiceRowColumns).
			AddRow("inv-1", "INV-A", "c1", "first", "55.50", "unpaid", now).
			AddRow("inv-2", "INV-B", "c2", "second", "10.00", "paid", now))
	dbMock.ExpectQuery(`FROM invoice_orders WHERE invoice_id IN \(\?, \?\)`).
		WithArgs("inv-1", "inv-2").
		WillReturnRows(sqlmock.NewRows([]string{"invoice_id", "order_id"}).
			AddRow("inv-1", "o1").
			AddRow("inv-1", "o2").
			AddRow("inv-2", "o3"))

	repo := NewMySQLInvoiceRepository(db)
	page, err := repo.List(context.Background(), query.NewParams("invoices"))

	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, []string{"o1", "o2"}, page.Items[0].OrderIDs)
	assert.Equal(t, []string{"o3"}, page.Items[1].OrderIDs)
	assert.Equal(t, "55.50", page.Items[0].TotalAmount.StringFixed(2))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestMySQLInvoiceRepository_FindByID_NotFound(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectQuery(`FROM invoices\s+WHERE id = \?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(invoiceRowColumns))

	repo := NewMySQLInvoiceRepository(db)
	_, err = repo.FindByID(context.Background(), "missing")

	require.Error(t, err)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestMySQLInvoiceRepository_CountCreatedAfter(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	dbMock.ExpectQuery(`SELECT COUNT\(\*\) FROM invoices WHERE created_at > \?`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	repo := NewMySQLInvoiceRepository(db)
	count, err := repo.CountCreatedAfter(context.Background(), since)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// Integration Tests

func TestInvoiceRepository_InsertAndFindByID_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLInvoiceRepository(db)

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	invoice := domain.Invoice{
		ID:            "inv-1",
		InvoiceNumber: "INV-AB12CD34EF",
		CustomerID:    "c1",
		Title:         "March work",
		TotalAmount:   decimal.RequireFromString("55.50"),
		Status:        domain.InvoiceStatusUnpaid,
	}
	require.NoError(t, repo.Insert(context.Background(), tx, invoice))
	require.NoError(t, repo.LinkOrders(context.Background(), tx, "inv-1", []string{"o1", "o2"}))
	require.NoError(t, tx.Commit())

	stored, err := repo.FindByID(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "INV-AB12CD34EF", stored.InvoiceNumber)
	assert.Equal(t, "55.50", stored.TotalAmount.StringFixed(2))
	assert.ElementsMatch(t, []string{"o1", "o2"}, stored.OrderIDs)
}
