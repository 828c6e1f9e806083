package usecase

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"absstitch/internal/domain"
	apperrors "absstitch/internal/errors"
)

type mockOrderRepository struct {
	FindByIDsForUpdateFunc   func(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error)
	FindUnpaidByCustomerFunc func(ctx context.Context, customerID string, dateFrom, dateTo *time.Time) ([]domain.Order, error)
}

func (m *mockOrderRepository) FindByIDsForUpdate(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error) {
	return m.FindByIDsForUpdateFunc(ctx, tx, ids)
}

func (m *mockOrderRepository) FindUnpaidByCustomer(ctx context.Context, customerID string, dateFrom, dateTo *time.Time) ([]domain.Order, error) {
	return m.FindUnpaidByCustomerFunc(ctx, customerID, dateFrom, dateTo)
}

type mockInvoiceRepository struct {
	InsertFunc     func(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error
	LinkOrdersFunc func(ctx context.Context, tx *sql.Tx, invoiceID string, orderIDs []string) error
}

func (m *mockInvoiceRepository) Insert(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
	return m.InsertFunc(ctx, tx, inv)
}

func (m *mockInvoiceRepository) LinkOrders(ctx context.Context, tx *sql.Tx, invoiceID string, orderIDs []string) error {
	return m.LinkOrdersFunc(ctx, tx, invoiceID, orderIDs)
}

type mockCacheInvalidator struct {
	prefixes []string
}

func (m *mockCacheInvalidator) InvalidatePrefix(prefix string) {
	m.prefixes = append(m.prefixes, prefix)
}

type mockAuditLogger struct {
	actions []string
}

func (m *mockAuditLogger) LogActivity(action, resourceType, resourceID string, details *string) {
	m.actions = append(m.actions, action)
}

func unpaidOrder(id, customerID, amount string) domain.Order {
	return domain.Order{
		ID:            id,
		CustomerID:    customerID,
		Status:        domain.OrderStatusCompleted,
		TotalAmount:   decimal.RequireFromString(amount),
		PaymentStatus: domain.PaymentStatusUnpaid,
	}
}

func TestBuildInvoice_SumsExactDecimals(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	orderRepo := &mockOrderRepository{
		FindByIDsForUpdateFunc: func(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error) {
			return []domain.Order{
				unpaidOrder("o1", "c1", "40.00"),
				unpaidOrder("o2", "c1", "15.50"),
			}, nil
		},
	}
	var inserted *domain.Invoice
	var linkedIDs []string
	invoiceRepo := &mockInvoiceRepository{
		InsertFunc: func(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
			inserted = &inv
			return nil
		},
		LinkOrdersFunc: func(ctx context.Context, tx *sql.Tx, invoiceID string, orderIDs []string) error {
			linkedIDs = orderIDs
			return nil
		},
	}
	cache := &mockCacheInvalidator{}
	audit := &mockAuditLogger{}
	uc := NewBuildInvoiceUseCase(db, orderRepo, invoiceRepo, cache, audit, zap.NewNop(), 5*time.Second, 3)

	invoice, err := uc.BuildInvoice(context.Background(), "c1", []string{"o1", "o2"}, "March work")

	require.NoError(t, err)
	assert.Equal(t, "55.50", invoice.TotalAmount.StringFixed(2))
	assert.Equal(t, domain.InvoiceStatusUnpaid, invoice.Status)
	assert.Equal(t, "March work", invoice.Title)
	assert.True(t, len(invoice.InvoiceNumber) > 4)

	require.NotNil(t, inserted)
	assert.Equal(t, invoice.ID, inserted.ID)
	assert.Equal(t, []string{"o1", "o2"}, linkedIDs)
	assert.Equal(t, []string{"orders|", "invoices|"}, cache.prefixes)
	assert.Equal(t, []string{"invoice_created"}, audit.actions)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestBuildInvoice_DeduplicatesOrderIDs(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	var requestedIDs []string
	orderRepo := &mockOrderRepository{
		FindByIDsForUpdateFunc: func(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error) {
			requestedIDs = ids
			return []domain.Order{unpaidOrder("o1", "c1", "40.00")}, nil
		},
	}
	invoiceRepo := &mockInvoiceRepository{
		InsertFunc: func(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
			return nil
		},
		LinkOrdersFunc: func(ctx context.Context, tx *sql.Tx, invoiceID string, orderIDs []string) error {
			return nil
		},
	}
	uc := NewBuildInvoiceUseCase(db, orderRepo, invoiceRepo, &mockCacheInvalidator{}, &mockAuditLogger{}, zap.NewNop(), 5*time.Second, 3)

	invoice, err := uc.BuildInvoice(context.Background(), "c1", []string{"o1", "o1", "o1"}, "dup")

	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, requestedIDs)
	assert.Equal(t, "40.00", invoice.TotalAmount.StringFixed(2), "each order is counted once")
}

func TestBuildInvoice_RejectsOrderOfAnotherCustomer(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	orderRepo := &mockOrderRepository{
		FindByIDsForUpdateFunc: func(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error) {
			return []domain.Order{unpaidOrder("o1", "someone-else", "40.00")}, nil
		},
	}
	invoiceRepo := &mockInvoiceRepository{
		InsertFunc: func(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
			t.Fatal("insert must not run for an ineligible order")
			return nil
		},
	}
	cache := &mockCacheInvalidator{}
	uc := NewBuildInvoiceUseCase(db, orderRepo, invoiceRepo, cache, &mockAuditLogger{}, zap.NewNop(), 5*time.Second, 3)

	_, err = uc.BuildInvoice(context.Background(), "c1", []string{"o1"}, "title")

	require.Error(t, err)
	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "order not eligible", ve.Message)
	assert.Empty(t, cache.prefixes)
}

func TestBuildInvoice_RejectsPaidOrder(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	paid := unpaidOrder("o1", "c1", "40.00")
	paid.PaymentStatus = domain.PaymentStatusPaid
	orderRepo := &mockOrderRepository{
		FindByIDsForUpdateFunc: func(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error) {
			return []domain.Order{paid}, nil
		},
	}
	uc := NewBuildInvoiceUseCase(db, orderRepo, &mockInvoiceRepository{}, &mockCacheInvalidator{}, &mockAuditLogger{}, zap.NewNop(), 5*time.Second, 3)

	_, err = uc.BuildInvoice(context.Background(), "c1", []string{"o1"}, "title")

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestBuildInvoice_RejectsMissingOrder(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	orderRepo := &mockOrderRepository{
		FindByIDsForUpdateFunc: func(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error) {
			return nil, nil
		},
	}
	uc := NewBuildInvoiceUseCase(db, orderRepo, &mockInvoiceRepository{}, &mockCacheInvalidator{}, &mockAuditLogger{}, zap.NewNop(), 5*time.Second, 3)

	_, err = uc.BuildInvoice(context.Background(), "c1", []string{"ghost"}, "title")

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestBuildInvoice_ValidatesRequest(t *testing.T) {
	uc := NewBuildInvoiceUseCase(nil, nil, nil, nil, nil, zap.NewNop(), 5*time.Second, 3)

	tests := []struct {
		name       string
		customerID string
		orderIDs   []string
		title      string
	}{
		{name: "missing customer", customerID: "", orderIDs: []string{"o1"}, title: "t"},
		{name: "empty order list", customerID: "c1", orderIDs: nil, title: "t"},
		{name: "blank title", customerID: "c1", orderIDs: []string{"o1"}, title: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.BuildInvoice(context.Background(), tt.customerID, tt.orderIDs, tt.title)
			ve, ok := apperrors.IsValidationError(err)
			require.True(t, ok)
			assert.NotEmpty(t, ve.Details)
		})
	}
}

func TestBuildInvoice_RetriesDeadlocks(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	dbMock.ExpectBegin()
	dbMock.ExpectRollback()
	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	attempts := 0
	orderRepo := &mockOrderRepository{
		FindByIDsForUpdateFunc: func(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error) {
			attempts++
			if attempts == 1 {
				return nil, &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
			}
			return []domain.Order{unpaidOrder("o1", "c1", "40.00")}, nil
		},
	}
	invoiceRepo := &mockInvoiceRepository{
		InsertFunc: func(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
			return nil
		},
		LinkOrdersFunc: func(ctx context.Context, tx *sql.Tx, invoiceID string, orderIDs []string) error {
			return nil
		},
	}
	uc := NewBuildInvoiceUseCase(db, orderRepo, invoiceRepo, &mockCacheInvalidator{}, &mockAuditLogger{}, zap.NewNop(), 5*time.Second, 3)

	invoice, err := uc.BuildInvoice(context.Background(), "c1", []string{"o1"}, "title")

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "40.00", invoice.TotalAmount.StringFixed(2))
}

func TestBuildInvoice_DeadlockRetriesExhausted(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	for i := 0; i < 3; i++ {
		dbMock.ExpectBegin()
		dbMock.ExpectRollback()
	}

	orderRepo := &mockOrderRepository{
		FindByIDsForUpdateFunc: func(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error) {
			return nil, &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
		},
	}
	uc := NewBuildInvoiceUseCase(db, orderRepo, &mockInvoiceRepository{}, &mockCacheInvalidator{}, &mockAuditLogger{}, zap.NewNop(), 5*time.Second, 3)

	_, err = uc.BuildInvoice(context.Background(), "c1", []string{"o1"}, "title")

	require.Error(t, err)
	_, ok := apperrors.IsDeadlockError(err)
	assert.True(t, ok)
}

func TestListCandidates_RequiresCustomerID(t *testing.T) {
	uc := NewBuildInvoiceUseCase(nil, nil, nil, nil, nil, zap.NewNop(), 5*time.Second, 3)

	_, err := uc.ListCandidates(context.Background(), "", nil, nil)

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestListCandidates_PassesDateRange(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	orderRepo := &mockOrderRepository{
		FindUnpaidByCustomerFunc: func(ctx context.Context, customerID string, dateFrom, dateTo *time.Time) ([]domain.Order, error) {
			assert.Equal(t, "c1", customerID)
			require.NotNil(t, dateFrom)
			require.NotNil(t, dateTo)
			assert.Equal(t, from, *dateFrom)
			assert.Equal(t, to, *dateTo)
			return []domain.Order{unpaidOrder("o1", "c1", "40.00")}, nil
		},
	}
	uc := NewBuildInvoiceUseCase(nil, orderRepo, nil, nil, nil, zap.NewNop(), 5*time.Second, 3)

	orders, err := uc.ListCandidates(context.Background(), "c1", &from, &to)

	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
