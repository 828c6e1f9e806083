package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"absstitch/internal/domain"
	apperrors "absstitch/internal/errors"
	"absstitch/internal/query"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type OrderRepository interface {
	FindByIDsForUpdate(ctx context.Context, tx *sql.Tx, ids []string) ([]domain.Order, error)
	FindUnpaidByCustomer(ctx context.Context, customerID string, dateFrom, dateTo *time.Time) ([]domain.Order, error)
}

type InvoiceRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error
	LinkOrders(ctx context.Context, tx *sql.Tx, invoiceID string, orderIDs []string) error
}

type CacheInvalidator interface {
	InvalidatePrefix(prefix string)
}

type AuditLogger interface {
	LogActivity(action, resourceType, resourceID string, details *string)
}

// BuildInvoiceUseCase aggregates unpaid orders into an invoice. Eligibility
// is re-checked under row locks inside the transaction, never trusted from
// whatever page the caller selected from. The total is the exact decimal
// sum of the referenced orders.
type BuildInvoiceUseCase struct {
	db               TransactionManager
	orderRepo        OrderRepository
	invoiceRepo      InvoiceRepository
	cache            CacheInvalidator
	audit            AuditLogger
	logger           *zap.Logger
	txTimeout        time.Duration
	maxRetryAttempts int
}

func NewBuildInvoiceUseCase(
	db TransactionManager,
	orderRepo OrderRepository,
	invoiceRepo InvoiceRepository,
	cache CacheInvalidator,
	audit AuditLogger,
	logger *zap.Logger,
	txTimeout time.Duration,
	maxRetryAttempts int,
) *BuildInvoiceUseCase {
	return &BuildInvoiceUseCase{
		db:               db,
		orderRepo:        orderRepo,
		invoiceRepo:      invoiceRepo,
		cache:            cache,
		audit:            audit,
		logger:           logger,
		txTimeout:        txTimeout,
		maxRetryAttempts: maxRetryAttempts,
	}
}

func (uc *BuildInvoiceUseCase) BuildInvoice(ctx context.Context, customerID string, orderIDs []string, title string) (*domain.Invoice, error) {
	if err := validateBuildRequest(customerID, orderIDs, title); err != nil {
		return nil, err
	}
	ids := dedupe(orderIDs)

	invoice, err := uc.buildWithRetry(ctx, customerID, ids, title)
	if err != nil {
		return nil, err
	}

	// Payment eligibility of the linked orders changed; both entity types
	// may be serving stale pages now.
	uc.cache.InvalidatePrefix(query.KeyPrefix("orders"))
	uc.cache.InvalidatePrefix(query.KeyPrefix("invoices"))

	details := fmt.Sprintf("%d orders, total %s", len(invoice.OrderIDs), invoice.TotalAmount.StringFixed(2))
	uc.audit.LogActivity("invoice_created", "invoice", invoice.ID, &details)

	uc.logger.Info("invoice created",
		zap.String("invoiceId", invoice.ID),
		zap.String("customerId", customerID),
		zap.Int("orderCount", len(invoice.OrderIDs)),
		zap.String("totalAmount", invoice.TotalAmount.StringFixed(2)))

	return invoice, nil
}

// ListCandidates returns the customer's unpaid orders, optionally bounded
// by an inclusive creation-date range.
func (uc *BuildInvoiceUseCase) ListCandidates(ctx context.Context, customerID string, dateFrom, dateTo *time.Time) ([]domain.Order, error) {
	if customerID == "" {
		return nil, apperrors.NewValidationError("customerId is required", apperrors.ValidationDetail{
			Field:   "customerId",
			Message: "customerId is required",
		})
	}
	return uc.orderRepo.FindUnpaidByCustomer(ctx, customerID, dateFrom, dateTo)
}

func (uc *BuildInvoiceUseCase) buildWithRetry(ctx context.Context, customerID string, ids []string, title string) (*domain.Invoice, error) {
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		invoice, err := uc.buildOnce(ctx, customerID, ids, title)
		if err == nil {
			return invoice, nil
		}

		if isDeadlockError(err) {
			if attempt < uc.maxRetryAttempts {
				base := backoffs[(attempt-1)%len(backoffs)]
				jitter := time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
				time.Sleep(jitter)
				uc.logger.Warn("deadlock detected, retrying invoice build",
					zap.Int("attempt", attempt),
					zap.Int("maxAttempts", uc.maxRetryAttempts),
					zap.String("customerId", customerID))
				continue
			}
			break
		}

		return nil, err
	}

	return nil, apperrors.NewDeadlockError("max retries exceeded")
}

func (uc *BuildInvoiceUseCase) buildOnce(ctx context.Context, customerID string, ids []string, title string) (*domain.Invoice, error) {
	txCtx, cancel := context.WithTimeout(ctx, uc.txTimeout)
	defer cancel()

	tx, err := uc.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		uc.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	// Rollback is a no-op once committed.
	defer tx.Rollback()

	orders, err := uc.orderRepo.FindByIDsForUpdate(txCtx, tx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	total := decimal.Zero
	for _, id := range ids {
		order, ok := byID[id]
		if !ok {
			return nil, notEligible(id, "order not found")
		}
		if order.CustomerID != customerID {
			return nil, notEligible(id, "order belongs to a different customer")
		}
		if order.PaymentStatus != domain.PaymentStatusUnpaid {
			return nil, notEligible(id, "order is not unpaid")
		}
		total = total.Add(order.TotalAmount)
	}

	invoice := domain.Invoice{
		ID:            uuid.New().String(),
		InvoiceNumber: newInvoiceNumber(),
		CustomerID:    customerID,
		Title:         title,
		OrderIDs:      ids,
		TotalAmount:   total,
		Status:        domain.InvoiceStatusUnpaid,
		CreatedAt:     time.Now(),
	}

	if err := uc.invoiceRepo.Insert(txCtx, tx, invoice); err != nil {
		return nil, err
	}
	if err := uc.invoiceRepo.LinkOrders(txCtx, tx, invoice.ID, ids); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		uc.logger.Error("failed to commit invoice transaction", zap.Error(err))
		return nil, err
	}

	return &invoice, nil
}

func validateBuildRequest(customerID string, orderIDs []string, title string) error {
	var details []apperrors.ValidationDetail

	if customerID == "" {
		details = append(details, apperrors.ValidationDetail{
			Field:   "customerId",
			Message: "customerId is required",
		})
	}
	if len(orderIDs) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "orderIds",
			Message: "orderIds must not be empty",
		})
	}
	if strings.TrimSpace(title) == "" {
		details = append(details, apperrors.ValidationDetail{
			Field:   "title",
			Message: "title is required",
		})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

func notEligible(orderID, reason string) error {
	return apperrors.NewValidationError("order not eligible", apperrors.ValidationDetail{
		Field:   "orderIds",
		Message: fmt.Sprintf("%s: %s", orderID, reason),
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func newInvoiceNumber() string {
	return "INV-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
