package invoice

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"absstitch/internal/invoice/controller"
	invoicerepo "absstitch/internal/invoice/repository"
	"absstitch/internal/invoice/usecase"
	"absstitch/internal/notification"
	orderrepo "absstitch/internal/order/repository"
	"absstitch/internal/query"
)

const (
	buildTxTimeout   = 5 * time.Second
	maxRetryAttempts = 3
)

func NewModule(
	db *sql.DB,
	orderRepo *orderrepo.MySQLOrderRepository,
	cache *query.Cache,
	dispatcher *notification.Dispatcher,
	logger *zap.Logger,
) (*controller.InvoiceController, *invoicerepo.MySQLInvoiceRepository) {
	repo := invoicerepo.NewMySQLInvoiceRepository(db)

	buildUC := usecase.NewBuildInvoiceUseCase(
		db,
		orderRepo,
		repo,
		cache,
		dispatcher,
		logger,
		buildTxTimeout,
		maxRetryAttempts,
	)

	return controller.NewInvoiceController(buildUC, logger), repo
}
