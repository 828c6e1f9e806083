package order

import (
	"database/sql"

	"go.uber.org/zap"

	"absstitch/internal/notification"
	"absstitch/internal/order/controller"
	orderrepo "absstitch/internal/order/repository"
	"absstitch/internal/order/usecase"
	"absstitch/internal/query"
)

// NewModule wires the order lifecycle. The repository is returned as well
// because it doubles as the orders Fetcher and freshness counter.
func NewModule(db *sql.DB, cache *query.Cache, dispatcher *notification.Dispatcher, logger *zap.Logger) (*controller.TransitionController, *orderrepo.MySQLOrderRepository) {
	repo := orderrepo.NewMySQLOrderRepository(db)

	transitionUC := usecase.NewTransitionUseCase(repo, dispatcher, cache, logger)

	return controller.NewTransitionController(transitionUC, logger), repo
}
