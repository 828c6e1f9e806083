package design

import (
	"database/sql"

	"go.uber.org/zap"

	"absstitch/internal/design/controller"
	designrepo "absstitch/internal/design/repository"
	"absstitch/internal/query"
)

// NewModule wires the design catalog. The repository is returned as well
// because it doubles as the designs Fetcher and freshness counter.
func NewModule(db *sql.DB, cache *query.Cache, logger *zap.Logger) (*controller.DesignController, *designrepo.MySQLDesignRepository) {
	repo := designrepo.NewMySQLDesignRepository(db)

	return controller.NewDesignController(repo, cache, logger), repo
}
