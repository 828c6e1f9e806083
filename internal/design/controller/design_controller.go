package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "absstitch/internal/errors"
	"absstitch/internal/query"
)

type DesignRepository interface {
	SetActive(ctx context.Context, id string, active bool) error
}

type CacheInvalidator interface {
	InvalidatePrefix(prefix string)
}

type DesignController struct {
	repo   DesignRepository
	cache  CacheInvalidator
	logger *zap.Logger
}

func NewDesignController(repo DesignRepository, cache CacheInvalidator, logger *zap.Logger) *DesignController {
	return &DesignController{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive"`
}

func (c *DesignController) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	designID := chi.URLParam(r, "designId")

	var body setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsActive == nil {
		c.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "body must carry an isActive boolean")
		return
	}

	if err := c.repo.SetActive(r.Context(), designID, *body.IsActive); err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			c.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		logger.Error("updating design visibility failed", zap.String("designId", designID), zap.Error(err))
		c.writeError(w, http.StatusServiceUnavailable, "TRANSPORT_ERROR", "the data store is unreachable")
		return
	}

	c.cache.InvalidatePrefix(query.KeyPrefix("designs"))
	w.WriteHeader(http.StatusNoContent)
}

func (c *DesignController) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	}); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
