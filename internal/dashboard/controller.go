package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "absstitch/internal/errors"
	"absstitch/internal/query"
)

// Controller exposes per-session engine state and badge counts over HTTP.
// It is deliberately thin: all semantics live in the engines and tracker.
type Controller struct {
	registry *Registry
	logger   *zap.Logger
}

func NewController(registry *Registry, logger *zap.Logger) *Controller {
	return &Controller{
		registry: registry,
		logger:   logger,
	}
}

func (c *Controller) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	h, ok := c.section(w, r)
	if !ok {
		return
	}
	c.writeJSON(w, http.StatusOK, h.State())
}

func (c *Controller) HandleUpdateParams(w http.ResponseWriter, r *http.Request) {
	h, ok := c.section(w, r)
	if !ok {
		return
	}

	var patch query.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		c.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be a valid params patch")
		return
	}

	h.UpdateParams(patch)
	w.WriteHeader(http.StatusAccepted)
}

func (c *Controller) HandleRefetch(w http.ResponseWriter, r *http.Request) {
	h, ok := c.section(w, r)
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"
	h.Refetch(force)
	w.WriteHeader(http.StatusAccepted)
}

func (c *Controller) HandleBadgeCount(w http.ResponseWriter, r *http.Request) {
	session := c.registry.Get(chi.URLParam(r, "sessionId"))
	section := chi.URLParam(r, "section")

	count, err := session.Badges.BadgeCount(r.Context(), section)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			c.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		c.logger.Error("badge count failed", zap.String("section", section), zap.Error(err))
		c.writeError(w, http.StatusServiceUnavailable, "TRANSPORT_ERROR", "the data store is unreachable")
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]any{
		"section": section,
		"count":   count,
	})
}

func (c *Controller) HandleMarkSeen(w http.ResponseWriter, r *http.Request) {
	session := c.registry.Get(chi.URLParam(r, "sessionId"))
	section := chi.URLParam(r, "section")

	session.Badges.MarkSeen(section)
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) section(w http.ResponseWriter, r *http.Request) (engineHandle, bool) {
	session := c.registry.Get(chi.URLParam(r, "sessionId"))
	name := chi.URLParam(r, "section")

	h, ok := session.Section(name)
	if !ok {
		c.writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown dashboard section "+name)
		return nil, false
	}
	return h, true
}

func (c *Controller) writeError(w http.ResponseWriter, status int, code, message string) {
	c.writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
