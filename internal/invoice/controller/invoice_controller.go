package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"absstitch/internal/domain"
	apperrors "absstitch/internal/errors"
)

type BuildInvoiceUseCase interface {
	BuildInvoice(ctx context.Context, customerID string, orderIDs []string, title string) (*domain.Invoice, error)
	ListCandidates(ctx context.Context, customerID string, dateFrom, dateTo *time.Time) ([]domain.Order, error)
}

type InvoiceController struct {
	useCase BuildInvoiceUseCase
	logger  *zap.Logger
}

func NewInvoiceController(useCase BuildInvoiceUseCase, logger *zap.Logger) *InvoiceController {
	return &InvoiceController{
		useCase: useCase,
		logger:  logger,
	}
}

type buildInvoiceRequest struct {
	CustomerID string   `json:"customerId"`
	OrderIDs   []string `json:"orderIds"`
	Title      string   `json:"title"`
}

type invoiceResponse struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoiceNumber"`
	CustomerID    string    `json:"customerId"`
	Title         string    `json:"title"`
	OrderIDs      []string  `json:"orderIds"`
	TotalAmount   string    `json:"totalAmount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

type candidateResponse struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"orderNumber"`
	TotalAmount string    `json:"totalAmount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c *InvoiceController) HandleBuildInvoice(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req buildInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	invoice, err := c.useCase.BuildInvoice(r.Context(), req.CustomerID, req.OrderIDs, req.Title)
	if err != nil {
		c.handleUseCaseError(w, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, invoiceResponse{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerID:    invoice.CustomerID,
		Title:         invoice.Title,
		OrderIDs:      invoice.OrderIDs,
		TotalAmount:   invoice.TotalAmount.StringFixed(2),
		Status:        string(invoice.Status),
		CreatedAt:     invoice.CreatedAt,
	})
}

func (c *InvoiceController) HandleListCandidates(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	customerID := r.URL.Query().Get("customerId")

	dateFrom, err := parseDateParam(r.URL.Query().Get("dateFrom"))
	if err != nil {
		c.writeValidationError(w, "invalid dateFrom", apperrors.ValidationDetail{
			Field:   "dateFrom",
			Message: "dateFrom must be an RFC 3339 timestamp",
		})
		return
	}
	dateTo, err := parseDateParam(r.URL.Query().Get("dateTo"))
	if err != nil {
		c.writeValidationError(w, "invalid dateTo", apperrors.ValidationDetail{
			Field:   "dateTo",
			Message: "dateTo must be an RFC 3339 timestamp",
		})
		return
	}

	orders, err := c.useCase.ListCandidates(r.Context(), customerID, dateFrom, dateTo)
	if err != nil {
		c.handleUseCaseError(w, err, logger)
		return
	}

	candidates := make([]candidateResponse, 0, len(orders))
	for _, o := range orders {
		candidates = append(candidates, candidateResponse{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			TotalAmount: o.TotalAmount.StringFixed(2),
			CreatedAt:   o.CreatedAt,
		})
	}

	c.writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *InvoiceController) handleUseCaseError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}
	if _, ok := apperrors.IsDeadlockError(err); ok {
		c.writeError(w, http.StatusConflict, "DEADLOCK", err.Error())
		return
	}
	if _, ok := apperrors.IsTransportError(err); ok {
		logger.Error("store unreachable", zap.Error(err))
		c.writeError(w, http.StatusServiceUnavailable, "TRANSPORT_ERROR", "the data store is unreachable")
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *InvoiceController) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *InvoiceController) writeError(w http.ResponseWriter, status int, code, message string) {
	c.writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

func (c *InvoiceController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
