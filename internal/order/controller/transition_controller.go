package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"absstitch/internal/domain"
	apperrors "absstitch/internal/errors"
	"absstitch/internal/order/usecase"
)

type TransitionUseCase interface {
	Transition(ctx context.Context, req usecase.TransitionRequest) (*domain.Order, error)
}

type TransitionController struct {
	useCase TransitionUseCase
	logger  *zap.Logger
}

func NewTransitionController(useCase TransitionUseCase, logger *zap.Logger) *TransitionController {
	return &TransitionController{
		useCase: useCase,
		logger:  logger,
	}
}

type transitionRequestBody struct {
	Action       string `json:"action"`
	Role         string `json:"role,omitempty"`
	AssigneeID   string `json:"assigneeId,omitempty"`
	TargetStatus string `json:"targetStatus,omitempty"`
}

type orderResponse struct {
	ID                 string    `json:"id"`
	OrderNumber        string    `json:"orderNumber"`
	CustomerID         string    `json:"customerId"`
	Status             string    `json:"status"`
	AssignedSalesRepID *string   `json:"assignedSalesRepId,omitempty"`
	AssignedDesignerID *string   `json:"assignedDesignerId,omitempty"`
	AssignedRole       *string   `json:"assignedRole,omitempty"`
	TotalAmount        string    `json:"totalAmount"`
	PaymentStatus      string    `json:"paymentStatus"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (c *TransitionController) HandleTransition(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		c.writeValidationError(w, "invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId is required",
		})
		return
	}

	var body transitionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validateTransitionBody(body); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	result, err := c.useCase.Transition(r.Context(), usecase.TransitionRequest{
		OrderID:      orderID,
		Action:       body.Action,
		Role:         domain.AssignedRole(body.Role),
		AssigneeID:   body.AssigneeID,
		TargetStatus: domain.OrderStatus(body.TargetStatus),
	})
	if err != nil {
		c.handleUseCaseError(w, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, toOrderResponse(*result))
}

func validateTransitionBody(body transitionRequestBody) error {
	var details []apperrors.ValidationDetail

	switch body.Action {
	case usecase.ActionAssign:
		if body.AssigneeID == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   "assigneeId",
				Message: "assigneeId is required for assign",
			})
		}
		if body.Role != string(domain.RoleSalesRep) && body.Role != string(domain.RoleDesigner) {
			details = append(details, apperrors.ValidationDetail{
				Field:   "role",
				Message: "role must be sales_rep or designer",
			})
		}
	case usecase.ActionSetStatus:
		if body.TargetStatus == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   "targetStatus",
				Message: "targetStatus is required for set_status",
			})
		}
	default:
		details = append(details, apperrors.ValidationDetail{
			Field:   "action",
			Message: "action must be assign or set_status",
		})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

func (c *TransitionController) handleUseCaseError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if _, ok := apperrors.IsInvalidTransitionError(err); ok {
		c.writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
		return
	}
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
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

func toOrderResponse(o domain.Order) orderResponse {
	var role *string
	if o.AssignedRole != nil {
		s := string(*o.AssignedRole)
		role = &s
	}
	return orderResponse{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		CustomerID:         o.CustomerID,
		Status:             string(o.Status),
		AssignedSalesRepID: o.AssignedSalesRepID,
		AssignedDesignerID: o.AssignedDesignerID,
		AssignedRole:       role,
		TotalAmount:        o.TotalAmount.StringFixed(2),
		PaymentStatus:      string(o.PaymentStatus),
		CreatedAt:          o.CreatedAt,
	}
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *TransitionController) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *TransitionController) writeError(w http.ResponseWriter, status int, code, message string) {
	c.writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

func (c *TransitionController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
