package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"absstitch/internal/domain"
	apperrors "absstitch/internal/errors"
	"absstitch/internal/query"
)

const (
	ActionAssign    = "assign"
	ActionSetStatus = "set_status"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	ApplyTransition(ctx context.Context, order domain.Order) error
}

type Notifier interface {
	Notify(userID, title, message string, relatedID *string)
	LogActivity(action, resourceType, resourceID string, details *string)
}

type CacheInvalidator interface {
	InvalidatePrefix(prefix string)
}

type TransitionRequest struct {
	OrderID      string
	Action       string
	Role         domain.AssignedRole
	AssigneeID   string
	TargetStatus domain.OrderStatus
}

// TransitionUseCase is the only write path for order status and assignment.
// It loads the current row, applies the lifecycle rules, persists the
// result, then fires notification and audit best-effort and invalidates
// cached order pages.
type TransitionUseCase struct {
	orderRepo OrderRepository
	notifier  Notifier
	cache     CacheInvalidator
	logger    *zap.Logger
}

func NewTransitionUseCase(orderRepo OrderRepository, notifier Notifier, cache CacheInvalidator, logger *zap.Logger) *TransitionUseCase {
	return &TransitionUseCase{
		orderRepo: orderRepo,
		notifier:  notifier,
		cache:     cache,
		logger:    logger,
	}
}

func (uc *TransitionUseCase) Transition(ctx context.Context, req TransitionRequest) (*domain.Order, error) {
	order, err := uc.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	var next domain.Order
	switch req.Action {
	case ActionAssign:
		next, err = order.Assign(req.Role, req.AssigneeID, req.TargetStatus)
	case ActionSetStatus:
		next, err = order.SetStatus(req.TargetStatus)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown action %q", req.Action))
	}
	if err != nil {
		// Illegal transition: entity unchanged, rule surfaced untouched.
		return nil, err
	}

	if err := uc.orderRepo.ApplyTransition(ctx, next); err != nil {
		return nil, err
	}

	uc.cache.InvalidatePrefix(query.KeyPrefix("orders"))

	uc.logger.Info("order transitioned",
		zap.String("orderId", next.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next.Status)))

	if userID, ok := next.AssignedUserID(); ok {
		uc.notifier.Notify(userID,
			fmt.Sprintf("Order %s assigned to you", next.OrderNumber),
			fmt.Sprintf("Order %s is now %s", next.OrderNumber, next.Status),
			&next.ID)
	}
	details := fmt.Sprintf("%s -> %s", order.Status, next.Status)
	uc.notifier.LogActivity("order_transition", "order", next.ID, &details)

	return &next, nil
}
