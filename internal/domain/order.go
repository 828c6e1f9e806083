package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"absstitch/internal/errors"
)

type OrderStatus string

const (
	OrderStatusNew         OrderStatus = "new"
	OrderStatusInProgress  OrderStatus = "in_progress"
	OrderStatusUnderReview OrderStatus = "under_review"
	OrderStatusCompleted   OrderStatus = "completed"
	OrderStatusCancelled   OrderStatus = "cancelled"
)

type AssignedRole string

const (
	RoleSalesRep AssignedRole = "sales_rep"
	RoleDesigner AssignedRole = "designer"
)

type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusUnpaid PaymentStatus = "unpaid"
)

type Order struct {
	ID                 string
	OrderNumber        string
	CustomerID         string
	Status             OrderStatus
	AssignedSalesRepID *string
	AssignedDesignerID *string
	AssignedRole       *AssignedRole
	TotalAmount        decimal.Decimal
	PaymentStatus      PaymentStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// statusTransitions is the single source of truth for legal status moves.
// Terminal states have no outgoing edges.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:         {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress:  {OrderStatusUnderReview, OrderStatusCancelled},
	OrderStatusUnderReview: {OrderStatusCompleted, OrderStatusCancelled},
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusInProgress, OrderStatusUnderReview,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SetStatus returns a copy of the order moved to target, or fails with
// InvalidTransitionError when the move is not in the transition table.
func (o Order) SetStatus(target OrderStatus) (Order, error) {
	if !target.IsValid() {
		return o, errors.NewInvalidTransitionError(string(o.Status), string(target),
			fmt.Sprintf("unknown status %q", target))
	}
	if !CanTransition(o.Status, target) {
		return o, errors.NewInvalidTransitionError(string(o.Status), string(target),
			fmt.Sprintf("cannot transition order from %s to %s", o.Status, target))
	}
	o.Status = target
	return o, nil
}

// Assign sets exactly one assignee on an order in status new. Assigning one
// role clears the other, so AssignedRole always names the populated ID.
// Target defaults to in_progress; an explicit target must still be a legal
// move from new.
func (o Order) Assign(role AssignedRole, userID string, target OrderStatus) (Order, error) {
	if userID == "" {
		return o, errors.NewInvalidTransitionError(string(o.Status), string(target),
			"assignee id is required")
	}
	if o.Status != OrderStatusNew {
		return o, errors.NewInvalidTransitionError(string(o.Status), string(target),
			fmt.Sprintf("cannot assign order in status %s", o.Status))
	}
	if target == "" {
		target = OrderStatusInProgress
	}
	if !CanTransition(OrderStatusNew, target) {
		return o, errors.NewInvalidTransitionError(string(o.Status), string(target),
			fmt.Sprintf("cannot transition order from %s to %s", o.Status, target))
	}

	switch role {
	case RoleSalesRep:
		o.AssignedSalesRepID = &userID
		o.AssignedDesignerID = nil
	case RoleDesigner:
		o.AssignedDesignerID = &userID
		o.AssignedSalesRepID = nil
	default:
		return o, errors.NewInvalidTransitionError(string(o.Status), string(target),
			fmt.Sprintf("unknown role %q", role))
	}
	r := role
	o.AssignedRole = &r
	o.Status = target
	return o, nil
}

// AssignedUserID returns the populated assignee, if any.
func (o Order) AssignedUserID() (string, bool) {
	if o.AssignedSalesRepID != nil {
		return *o.AssignedSalesRepID, true
	}
	if o.AssignedDesignerID != nil {
		return *o.AssignedDesignerID, true
	}
	return "", false
}

// Validate checks the assignment invariant: at most one assignee ID set, and
// AssignedRole present exactly when one is, naming the populated side.
func (o Order) Validate() error {
	if o.AssignedSalesRepID != nil && o.AssignedDesignerID != nil {
		return errors.NewValidationError("order has both sales rep and designer assigned")
	}
	switch {
	case o.AssignedRole == nil:
		if o.AssignedSalesRepID != nil || o.AssignedDesignerID != nil {
			return errors.NewValidationError("order has an assignee but no assigned role")
		}
	case *o.AssignedRole == RoleSalesRep:
		if o.AssignedSalesRepID == nil {
			return errors.NewValidationError("assigned role is sales_rep but no sales rep is set")
		}
	case *o.AssignedRole == RoleDesigner:
		if o.AssignedDesignerID == nil {
			return errors.NewValidationError("assigned role is designer but no designer is set")
		}
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown assigned role %q", *o.AssignedRole))
	}
	if o.TotalAmount.IsNegative() {
		return errors.NewValidationError("order total amount must not be negative")
	}
	return nil
}
