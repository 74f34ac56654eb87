// Package lifecycle holds the order, payment and table state machines.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/HanzKay/KrasandApps-V1/internal/enum"
)

var (
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrRoleNotAllowed       = errors.New("role not allowed to perform this transition")
	ErrPaymentRequired      = errors.New("order must be paid before it can be completed")
	ErrPaidOrderCancel      = errors.New("a paid order cannot be cancelled")
	ErrAlreadyPaid          = errors.New("order is already paid")
	ErrCancelledOrderPay    = errors.New("a cancelled order cannot be paid")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
)

type edge struct{ from, to string }

// orderTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
var orderTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusCompleted},
}

// transitionRoles lists the staff roles that drive each edge. Admin may drive any.
var transitionRoles = map[edge][]string{
	{enum.OrderStatusPending, enum.OrderStatusPreparing}:   {enum.RoleKitchen},
	{enum.OrderStatusPreparing, enum.OrderStatusReady}:     {enum.RoleKitchen},
	{enum.OrderStatusPending, enum.OrderStatusCancelled}:   {enum.RoleKitchen, enum.RoleCashier},
	{enum.OrderStatusPreparing, enum.OrderStatusCancelled}: {enum.RoleKitchen, enum.RoleCashier},
	{enum.OrderStatusReady, enum.OrderStatusCompleted}:     {enum.RoleCashier, enum.RoleWaiter},
}

// ValidateOrderTransition checks the shape of the transition only.
func ValidateOrderTransition(current, next string) error {
	for _, s := range orderTransitions[current] {
		if s == next {
			return nil
		}
	}
	if IsTerminal(current) {
		return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, current)
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, current, next)
}

// CheckOrderTransition validates a status change requested by role against
// the current status and payment status.
func CheckOrderTransition(current, next, paymentStatus, role string) error {
	if err := ValidateOrderTransition(current, next); err != nil {
		return err
	}
	if role != enum.RoleAdmin && !contains(transitionRoles[edge{current, next}], role) {
		return fmt.Errorf("%w: %s cannot move an order from %s to %s", ErrRoleNotAllowed, role, current, next)
	}
	if next == enum.OrderStatusCompleted && paymentStatus != enum.PaymentStatusPaid {
		return ErrPaymentRequired
	}
	if next == enum.OrderStatusCancelled && paymentStatus == enum.PaymentStatusPaid {
		return ErrPaidOrderCancel
	}
	return nil
}

// CanDrive reports whether role drives at least one order transition.
func CanDrive(role string) bool {
	if role == enum.RoleAdmin {
		return true
	}
	for _, roles := range transitionRoles {
		if contains(roles, role) {
			return true
		}
	}
	return false
}

// ValidatePayment checks the unpaid → paid transition.
func ValidatePayment(status, paymentStatus, method string) error {
	if !enum.IsPaymentMethod(method) {
		return ErrInvalidPaymentMethod
	}
	if paymentStatus == enum.PaymentStatusPaid {
		return ErrAlreadyPaid
	}
	if status == enum.OrderStatusCancelled {
		return ErrCancelledOrderPay
	}
	return nil
}

// StatusAfterPayment returns the order status once payment settles:
// settling a ready order fulfils it, anything else is left to the kitchen.
func StatusAfterPayment(status string) string {
	if status == enum.OrderStatusReady {
		return enum.OrderStatusCompleted
	}
	return status
}

// IsTerminal reports whether no further status transition is possible.
func IsTerminal(status string) bool {
	return status == enum.OrderStatusCompleted || status == enum.OrderStatusCancelled
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
