package orders

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// orderStateTransitions lists the designed edges. Anything else is either a
// discouraged forward skip or a rejected move.
var orderStateTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	enums.OrderStatusDelivered:  {},
	enums.OrderStatusCancelled:  {},
}

var paymentStateTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending:  {enums.PaymentStatusPaid, enums.PaymentStatusFailed},
	enums.PaymentStatusFailed:   {enums.PaymentStatusPending, enums.PaymentStatusPaid},
	enums.PaymentStatusPaid:     {enums.PaymentStatusRefunded},
	enums.PaymentStatusRefunded: {},
}

// StatusTransition describes a planned status move.
type StatusTransition struct {
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Changed     bool              `json:"changed"`
	Discouraged bool              `json:"discouraged"`
	Overridden  bool              `json:"overridden"`
}

func canTransition(from, to enums.OrderStatus) bool {
	for _, next := range orderStateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// isForwardSkip is a move further along processing→shipped→delivered that
// jumps over an intermediate state.
func isForwardSkip(from, to enums.OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	fromRank, ok := from.Rank()
	if !ok {
		return false
	}
	toRank, ok := to.Rank()
	return ok && toRank > fromRank+1
}

// PlanStatusTransition decides whether order may move to target.
//
// Designed edges are allowed. Forward skips are allowed and flagged
// discouraged. Backward moves and moves out of a terminal state are rejected
// unless allowOverride is set, in which case they are flagged overridden.
// An order with a return on record never leaves delivered.
func PlanStatusTransition(order *models.Order, target enums.OrderStatus, allowOverride bool) (StatusTransition, error) {
	plan := StatusTransition{From: order.Status, To: target}
	if !target.IsValid() {
		return plan, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", target)
	}
	if order.Status == target {
		return plan, nil
	}
	if order.ReturnStatus != nil {
		return plan, pkgerrors.New(pkgerrors.CodeStateConflict, "order has a return on record and cannot change status").
			WithDetails(map[string]any{"from": order.Status, "to": target, "return_status": *order.ReturnStatus})
	}

	plan.Changed = true
	switch {
	case canTransition(order.Status, target):
	case isForwardSkip(order.Status, target):
		plan.Discouraged = true
	case allowOverride:
		plan.Discouraged = true
		plan.Overridden = true
	default:
		return StatusTransition{From: order.Status, To: target}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", order.Status, target).
			WithDetails(map[string]any{"from": order.Status, "to": target, "allowed": orderStateTransitions[order.Status]})
	}
	return plan, nil
}

// CheckReturnRequest validates a customer return request and returns the
// normalised reason.
func CheckReturnRequest(order *models.Order, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "return reason is required").
			WithDetails(map[string]string{"field": "reason"})
	}
	if order.Status != enums.OrderStatusDelivered {
		return "", pkgerrors.Newf(pkgerrors.CodeStateConflict, "returns can only be requested for delivered orders, order is %s", order.Status)
	}
	if order.ReturnStatus != nil {
		return "", pkgerrors.Newf(pkgerrors.CodeStateConflict, "a return is already %s for this order", *order.ReturnStatus)
	}
	return reason, nil
}

// CheckReturnResolution validates an admin decision on a pending return.
func CheckReturnResolution(order *models.Order, target enums.ReturnStatus) error {
	if !target.IsResolution() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "return status must be approved or rejected, got %q", target)
	}
	if order.ReturnStatus == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no return request")
	}
	if *order.ReturnStatus != enums.ReturnStatusPending {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "return already %s", *order.ReturnStatus)
	}
	return nil
}

// CheckPaymentTransition reports whether the payment status may change.
// The bool result is false for a no-op.
func CheckPaymentTransition(from, to enums.PaymentStatus) (bool, error) {
	if !to.IsValid() {
		return false, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", to)
	}
	if from == to {
		return false, nil
	}
	for _, next := range paymentStateTransitions[from] {
		if next == to {
			return true, nil
		}
	}
	return false, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move payment from %s to %s", from, to)
}
