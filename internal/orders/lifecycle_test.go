package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func orderIn(status enums.OrderStatus) *models.Order {
	return &models.Order{Status: status, PaymentStatus: enums.PaymentStatusPending}
}

func TestPlanStatusTransitionDesignedEdges(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
	}{
		{enums.OrderStatusProcessing, enums.OrderStatusShipped},
		{enums.OrderStatusProcessing, enums.OrderStatusCancelled},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered},
		{enums.OrderStatusShipped, enums.OrderStatusCancelled},
	}
	for _, tc := range cases {
		plan, err := PlanStatusTransition(orderIn(tc.from), tc.to, false)
		require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		assert.True(t, plan.Changed)
		assert.False(t, plan.Discouraged)
		assert.False(t, plan.Overridden)
	}
}

func TestPlanStatusTransitionForwardSkipIsDiscouraged(t *testing.T) {
	plan, err := PlanStatusTransition(orderIn(enums.OrderStatusProcessing), enums.OrderStatusDelivered, false)
	require.NoError(t, err)
	assert.True(t, plan.Changed)
	assert.True(t, plan.Discouraged)
	assert.False(t, plan.Overridden)
}

func TestPlanStatusTransitionSameStatusIsNoop(t *testing.T) {
	plan, err := PlanStatusTransition(orderIn(enums.OrderStatusShipped), enums.OrderStatusShipped, false)
	require.NoError(t, err)
	assert.False(t, plan.Changed)
}

func TestPlanStatusTransitionRejectsBackwardAndTerminal(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
	}{
		{enums.OrderStatusShipped, enums.OrderStatusProcessing},
		{enums.OrderStatusDelivered, enums.OrderStatusShipped},
		{enums.OrderStatusCancelled, enums.OrderStatusProcessing},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	}
	for _, tc := range cases {
		_, err := PlanStatusTransition(orderIn(tc.from), tc.to, false)
		require.Error(t, err, "%s -> %s", tc.from, tc.to)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

		plan, err := PlanStatusTransition(orderIn(tc.from), tc.to, true)
		require.NoError(t, err, "override %s -> %s", tc.from, tc.to)
		assert.True(t, plan.Overridden)
		assert.True(t, plan.Discouraged)
	}
}

func TestPlanStatusTransitionBlockedByReturn(t *testing.T) {
	order := orderIn(enums.OrderStatusDelivered)
	pending := enums.ReturnStatusPending
	order.ReturnStatus = &pending

	_, err := PlanStatusTransition(order, enums.OrderStatusCancelled, true)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestPlanStatusTransitionInvalidTarget(t *testing.T) {
	_, err := PlanStatusTransition(orderIn(enums.OrderStatusProcessing), enums.OrderStatus("lost"), false)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCheckReturnRequest(t *testing.T) {
	reason, err := CheckReturnRequest(orderIn(enums.OrderStatusDelivered), "  too small ")
	require.NoError(t, err)
	assert.Equal(t, "too small", reason)

	_, err = CheckReturnRequest(orderIn(enums.OrderStatusDelivered), "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = CheckReturnRequest(orderIn(enums.OrderStatusShipped), "too small")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	order := orderIn(enums.OrderStatusDelivered)
	rejected := enums.ReturnStatusRejected
	order.ReturnStatus = &rejected
	_, err = CheckReturnRequest(order, "again")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCheckReturnResolution(t *testing.T) {
	order := orderIn(enums.OrderStatusDelivered)
	err := CheckReturnResolution(order, enums.ReturnStatusApproved)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "no return on record")

	pending := enums.ReturnStatusPending
	order.ReturnStatus = &pending
	assert.NoError(t, CheckReturnResolution(order, enums.ReturnStatusApproved))
	assert.NoError(t, CheckReturnResolution(order, enums.ReturnStatusRejected))

	err = CheckReturnResolution(order, enums.ReturnStatusPending)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	approved := enums.ReturnStatusApproved
	order.ReturnStatus = &approved
	err = CheckReturnResolution(order, enums.ReturnStatusRejected)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCheckPaymentTransition(t *testing.T) {
	changed, err := CheckPaymentTransition(enums.PaymentStatusPending, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = CheckPaymentTransition(enums.PaymentStatusFailed, enums.PaymentStatusPending)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = CheckPaymentTransition(enums.PaymentStatusPaid, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = CheckPaymentTransition(enums.PaymentStatusRefunded, enums.PaymentStatusPaid)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = CheckPaymentTransition(enums.PaymentStatusPaid, enums.PaymentStatusPending)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = CheckPaymentTransition(enums.PaymentStatusPending, enums.PaymentStatus("bogus"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
