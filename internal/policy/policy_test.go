package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubChecker struct {
	allowed bool
	err     error
}

func (s stubChecker) Can(context.Context, Actor, enums.Permission) (bool, error) {
	return s.allowed, s.err
}

func TestEveryOperationHasAnEntry(t *testing.T) {
	ops := []Operation{
		OpCheckout, OpListOwn, OpListAll, OpViewAny, OpRequestReturn,
		OpUpdateStatus, OpUpdateReturnStatus, OpUpdatePaymentStatus,
		OpDelete, OpClearAll, OpViewAnalytics, OpStreamEvents,
	}
	for _, op := range ops {
		_, ok := PermissionFor(op)
		assert.True(t, ok, "missing policy entry for %s", op)
	}
}

func TestRoleTable(t *testing.T) {
	cases := []struct {
		role  enums.Role
		perm  enums.Permission
		allow bool
	}{
		{enums.RoleAdmin, enums.PermissionOrderDeleteAll, true},
		{enums.RoleManager, enums.PermissionOrderEditStatus, true},
		{enums.RoleManager, enums.PermissionOrderDelete, false},
		{enums.RoleSupport, enums.PermissionOrderView, true},
		{enums.RoleSupport, enums.PermissionOrderEditStatus, false},
		{enums.RoleCustomer, enums.PermissionOrderView, false},
		{enums.Role("ghost"), enums.PermissionOrderView, false},
	}
	for _, tc := range cases {
		actor := Actor{UserID: uuid.New(), Role: tc.role}
		assert.Equal(t, tc.allow, actor.Can(tc.perm), "%s/%s", tc.role, tc.perm)
	}
}

func TestExplicitPermissionsOverrideRole(t *testing.T) {
	actor := Actor{UserID: uuid.New(), Role: enums.RoleAdmin, Permissions: []enums.Permission{enums.PermissionOrderView}}
	assert.True(t, actor.Can(enums.PermissionOrderView))
	assert.False(t, actor.Can(enums.PermissionOrderDelete))

	empty := Actor{UserID: uuid.New(), Role: enums.RoleAdmin, Permissions: []enums.Permission{}}
	assert.False(t, empty.Can(enums.PermissionOrderView))
}

func TestAuthorizeOutcomes(t *testing.T) {
	ctx := context.Background()
	p := New(nil)

	err := p.Authorize(ctx, Actor{}, OpListOwn)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	customer := Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	require.NoError(t, p.Authorize(ctx, customer, OpCheckout))

	err = p.Authorize(ctx, customer, OpUpdateStatus)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	err = p.Authorize(ctx, customer, Operation("orders.unknown"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestAuthorizeCheckerFailureIsDependency(t *testing.T) {
	p := New(stubChecker{err: context.DeadlineExceeded})
	actor := Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	err := p.Authorize(context.Background(), actor, OpDelete)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAllowed(t *testing.T) {
	ctx := context.Background()
	actor := Actor{UserID: uuid.New(), Role: enums.RoleCustomer}

	ok, err := New(nil).Allowed(ctx, actor, OpListAll)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = New(stubChecker{allowed: true}).Allowed(ctx, actor, OpListAll)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = New(stubChecker{err: errors.New("down")}).Allowed(ctx, actor, OpListAll)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
