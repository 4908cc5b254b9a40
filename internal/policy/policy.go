// Package policy maps order operations to the permissions that gate them and
// evaluates those gates once per request.
package policy

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Operation names a facade entry point.
type Operation string

const (
	OpCheckout            Operation = "orders.checkout"
	OpListOwn             Operation = "orders.list_own"
	OpListAll             Operation = "orders.list_all"
	OpViewAny             Operation = "orders.view_any"
	OpRequestReturn       Operation = "orders.request_return"
	OpUpdateStatus        Operation = "orders.update_status"
	OpUpdateReturnStatus  Operation = "orders.update_return_status"
	OpUpdatePaymentStatus Operation = "orders.update_payment_status"
	OpDelete              Operation = "orders.delete"
	OpClearAll            Operation = "orders.clear_all"
	OpViewAnalytics       Operation = "analytics.view"
	OpStreamEvents        Operation = "orders.stream_events"
)

// operationPermissions is the single source of truth for gating. An empty
// permission means any authenticated caller may attempt the operation;
// ownership is then checked against the order itself.
var operationPermissions = map[Operation]enums.Permission{
	OpCheckout:            "",
	OpListOwn:             "",
	OpRequestReturn:       "",
	OpListAll:             enums.PermissionOrderView,
	OpViewAny:             enums.PermissionOrderView,
	OpViewAnalytics:       enums.PermissionOrderView,
	OpStreamEvents:        enums.PermissionOrderView,
	OpUpdateStatus:        enums.PermissionOrderEditStatus,
	OpUpdateReturnStatus:  enums.PermissionOrderEditStatus,
	OpUpdatePaymentStatus: enums.PermissionOrderEditStatus,
	OpDelete:              enums.PermissionOrderDelete,
	OpClearAll:            enums.PermissionOrderDeleteAll,
}

// rolePermissions applies when a token carries no explicit permission list.
var rolePermissions = map[enums.Role][]enums.Permission{
	enums.RoleAdmin: enums.Permissions(),
	enums.RoleManager: {
		enums.PermissionOrderView,
		enums.PermissionOrderEditStatus,
		enums.PermissionReviewView,
	},
	enums.RoleSupport: {
		enums.PermissionOrderView,
		enums.PermissionReviewView,
		enums.PermissionUserView,
	},
	enums.RoleCustomer: nil,
}

// PermissionFor returns the permission gating op and whether op is known.
func PermissionFor(op Operation) (enums.Permission, bool) {
	perm, ok := operationPermissions[op]
	return perm, ok
}

// Actor is the authenticated caller as reported by the auth service.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
	// Permissions, when non-nil, overrides the role table.
	Permissions []enums.Permission
}

// Anonymous reports whether the actor carries no identity.
func (a Actor) Anonymous() bool {
	return a.UserID == uuid.Nil
}

// Can reports whether the actor holds perm.
func (a Actor) Can(perm enums.Permission) bool {
	if perm == "" {
		return true
	}
	granted := a.Permissions
	if granted == nil {
		granted = rolePermissions[a.Role]
	}
	for _, p := range granted {
		if p == perm {
			return true
		}
	}
	return false
}

// Checker is the external capability check. Implementations backed by a
// remote service must honour ctx deadlines.
type Checker interface {
	Can(ctx context.Context, actor Actor, perm enums.Permission) (bool, error)
}

// ClaimsChecker answers from the permissions carried by the actor itself.
type ClaimsChecker struct{}

func (ClaimsChecker) Can(_ context.Context, actor Actor, perm enums.Permission) (bool, error) {
	return actor.Can(perm), nil
}

// Policy evaluates operation gates.
type Policy struct {
	checker Checker
}

// New returns a Policy. A nil checker falls back to ClaimsChecker.
func New(checker Checker) *Policy {
	if checker == nil {
		checker = ClaimsChecker{}
	}
	return &Policy{checker: checker}
}

// Authorize returns nil when actor may perform op. Denials carry
// CodeForbidden, missing identity CodeUnauthorized, and checker failures
// CodeDependency so callers can tell them apart.
func (p *Policy) Authorize(ctx context.Context, actor Actor, op Operation) error {
	if actor.Anonymous() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	perm, ok := operationPermissions[op]
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "operation %s is not permitted", op)
	}
	if perm == "" {
		return nil
	}
	allowed, err := p.checker.Can(ctx, actor, perm)
	if err != nil {
		return pkgerrors.WrapStorage(err, "permission check failed")
	}
	if !allowed {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "missing permission %s", perm).
			WithDetails(map[string]any{"operation": op, "permission": perm})
	}
	return nil
}

// Allowed is Authorize collapsed to a boolean for scope decisions such as
// choosing between the broad and the owner-only listing. Checker failures
// still surface as errors.
func (p *Policy) Allowed(ctx context.Context, actor Actor, op Operation) (bool, error) {
	err := p.Authorize(ctx, actor, op)
	switch {
	case err == nil:
		return true, nil
	case pkgerrors.IsCode(err, pkgerrors.CodeForbidden):
		return false, nil
	default:
		return false, err
	}
}
