package admin

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/policy"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// OrdersService is the staff slice of the orders service.
type OrdersService interface {
	UpdateStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, target enums.OrderStatus, expectedVersion *int64) (*orders.StatusUpdateResult, error)
	UpdateReturnStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, target enums.ReturnStatus, expectedVersion *int64) (*orders.OrderView, error)
	UpdatePaymentStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, target enums.PaymentStatus, expectedVersion *int64) (*orders.OrderView, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	ClearAll(ctx context.Context, actor policy.Actor, confirmed bool) (*orders.ClearResult, error)
}

type statusRequest struct {
	Status          string `json:"status" validate:"required"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,gte=1"`
}

type clearRequest struct {
	Confirm bool `json:"confirm"`
}

func UpdateStatus(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return withOrderStatusBody(svc, logg, func(r *http.Request, id uuid.UUID, req statusRequest) (any, error) {
		target, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").WithDetails(map[string]any{"field": "status"})
		}
		return svc.UpdateStatus(r.Context(), middleware.ActorFromContext(r.Context()), id, target, req.ExpectedVersion)
	})
}

func UpdateReturnStatus(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return withOrderStatusBody(svc, logg, func(r *http.Request, id uuid.UUID, req statusRequest) (any, error) {
		target, err := enums.ParseReturnStatus(req.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return status").WithDetails(map[string]any{"field": "status"})
		}
		return svc.UpdateReturnStatus(r.Context(), middleware.ActorFromContext(r.Context()), id, target, req.ExpectedVersion)
	})
}

func UpdatePaymentStatus(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return withOrderStatusBody(svc, logg, func(r *http.Request, id uuid.UUID, req statusRequest) (any, error) {
		target, err := enums.ParsePaymentStatus(req.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status").WithDetails(map[string]any{"field": "status"})
		}
		return svc.UpdatePaymentStatus(r.Context(), middleware.ActorFromContext(r.Context()), id, target, req.ExpectedVersion)
	})
}

// Delete removes one order. Deleting an order that is already gone is 404.
func Delete(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.ActorFromContext(r.Context()), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": orderID, "deleted": true})
	}
}

// ClearAll deletes every order that is not cancelled. The body must carry
// {"confirm": true}.
func ClearAll(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		var payload clearRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.ClearAll(r.Context(), middleware.ActorFromContext(r.Context()), payload.Confirm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func withOrderStatusBody(svc OrdersService, logg *logger.Logger, apply func(r *http.Request, id uuid.UUID, req statusRequest) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := apply(r, orderID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
