package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/policy"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Options are the configurable business rules.
type Options struct {
	// AllowStatusOverride permits backward moves and moves out of terminal
	// states. They are still flagged on the transition.
	AllowStatusOverride  bool
	EnabledGateways      []enums.PaymentGateway
	DefaultPaymentStatus enums.PaymentStatus
	MaxLines             int
}

// ServiceParams wires the facade. Stock, Observer and Logger are optional.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outbox.Emitter
	Policy   *policy.Policy
	Quoter   Quoter
	Stock    StockChecker
	Observer Observer
	Logger   *logger.Logger
	Options  Options
}

// Service is the permission-gated facade over the order aggregate.
type Service struct {
	repo     Repository
	tx       txRunner
	outbox   outbox.Emitter
	policy   *policy.Policy
	quoter   Quoter
	stock    StockChecker
	observer Observer
	logg     *logger.Logger
	opts     Options
	now      func() time.Time
}

// NewService builds the orders facade with the required dependencies.
func NewService(p ServiceParams) (*Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Policy == nil {
		return nil, fmt.Errorf("policy required")
	}
	if p.Quoter == nil {
		return nil, fmt.Errorf("quoter required")
	}
	if len(p.Options.EnabledGateways) == 0 {
		return nil, fmt.Errorf("at least one payment gateway required")
	}
	if p.Options.DefaultPaymentStatus == "" {
		p.Options.DefaultPaymentStatus = enums.PaymentStatusPending
	}
	if !p.Options.DefaultPaymentStatus.IsValid() {
		return nil, fmt.Errorf("invalid default payment status %q", p.Options.DefaultPaymentStatus)
	}
	if p.Observer == nil {
		p.Observer = nopObserver{}
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Service{
		repo:     p.Repo,
		tx:       p.Tx,
		outbox:   p.Outbox,
		policy:   p.Policy,
		quoter:   p.Quoter,
		stock:    p.Stock,
		observer: p.Observer,
		logg:     p.Logger,
		opts:     p.Options,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Get returns one order. Owners always see their own orders; anyone else
// needs order_view.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (view *OrderView, err error) {
	defer func() { s.observer.ObserveOperation("get", err) }()

	if err := s.policy.Authorize(ctx, actor, policy.OpListOwn); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID {
		if err := s.policy.Authorize(ctx, actor, policy.OpViewAny); err != nil {
			return nil, err
		}
	}
	v := NewOrderView(order)
	return &v, nil
}

// List returns every order for callers holding order_view and only the
// caller's own orders otherwise.
func (s *Service) List(ctx context.Context, actor policy.Actor, params ListParams) (list *OrderList, err error) {
	defer func() { s.observer.ObserveOperation("list", err) }()

	if err := s.policy.Authorize(ctx, actor, policy.OpListOwn); err != nil {
		return nil, err
	}
	broad, err := s.policy.Allowed(ctx, actor, policy.OpListAll)
	if err != nil {
		return nil, err
	}

	filter := ListFilter{Status: params.Status}
	scope := ListScopeAll
	if !broad {
		owner := actor.UserID
		filter.UserID = &owner
		scope = ListScopeOwn
	}

	page := pagination.Params{Limit: params.Limit, Cursor: params.Cursor, Scope: filter.Key()}
	if _, err := pagination.ParseCursor(page.Cursor, page.Scope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.WrapStorage(err, "list orders")
	}

	out := &OrderList{Scope: scope, Orders: make([]OrderView, 0, len(rows)), NextCursor: next}
	for i := range rows {
		out.Orders = append(out.Orders, NewOrderView(&rows[i]))
	}
	return out, nil
}

// UpdateStatus moves the order along its lifecycle. Setting the current
// status is a no-op reported through Transition.Changed.
func (s *Service) UpdateStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, target enums.OrderStatus, expectedVersion *int64) (res *StatusUpdateResult, err error) {
	const op = "update_status"
	defer func() { s.observer.ObserveOperation(op, err) }()

	if err := s.policy.Authorize(ctx, actor, policy.OpUpdateStatus); err != nil {
		return nil, err
	}

	var plan StatusTransition
	order, err := s.mutate(ctx, op, id, expectedVersion, func(order *models.Order) (*mutation, error) {
		var err error
		plan, err = PlanStatusTransition(order, target, s.opts.AllowStatusOverride)
		if err != nil || !plan.Changed {
			return nil, err
		}
		now := s.now()
		return &mutation{
			updates: map[string]any{"status": target, "status_changed_at": now},
			event: &outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				OccurredAt:    now,
				Data: payloads.OrderStatusChangedEvent{
					OrderID:     order.ID,
					From:        plan.From,
					To:          plan.To,
					Discouraged: plan.Discouraged,
					Overridden:  plan.Overridden,
					Version:     order.Version + 1,
				},
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if plan.Changed {
		s.observer.ObserveTransition(plan.From, plan.To, plan.Discouraged)
	}
	if plan.Discouraged {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   order.ID.String(),
			"from":       plan.From,
			"to":         plan.To,
			"overridden": plan.Overridden,
		})
		s.logg.Warn(logCtx, "orders.status.discouraged_transition")
	}
	return &StatusUpdateResult{Order: NewOrderView(order), Transition: plan}, nil
}

// RequestReturn opens a return on a delivered order. Only the owner may ask.
func (s *Service) RequestReturn(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string, expectedVersion *int64) (view *OrderView, err error) {
	const op = "request_return"
	defer func() { s.observer.ObserveOperation(op, err) }()

	if err := s.policy.Authorize(ctx, actor, policy.OpRequestReturn); err != nil {
		return nil, err
	}

	order, err := s.mutate(ctx, op, id, expectedVersion, func(order *models.Order) (*mutation, error) {
		if order.UserID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the order owner can request a return")
		}
		normalized, err := CheckReturnRequest(order, reason)
		if err != nil {
			return nil, err
		}
		now := s.now()
		return &mutation{
			updates: map[string]any{
				"return_status":       enums.ReturnStatusPending,
				"return_reason":       normalized,
				"return_requested_at": now,
			},
			event: &outbox.DomainEvent{
				EventType:     enums.EventOrderReturnRequested,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				OccurredAt:    now,
				Data: payloads.OrderReturnRequestedEvent{
					OrderID: order.ID,
					UserID:  order.UserID,
					Reason:  normalized,
					Version: order.Version + 1,
				},
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	v := NewOrderView(order)
	return &v, nil
}

// UpdateReturnStatus approves or rejects a pending return.
func (s *Service) UpdateReturnStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, target enums.ReturnStatus, expectedVersion *int64) (view *OrderView, err error) {
	const op = "update_return_status"
	defer func() { s.observer.ObserveOperation(op, err) }()

	if err := s.policy.Authorize(ctx, actor, policy.OpUpdateReturnStatus); err != nil {
		return nil, err
	}

	order, err := s.mutate(ctx, op, id, expectedVersion, func(order *models.Order) (*mutation, error) {
		if err := CheckReturnResolution(order, target); err != nil {
			return nil, err
		}
		now := s.now()
		return &mutation{
			updates: map[string]any{"return_status": target, "return_resolved_at": now},
			event: &outbox.DomainEvent{
				EventType:     enums.EventOrderReturnResolved,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				OccurredAt:    now,
				Data: payloads.OrderReturnResolvedEvent{
					OrderID:      order.ID,
					ReturnStatus: target,
					Version:      order.Version + 1,
				},
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	v := NewOrderView(order)
	return &v, nil
}

// UpdatePaymentStatus records a settlement outcome reported by the payments team.
func (s *Service) UpdatePaymentStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, target enums.PaymentStatus, expectedVersion *int64) (view *OrderView, err error) {
	const op = "update_payment_status"
	defer func() { s.observer.ObserveOperation(op, err) }()

	if err := s.policy.Authorize(ctx, actor, policy.OpUpdatePaymentStatus); err != nil {
		return nil, err
	}

	order, err := s.mutate(ctx, op, id, expectedVersion, func(order *models.Order) (*mutation, error) {
		changed, err := CheckPaymentTransition(order.PaymentStatus, target)
		if err != nil || !changed {
			return nil, err
		}
		return &mutation{
			updates: map[string]any{"payment_status": target},
			event: &outbox.DomainEvent{
				EventType:     enums.EventOrderPaymentStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				OccurredAt:    s.now(),
				Data: payloads.OrderPaymentStatusChangedEvent{
					OrderID: order.ID,
					From:    order.PaymentStatus,
					To:      target,
					Version: order.Version + 1,
				},
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	v := NewOrderView(order)
	return &v, nil
}

// Delete removes one order permanently. A second delete reports not found.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) (err error) {
	defer func() { s.observer.ObserveOperation("delete", err) }()

	if err := s.policy.Authorize(ctx, actor, policy.OpDelete); err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		deleted, err := repo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.WrapStorage(err, "delete order")
		}
		if !deleted {
			return orderNotFound(id)
		}
		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			Actor:         actorRef(actor),
			Data:          payloads.OrderDeletedEvent{OrderID: id, Status: order.Status},
		})
	})
	return mapTxError(err, "delete order")
}

// ClearAll deletes every order that is not cancelled. Cancelled orders are
// kept as an audit trail. confirmed must be true; the facade never clears
// implicitly.
func (s *Service) ClearAll(ctx context.Context, actor policy.Actor, confirmed bool) (res *ClearResult, err error) {
	defer func() { s.observer.ObserveOperation("clear_all", err) }()

	if err := s.policy.Authorize(ctx, actor, policy.OpClearAll); err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clearing all orders requires explicit confirmation").
			WithDetails(map[string]string{"field": "confirm"})
	}

	var ids []uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		ids, err = s.repo.WithTx(tx).DeleteWhereStatusNot(ctx, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.WrapStorage(err, "clear orders")
		}
		if len(ids) == 0 {
			return nil
		}
		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrdersCleared,
			AggregateType: enums.AggregateOrder,
			Actor:         actorRef(actor),
			Data:          payloads.OrdersClearedEvent{Deleted: int64(len(ids)), OrderIDs: ids},
		})
	})
	if err := mapTxError(err, "clear orders"); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithField(ctx, "deleted", len(ids))
	s.logg.Warn(logCtx, "orders.clear_all")
	return &ClearResult{Deleted: int64(len(ids))}, nil
}

type mutation struct {
	updates map[string]any
	event   *outbox.DomainEvent
}

// mutate runs plan against a fresh read of the order inside a transaction
// and writes the result with a compare-and-swap on version. A nil mutation
// from plan means nothing changes.
func (s *Service) mutate(ctx context.Context, op string, id uuid.UUID, expectedVersion *int64, plan func(order *models.Order) (*mutation, error)) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != order.Version {
			return versionConflict(order.Version, *expectedVersion)
		}

		m, err := plan(order)
		if err != nil {
			return err
		}
		if m == nil {
			result = order
			return nil
		}

		applied, err := repo.UpdateVersioned(ctx, order.ID, order.Version, m.updates)
		if err != nil {
			return pkgerrors.WrapStorage(err, "update order")
		}
		if !applied {
			exists, err := repo.Exists(ctx, order.ID)
			if err != nil {
				return pkgerrors.WrapStorage(err, "recheck order")
			}
			if !exists {
				return orderNotFound(order.ID)
			}
			return versionConflict(-1, order.Version)
		}

		if m.event != nil {
			if err := s.emit(ctx, tx, *m.event); err != nil {
				return err
			}
		}
		result, err = s.load(ctx, repo, id)
		return err
	})
	if err = mapTxError(err, "update order"); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.observer.ObserveConflict(op)
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(id)
		}
		return nil, pkgerrors.WrapStorage(err, "load order")
	}
	return order, nil
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.WrapStorage(err, "queue order event")
	}
	return nil
}

// mapTxError turns commit-time race aborts into retryable conflicts and
// anything untyped into a dependency failure.
func mapTxError(err error, action string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.IsSerializationFailure(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order was modified concurrently, refetch and retry")
	}
	return pkgerrors.WrapStorage(err, action)
}

func orderNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]string{"order_id": id.String()})
}

// versionConflict reports a lost race. current is -1 when unknown.
func versionConflict(current, expected int64) error {
	details := map[string]any{"expected_version": expected}
	if current >= 0 {
		details["current_version"] = current
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, refetch and retry").
		WithDetails(details)
}

func actorRef(actor policy.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}
