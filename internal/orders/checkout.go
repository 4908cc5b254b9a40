package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/policy"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type fieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Checkout turns the caller's cart into a processing order. Line prices are
// frozen onto the order and totals are recomputed server side.
func (s *Service) Checkout(ctx context.Context, actor policy.Actor, input CheckoutInput) (view *OrderView, err error) {
	defer func() { s.observer.ObserveOperation("checkout", err) }()

	if err := s.policy.Authorize(ctx, actor, policy.OpCheckout); err != nil {
		return nil, err
	}
	if violations := s.validateCheckout(input); len(violations) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout request").
			WithDetails(map[string]any{"violations": violations})
	}

	totals, err := s.price(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	if input.ExpectedTotalCents != nil && *input.ExpectedTotalCents != totals.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total changed, review the order before paying").
			WithDetails(map[string]int64{
				"expected_total_cents": *input.ExpectedTotalCents,
				"total_cents":          totals.TotalCents,
			})
	}

	if s.stock != nil {
		shortages, err := s.stock.CheckAvailability(ctx, stockLines(input.Lines))
		if err != nil {
			return nil, pkgerrors.WrapStorage(err, "check stock availability")
		}
		if len(shortages) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "some items are no longer available").
				WithDetails(map[string]any{"shortages": shortages})
		}
	}

	order := s.buildOrder(actor, input, totals)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "ux_order_items_line") {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "duplicate cart line")
			}
			return pkgerrors.WrapStorage(err, "create order")
		}
		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    order.CreatedAt,
			Data:          orderCreatedPayload(order),
		})
	})
	if err := mapTxError(err, "create order"); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithField(logCtx, "total_cents", order.TotalCents)
	s.logg.Info(logCtx, "orders.checkout.created")

	v := NewOrderView(order)
	return &v, nil
}

func (s *Service) validateCheckout(input CheckoutInput) []fieldViolation {
	var out []fieldViolation
	if len(input.Lines) == 0 {
		out = append(out, fieldViolation{Field: "lines", Reason: "cart is empty"})
	}
	if s.opts.MaxLines > 0 && len(input.Lines) > s.opts.MaxLines {
		out = append(out, fieldViolation{Field: "lines", Reason: fmt.Sprintf("at most %d lines per order", s.opts.MaxLines)})
	}

	seen := make(map[string]struct{}, len(input.Lines))
	for i, line := range input.Lines {
		key := strings.TrimSpace(line.LineKey)
		if key == "" {
			out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].line_key", i), Reason: "required"})
		} else if _, dup := seen[key]; dup {
			out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].line_key", i), Reason: "duplicate line"})
		}
		seen[key] = struct{}{}
		if strings.TrimSpace(line.ProductID) == "" {
			out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].product_id", i), Reason: "required"})
		}
		if strings.TrimSpace(line.Name) == "" {
			out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].name", i), Reason: "required"})
		}
	}

	if strings.TrimSpace(input.Shipping.Name) == "" {
		out = append(out, fieldViolation{Field: "shipping.name", Reason: "required"})
	}
	if strings.TrimSpace(input.Shipping.Phone) == "" {
		out = append(out, fieldViolation{Field: "shipping.phone", Reason: "required"})
	}
	if strings.TrimSpace(input.Shipping.Address) == "" {
		out = append(out, fieldViolation{Field: "shipping.address", Reason: "required"})
	}

	if !s.gatewayEnabled(input.PaymentMethod) {
		out = append(out, fieldViolation{Field: "payment_method", Reason: fmt.Sprintf("%q is not an enabled payment method", input.PaymentMethod)})
	}
	return out
}

// price runs the line arithmetic, asks the quoter for coupon, tax and
// shipping, then prices the full breakdown. A breakdown whose discounts
// exceed the order value is rejected so no order is stored with a total that
// does not add up.
func (s *Service) price(ctx context.Context, actor policy.Actor, input CheckoutInput) (pricing.Totals, error) {
	lines := pricingLines(input.Lines)
	base, err := pricing.ComputeOrderTotals(lines, pricing.Adjustments{})
	if err != nil {
		return pricing.Totals{}, err
	}

	adj, err := s.quoter.Quote(ctx, QuoteRequest{
		UserID:                actor.UserID,
		CouponCode:            couponCode(input.CouponCode),
		SubtotalCents:         base.SubtotalCents,
		CampaignDiscountCents: base.CampaignDiscountCents,
		Lines:                 stockLines(input.Lines),
		Shipping:              input.Shipping,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return pricing.Totals{}, err
		}
		return pricing.Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quote checkout")
	}

	totals, err := pricing.ComputeOrderTotals(lines, adj)
	if errors.Is(err, pricing.ErrInconsistentTotals) {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"subtotal_cents":        totals.SubtotalCents,
			"campaign_cents":        totals.CampaignDiscountCents,
			"coupon_discount_cents": totals.CouponDiscountCents,
		})
		s.logg.Error(logCtx, "orders.checkout.inconsistent_totals", err)
		return pricing.Totals{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "discounts exceed the order value")
	}
	return totals, err
}

func (s *Service) gatewayEnabled(method enums.PaymentGateway) bool {
	if !method.IsValid() {
		return false
	}
	for _, g := range s.opts.EnabledGateways {
		if g == method {
			return true
		}
	}
	return false
}

func (s *Service) buildOrder(actor policy.Actor, input CheckoutInput, totals pricing.Totals) *models.Order {
	now := s.now()
	items := make([]models.OrderItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		items = append(items, models.OrderItem{
			ProductID:          strings.TrimSpace(line.ProductID),
			LineKey:            strings.TrimSpace(line.LineKey),
			Name:               strings.TrimSpace(line.Name),
			ImageURL:           line.ImageURL,
			Category:           line.Category,
			Variant:            line.Variant,
			UnitPriceCents:     line.PriceCents,
			OriginalPriceCents: line.OriginalPriceCents,
			Qty:                line.Qty,
			LineTotalCents:     line.PriceCents * int64(line.Qty),
			CreatedAt:          now,
		})
	}

	return &models.Order{
		UserID:                actor.UserID,
		ShippingName:          strings.TrimSpace(input.Shipping.Name),
		ShippingPhone:         strings.TrimSpace(input.Shipping.Phone),
		ShippingAddress:       strings.TrimSpace(input.Shipping.Address),
		ShippingEmail:         input.Shipping.Email,
		PaymentMethod:         input.PaymentMethod,
		PaymentStatus:         s.opts.DefaultPaymentStatus,
		SubtotalCents:         totals.SubtotalCents,
		CampaignDiscountCents: totals.CampaignDiscountCents,
		CouponCode:            couponCode(input.CouponCode),
		CouponDiscountCents:   totals.CouponDiscountCents,
		TaxCents:              totals.TaxCents,
		ShippingCents:         totals.ShippingCents,
		TotalCents:            totals.TotalCents,
		Status:                enums.OrderStatusProcessing,
		CreatedAt:             now,
		UpdatedAt:             now,
		Items:                 items,
	}
}

func couponCode(raw *string) *string {
	if raw == nil {
		return nil
	}
	code := strings.TrimSpace(*raw)
	if code == "" {
		return nil
	}
	return &code
}

func pricingLines(lines []CartLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, pricing.Line{
			PriceCents:         line.PriceCents,
			OriginalPriceCents: line.OriginalPriceCents,
			Qty:                line.Qty,
		})
	}
	return out
}

func stockLines(lines []CartLine) []StockLine {
	out := make([]StockLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, StockLine{ProductID: line.ProductID, Variant: line.Variant, Qty: line.Qty})
	}
	return out
}

func orderCreatedPayload(order *models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, payloads.OrderLine{ProductID: it.ProductID, Variant: it.Variant, Qty: it.Qty})
	}
	return payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		TotalCents:    order.TotalCents,
		Lines:         lines,
	}
}
