// Package pricing turns a set of cart lines plus externally supplied
// discount, tax and shipping amounts into an order total breakdown.
package pricing

import (
	stdErrors "errors"
	"fmt"
	"math"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ErrInconsistentTotals is returned alongside a clamped breakdown when the
// discounts exceed what the order is worth. The breakdown is for logging only
// and must not be persisted.
var ErrInconsistentTotals = stdErrors.New("pricing: discounts exceed order value, total clamped to zero")

// Upper bounds on a single priced input. They keep every sum of a bounded
// cart well inside int64.
const (
	MaxUnitPriceCents  int64 = 10_000_000_000
	MaxQty                   = 10_000
	MaxAdjustmentCents int64 = 1_000_000_000_000
)

var errAmountOverflow = stdErrors.New("amount overflows int64")

// Line is the priced view of one cart line. Amounts are minor units.
type Line struct {
	PriceCents         int64
	OriginalPriceCents *int64
	Qty                int
}

// Totals is the breakdown stored verbatim on the order.
type Totals struct {
	SubtotalCents         int64 `json:"subtotal_cents"`
	CampaignDiscountCents int64 `json:"campaign_discount_cents"`
	CouponDiscountCents   int64 `json:"coupon_discount_cents"`
	TaxCents              int64 `json:"tax_cents"`
	ShippingCents         int64 `json:"shipping_cents"`
	TotalCents            int64 `json:"total_cents"`
}

// Adjustments are the amounts computed by the coupon, tax and shipping
// collaborators.
type Adjustments struct {
	CouponDiscountCents int64
	TaxCents            int64
	ShippingCents       int64
}

type fieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ComputeOrderTotals prices the lines. The subtotal uses the sale price; the
// campaign discount is the per-line saving against a higher original price.
//
// Validation failures return a CodeValidation error and a zero breakdown.
// A total that would go negative is clamped to zero and reported with
// ErrInconsistentTotals.
func ComputeOrderTotals(lines []Line, adj Adjustments) (Totals, error) {
	if violations := validate(lines, adj); len(violations) > 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing input").
			WithDetails(map[string]any{"violations": violations})
	}

	subtotal, campaign, err := sumLines(lines)
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order amount out of range")
	}

	totals := Totals{
		SubtotalCents:         subtotal,
		CampaignDiscountCents: campaign,
		CouponDiscountCents:   adj.CouponDiscountCents,
		TaxCents:              adj.TaxCents,
		ShippingCents:         adj.ShippingCents,
	}
	total, err := applyAdjustments(subtotal, campaign, adj)
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order amount out of range")
	}
	if total < 0 {
		return totals, ErrInconsistentTotals
	}
	totals.TotalCents = total
	return totals, nil
}

// Consistent reports whether a stored breakdown satisfies the total formula
// exactly with no negative component. A clamped breakdown is not consistent.
func (t Totals) Consistent() bool {
	for _, v := range []int64{t.SubtotalCents, t.CampaignDiscountCents, t.CouponDiscountCents, t.TaxCents, t.ShippingCents, t.TotalCents} {
		if v < 0 {
			return false
		}
	}
	raw, err := applyAdjustments(t.SubtotalCents, t.CampaignDiscountCents, Adjustments{
		CouponDiscountCents: t.CouponDiscountCents,
		TaxCents:            t.TaxCents,
		ShippingCents:       t.ShippingCents,
	})
	return err == nil && raw == t.TotalCents
}

func sumLines(lines []Line) (subtotal, campaign int64, err error) {
	for _, line := range lines {
		qty := int64(line.Qty)
		lineTotal, ok := mulCents(line.PriceCents, qty)
		if !ok {
			return 0, 0, errAmountOverflow
		}
		if subtotal, ok = addCents(subtotal, lineTotal); !ok {
			return 0, 0, errAmountOverflow
		}
		if line.OriginalPriceCents != nil && *line.OriginalPriceCents > line.PriceCents {
			saving, ok := mulCents(*line.OriginalPriceCents-line.PriceCents, qty)
			if !ok {
				return 0, 0, errAmountOverflow
			}
			if campaign, ok = addCents(campaign, saving); !ok {
				return 0, 0, errAmountOverflow
			}
		}
	}
	return subtotal, campaign, nil
}

func applyAdjustments(subtotal, campaign int64, adj Adjustments) (int64, error) {
	total := subtotal
	for _, delta := range []int64{-campaign, -adj.CouponDiscountCents, adj.TaxCents, adj.ShippingCents} {
		var ok bool
		if total, ok = addCents(total, delta); !ok {
			return 0, errAmountOverflow
		}
	}
	return total, nil
}

func mulCents(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

func addCents(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}

func validate(lines []Line, adj Adjustments) []fieldViolation {
	var out []fieldViolation
	if len(lines) == 0 {
		out = append(out, fieldViolation{Field: "lines", Reason: "at least one line is required"})
	}
	for i, line := range lines {
		switch {
		case line.Qty < 1:
			out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].qty", i), Reason: "must be at least 1"})
		case line.Qty > MaxQty:
			out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].qty", i), Reason: fmt.Sprintf("must be at most %d", MaxQty)})
		}
		switch {
		case line.PriceCents < 0:
			out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].price", i), Reason: "must not be negative"})
		case line.PriceCents > MaxUnitPriceCents:
			out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].price", i), Reason: "exceeds the maximum unit price"})
		}
		if line.OriginalPriceCents != nil {
			switch {
			case *line.OriginalPriceCents < 0:
				out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].original_price", i), Reason: "must not be negative"})
			case *line.OriginalPriceCents > MaxUnitPriceCents:
				out = append(out, fieldViolation{Field: fmt.Sprintf("lines[%d].original_price", i), Reason: "exceeds the maximum unit price"})
			}
		}
	}
	out = appendAdjustment(out, "coupon_discount", adj.CouponDiscountCents)
	out = appendAdjustment(out, "tax", adj.TaxCents)
	out = appendAdjustment(out, "shipping", adj.ShippingCents)
	return out
}

func appendAdjustment(out []fieldViolation, field string, cents int64) []fieldViolation {
	switch {
	case cents < 0:
		return append(out, fieldViolation{Field: field, Reason: "must not be negative"})
	case cents > MaxAdjustmentCents:
		return append(out, fieldViolation{Field: field, Reason: "exceeds the maximum amount"})
	}
	return out
}
