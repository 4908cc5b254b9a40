package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// RateQuoterOptions hold the storefront's own coupon, tax and shipping rules.
type RateQuoterOptions struct {
	// Coupons maps an upper-case code to its percent off (1-100).
	Coupons               map[string]int
	TaxBasisPoints        int
	ShippingCents         int64
	FreeShippingOverCents int64
}

// RateQuoter is the built-in Quoter. Coupons take a percentage of the
// discounted subtotal, tax applies after the coupon, and shipping is flat
// with an optional free threshold. The coupon never exceeds the discounted
// subtotal, so a quote can not drive the total below zero.
type RateQuoter struct {
	opts RateQuoterOptions
}

// NewRateQuoter validates the rules and normalises coupon codes.
func NewRateQuoter(opts RateQuoterOptions) (*RateQuoter, error) {
	coupons := make(map[string]int, len(opts.Coupons))
	for code, pct := range opts.Coupons {
		key := normalizeCoupon(code)
		if key == "" || pct < 1 || pct > 100 {
			return nil, fmt.Errorf("coupon %q must give 1-100 percent off", code)
		}
		coupons[key] = pct
	}
	if opts.TaxBasisPoints < 0 || opts.TaxBasisPoints > 10_000 {
		return nil, fmt.Errorf("tax basis points out of range: %d", opts.TaxBasisPoints)
	}
	if opts.ShippingCents < 0 || opts.FreeShippingOverCents < 0 {
		return nil, fmt.Errorf("shipping amounts must not be negative")
	}
	opts.Coupons = coupons
	return &RateQuoter{opts: opts}, nil
}

// RateQuoterFromConfig builds the quoter from the checkout section.
func RateQuoterFromConfig(cfg *config.Config) (*RateQuoter, error) {
	return NewRateQuoter(RateQuoterOptions{
		Coupons:               cfg.Checkout.Coupons,
		TaxBasisPoints:        cfg.Checkout.TaxBasisPoints,
		ShippingCents:         cfg.Checkout.ShippingCents,
		FreeShippingOverCents: cfg.Checkout.FreeShippingOverCents,
	})
}

func (q *RateQuoter) Quote(_ context.Context, req QuoteRequest) (pricing.Adjustments, error) {
	base := req.SubtotalCents - req.CampaignDiscountCents
	if base < 0 {
		base = 0
	}

	var adj pricing.Adjustments
	if req.CouponCode != nil {
		code := normalizeCoupon(*req.CouponCode)
		pct, ok := q.opts.Coupons[code]
		if !ok {
			return pricing.Adjustments{}, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not valid").
				WithDetails(map[string]any{"violations": []fieldViolation{{Field: "coupon_code", Reason: "unknown or expired coupon"}}})
		}
		adj.CouponDiscountCents = percentOf(base, int64(pct), 100)
	}

	taxable := base - adj.CouponDiscountCents
	adj.TaxCents = percentOf(taxable, int64(q.opts.TaxBasisPoints), 10_000)

	if q.opts.FreeShippingOverCents == 0 || base < q.opts.FreeShippingOverCents {
		adj.ShippingCents = q.opts.ShippingCents
	}
	return adj, nil
}

// percentOf returns amount*num/den rounded half up to the nearest cent.
func percentOf(amount, num, den int64) int64 {
	if amount <= 0 || num <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(num)).
		Div(decimal.NewFromInt(den)).
		Round(0).
		IntPart()
}

func normalizeCoupon(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
