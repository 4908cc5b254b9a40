package pricing

import "github.com/angelmondragon/storefront-backend/pkg/db/models"

// FromOrder reads the breakdown persisted on an order row.
func FromOrder(o *models.Order) Totals {
	return Totals{
		SubtotalCents:         o.SubtotalCents,
		CampaignDiscountCents: o.CampaignDiscountCents,
		CouponDiscountCents:   o.CouponDiscountCents,
		TaxCents:              o.TaxCents,
		ShippingCents:         o.ShippingCents,
		TotalCents:            o.TotalCents,
	}
}
