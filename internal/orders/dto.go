package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CartLine is a line of the customer's cart as priced by the catalog.
type CartLine struct {
	LineKey            string  `json:"line_key" validate:"required,max=128"`
	ProductID          string  `json:"product_id" validate:"required,max=128"`
	Name               string  `json:"name" validate:"required,max=256"`
	ImageURL           string  `json:"image_url" validate:"omitempty,max=2048"`
	Category           *string `json:"category,omitempty" validate:"omitempty,max=128"`
	Variant            *string `json:"variant,omitempty" validate:"omitempty,max=64"`
	PriceCents         int64   `json:"price_cents" validate:"gte=0,max=10000000000"`
	OriginalPriceCents *int64  `json:"original_price_cents,omitempty" validate:"omitempty,gte=0,max=10000000000"`
	Qty                int     `json:"qty" validate:"gte=1,max=10000"`
}

// ShippingInfo is where and to whom the order ships.
type ShippingInfo struct {
	Name    string  `json:"name" validate:"required,max=128"`
	Phone   string  `json:"phone" validate:"required,max=32"`
	Address string  `json:"address" validate:"required,max=512"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
}

// CheckoutInput carries everything needed to create an order. Coupon, tax
// and shipping amounts are priced by the Quoter, never taken from the caller.
type CheckoutInput struct {
	Lines         []CartLine           `json:"lines" validate:"required,min=1,dive"`
	Shipping      ShippingInfo         `json:"shipping" validate:"required"`
	PaymentMethod enums.PaymentGateway `json:"payment_method" validate:"required"`
	CouponCode    *string              `json:"coupon_code,omitempty" validate:"omitempty,max=64"`
	// ExpectedTotalCents, when set, must match the computed total.
	ExpectedTotalCents *int64 `json:"expected_total_cents,omitempty" validate:"omitempty,gte=0"`
}

// ListParams are the caller-supplied listing inputs.
type ListParams struct {
	Limit  int
	Cursor string
	Status *enums.OrderStatus
}

// ListScope says which view the caller was given.
type ListScope string

const (
	ListScopeAll ListScope = "all"
	ListScopeOwn ListScope = "own"
)

// OrderList wraps a page of orders plus the next cursor.
type OrderList struct {
	Scope      ListScope   `json:"scope"`
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// StatusUpdateResult reports what an UpdateStatus call did.
type StatusUpdateResult struct {
	Order      OrderView        `json:"order"`
	Transition StatusTransition `json:"transition"`
}

// ClearResult reports a bulk clear.
type ClearResult struct {
	Deleted int64 `json:"deleted"`
}

// OrderItemView is the API shape of a frozen line.
type OrderItemView struct {
	LineKey            string  `json:"line_key"`
	ProductID          string  `json:"product_id"`
	Name               string  `json:"name"`
	ImageURL           string  `json:"image_url,omitempty"`
	Category           *string `json:"category,omitempty"`
	Variant            *string `json:"variant,omitempty"`
	UnitPriceCents     int64   `json:"unit_price_cents"`
	OriginalPriceCents *int64  `json:"original_price_cents,omitempty"`
	Qty                int     `json:"qty"`
	LineTotalCents     int64   `json:"line_total_cents"`
}

// OrderView is the API shape of an order.
type OrderView struct {
	ID                    uuid.UUID            `json:"id"`
	UserID                uuid.UUID            `json:"user_id"`
	Date                  time.Time            `json:"date"`
	Items                 []OrderItemView      `json:"items"`
	Shipping              ShippingInfo         `json:"shipping"`
	PaymentMethod         enums.PaymentGateway `json:"payment_method"`
	PaymentStatus         enums.PaymentStatus  `json:"payment_status"`
	SubtotalCents         int64                `json:"subtotal_cents"`
	CampaignDiscountCents int64                `json:"campaign_discount_cents"`
	CouponCode            *string              `json:"coupon_code,omitempty"`
	CouponDiscountCents   int64                `json:"coupon_discount_cents"`
	TaxCents              int64                `json:"tax_cents"`
	ShippingCents         int64                `json:"shipping_cents"`
	TotalCents            int64                `json:"total_cents"`
	Status                enums.OrderStatus    `json:"status"`
	ReturnStatus          *enums.ReturnStatus  `json:"return_status,omitempty"`
	ReturnReason          *string              `json:"return_reason,omitempty"`
	Version               int64                `json:"version"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// NewOrderView maps the persisted model to its API shape.
func NewOrderView(o *models.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemView{
			LineKey:            it.LineKey,
			ProductID:          it.ProductID,
			Name:               it.Name,
			ImageURL:           it.ImageURL,
			Category:           it.Category,
			Variant:            it.Variant,
			UnitPriceCents:     it.UnitPriceCents,
			OriginalPriceCents: it.OriginalPriceCents,
			Qty:                it.Qty,
			LineTotalCents:     it.LineTotalCents,
		})
	}
	return OrderView{
		ID:     o.ID,
		UserID: o.UserID,
		Date:   o.CreatedAt,
		Items:  items,
		Shipping: ShippingInfo{
			Name:    o.ShippingName,
			Phone:   o.ShippingPhone,
			Address: o.ShippingAddress,
			Email:   o.ShippingEmail,
		},
		PaymentMethod:         o.PaymentMethod,
		PaymentStatus:         o.PaymentStatus,
		SubtotalCents:         o.SubtotalCents,
		CampaignDiscountCents: o.CampaignDiscountCents,
		CouponCode:            o.CouponCode,
		CouponDiscountCents:   o.CouponDiscountCents,
		TaxCents:              o.TaxCents,
		ShippingCents:         o.ShippingCents,
		TotalCents:            o.TotalCents,
		Status:                o.Status,
		ReturnStatus:          o.ReturnStatus,
		ReturnReason:          o.ReturnReason,
		Version:               o.Version,
		UpdatedAt:             o.UpdatedAt,
	}
}
