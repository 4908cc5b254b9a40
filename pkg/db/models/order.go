package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is the storefront order aggregate. Money columns are minor units.
// Items are a frozen snapshot of the cart at checkout and never change.
type Order struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	ShippingName    string  `gorm:"column:shipping_name;not null"`
	ShippingPhone   string  `gorm:"column:shipping_phone;not null"`
	ShippingAddress string  `gorm:"column:shipping_address;not null"`
	ShippingEmail   *string `gorm:"column:shipping_email"`

	PaymentMethod enums.PaymentGateway `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null"`

	SubtotalCents         int64   `gorm:"column:subtotal_cents;not null"`
	CampaignDiscountCents int64   `gorm:"column:campaign_discount_cents;not null;default:0"`
	CouponCode            *string `gorm:"column:coupon_code"`
	CouponDiscountCents   int64   `gorm:"column:coupon_discount_cents;not null;default:0"`
	TaxCents              int64   `gorm:"column:tax_cents;not null;default:0"`
	ShippingCents         int64   `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents            int64   `gorm:"column:total_cents;not null"`

	Status       enums.OrderStatus   `gorm:"column:status;type:text;not null;index"`
	ReturnStatus *enums.ReturnStatus `gorm:"column:return_status;type:text"`
	ReturnReason *string             `gorm:"column:return_reason"`

	Version int64 `gorm:"column:version;not null;default:1"`

	StatusChangedAt   *time.Time `gorm:"column:status_changed_at"`
	ReturnRequestedAt *time.Time `gorm:"column:return_requested_at"`
	ReturnResolvedAt  *time.Time `gorm:"column:return_resolved_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;index"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// BeforeCreate assigns identifiers in the application so every driver
// behaves the same.
func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Version == 0 {
		o.Version = 1
	}
	return nil
}

// OrderItem is one purchased cart line, frozen at checkout.
type OrderItem struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_items_line"`
	ProductID          string    `gorm:"column:product_id;not null;index"`
	LineKey            string    `gorm:"column:line_key;not null;uniqueIndex:ux_order_items_line"`
	Name               string    `gorm:"column:name;not null"`
	ImageURL           string    `gorm:"column:image_url"`
	Category           *string   `gorm:"column:category"`
	Variant            *string   `gorm:"column:variant"`
	UnitPriceCents     int64     `gorm:"column:unit_price_cents;not null"`
	OriginalPriceCents *int64    `gorm:"column:original_price_cents"`
	Qty                int       `gorm:"column:qty;not null"`
	LineTotalCents     int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
