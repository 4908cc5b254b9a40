package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error)
	ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.Order, error)
	// UpdateVersioned applies updates only when the stored version still
	// equals version, bumping it by one. It reports whether a row changed.
	UpdateVersioned(ctx context.Context, id uuid.UUID, version int64, updates map[string]any) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteWhereStatusNot(ctx context.Context, keep enums.OrderStatus) ([]uuid.UUID, error)
}

// ListFilter narrows a listing. A nil UserID means every owner.
type ListFilter struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
}

// Key names the filtered listing so a cursor can not be replayed across
// owners or statuses.
func (f ListFilter) Key() string {
	var parts []string
	if f.UserID != nil {
		parts = append(parts, "user="+f.UserID.String())
	}
	if f.Status != nil {
		parts = append(parts, "status="+string(*f.Status))
	}
	return strings.Join(parts, ";")
}

// StockChecker is the external stock service. Unavailable lines are
// reported through the returned slice; err is reserved for transport failures.
type StockChecker interface {
	CheckAvailability(ctx context.Context, lines []StockLine) ([]StockShortage, error)
}

// StockLine is one line of a stock availability query.
type StockLine struct {
	ProductID string  `json:"product_id"`
	Variant   *string `json:"variant,omitempty"`
	Qty       int     `json:"qty"`
}

// StockShortage describes a line the stock service cannot satisfy.
type StockShortage struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// Quoter is the external pricing service that prices the coupon, tax and
// shipping components of a cart. Callers never supply these amounts. A coupon
// the quoter rejects comes back as a CodeValidation error.
type Quoter interface {
	Quote(ctx context.Context, req QuoteRequest) (pricing.Adjustments, error)
}

// QuoteRequest is the part of a checkout the quoter prices against.
type QuoteRequest struct {
	UserID                uuid.UUID
	CouponCode            *string
	SubtotalCents         int64
	CampaignDiscountCents int64
	Lines                 []StockLine
	Shipping              ShippingInfo
}

// Observer receives lifecycle signals for metrics.
type Observer interface {
	ObserveOperation(op string, err error)
	ObserveTransition(from, to enums.OrderStatus, discouraged bool)
	ObserveConflict(op string)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, error) {}

func (nopObserver) ObserveTransition(enums.OrderStatus, enums.OrderStatus, bool) {}

func (nopObserver) ObserveConflict(string) {}
