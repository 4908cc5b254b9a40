package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Preset names a reporting window relative to now.
type Preset string

const (
	PresetToday  Preset = "today"
	PresetMonth  Preset = "month"
	PresetYear   Preset = "year"
	PresetCustom Preset = "custom"
	// PresetRange is implied when explicit bounds are supplied.
	PresetRange Preset = "range"
)

// Granularity is the calendar bucket size of a series.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDay, GranularityMonth, GranularityYear:
		return true
	}
	return false
}

// ReportRequest carries the input parameters for an order report.
type ReportRequest struct {
	Preset      Preset
	Days        int
	From        *time.Time
	To          *time.Time
	Granularity Granularity
	TopN        int
}

// Window is a resolved half-open [Start, End) interval in Location.
type Window struct {
	Preset      Preset         `json:"preset"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Granularity Granularity    `json:"granularity"`
	Location    *time.Location `json:"-"`
	Timezone    string         `json:"timezone"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// SeriesPoint is one calendar bucket.
type SeriesPoint struct {
	Bucket       string    `json:"bucket"`
	Start        time.Time `json:"start"`
	Orders       int64     `json:"orders"`
	Sales        int64     `json:"sales"`
	RevenueCents int64     `json:"revenue_cents"`
}

// ProductStat is a top-N entry.
type ProductStat struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Qty          int64  `json:"qty"`
	RevenueCents int64  `json:"revenue_cents"`
}

// LabelValue represents a breakdown entry such as a category.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// Summary are the window totals. TotalOrders includes cancelled orders;
// sales and revenue figures exclude them.
type Summary struct {
	TotalOrders            int64                       `json:"total_orders"`
	CancelledOrders        int64                       `json:"cancelled_orders"`
	SalesCount             int64                       `json:"sales_count"`
	RevenueCents           int64                       `json:"revenue_cents"`
	CampaignDiscountCents  int64                       `json:"campaign_discount_cents"`
	CouponDiscountCents    int64                       `json:"coupon_discount_cents"`
	AverageOrderValueCents int64                       `json:"average_order_value_cents"`
	AverageOrderValue      string                      `json:"average_order_value"`
	StatusBreakdown        map[enums.OrderStatus]int64 `json:"status_breakdown"`
	PendingReturns         int64                       `json:"pending_returns"`
	PendingReturnOrderIDs  []uuid.UUID                 `json:"pending_return_order_ids,omitempty"`
	// InconsistentOrderIDs are sales left out of revenue because their
	// stored totals do not satisfy the pricing formula.
	InconsistentOrderIDs []uuid.UUID `json:"inconsistent_order_ids,omitempty"`
}

// Report wraps the derived order statistics for the dashboard.
type Report struct {
	Window      Window        `json:"window"`
	Summary     Summary       `json:"summary"`
	Series      []SeriesPoint `json:"series"`
	TopProducts []ProductStat `json:"top_products"`
	Categories  []LabelValue  `json:"categories"`
}
