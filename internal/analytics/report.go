package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const (
	// DefaultTopN is the product leaderboard length.
	DefaultTopN   = 5
	uncategorized = "uncategorized"
)

// CategoryResolver maps a product to its current catalog category. It wins
// over the category captured on the order line.
type CategoryResolver interface {
	CategoryFor(productID string) (string, bool)
}

// CategoryMap is a CategoryResolver backed by a map.
type CategoryMap map[string]string

func (m CategoryMap) CategoryFor(productID string) (string, bool) {
	c, ok := m[productID]
	return c, ok && strings.TrimSpace(c) != ""
}

// ReportOptions tune BuildReport.
type ReportOptions struct {
	TopN       int
	Categories CategoryResolver
}

// BuildReport folds orders into a report over w. Orders outside the window
// are ignored. Cancelled orders count towards TotalOrders and the status
// breakdown only; every revenue figure comes from the rest. An order whose
// stored breakdown does not add up still counts as a sale but contributes
// nothing to revenue or discounts, and its id is listed in
// Summary.InconsistentOrderIDs.
func BuildReport(orders []models.Order, w types.Window, opts ReportOptions) types.Report {
	loc := w.Location
	if loc == nil {
		loc = w.Start.Location()
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	series, index := emptySeries(w)
	summary := types.Summary{StatusBreakdown: make(map[enums.OrderStatus]int64, len(enums.OrderStatuses()))}
	for _, s := range enums.OrderStatuses() {
		summary.StatusBreakdown[s] = 0
	}
	products := map[string]*types.ProductStat{}
	categories := map[string]int64{}

	for i := range orders {
		o := &orders[i]
		if !w.Contains(o.CreatedAt) {
			continue
		}
		summary.TotalOrders++
		summary.StatusBreakdown[o.Status]++
		if o.ReturnStatus != nil && *o.ReturnStatus == enums.ReturnStatusPending {
			summary.PendingReturns++
			summary.PendingReturnOrderIDs = append(summary.PendingReturnOrderIDs, o.ID)
		}

		point := series[index[BucketLabel(BucketStart(o.CreatedAt, w.Granularity, loc), w.Granularity)]]
		point.Orders++

		if o.Status == enums.OrderStatusCancelled {
			summary.CancelledOrders++
			continue
		}
		summary.SalesCount++
		point.Sales++
		if pricing.FromOrder(o).Consistent() {
			summary.RevenueCents += o.TotalCents
			summary.CampaignDiscountCents += o.CampaignDiscountCents
			summary.CouponDiscountCents += o.CouponDiscountCents
			point.RevenueCents += o.TotalCents
		} else {
			summary.InconsistentOrderIDs = append(summary.InconsistentOrderIDs, o.ID)
		}

		for _, item := range o.Items {
			stat, ok := products[item.ProductID]
			if !ok {
				stat = &types.ProductStat{ProductID: item.ProductID, Name: item.Name}
				products[item.ProductID] = stat
			}
			stat.Qty += int64(item.Qty)
			stat.RevenueCents += item.LineTotalCents
			categories[categoryOf(item, opts.Categories)] += item.LineTotalCents
		}
	}

	if summary.SalesCount > 0 {
		aov := decimal.NewFromInt(summary.RevenueCents).Div(decimal.NewFromInt(summary.SalesCount))
		summary.AverageOrderValueCents = aov.Round(0).IntPart()
		summary.AverageOrderValue = aov.Div(decimal.NewFromInt(100)).StringFixed(2)
	} else {
		summary.AverageOrderValue = decimal.Zero.StringFixed(2)
	}

	out := make([]types.SeriesPoint, 0, len(series))
	for _, p := range series {
		out = append(out, *p)
	}
	return types.Report{
		Window:      w,
		Summary:     summary,
		Series:      out,
		TopProducts: topProducts(products, topN),
		Categories:  categoryBreakdown(categories),
	}
}

// emptySeries builds one zeroed point per bucket so charts have no gaps.
func emptySeries(w types.Window) ([]*types.SeriesPoint, map[string]int) {
	loc := w.Location
	if loc == nil {
		loc = w.Start.Location()
	}
	var points []*types.SeriesPoint
	index := map[string]int{}
	for b := BucketStart(w.Start, w.Granularity, loc); b.Before(w.End); b = NextBucket(b, w.Granularity) {
		label := BucketLabel(b, w.Granularity)
		index[label] = len(points)
		points = append(points, &types.SeriesPoint{Bucket: label, Start: b})
	}
	return points, index
}

func categoryOf(item models.OrderItem, resolver CategoryResolver) string {
	if resolver != nil {
		if c, ok := resolver.CategoryFor(item.ProductID); ok {
			return c
		}
	}
	if item.Category != nil && strings.TrimSpace(*item.Category) != "" {
		return *item.Category
	}
	return uncategorized
}

func topProducts(products map[string]*types.ProductStat, n int) []types.ProductStat {
	out := make([]types.ProductStat, 0, len(products))
	for _, p := range products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RevenueCents != out[j].RevenueCents {
			return out[i].RevenueCents > out[j].RevenueCents
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func categoryBreakdown(categories map[string]int64) []types.LabelValue {
	out := make([]types.LabelValue, 0, len(categories))
	for label, value := range categories {
		out = append(out, types.LabelValue{Label: label, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}
