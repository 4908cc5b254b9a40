package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultAuditWindow = 24 * time.Hour

var errInconsistentOrder = errors.New("stored order totals do not add up")

type orderReader interface {
	ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.Order, error)
}

type OrderAuditJobParams struct {
	Logger *logger.Logger
	Orders orderReader
	// Window is how far back each run looks.
	Window time.Duration
}

// NewOrderAuditJob checks that recently stored orders carry a breakdown
// that adds up. Every mismatch is logged with its order id.
func NewOrderAuditJob(params OrderAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultAuditWindow
	}
	return &orderAuditJob{
		logg:   params.Logger,
		orders: params.Orders,
		window: window,
		now:    time.Now,
	}, nil
}

type orderAuditJob struct {
	logg   *logger.Logger
	orders orderReader
	window time.Duration
	now    func() time.Time
}

func (j *orderAuditJob) Name() string { return "order-totals-audit" }

func (j *orderAuditJob) Run(ctx context.Context) (Report, error) {
	to := j.now().UTC()
	from := to.Add(-j.window)
	rows, err := j.orders.ListCreatedBetween(ctx, &from, &to)
	if err != nil {
		return nil, fmt.Errorf("list orders for audit: %w", err)
	}

	var inconsistent int64
	for i := range rows {
		o := &rows[i]
		if pricing.FromOrder(o).Consistent() {
			continue
		}
		inconsistent++
		orderCtx := j.logg.WithFields(j.logg.WithOrderID(ctx, o.ID.String()), map[string]any{
			"subtotal_cents": o.SubtotalCents,
			"total_cents":    o.TotalCents,
		})
		j.logg.Error(orderCtx, "orders.audit.inconsistent_totals", errInconsistentOrder)
	}

	report := Report{"scanned": int64(len(rows)), "inconsistent": inconsistent}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"from":              from,
		"to":                to,
		"rows_scanned":      report["scanned"],
		"rows_inconsistent": inconsistent,
	}), "order totals audit complete")
	return report, nil
}
