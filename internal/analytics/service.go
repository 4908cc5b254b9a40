package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/internal/policy"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var errInconsistentOrder = errors.New("stored order totals do not add up, counted as zero revenue")

// OrderReader is the read path reports are folded from.
type OrderReader interface {
	ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.Order, error)
}

// ServiceParams wires the report service. Categories and Logger are optional.
type ServiceParams struct {
	Orders     OrderReader
	Policy     *policy.Policy
	Location   *time.Location
	TopN       int
	Categories CategoryResolver
	Logger     *logger.Logger
}

// Service provides order reports for the admin dashboard.
type Service struct {
	orders     OrderReader
	policy     *policy.Policy
	loc        *time.Location
	topN       int
	categories CategoryResolver
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds an analytics service over the order store.
func NewService(p ServiceParams) (*Service, error) {
	if p.Orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if p.Policy == nil {
		return nil, fmt.Errorf("policy required")
	}
	if p.Location == nil {
		p.Location = time.UTC
	}
	if p.TopN <= 0 {
		p.TopN = DefaultTopN
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Service{
		orders:     p.Orders,
		policy:     p.Policy,
		loc:        p.Location,
		topN:       p.TopN,
		categories: p.Categories,
		logg:       p.Logger,
		now:        time.Now,
	}, nil
}

// Query resolves the window, loads the orders created inside it and folds
// them into a report. The read is a point-in-time snapshot; concurrent
// writers are not blocked.
func (s *Service) Query(ctx context.Context, actor policy.Actor, req types.ReportRequest) (*types.Report, error) {
	if err := s.policy.Authorize(ctx, actor, policy.OpViewAnalytics); err != nil {
		return nil, err
	}
	window, err := ResolveWindow(req, s.now(), s.loc)
	if err != nil {
		return nil, err
	}

	start, end := window.Start.UTC(), window.End.UTC()
	orders, err := s.orders.ListCreatedBetween(ctx, &start, &end)
	if err != nil {
		return nil, pkgerrors.WrapStorage(err, "load orders for report")
	}

	topN := s.topN
	if req.TopN > 0 {
		topN = req.TopN
	}
	report := BuildReport(orders, window, ReportOptions{TopN: topN, Categories: s.categories})
	for _, id := range report.Summary.InconsistentOrderIDs {
		s.logg.Error(s.logg.WithOrderID(ctx, id.String()), "analytics.order.inconsistent_totals", errInconsistentOrder)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"preset":      window.Preset,
		"granularity": window.Granularity,
		"orders":      len(orders),
	})
	s.logg.Debug(logCtx, "analytics.report.built")
	return &report, nil
}
