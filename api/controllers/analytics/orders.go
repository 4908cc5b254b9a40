package analytics

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/internal/policy"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type Service interface {
	Query(ctx context.Context, actor policy.Actor, req types.ReportRequest) (*types.Report, error)
}

// OrderReport serves the admin dashboard report. Plain dates in from/to are
// read in the reporting timezone.
func OrderReport(service Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		req, err := parseReportRequest(r, loc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		report, err := service.Query(ctx, middleware.ActorFromContext(ctx), req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
