package analytics

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
)

const maxTopN = 50

// parseReportRequest reads preset, days, from, to, granularity and top.
// Window rules are enforced by the service.
func parseReportRequest(r *http.Request, loc *time.Location) (types.ReportRequest, error) {
	q := r.URL.Query()
	req := types.ReportRequest{
		Preset:      types.Preset(strings.ToLower(strings.TrimSpace(q.Get("preset")))),
		Granularity: types.Granularity(strings.ToLower(strings.TrimSpace(q.Get("granularity")))),
	}

	days, err := validators.ParseQueryInt(r, "days", 0, 0, 366)
	if err != nil {
		return req, err
	}
	req.Days = days
	if req.Days > 0 && req.Preset == "" {
		req.Preset = types.PresetCustom
	}

	top, err := validators.ParseQueryInt(r, "top", 0, 1, maxTopN)
	if err != nil {
		return req, err
	}
	req.TopN = top

	if req.From, err = validators.ParseQueryTime(r, "from", loc); err != nil {
		return req, err
	}
	if req.To, err = validators.ParseQueryTime(r, "to", loc); err != nil {
		return req, err
	}
	return req, nil
}
