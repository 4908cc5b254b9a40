package analytics

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	maxCustomDays = 366
	// maxBuckets bounds the dense series so a fine granularity over a long
	// explicit range cannot blow up the response.
	maxBuckets = 1100
)

// ResolveWindow turns a request into a concrete window. Explicit bounds win
// over presets; an empty preset means the current month.
func ResolveWindow(req types.ReportRequest, now time.Time, loc *time.Location) (types.Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := BucketStart(now, types.GranularityDay, loc)

	var w types.Window
	switch {
	case req.From != nil || req.To != nil:
		if req.From == nil || req.To == nil {
			return w, pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together")
		}
		start, end := req.From.In(loc), req.To.In(loc)
		if !end.After(start) {
			return w, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
		}
		w = types.Window{Preset: types.PresetRange, Start: start, End: end, Granularity: granularityForSpan(end.Sub(start))}
	default:
		preset := types.Preset(strings.ToLower(strings.TrimSpace(string(req.Preset))))
		if preset == "" {
			preset = types.PresetMonth
		}
		switch preset {
		case types.PresetToday:
			w = types.Window{Start: today, End: NextBucket(today, types.GranularityDay), Granularity: types.GranularityDay}
		case types.PresetMonth:
			start := BucketStart(now, types.GranularityMonth, loc)
			w = types.Window{Start: start, End: NextBucket(start, types.GranularityMonth), Granularity: types.GranularityDay}
		case types.PresetYear:
			start := BucketStart(now, types.GranularityYear, loc)
			w = types.Window{Start: start, End: NextBucket(start, types.GranularityYear), Granularity: types.GranularityMonth}
		case types.PresetCustom:
			if req.Days < 1 || req.Days > maxCustomDays {
				return w, pkgerrors.Newf(pkgerrors.CodeValidation, "days must be between 1 and %d", maxCustomDays).
					WithDetails(map[string]any{"field": "days", "value": req.Days})
			}
			end := NextBucket(today, types.GranularityDay)
			w = types.Window{Start: end.AddDate(0, 0, -req.Days), End: end, Granularity: types.GranularityDay}
		default:
			return w, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid preset %q", req.Preset)
		}
		w.Preset = preset
	}

	if req.Granularity != "" {
		if !req.Granularity.IsValid() {
			return w, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid granularity %q", req.Granularity)
		}
		w.Granularity = req.Granularity
	}
	if n := bucketCount(w, loc); n > maxBuckets {
		return w, pkgerrors.Newf(pkgerrors.CodeValidation, "window spans %d %s buckets, at most %d allowed", n, w.Granularity, maxBuckets)
	}

	w.Location = loc
	w.Timezone = loc.String()
	return w, nil
}

func granularityForSpan(span time.Duration) types.Granularity {
	const day = 24 * time.Hour
	switch {
	case span <= 62*day:
		return types.GranularityDay
	case span <= 3*366*day:
		return types.GranularityMonth
	default:
		return types.GranularityYear
	}
}

func bucketCount(w types.Window, loc *time.Location) int {
	n := 0
	for b := BucketStart(w.Start, w.Granularity, loc); b.Before(w.End); b = NextBucket(b, w.Granularity) {
		n++
		if n > maxBuckets {
			break
		}
	}
	return n
}
