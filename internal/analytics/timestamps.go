package analytics

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
)

// BucketStart truncates t to the start of its calendar bucket in loc.
func BucketStart(t time.Time, g types.Granularity, loc *time.Location) time.Time {
	local := t.In(loc)
	switch g {
	case types.GranularityYear:
		return time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc)
	case types.GranularityMonth:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	}
}

// NextBucket returns the start of the bucket following start. Calendar
// arithmetic keeps DST days and short months correct.
func NextBucket(start time.Time, g types.Granularity) time.Time {
	switch g {
	case types.GranularityYear:
		return start.AddDate(1, 0, 0)
	case types.GranularityMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// BucketLabel formats a bucket start for display.
func BucketLabel(start time.Time, g types.Granularity) string {
	switch g {
	case types.GranularityYear:
		return start.Format("2006")
	case types.GranularityMonth:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}
