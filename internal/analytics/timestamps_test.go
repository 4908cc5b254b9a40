package analytics

import (
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
)

func TestBucketStartUsesLocation(t *testing.T) {
	dhaka := time.FixedZone("BST", 6*60*60)
	// 20:30 UTC on the 31st is already 02:30 on the 1st in Dhaka.
	ts := time.Date(2025, 1, 31, 20, 30, 0, 0, time.UTC)

	got := BucketStart(ts, types.GranularityDay, dhaka)
	if want := time.Date(2025, 2, 1, 0, 0, 0, 0, dhaka); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if label := BucketLabel(got, types.GranularityDay); label != "2025-02-01" {
		t.Fatalf("unexpected label %s", label)
	}

	got = BucketStart(ts, types.GranularityMonth, time.UTC)
	if label := BucketLabel(got, types.GranularityMonth); label != "2025-01" {
		t.Fatalf("unexpected month label %s", label)
	}
	got = BucketStart(ts, types.GranularityYear, dhaka)
	if label := BucketLabel(got, types.GranularityYear); label != "2025" {
		t.Fatalf("unexpected year label %s", label)
	}
}

func TestNextBucketCalendarArithmetic(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := NextBucket(jan, types.GranularityMonth); got.Month() != time.February {
		t.Fatalf("expected february, got %v", got)
	}
	feb28 := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	if got := NextBucket(feb28, types.GranularityDay); got.Day() != 29 {
		t.Fatalf("expected leap day, got %v", got)
	}
	if got := NextBucket(jan, types.GranularityYear); got.Year() != 2025 {
		t.Fatalf("expected 2025, got %v", got)
	}
}
