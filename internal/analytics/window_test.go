package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var fixedNow = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func TestResolveWindowPresets(t *testing.T) {
	cases := []struct {
		name        string
		req         types.ReportRequest
		start, end  time.Time
		granularity types.Granularity
	}{
		{
			name:        "today",
			req:         types.ReportRequest{Preset: types.PresetToday},
			start:       time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			end:         time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
			granularity: types.GranularityDay,
		},
		{
			name:        "default month",
			req:         types.ReportRequest{},
			start:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			end:         time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			granularity: types.GranularityDay,
		},
		{
			name:        "year",
			req:         types.ReportRequest{Preset: types.PresetYear},
			start:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			end:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			granularity: types.GranularityMonth,
		},
		{
			name:        "custom seven days",
			req:         types.ReportRequest{Preset: types.PresetCustom, Days: 7},
			start:       time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
			end:         time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
			granularity: types.GranularityDay,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := ResolveWindow(tc.req, fixedNow, time.UTC)
			require.NoError(t, err)
			assert.True(t, tc.start.Equal(w.Start), "start %v", w.Start)
			assert.True(t, tc.end.Equal(w.End), "end %v", w.End)
			assert.Equal(t, tc.granularity, w.Granularity)
		})
	}
}

func TestResolveWindowExplicitRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	w, err := ResolveWindow(types.ReportRequest{Preset: types.PresetToday, From: &from, To: &to}, fixedNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, types.PresetRange, w.Preset)
	assert.Equal(t, types.GranularityMonth, w.Granularity)

	w, err = ResolveWindow(types.ReportRequest{From: &from, To: &to, Granularity: types.GranularityYear}, fixedNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, types.GranularityYear, w.Granularity)
}

func TestResolveWindowRejectsBadInput(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	longTo := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	reqs := []types.ReportRequest{
		{From: &from},
		{From: &from, To: &to},
		{Preset: types.PresetCustom, Days: 0},
		{Preset: types.PresetCustom, Days: 400},
		{Preset: "fortnight"},
		{Preset: types.PresetMonth, Granularity: "hour"},
		{From: &from, To: &longTo, Granularity: types.GranularityDay},
	}
	for _, req := range reqs {
		_, err := ResolveWindow(req, fixedNow, time.UTC)
		require.Error(t, err, "%+v", req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}
}

func TestResolveWindowTimezone(t *testing.T) {
	dhaka := time.FixedZone("Asia/Dhaka", 6*60*60)
	late := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)

	w, err := ResolveWindow(types.ReportRequest{Preset: types.PresetToday}, late, dhaka)
	require.NoError(t, err)
	assert.True(t, w.Start.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, dhaka)))
	assert.Equal(t, "Asia/Dhaka", w.Timezone)
}
