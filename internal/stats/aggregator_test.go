package stats_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgfunnel/internal/clicks"
	"tgfunnel/internal/pkg/geoip"
	"tgfunnel/internal/stats"
	"tgfunnel/internal/testsupport"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func day(yyyy int, mm time.Month, dd int) time.Time {
	return time.Date(yyyy, mm, dd, 0, 0, 0, 0, time.UTC)
}

func event(projectID uuid.UUID, ts time.Time, mutate ...func(*clicks.ClickEvent)) clicks.ClickEvent {
	e := clicks.ClickEvent{
		LinkID:    uuid.New(),
		ProjectID: projectID,
		IPAddress: "203.0.113.10",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
		UserID:    1,
		Timestamp: ts,
	}
	for _, m := range mutate {
		m(&e)
	}
	return e
}

func newAggregator(events []clicks.ClickEvent, geo stats.GeoResolver) *stats.Aggregator {
	if geo == nil {
		geo = &testsupport.FakeGeoResolver{}
	}
	return stats.NewAggregator(&testsupport.FakeEventSource{Events: events}, geo, testLogger)
}

func TestGetProjectStatsEmpty(t *testing.T) {
	projectID := uuid.New()
	agg := newAggregator(nil, nil)

	start := day(2026, time.March, 1)
	end := day(2026, time.March, 31)
	result, err := agg.GetProjectStats(context.Background(), clicks.Filter{
		ProjectID: projectID,
		Start:     &start,
		End:       &end,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalClicks)
	assert.Equal(t, 0, result.TotalSubscriptions)
	assert.Equal(t, 0.0, result.ConversionRate)
	assert.Equal(t, start, result.PeriodStart)
	assert.Equal(t, end, result.PeriodEnd)
	assert.Empty(t, result.DailyStats)
	assert.Empty(t, result.LocationStats)
}

func TestGetProjectStatsStoreErrorPropagates(t *testing.T) {
	source := &testsupport.FakeEventSource{Err: errors.New("connection reset")}
	agg := stats.NewAggregator(source, &testsupport.FakeGeoResolver{}, testLogger)

	_, err := agg.GetProjectStats(context.Background(), clicks.Filter{ProjectID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load click events")
}

func TestGetProjectStatsTotalsAndConversion(t *testing.T) {
	projectID := uuid.New()
	ts := day(2026, time.March, 5)
	events := []clicks.ClickEvent{
		event(projectID, ts, func(e *clicks.ClickEvent) { e.UserID = 1; e.IsSubscribed = true }),
		event(projectID, ts, func(e *clicks.ClickEvent) { e.UserID = 2 }),
		event(projectID, ts, func(e *clicks.ClickEvent) { e.UserID = 2 }),
	}

	result, err := newAggregator(events, nil).GetProjectStats(context.Background(), clicks.Filter{ProjectID: projectID})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalClicks)
	assert.Equal(t, 1, result.TotalSubscriptions)
	assert.Equal(t, 2, result.UniqueUsers)
	assert.Equal(t, 33.33, result.ConversionRate)
}

func TestConversionRateRounding(t *testing.T) {
	assert.Equal(t, 0.0, stats.ConversionRate(5, 0))
	assert.Equal(t, 100.0, stats.ConversionRate(3, 3))
	assert.Equal(t, 33.33, stats.ConversionRate(1, 3))
	assert.Equal(t, 66.67, stats.ConversionRate(2, 3))
}

// Every dimension partitions the event set, so each dimension's click counts
// must sum back to the total.
func TestDimensionsPartitionTotals(t *testing.T) {
	projectID := uuid.New()
	events := []clicks.ClickEvent{
		event(projectID, day(2026, time.March, 1), func(e *clicks.ClickEvent) {
			e.UTMSource = "telegram"
			e.IsSubscribed = true
		}),
		event(projectID, day(2026, time.March, 1), func(e *clicks.ClickEvent) {
			e.UTMSource = "vk"
			e.UTMCampaign = "spring"
			e.IPAddress = "198.51.100.7"
		}),
		event(projectID, day(2026, time.March, 2), func(e *clicks.ClickEvent) {
			e.UserAgent = "Mozilla/5.0 (iPhone) Safari/605.1"
			e.IPAddress = ""
		}),
	}

	result, err := newAggregator(events, nil).GetProjectStats(context.Background(), clicks.Filter{ProjectID: projectID})
	require.NoError(t, err)

	sumDaily, sumSources, sumLocations, sumDevices := 0, 0, 0, 0
	for _, s := range result.DailyStats {
		sumDaily += s.Clicks
	}
	for _, s := range result.SourceStats {
		sumSources += s.Clicks
	}
	for _, s := range result.LocationStats {
		sumLocations += s.Clicks
	}
	for _, s := range result.DeviceStats {
		sumDevices += s.Clicks
	}

	assert.Equal(t, result.TotalClicks, sumDaily)
	assert.Equal(t, result.TotalClicks, sumSources)
	assert.Equal(t, result.TotalClicks, sumLocations)
	assert.Equal(t, result.TotalClicks, sumDevices)
}

func TestMissingTagsBucketAsUnknown(t *testing.T) {
	projectID := uuid.New()
	events := []clicks.ClickEvent{
		event(projectID, day(2026, time.March, 1), func(e *clicks.ClickEvent) { e.UTMSource = "telegram" }),
		event(projectID, day(2026, time.March, 1)),
		event(projectID, day(2026, time.March, 1)),
	}

	result, err := newAggregator(events, nil).GetProjectStats(context.Background(), clicks.Filter{ProjectID: projectID})
	require.NoError(t, err)

	require.Len(t, result.SourceStats, 2)
	assert.Equal(t, stats.UnknownBucket, result.SourceStats[0].Source)
	assert.Equal(t, 2, result.SourceStats[0].Clicks)
	assert.Equal(t, "telegram", result.SourceStats[1].Source)
}

func TestDailyStatsSortedAscending(t *testing.T) {
	projectID := uuid.New()
	events := []clicks.ClickEvent{
		event(projectID, day(2026, time.March, 3).Add(15*time.Hour)),
		event(projectID, day(2026, time.March, 1).Add(9*time.Hour)),
		event(projectID, day(2026, time.March, 1).Add(22*time.Hour)),
	}

	result, err := newAggregator(events, nil).GetProjectStats(context.Background(), clicks.Filter{ProjectID: projectID})
	require.NoError(t, err)

	require.Len(t, result.DailyStats, 2)
	assert.Equal(t, day(2026, time.March, 1), result.DailyStats[0].Date)
	assert.Equal(t, 2, result.DailyStats[0].Clicks)
	assert.Equal(t, day(2026, time.March, 3), result.DailyStats[1].Date)
}

// Events up to one day either side of the requested window are included so
// timezone skew at the boundaries does not drop clicks.
func TestDateWindowWidenedByOneDay(t *testing.T) {
	projectID := uuid.New()
	start := day(2026, time.March, 10)
	end := day(2026, time.March, 20)

	events := []clicks.ClickEvent{
		event(projectID, day(2026, time.March, 9).Add(6*time.Hour)),
		event(projectID, day(2026, time.March, 15)),
		event(projectID, day(2026, time.March, 20).Add(23*time.Hour)),
		event(projectID, day(2026, time.March, 8)),
		event(projectID, day(2026, time.March, 22)),
	}

	result, err := newAggregator(events, nil).GetProjectStats(context.Background(), clicks.Filter{
		ProjectID: projectID,
		Start:     &start,
		End:       &end,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalClicks)
}

func TestLocationStatsResolvesDistinctIPsOnce(t *testing.T) {
	projectID := uuid.New()
	geo := &testsupport.FakeGeoResolver{
		Locations: map[string]geoip.Location{
			"203.0.113.10": {Country: "Germany", City: "Berlin"},
			"198.51.100.7": {Country: "Germany", City: "Berlin"},
		},
	}

	ts := day(2026, time.March, 1)
	events := []clicks.ClickEvent{
		event(projectID, ts),
		event(projectID, ts),
		event(projectID, ts, func(e *clicks.ClickEvent) { e.IPAddress = "198.51.100.7" }),
	}

	result, err := newAggregator(events, geo).GetProjectStats(context.Background(), clicks.Filter{ProjectID: projectID})
	require.NoError(t, err)

	// two distinct addresses, one lookup each
	assert.Len(t, geo.Calls, 2)

	// both addresses resolve to the same place and merge into one bucket
	require.Len(t, result.LocationStats, 1)
	assert.Equal(t, "Germany", result.LocationStats[0].Country)
	assert.Equal(t, 3, result.LocationStats[0].Clicks)
}

func TestLocationStatsDegradeToUnknown(t *testing.T) {
	projectID := uuid.New()
	geo := &testsupport.FakeGeoResolver{
		Locations: map[string]geoip.Location{
			"203.0.113.10": {Country: "France", City: "Paris"},
		},
		FailIPs: map[string]bool{"198.51.100.7": true},
	}

	ts := day(2026, time.March, 1)
	events := []clicks.ClickEvent{
		event(projectID, ts),
		event(projectID, ts, func(e *clicks.ClickEvent) { e.IPAddress = "198.51.100.7" }),
		event(projectID, ts, func(e *clicks.ClickEvent) { e.IPAddress = "" }),
	}

	result, err := newAggregator(events, geo).GetProjectStats(context.Background(), clicks.Filter{ProjectID: projectID})
	require.NoError(t, err)

	// empty addresses never reach the resolver
	assert.NotContains(t, geo.Calls, "")

	require.Len(t, result.LocationStats, 2)
	assert.Equal(t, geoip.UnknownCountry, result.LocationStats[0].Country)
	assert.Equal(t, 2, result.LocationStats[0].Clicks)
	assert.Equal(t, "France", result.LocationStats[1].Country)
}

// Running the same aggregation twice must produce identical output.
func TestGetProjectStatsDeterministic(t *testing.T) {
	projectID := uuid.New()
	ts := day(2026, time.March, 1)
	events := []clicks.ClickEvent{
		event(projectID, ts, func(e *clicks.ClickEvent) { e.UTMSource = "a" }),
		event(projectID, ts, func(e *clicks.ClickEvent) { e.UTMSource = "b" }),
		event(projectID, ts, func(e *clicks.ClickEvent) { e.UTMSource = "c" }),
	}

	agg := newAggregator(events, nil)
	first, err := agg.GetProjectStats(context.Background(), clicks.Filter{ProjectID: projectID})
	require.NoError(t, err)
	second, err := agg.GetProjectStats(context.Background(), clicks.Filter{ProjectID: projectID})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGetChartData(t *testing.T) {
	projectID := uuid.New()
	events := []clicks.ClickEvent{
		event(projectID, day(2026, time.March, 1), func(e *clicks.ClickEvent) { e.UTMCampaign = "spring" }),
	}
	agg := newAggregator(events, nil)

	data, err := agg.GetChartData(context.Background(), clicks.Filter{ProjectID: projectID}, stats.ChartCampaigns)
	require.NoError(t, err)
	campaigns, ok := data.([]stats.CampaignStat)
	require.True(t, ok)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "spring", campaigns[0].Campaign)

	_, err = agg.GetChartData(context.Background(), clicks.Filter{ProjectID: projectID}, "pie")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown chart type")
}
