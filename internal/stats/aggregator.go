package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"tgfunnel/internal/clicks"
	"tgfunnel/internal/pkg/geoip"
	"tgfunnel/internal/pkg/useragent"
)

// EventSource loads click events matching a filter.
type EventSource interface {
	FindFiltered(ctx context.Context, filter clicks.Filter) ([]clicks.ClickEvent, error)
}

// GeoResolver maps an IP address to a country/city pair.
type GeoResolver interface {
	Resolve(ipAddress string) (geoip.Location, error)
}

// Aggregator turns raw click events into a ProjectStatistics model.
type Aggregator struct {
	events EventSource
	geo    GeoResolver
	logger *slog.Logger
}

// NewAggregator creates a statistics aggregator.
func NewAggregator(events EventSource, geo GeoResolver, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		events: events,
		geo:    geo,
		logger: logger.With(slog.String("component", "stats.aggregator")),
	}
}

// GetProjectStats computes the full statistics model for the filter. A store
// failure propagates; an empty event set yields zeroed statistics with only
// the period bounds populated.
func (a *Aggregator) GetProjectStats(ctx context.Context, filter clicks.Filter) (*ProjectStatistics, error) {
	events, err := a.events.FindFiltered(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load click events: %w", err)
	}

	if len(events) == 0 {
		return emptyStats(filter), nil
	}

	subscriptions := lo.CountBy(events, func(e clicks.ClickEvent) bool { return e.IsSubscribed })
	uniqueUsers := len(lo.Uniq(lo.Map(events, func(e clicks.ClickEvent, _ int) int64 { return e.UserID })))

	stats := &ProjectStatistics{
		ProjectID:          filter.ProjectID,
		PeriodStart:        periodStart(filter, events),
		PeriodEnd:          periodEnd(filter, events),
		TotalClicks:        len(events),
		TotalSubscriptions: subscriptions,
		ConversionRate:     ConversionRate(subscriptions, len(events)),
		UniqueUsers:        uniqueUsers,
		DailyStats:         dailyStats(events),
		SourceStats:        sourceStats(events),
		CampaignStats:      campaignStats(events),
		ContentStats:       contentStats(events),
		LocationStats:      a.locationStats(events),
		DeviceStats:        deviceStats(events),
	}

	a.logger.Debug("Project statistics computed",
		slog.String("projectId", filter.ProjectID.String()),
		slog.Int("clicks", stats.TotalClicks),
		slog.Int("subscriptions", stats.TotalSubscriptions))

	return stats, nil
}

// GetChartData computes a single dimension's stat list.
func (a *Aggregator) GetChartData(ctx context.Context, filter clicks.Filter, chartType string) (interface{}, error) {
	events, err := a.events.FindFiltered(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load click events: %w", err)
	}

	switch chartType {
	case ChartDaily:
		return dailyStats(events), nil
	case ChartSources:
		return sourceStats(events), nil
	case ChartCampaigns:
		return campaignStats(events), nil
	case ChartContent:
		return contentStats(events), nil
	case ChartLocations:
		return a.locationStats(events), nil
	case ChartDevices:
		return deviceStats(events), nil
	default:
		return nil, fmt.Errorf("unknown chart type: %s", chartType)
	}
}

func emptyStats(filter clicks.Filter) *ProjectStatistics {
	now := time.Now().UTC()
	stats := &ProjectStatistics{
		ProjectID:     filter.ProjectID,
		PeriodStart:   now.AddDate(0, 0, -30),
		PeriodEnd:     now,
		DailyStats:    []DailyStat{},
		SourceStats:   []SourceStat{},
		CampaignStats: []CampaignStat{},
		ContentStats:  []ContentStat{},
		LocationStats: []LocationStat{},
		DeviceStats:   []DeviceStat{},
	}
	if filter.Start != nil {
		stats.PeriodStart = *filter.Start
	}
	if filter.End != nil {
		stats.PeriodEnd = *filter.End
	}
	return stats
}

func periodStart(filter clicks.Filter, events []clicks.ClickEvent) time.Time {
	if filter.Start != nil {
		return *filter.Start
	}
	return lo.MinBy(events, func(a, b clicks.ClickEvent) bool { return a.Timestamp.Before(b.Timestamp) }).Timestamp
}

func periodEnd(filter clicks.Filter, events []clicks.ClickEvent) time.Time {
	if filter.End != nil {
		return *filter.End
	}
	return lo.MaxBy(events, func(a, b clicks.ClickEvent) bool { return a.Timestamp.After(b.Timestamp) }).Timestamp
}

// bucket accumulates one dimension group.
type bucket struct {
	clicks        int
	subscriptions int
}

func (b *bucket) add(e clicks.ClickEvent) {
	b.clicks++
	if e.IsSubscribed {
		b.subscriptions++
	}
}

func groupBy(events []clicks.ClickEvent, key func(clicks.ClickEvent) string) map[string]*bucket {
	groups := make(map[string]*bucket)
	for _, e := range events {
		k := key(e)
		if groups[k] == nil {
			groups[k] = &bucket{}
		}
		groups[k].add(e)
	}
	return groups
}

func orEmpty(tag string) string {
	if tag == "" {
		return UnknownBucket
	}
	return tag
}

func dailyStats(events []clicks.ClickEvent) []DailyStat {
	groups := make(map[time.Time]*bucket)
	for _, e := range events {
		ts := e.Timestamp.UTC()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if groups[day] == nil {
			groups[day] = &bucket{}
		}
		groups[day].add(e)
	}

	result := make([]DailyStat, 0, len(groups))
	for day, b := range groups {
		result = append(result, DailyStat{
			Date:           day,
			Clicks:         b.clicks,
			Subscriptions:  b.subscriptions,
			ConversionRate: ConversionRate(b.subscriptions, b.clicks),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

func sourceStats(events []clicks.ClickEvent) []SourceStat {
	groups := groupBy(events, func(e clicks.ClickEvent) string { return orEmpty(e.UTMSource) })

	result := make([]SourceStat, 0, len(groups))
	for source, b := range groups {
		result = append(result, SourceStat{
			Source:         source,
			Clicks:         b.clicks,
			Subscriptions:  b.subscriptions,
			ConversionRate: ConversionRate(b.subscriptions, b.clicks),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Clicks != result[j].Clicks {
			return result[i].Clicks > result[j].Clicks
		}
		return result[i].Source < result[j].Source
	})
	return result
}

func campaignStats(events []clicks.ClickEvent) []CampaignStat {
	groups := groupBy(events, func(e clicks.ClickEvent) string { return orEmpty(e.UTMCampaign) })

	result := make([]CampaignStat, 0, len(groups))
	for campaign, b := range groups {
		result = append(result, CampaignStat{
			Campaign:       campaign,
			Clicks:         b.clicks,
			Subscriptions:  b.subscriptions,
			ConversionRate: ConversionRate(b.subscriptions, b.clicks),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Clicks != result[j].Clicks {
			return result[i].Clicks > result[j].Clicks
		}
		return result[i].Campaign < result[j].Campaign
	})
	return result
}

func contentStats(events []clicks.ClickEvent) []ContentStat {
	groups := groupBy(events, func(e clicks.ClickEvent) string { return orEmpty(e.UTMContent) })

	result := make([]ContentStat, 0, len(groups))
	for content, b := range groups {
		result = append(result, ContentStat{
			Content:        content,
			Clicks:         b.clicks,
			Subscriptions:  b.subscriptions,
			ConversionRate: ConversionRate(b.subscriptions, b.clicks),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Clicks != result[j].Clicks {
			return result[i].Clicks > result[j].Clicks
		}
		return result[i].Content < result[j].Content
	})
	return result
}

func deviceStats(events []clicks.ClickEvent) []DeviceStat {
	type deviceKey struct {
		device  string
		browser string
	}

	groups := make(map[deviceKey]*bucket)
	for _, e := range events {
		k := deviceKey{
			device:  useragent.DeviceType(e.UserAgent),
			browser: useragent.Browser(e.UserAgent),
		}
		if groups[k] == nil {
			groups[k] = &bucket{}
		}
		groups[k].add(e)
	}

	result := make([]DeviceStat, 0, len(groups))
	for k, b := range groups {
		result = append(result, DeviceStat{
			DeviceType:     k.device,
			Browser:        k.browser,
			Clicks:         b.clicks,
			Subscriptions:  b.subscriptions,
			ConversionRate: ConversionRate(b.subscriptions, b.clicks),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Clicks != result[j].Clicks {
			return result[i].Clicks > result[j].Clicks
		}
		if result[i].DeviceType != result[j].DeviceType {
			return result[i].DeviceType < result[j].DeviceType
		}
		return result[i].Browser < result[j].Browser
	})
	return result
}

// locationStats resolves each distinct IP exactly once and merges buckets
// that land on the same country/city pair. A failed lookup degrades that
// IP's clicks to the Unknown/Unknown bucket instead of failing the pass.
func (a *Aggregator) locationStats(events []clicks.ClickEvent) []LocationStat {
	byIP := make(map[string][]clicks.ClickEvent)
	for _, e := range events {
		byIP[e.IPAddress] = append(byIP[e.IPAddress], e)
	}

	resolved := make(map[string]geoip.Location, len(byIP))
	for ip := range byIP {
		if ip == "" {
			resolved[ip] = geoip.Unknown()
			continue
		}
		loc, err := a.geo.Resolve(ip)
		if err != nil {
			a.logger.Debug("Geo lookup failed, bucketing as unknown", slog.String("ip", ip))
			loc = geoip.Unknown()
		}
		resolved[ip] = loc
	}

	groups := make(map[geoip.Location]*bucket)
	for ip, ipEvents := range byIP {
		loc := resolved[ip]
		if groups[loc] == nil {
			groups[loc] = &bucket{}
		}
		for _, e := range ipEvents {
			groups[loc].add(e)
		}
	}

	result := make([]LocationStat, 0, len(groups))
	for loc, b := range groups {
		result = append(result, LocationStat{
			Country:        loc.Country,
			City:           loc.City,
			Clicks:         b.clicks,
			Subscriptions:  b.subscriptions,
			ConversionRate: ConversionRate(b.subscriptions, b.clicks),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Clicks != result[j].Clicks {
			return result[i].Clicks > result[j].Clicks
		}
		if result[i].Country != result[j].Country {
			return result[i].Country < result[j].Country
		}
		return result[i].City < result[j].City
	})
	return result
}
