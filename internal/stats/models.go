// Package stats computes multi-dimensional click/subscription statistics
// for a project over a bounded date range.
package stats

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Chart dimension names accepted by GetChartData.
const (
	ChartDaily     = "daily"
	ChartSources   = "sources"
	ChartCampaigns = "campaigns"
	ChartContent   = "content"
	ChartLocations = "locations"
	ChartDevices   = "devices"
)

// Bucket label for events missing a UTM tag.
const UnknownBucket = "unknown"

// ProjectStatistics is the full aggregation result for one project and
// period. It is derived on demand and never persisted.
type ProjectStatistics struct {
	ProjectID   uuid.UUID `json:"projectId"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`

	TotalClicks        int     `json:"totalClicks"`
	TotalSubscriptions int     `json:"totalSubscriptions"`
	ConversionRate     float64 `json:"conversionRate"`
	UniqueUsers        int     `json:"uniqueUsers"`

	DailyStats    []DailyStat    `json:"dailyStats"`
	SourceStats   []SourceStat   `json:"sourceStats"`
	CampaignStats []CampaignStat `json:"campaignStats"`
	ContentStats  []ContentStat  `json:"contentStats"`
	LocationStats []LocationStat `json:"locationStats"`
	DeviceStats   []DeviceStat   `json:"deviceStats"`
}

// DailyStat is one day's clicks and subscriptions, ordered ascending by date.
type DailyStat struct {
	Date           time.Time `json:"date"`
	Clicks         int       `json:"clicks"`
	Subscriptions  int       `json:"subscriptions"`
	ConversionRate float64   `json:"conversionRate"`
}

// SourceStat groups clicks by UTM source.
type SourceStat struct {
	Source         string  `json:"source"`
	Clicks         int     `json:"clicks"`
	Subscriptions  int     `json:"subscriptions"`
	ConversionRate float64 `json:"conversionRate"`
}

// CampaignStat groups clicks by UTM campaign.
type CampaignStat struct {
	Campaign       string  `json:"campaign"`
	Clicks         int     `json:"clicks"`
	Subscriptions  int     `json:"subscriptions"`
	ConversionRate float64 `json:"conversionRate"`
}

// ContentStat groups clicks by UTM content.
type ContentStat struct {
	Content        string  `json:"content"`
	Clicks         int     `json:"clicks"`
	Subscriptions  int     `json:"subscriptions"`
	ConversionRate float64 `json:"conversionRate"`
}

// LocationStat groups clicks by resolved country and city.
type LocationStat struct {
	Country        string  `json:"country"`
	City           string  `json:"city"`
	Clicks         int     `json:"clicks"`
	Subscriptions  int     `json:"subscriptions"`
	ConversionRate float64 `json:"conversionRate"`
}

// DeviceStat groups clicks by device type and browser family.
type DeviceStat struct {
	DeviceType     string  `json:"deviceType"`
	Browser        string  `json:"browser"`
	Clicks         int     `json:"clicks"`
	Subscriptions  int     `json:"subscriptions"`
	ConversionRate float64 `json:"conversionRate"`
}

// ConversionRate computes subscriptions/clicks as a percentage rounded to
// two decimals; zero clicks yields zero.
func ConversionRate(subscriptions, clicks int) float64 {
	if clicks == 0 {
		return 0
	}
	return math.Round(float64(subscriptions)/float64(clicks)*100*100) / 100
}
