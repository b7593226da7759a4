package reports

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"tgfunnel/internal/stats"
)

// Fixed chart canvas dimensions.
const (
	chartWidth  = 800
	chartHeight = 400

	// maxChartBars caps how many buckets a bar chart shows; dimension
	// lists are already ordered by click count descending.
	maxChartBars = 10
)

// chartSet groups the rendered chart images for one report, keyed the way
// the renderers consume them.
type chartSet struct {
	Daily     []byte
	Sources   []byte
	Devices   []byte
	Locations []byte
	Campaigns []byte
	Content   []byte
}

func dailyChart(s *stats.ProjectStatistics) ([]byte, error) {
	if len(s.DailyStats) < 2 {
		return placeholderChart("Clicks and subscriptions by day")
	}

	xs := make([]float64, len(s.DailyStats))
	clicks := make([]float64, len(s.DailyStats))
	subs := make([]float64, len(s.DailyStats))
	maxY := 1.0
	for i, d := range s.DailyStats {
		xs[i] = float64(i)
		clicks[i] = float64(d.Clicks)
		subs[i] = float64(d.Subscriptions)
		if clicks[i] > maxY {
			maxY = clicks[i]
		}
	}

	ticks := make([]chart.Tick, len(s.DailyStats))
	for i, d := range s.DailyStats {
		ticks[i] = chart.Tick{Value: float64(i), Label: d.Date.Format("02.01")}
	}

	graph := chart.Chart{
		Title:  "Clicks and subscriptions by day",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Ticks: ticks},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Clicks", XValues: xs, YValues: clicks},
			chart.ContinuousSeries{Name: "Subscriptions", XValues: xs, YValues: subs},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render daily chart: %w", err)
	}
	return buf.Bytes(), nil
}

// barChart renders one ordered dimension as a bar chart of click counts.
func barChart(title string, labels []string, values []int) ([]byte, error) {
	if len(labels) == 0 {
		return placeholderChart(title)
	}
	if len(labels) > maxChartBars {
		labels = labels[:maxChartBars]
		values = values[:maxChartBars]
	}

	bars := make([]chart.Value, len(labels))
	maxY := 1.0
	for i := range labels {
		bars[i] = chart.Value{Label: labels[i], Value: float64(values[i])}
		if float64(values[i]) > maxY {
			maxY = float64(values[i])
		}
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 40,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q chart: %w", title, err)
	}
	return buf.Bytes(), nil
}

// placeholderChart draws an empty panel so reports with no data in a
// dimension still show a labelled section instead of a broken image.
func placeholderChart(title string) ([]byte, error) {
	graph := chart.Chart{
		Title:  title + " (no data)",
		Width:  chartWidth,
		Height: chartHeight,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: []float64{0, 1}, YValues: []float64{0, 0}},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render placeholder chart: %w", err)
	}
	return buf.Bytes(), nil
}

func sourcesChart(s *stats.ProjectStatistics) ([]byte, error) {
	labels := make([]string, len(s.SourceStats))
	values := make([]int, len(s.SourceStats))
	for i, st := range s.SourceStats {
		labels[i], values[i] = st.Source, st.Clicks
	}
	return barChart("Traffic sources", labels, values)
}

func devicesChart(s *stats.ProjectStatistics) ([]byte, error) {
	labels := make([]string, len(s.DeviceStats))
	values := make([]int, len(s.DeviceStats))
	for i, st := range s.DeviceStats {
		labels[i], values[i] = st.DeviceType+" / "+st.Browser, st.Clicks
	}
	return barChart("Devices and browsers", labels, values)
}

func locationsChart(s *stats.ProjectStatistics) ([]byte, error) {
	labels := make([]string, len(s.LocationStats))
	values := make([]int, len(s.LocationStats))
	for i, st := range s.LocationStats {
		labels[i], values[i] = st.Country+" / "+st.City, st.Clicks
	}
	return barChart("Geography", labels, values)
}

func campaignsChart(s *stats.ProjectStatistics) ([]byte, error) {
	labels := make([]string, len(s.CampaignStats))
	values := make([]int, len(s.CampaignStats))
	for i, st := range s.CampaignStats {
		labels[i], values[i] = st.Campaign, st.Clicks
	}
	return barChart("Campaigns", labels, values)
}

func contentChart(s *stats.ProjectStatistics) ([]byte, error) {
	labels := make([]string, len(s.ContentStats))
	values := make([]int, len(s.ContentStats))
	for i, st := range s.ContentStats {
		labels[i], values[i] = st.Content, st.Clicks
	}
	return barChart("Content", labels, values)
}
