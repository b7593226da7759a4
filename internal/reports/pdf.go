package reports

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-pdf/fpdf"

	"tgfunnel/internal/pkg/async"
	"tgfunnel/internal/stats"
)

// Chart task names used for the parallel render pass.
const (
	chartTaskDaily     = "daily"
	chartTaskSources   = "sources"
	chartTaskDevices   = "devices"
	chartTaskLocations = "locations"
	chartTaskCampaigns = "campaigns"
	chartTaskContent   = "content"
)

const chartRenderWorkers = 3

// PDFRenderer renders a report as a multi-section PDF with embedded charts.
type PDFRenderer struct {
	logger *slog.Logger
}

// NewPDFRenderer creates the PDF report renderer.
func NewPDFRenderer(logger *slog.Logger) *PDFRenderer {
	return &PDFRenderer{logger: logger.With(slog.String("component", "reports.pdf"))}
}

// Render produces the PDF report. Failures are captured in the result.
func (r *PDFRenderer) Render(task ReportTask, statistics *stats.ProjectStatistics) Result {
	started := time.Now()

	charts, err := r.renderCharts(statistics)
	if err != nil {
		return failedResult(err)
	}

	fileBytes, err := r.buildDocument(task, statistics, charts)
	if err != nil {
		return failedResult(err)
	}

	r.logger.Info("PDF report rendered",
		slog.String("reportId", task.ReportID.String()),
		slog.Int("bytes", len(fileBytes)),
		slog.Duration("elapsed", time.Since(started)))

	return Result{
		FileName:    reportFileName(task, "pdf"),
		FileBytes:   fileBytes,
		FileSize:    int64(len(fileBytes)),
		GeneratedAt: time.Now().UTC(),
		Success:     true,
	}
}

// renderCharts draws the six dimension charts with a bounded worker pool.
func (r *PDFRenderer) renderCharts(statistics *stats.ProjectStatistics) (*chartSet, error) {
	tasks := []async.Task[[]byte]{
		{Name: chartTaskDaily, Execute: func() ([]byte, error) { return dailyChart(statistics) }},
		{Name: chartTaskSources, Execute: func() ([]byte, error) { return sourcesChart(statistics) }},
		{Name: chartTaskDevices, Execute: func() ([]byte, error) { return devicesChart(statistics) }},
		{Name: chartTaskLocations, Execute: func() ([]byte, error) { return locationsChart(statistics) }},
		{Name: chartTaskCampaigns, Execute: func() ([]byte, error) { return campaignsChart(statistics) }},
		{Name: chartTaskContent, Execute: func() ([]byte, error) { return contentChart(statistics) }},
	}

	results := async.NewPool[[]byte](chartRenderWorkers).Execute(context.Background(), tasks)

	images := make(map[string][]byte, len(tasks))
	for name, result := range results {
		if result.Err != nil {
			return nil, fmt.Errorf("chart %s: %w", name, result.Err)
		}
		images[name] = result.Data
	}
	if len(images) != len(tasks) {
		return nil, fmt.Errorf("chart rendering incomplete: %d of %d", len(images), len(tasks))
	}

	return &chartSet{
		Daily:     images[chartTaskDaily],
		Sources:   images[chartTaskSources],
		Devices:   images[chartTaskDevices],
		Locations: images[chartTaskLocations],
		Campaigns: images[chartTaskCampaigns],
		Content:   images[chartTaskContent],
	}, nil
}

func (r *PDFRenderer) buildDocument(task ReportTask, statistics *stats.ProjectStatistics, charts *chartSet) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	r.titlePage(pdf, task, statistics)

	r.chartSection(pdf, "Daily dynamics", charts.Daily)
	r.tableSection(pdf, "Traffic sources", sourceRows(statistics), charts.Sources)
	r.tableSection(pdf, "Devices and browsers", deviceRows(statistics), charts.Devices)
	r.tableSection(pdf, "Geography", locationRows(statistics), charts.Locations)
	r.tableSection(pdf, "Campaigns", campaignRows(statistics), charts.Campaigns)
	r.tableSection(pdf, "Content", contentRows(statistics), charts.Content)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) titlePage(pdf *fpdf.Fpdf, task ReportTask, statistics *stats.ProjectStatistics) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 26)
	pdf.CellFormat(0, 16, "Telegram Funnel Analytics", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, "Analytical report", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 10, fmt.Sprintf("Period: %s - %s",
		task.StartDate.Format("02.01.2006"), task.EndDate.Format("02.01.2006")), "", 1, "C", false, 0, "")

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Summary", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	summary := [][2]string{
		{"Total clicks", fmt.Sprintf("%d", statistics.TotalClicks)},
		{"Total subscriptions", fmt.Sprintf("%d", statistics.TotalSubscriptions)},
		{"Conversion rate", fmt.Sprintf("%.2f%%", statistics.ConversionRate)},
		{"Unique users", fmt.Sprintf("%d", statistics.UniqueUsers)},
	}
	for _, row := range summary {
		pdf.CellFormat(60, 8, row[0], "B", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, row[1], "B", 1, "R", false, 0, "")
	}
}

func (r *PDFRenderer) chartSection(pdf *fpdf.Fpdf, title string, png []byte) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	r.embedChart(pdf, title, png)
}

func (r *PDFRenderer) tableSection(pdf *fpdf.Fpdf, title string, rows []tableRow, png []byte) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")

	r.embedChart(pdf, title, png)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(80, 8, "Name", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Clicks", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Subscriptions", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Conversion", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.CellFormat(80, 8, row.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%d", row.Clicks), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%d", row.Subscriptions), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f%%", row.Conversion), "1", 1, "R", false, 0, "")
	}
	if len(rows) == 0 {
		pdf.CellFormat(185, 8, "No data for the selected period", "1", 1, "C", false, 0, "")
	}
}

func (r *PDFRenderer) embedChart(pdf *fpdf.Fpdf, name string, png []byte) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, 15, pdf.GetY()+2, 180, 90, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + 96)
}

// tableRow is one row in a dimension table.
type tableRow struct {
	Name          string
	Clicks        int
	Subscriptions int
	Conversion    float64
}

func sourceRows(s *stats.ProjectStatistics) []tableRow {
	rows := make([]tableRow, len(s.SourceStats))
	for i, st := range s.SourceStats {
		rows[i] = tableRow{st.Source, st.Clicks, st.Subscriptions, st.ConversionRate}
	}
	return rows
}

func deviceRows(s *stats.ProjectStatistics) []tableRow {
	rows := make([]tableRow, len(s.DeviceStats))
	for i, st := range s.DeviceStats {
		rows[i] = tableRow{st.DeviceType + " / " + st.Browser, st.Clicks, st.Subscriptions, st.ConversionRate}
	}
	return rows
}

func locationRows(s *stats.ProjectStatistics) []tableRow {
	rows := make([]tableRow, len(s.LocationStats))
	for i, st := range s.LocationStats {
		rows[i] = tableRow{st.Country + " / " + st.City, st.Clicks, st.Subscriptions, st.ConversionRate}
	}
	return rows
}

func campaignRows(s *stats.ProjectStatistics) []tableRow {
	rows := make([]tableRow, len(s.CampaignStats))
	for i, st := range s.CampaignStats {
		rows[i] = tableRow{st.Campaign, st.Clicks, st.Subscriptions, st.ConversionRate}
	}
	return rows
}

func contentRows(s *stats.ProjectStatistics) []tableRow {
	rows := make([]tableRow, len(s.ContentStats))
	for i, st := range s.ContentStats {
		rows[i] = tableRow{st.Content, st.Clicks, st.Subscriptions, st.ConversionRate}
	}
	return rows
}
