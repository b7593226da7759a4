package reports

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"tgfunnel/internal/stats"
)

// ExcelRenderer renders a report as a workbook with a summary sheet and one
// sheet per non-empty dimension.
type ExcelRenderer struct {
	logger *slog.Logger
}

// NewExcelRenderer creates the Excel report renderer.
func NewExcelRenderer(logger *slog.Logger) *ExcelRenderer {
	return &ExcelRenderer{logger: logger.With(slog.String("component", "reports.excel"))}
}

// Render produces the Excel report. Failures are captured in the result.
func (r *ExcelRenderer) Render(task ReportTask, statistics *stats.ProjectStatistics) Result {
	fileBytes, err := r.buildWorkbook(statistics)
	if err != nil {
		return failedResult(err)
	}

	r.logger.Info("Excel report rendered",
		slog.String("reportId", task.ReportID.String()),
		slog.Int("bytes", len(fileBytes)))

	return Result{
		FileName:    reportFileName(task, "xlsx"),
		FileBytes:   fileBytes,
		FileSize:    int64(len(fileBytes)),
		GeneratedAt: time.Now().UTC(),
		Success:     true,
	}
}

func (r *ExcelRenderer) buildWorkbook(statistics *stats.ProjectStatistics) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create bold style: %w", err)
	}

	f.SetCellValue(summary, "A1", "Telegram Funnel Analytics - summary report")
	f.SetCellStyle(summary, "A1", "A1", bold)
	f.SetCellValue(summary, "A2", "Period")
	f.SetCellValue(summary, "B2", fmt.Sprintf("%s - %s",
		statistics.PeriodStart.Format("02.01.2006"), statistics.PeriodEnd.Format("02.01.2006")))

	f.SetCellValue(summary, "A4", "Total clicks")
	f.SetCellValue(summary, "B4", statistics.TotalClicks)
	f.SetCellValue(summary, "A5", "Total subscriptions")
	f.SetCellValue(summary, "B5", statistics.TotalSubscriptions)
	f.SetCellValue(summary, "A6", "Unique users")
	f.SetCellValue(summary, "B6", statistics.UniqueUsers)
	f.SetCellValue(summary, "A7", "Conversion rate, %")
	f.SetCellValue(summary, "B7", statistics.ConversionRate)

	if len(statistics.DailyStats) > 0 {
		rows := make([][]interface{}, len(statistics.DailyStats))
		for i, st := range statistics.DailyStats {
			rows[i] = []interface{}{st.Date.Format("02.01.2006"), st.Clicks, st.Subscriptions, st.ConversionRate}
		}
		if err := r.addSheet(f, bold, "Daily", "Date", rows); err != nil {
			return nil, err
		}
	}
	if len(statistics.SourceStats) > 0 {
		rows := make([][]interface{}, len(statistics.SourceStats))
		for i, st := range statistics.SourceStats {
			rows[i] = []interface{}{st.Source, st.Clicks, st.Subscriptions, st.ConversionRate}
		}
		if err := r.addSheet(f, bold, "Sources", "Source", rows); err != nil {
			return nil, err
		}
	}
	if len(statistics.DeviceStats) > 0 {
		rows := make([][]interface{}, len(statistics.DeviceStats))
		for i, st := range statistics.DeviceStats {
			rows[i] = []interface{}{st.DeviceType + " / " + st.Browser, st.Clicks, st.Subscriptions, st.ConversionRate}
		}
		if err := r.addSheet(f, bold, "Devices", "Device", rows); err != nil {
			return nil, err
		}
	}
	if len(statistics.LocationStats) > 0 {
		rows := make([][]interface{}, len(statistics.LocationStats))
		for i, st := range statistics.LocationStats {
			rows[i] = []interface{}{st.Country + " / " + st.City, st.Clicks, st.Subscriptions, st.ConversionRate}
		}
		if err := r.addSheet(f, bold, "Geography", "Location", rows); err != nil {
			return nil, err
		}
	}
	if len(statistics.CampaignStats) > 0 {
		rows := make([][]interface{}, len(statistics.CampaignStats))
		for i, st := range statistics.CampaignStats {
			rows[i] = []interface{}{st.Campaign, st.Clicks, st.Subscriptions, st.ConversionRate}
		}
		if err := r.addSheet(f, bold, "Campaigns", "Campaign", rows); err != nil {
			return nil, err
		}
	}
	if len(statistics.ContentStats) > 0 {
		rows := make([][]interface{}, len(statistics.ContentStats))
		for i, st := range statistics.ContentStats {
			rows[i] = []interface{}{st.Content, st.Clicks, st.Subscriptions, st.ConversionRate}
		}
		if err := r.addSheet(f, bold, "Content", "Content", rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *ExcelRenderer) addSheet(f *excelize.File, boldStyle int, name, keyHeader string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}

	headers := []string{keyHeader, "Clicks", "Subscriptions", "Conversion, %"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell for sheet %s: %w", name, err)
		}
		f.SetCellValue(name, cell, header)
		f.SetCellStyle(name, cell, cell, boldStyle)
	}

	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("data cell for sheet %s: %w", name, err)
			}
			f.SetCellValue(name, cell, value)
		}
	}
	return nil
}
