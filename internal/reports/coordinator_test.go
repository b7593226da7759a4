package reports_test

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

	"tgfunnel/internal/reports"
	"tgfunnel/internal/stats"
	"tgfunnel/internal/testsupport"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubRenderer struct {
	result reports.Result
	calls  int
}

func (r *stubRenderer) Render(reports.ReportTask, *stats.ProjectStatistics) reports.Result {
	r.calls++
	return r.result
}

func okResult() reports.Result {
	return reports.Result{
		FileName:  "report.pdf",
		FileBytes: []byte("%PDF-1.4"),
		FileSize:  8,
		Success:   true,
	}
}

func testTask() reports.ReportTask {
	return reports.ReportTask{
		ReportID:  uuid.New(),
		ProjectID: uuid.New(),
		StartDate: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
		Email:     "owner@example.com",
	}
}

type pipeline struct {
	coordinator *reports.Coordinator
	pdf         *stubRenderer
	statuses    *testsupport.FakeStatusStore
	mailer      *testsupport.RecordingMailer
}

func newPipeline(statistics reports.StatisticsProvider, pdfResult reports.Result) *pipeline {
	p := &pipeline{
		pdf:      &stubRenderer{result: pdfResult},
		statuses: &testsupport.FakeStatusStore{},
		mailer:   &testsupport.RecordingMailer{},
	}
	p.coordinator = reports.NewCoordinator(
		statistics,
		p.pdf,
		&stubRenderer{result: okResult()},
		p.statuses,
		p.mailer,
		testLogger,
	)
	return p
}

func TestGenerateReportHappyPath(t *testing.T) {
	p := newPipeline(&testsupport.FakeStatistics{Stats: &stats.ProjectStatistics{TotalClicks: 10}}, okResult())
	task := testTask()

	err := p.coordinator.GenerateReport(context.Background(), task, reports.FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, []reports.Status{reports.StatusProcessing, reports.StatusSent}, p.statuses.Statuses())
	assert.Equal(t, "Sent to owner@example.com", p.statuses.Transitions[1].Detail)
	require.Len(t, p.mailer.Reports, 1)
	assert.Empty(t, p.mailer.Failures)
	assert.Equal(t, 1, p.pdf.calls)
}

func TestGenerateReportAggregationFailure(t *testing.T) {
	p := newPipeline(&testsupport.FakeStatistics{Err: errors.New("mongo timeout")}, okResult())
	task := testTask()

	err := p.coordinator.GenerateReport(context.Background(), task, reports.FormatPDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate statistics")

	assert.Equal(t, []reports.Status{reports.StatusProcessing, reports.StatusFailed}, p.statuses.Statuses())
	require.Len(t, p.mailer.Failures, 1)
	assert.Contains(t, p.mailer.Failures[0], "mongo timeout")
	assert.Equal(t, 0, p.pdf.calls)
}

func TestGenerateReportRenderFailureIsRecovered(t *testing.T) {
	failed := reports.Result{Success: false, ErrorMessage: "chart encoding failed"}
	p := newPipeline(&testsupport.FakeStatistics{Stats: &stats.ProjectStatistics{}}, failed)
	task := testTask()

	err := p.coordinator.GenerateReport(context.Background(), task, reports.FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, []reports.Status{reports.StatusProcessing, reports.StatusFailed}, p.statuses.Statuses())
	assert.Equal(t, "chart encoding failed", p.statuses.Transitions[1].Error)
	require.Len(t, p.mailer.Failures, 1)
	assert.Empty(t, p.mailer.Reports)
}

// A failed email send is logged but does not change the outcome: the status
// still advances to Sent.
func TestGenerateReportEmailFailureStillSent(t *testing.T) {
	p := newPipeline(&testsupport.FakeStatistics{Stats: &stats.ProjectStatistics{}}, okResult())
	p.mailer.ReportErr = errors.New("smtp unreachable")
	task := testTask()

	err := p.coordinator.GenerateReport(context.Background(), task, reports.FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, []reports.Status{reports.StatusProcessing, reports.StatusSent}, p.statuses.Statuses())
	assert.Empty(t, p.mailer.Failures)
}

func TestGenerateReportUnknownFormat(t *testing.T) {
	p := newPipeline(&testsupport.FakeStatistics{Stats: &stats.ProjectStatistics{}}, okResult())
	task := testTask()

	err := p.coordinator.GenerateReport(context.Background(), task, reports.Format("csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
	assert.Equal(t, []reports.Status{reports.StatusProcessing, reports.StatusFailed}, p.statuses.Statuses())
}
