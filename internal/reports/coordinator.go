package reports

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tgfunnel/internal/clicks"
	"tgfunnel/internal/stats"
)

// StatisticsProvider computes the statistics model for a report task.
type StatisticsProvider interface {
	GetProjectStats(ctx context.Context, filter clicks.Filter) (*stats.ProjectStatistics, error)
}

// StatusUpdater advances the report's status record.
type StatusUpdater interface {
	SetProcessing(ctx context.Context, reportID uuid.UUID) error
	SetSent(ctx context.Context, reportID uuid.UUID, detail string) error
	SetFailed(ctx context.Context, reportID uuid.UUID, errMsg string) error
}

// Notifier delivers the rendered report or a failure notice to the requester.
type Notifier interface {
	SendReport(ctx context.Context, task ReportTask, result Result, format Format) error
	SendFailure(ctx context.Context, task ReportTask, errorMessage string) error
}

// Coordinator drives one report request through aggregation, rendering,
// delivery and status updates.
//
// Failure isolation per stage: an aggregation error is terminal and returned
// to the consumer (which discards the message); a rendering failure is
// recovered, reported by email and status, and NOT returned; an email-send
// failure on the happy path is only logged, and the status still advances to
// Sent (delivery here means handed to the mail transport).
type Coordinator struct {
	statistics StatisticsProvider
	renderers  map[Format]Renderer
	statuses   StatusUpdater
	notifier   Notifier
	logger     *slog.Logger
}

// NewCoordinator wires the pipeline stages together.
func NewCoordinator(
	statistics StatisticsProvider,
	pdfRenderer Renderer,
	excelRenderer Renderer,
	statuses StatusUpdater,
	notifier Notifier,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		statistics: statistics,
		renderers: map[Format]Renderer{
			FormatPDF:   pdfRenderer,
			FormatExcel: excelRenderer,
		},
		statuses: statuses,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "reports.coordinator")),
	}
}

// GenerateReport runs the full pipeline for one dequeued task. A non-nil
// return means the message must be negatively acknowledged.
func (c *Coordinator) GenerateReport(ctx context.Context, task ReportTask, format Format) error {
	c.logger.Info("Coordinating report generation",
		slog.String("reportId", task.ReportID.String()),
		slog.String("format", string(format)))

	if err := c.statuses.SetProcessing(ctx, task.ReportID); err != nil {
		c.logger.Error("Failed to mark report processing",
			slog.String("reportId", task.ReportID.String()),
			slog.Any("error", err))
	}

	renderer, ok := c.renderers[format]
	if !ok {
		return c.fail(ctx, task, fmt.Errorf("unsupported report format: %s", format))
	}

	statistics, err := c.statistics.GetProjectStats(ctx, clicks.Filter{
		ProjectID: task.ProjectID,
		Start:     &task.StartDate,
		End:       &task.EndDate,
	})
	if err != nil {
		return c.fail(ctx, task, fmt.Errorf("aggregate statistics: %w", err))
	}

	c.logger.Info("Statistics aggregated",
		slog.String("reportId", task.ReportID.String()),
		slog.Int("clicks", statistics.TotalClicks),
		slog.Int("subscriptions", statistics.TotalSubscriptions),
		slog.Float64("conversionRate", statistics.ConversionRate))

	result := renderer.Render(task, statistics)
	if !result.Success {
		// Recovered failure: reported, not re-raised, so the consumer
		// still acknowledges the message.
		c.setFailed(ctx, task, result.ErrorMessage)
		c.sendFailure(ctx, task, result.ErrorMessage)
		c.logger.Error("Report rendering failed",
			slog.String("reportId", task.ReportID.String()),
			slog.String("error", result.ErrorMessage))
		return nil
	}

	if err := c.notifier.SendReport(ctx, task, result, format); err != nil {
		c.logger.Error("Report email delivery failed",
			slog.String("reportId", task.ReportID.String()),
			slog.String("email", task.Email),
			slog.Any("error", err))
	}

	detail := fmt.Sprintf("Sent to %s", task.Email)
	if err := c.statuses.SetSent(ctx, task.ReportID, detail); err != nil {
		c.logger.Error("Failed to mark report sent",
			slog.String("reportId", task.ReportID.String()),
			slog.Any("error", err))
	}

	c.logger.Info("Report completed",
		slog.String("reportId", task.ReportID.String()),
		slog.String("email", task.Email))
	return nil
}

// fail records the terminal failure, notifies the requester best-effort and
// returns the original error for the consumer to nack.
func (c *Coordinator) fail(ctx context.Context, task ReportTask, err error) error {
	c.logger.Error("Report pipeline failed",
		slog.String("reportId", task.ReportID.String()),
		slog.Any("error", err))

	c.setFailed(ctx, task, err.Error())
	c.sendFailure(ctx, task, err.Error())
	return err
}

func (c *Coordinator) setFailed(ctx context.Context, task ReportTask, errMsg string) {
	if err := c.statuses.SetFailed(ctx, task.ReportID, errMsg); err != nil {
		c.logger.Error("Failed to mark report failed",
			slog.String("reportId", task.ReportID.String()),
			slog.Any("error", err))
	}
}

func (c *Coordinator) sendFailure(ctx context.Context, task ReportTask, errMsg string) {
	if err := c.notifier.SendFailure(ctx, task, errMsg); err != nil {
		c.logger.Error("Failed to send failure email",
			slog.String("reportId", task.ReportID.String()),
			slog.Any("error", err))
	}
}
