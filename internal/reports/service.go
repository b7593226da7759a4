package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRequest tags validation failures so handlers can map them to 400s.
var ErrInvalidRequest = errors.New("invalid report request")

// TaskPublisher enqueues a report task on the broker.
type TaskPublisher interface {
	PublishReportTask(ctx context.Context, task ReportTask, format Format) error
}

// StatusRecorder persists and lists report status records.
type StatusRecorder interface {
	Create(ctx context.Context, task ReportTask, format Format) error
	SetFailed(ctx context.Context, reportID uuid.UUID, errMsg string) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]ReportStatus, error)
}

// SubmitRequest carries the raw report submission fields.
type SubmitRequest struct {
	ProjectID string `json:"projectId"`
	Format    string `json:"format"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Email     string `json:"email"`
}

// Service validates report submissions and enqueues them for the workers.
type Service struct {
	publisher TaskPublisher
	statuses  StatusRecorder
	logger    *slog.Logger
}

func NewService(publisher TaskPublisher, statuses StatusRecorder, logger *slog.Logger) *Service {
	return &Service{
		publisher: publisher,
		statuses:  statuses,
		logger:    logger.With(slog.String("component", "reports")),
	}
}

// Submit validates the request, records a submitted status and publishes the
// task to the queue matching the requested format. It returns the generated
// report id.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (uuid.UUID, error) {
	projectID, err := uuid.Parse(strings.TrimSpace(req.ProjectID))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: projectId must be a valid UUID", ErrInvalidRequest)
	}

	format, err := ParseFormat(req.Format)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return uuid.Nil, fmt.Errorf("%w: email address is not valid", ErrInvalidRequest)
	}

	start, err := parseDay(req.StartDate)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: startDate must be YYYY-MM-DD", ErrInvalidRequest)
	}
	end, err := parseDay(req.EndDate)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: endDate must be YYYY-MM-DD", ErrInvalidRequest)
	}
	if end.Before(start) {
		return uuid.Nil, fmt.Errorf("%w: endDate precedes startDate", ErrInvalidRequest)
	}

	task := ReportTask{
		ReportID:  uuid.New(),
		ProjectID: projectID,
		StartDate: start,
		EndDate:   end,
		Email:     email,
	}

	if err := s.statuses.Create(ctx, task, format); err != nil {
		return uuid.Nil, fmt.Errorf("record report status: %w", err)
	}

	if err := s.publisher.PublishReportTask(ctx, task, format); err != nil {
		if ferr := s.statuses.SetFailed(ctx, task.ReportID, "failed to enqueue report task"); ferr != nil {
			s.logger.Warn("Unable to record enqueue failure",
				slog.String("reportId", task.ReportID.String()),
				slog.Any("error", ferr))
		}
		return uuid.Nil, fmt.Errorf("enqueue report task: %w", err)
	}

	s.logger.Info("Report submitted",
		slog.String("reportId", task.ReportID.String()),
		slog.String("projectId", projectID.String()),
		slog.String("format", string(format)))
	return task.ReportID, nil
}

// ListStatuses returns the report statuses for a project, newest first.
func (s *Service) ListStatuses(ctx context.Context, projectID string) ([]ReportStatus, error) {
	id, err := uuid.Parse(strings.TrimSpace(projectID))
	if err != nil {
		return nil, fmt.Errorf("%w: projectId must be a valid UUID", ErrInvalidRequest)
	}
	return s.statuses.ListByProject(ctx, id)
}

func parseDay(value string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return day.UTC(), nil
}
