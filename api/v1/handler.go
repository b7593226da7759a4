// Package v1 exposes the public HTTP API: click tracking, report submission
// and statistics queries.
package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tgfunnel/internal/clicks"
	"tgfunnel/internal/reports"
	"tgfunnel/internal/stats"
	"tgfunnel/internal/subscriptions"
)

const (
	msgClickRecorded        = "Click recorded"
	msgReportSubmitted      = "Report generation started"
	msgSubscriptionRecorded = "Subscription recorded"
	errInvalidRequest       = "Invalid request"
)

// ClickRecorder persists incoming click events.
type ClickRecorder interface {
	Insert(ctx context.Context, event *clicks.ClickEvent) error
}

// StatsProvider serves aggregated project statistics.
type StatsProvider interface {
	GetProjectStats(ctx context.Context, filter clicks.Filter) (*stats.ProjectStatistics, error)
	GetChartData(ctx context.Context, filter clicks.Filter, chartType string) (interface{}, error)
}

// ReportService accepts report submissions and lists their statuses.
type ReportService interface {
	Submit(ctx context.Context, req reports.SubmitRequest) (uuid.UUID, error)
	ListStatuses(ctx context.Context, projectID string) ([]reports.ReportStatus, error)
}

// SubscriptionTracker records channel joins.
type SubscriptionTracker interface {
	RecordJoin(ctx context.Context, event *subscriptions.SubscriptionEvent) error
}

// Handler bundles the API dependencies.
type Handler struct {
	clicks        ClickRecorder
	statistics    StatsProvider
	reports       ReportService
	subscriptions SubscriptionTracker
	logger        *slog.Logger
}

func NewHandler(
	clickStore ClickRecorder,
	statistics StatsProvider,
	reportService ReportService,
	tracker SubscriptionTracker,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		clicks:        clickStore,
		statistics:    statistics,
		reports:       reportService,
		subscriptions: tracker,
		logger:        logger.With(slog.String("component", "api.v1")),
	}
}

// CreateClickParams is the click ingestion payload. The session token is
// generated server side and echoed back so the caller can embed it into the
// Telegram deep link.
type CreateClickParams struct {
	LinkID      string `json:"linkId"`
	ProjectID   string `json:"projectId"`
	UTMSource   string `json:"utmSource"`
	UTMCampaign string `json:"utmCampaign"`
	UTMContent  string `json:"utmContent"`
	UserAgent   string `json:"userAgent"`
}

// CreateClick records a click event posted by a tracking client.
func (h *Handler) CreateClick(c *fiber.Ctx) error {
	var params CreateClickParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}

	linkID, err := uuid.Parse(strings.TrimSpace(params.LinkID))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "linkId must be a valid UUID"})
	}
	projectID, err := uuid.Parse(strings.TrimSpace(params.ProjectID))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "projectId must be a valid UUID"})
	}

	userAgent := params.UserAgent
	if userAgent == "" {
		userAgent = c.Get("User-Agent")
	}

	event := &clicks.ClickEvent{
		LinkID:       linkID,
		ProjectID:    projectID,
		IPAddress:    getClientIP(c),
		UserAgent:    userAgent,
		SessionToken: uuid.NewString(),
		UTMSource:    params.UTMSource,
		UTMCampaign:  params.UTMCampaign,
		UTMContent:   params.UTMContent,
		Timestamp:    time.Now().UTC(),
	}

	if err := h.clicks.Insert(c.Context(), event); err != nil {
		h.logger.Error("Failed to record click", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record click"})
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":      msgClickRecorded,
		"sessionToken": event.SessionToken,
	})
}

// TrackRedirect records a click from a tracked link and forwards the visitor
// to the Telegram deep link with the session token as the start parameter.
func (h *Handler) TrackRedirect(c *fiber.Ctx) error {
	linkID, err := uuid.Parse(c.Params("link"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "link must be a valid UUID"})
	}
	projectID, err := uuid.Parse(c.Query("pid"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "pid must be a valid UUID"})
	}

	target, err := telegramTarget(c.Query("to"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	event := &clicks.ClickEvent{
		LinkID:       linkID,
		ProjectID:    projectID,
		IPAddress:    getClientIP(c),
		UserAgent:    c.Get("User-Agent"),
		SessionToken: uuid.NewString(),
		UTMSource:    c.Query("utm_source"),
		UTMCampaign:  c.Query("utm_campaign"),
		UTMContent:   c.Query("utm_content"),
		Timestamp:    time.Now().UTC(),
	}

	if err := h.clicks.Insert(c.Context(), event); err != nil {
		// The redirect still happens so the visitor is never stranded on
		// a tracking error.
		h.logger.Error("Failed to record tracked click", slog.Any("error", err))
	}

	return c.Redirect(withStartToken(target, event.SessionToken), http.StatusFound)
}

// SubmitReport queues an asynchronous report generation request.
func (h *Handler) SubmitReport(c *fiber.Ctx) error {
	var req reports.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}

	reportID, err := h.reports.Submit(c.Context(), req)
	if errors.Is(err, reports.ErrInvalidRequest) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		h.logger.Error("Failed to submit report", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit report"})
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"message":  msgReportSubmitted,
		"reportId": reportID,
	})
}

// ListReportStatuses returns a project's report statuses, newest first.
func (h *Handler) ListReportStatuses(c *fiber.Ctx) error {
	statuses, err := h.reports.ListStatuses(c.Context(), c.Params("id"))
	if errors.Is(err, reports.ErrInvalidRequest) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		h.logger.Error("Failed to list report statuses", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list report statuses"})
	}
	if statuses == nil {
		statuses = []reports.ReportStatus{}
	}

	return c.JSON(fiber.Map{"reports": statuses})
}

// GetProjectStats returns the full statistics object, or a single dimension
// when the chart query parameter is present.
func (h *Handler) GetProjectStats(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "projectId must be a valid UUID"})
	}

	filter := clicks.Filter{ProjectID: projectID}
	if filter.Start, err = parseDateQuery(c.Query("startDate")); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "startDate must be YYYY-MM-DD"})
	}
	if filter.End, err = parseDateQuery(c.Query("endDate")); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "endDate must be YYYY-MM-DD"})
	}
	filter.Sources = splitQueryList(c.Query("sources"))
	filter.Campaigns = splitQueryList(c.Query("campaigns"))
	filter.Contents = splitQueryList(c.Query("contents"))

	if chart := c.Query("chart"); chart != "" {
		data, err := h.statistics.GetChartData(c.Context(), filter, chart)
		if err != nil {
			if strings.Contains(err.Error(), "unknown chart type") {
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			h.logger.Error("Failed to compute chart data", slog.Any("error", err))
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute statistics"})
		}
		return c.JSON(fiber.Map{"chart": chart, "data": data})
	}

	statistics, err := h.statistics.GetProjectStats(c.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to compute statistics", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute statistics"})
	}

	return c.JSON(statistics)
}

// RecordSubscriptionParams is the join callback payload from the bot side.
type RecordSubscriptionParams struct {
	TelegramUserID   int64  `json:"telegramUserId"`
	TelegramUsername string `json:"telegramUsername"`
	SessionToken     string `json:"sessionToken"`
}

// RecordSubscription links a channel join back to the originating click.
func (h *Handler) RecordSubscription(c *fiber.Ctx) error {
	var params RecordSubscriptionParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}
	if params.TelegramUserID == 0 || strings.TrimSpace(params.SessionToken) == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "telegramUserId and sessionToken are required"})
	}

	event := &subscriptions.SubscriptionEvent{
		TelegramUserID:   params.TelegramUserID,
		TelegramUsername: params.TelegramUsername,
		SessionToken:     params.SessionToken,
		Timestamp:        time.Now().UTC(),
	}

	if err := h.subscriptions.RecordJoin(c.Context(), event); err != nil {
		h.logger.Error("Failed to record subscription", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record subscription"})
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": msgSubscriptionRecorded})
}
