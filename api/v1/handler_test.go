package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgfunnel/internal/clicks"
	"tgfunnel/internal/reports"
	"tgfunnel/internal/stats"
	"tgfunnel/internal/subscriptions"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClickRecorder struct {
	events []*clicks.ClickEvent
	err    error
}

func (f *fakeClickRecorder) Insert(_ context.Context, event *clicks.ClickEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeStatsProvider struct {
	stats *stats.ProjectStatistics
}

func (f *fakeStatsProvider) GetProjectStats(context.Context, clicks.Filter) (*stats.ProjectStatistics, error) {
	return f.stats, nil
}

func (f *fakeStatsProvider) GetChartData(_ context.Context, _ clicks.Filter, chartType string) (interface{}, error) {
	switch chartType {
	case stats.ChartSources:
		return []stats.SourceStat{{Source: "telegram", Clicks: 1}}, nil
	default:
		return nil, fmt.Errorf("unknown chart type: %s", chartType)
	}
}

type fakeReportService struct {
	reportID uuid.UUID
	err      error
}

func (f *fakeReportService) Submit(context.Context, reports.SubmitRequest) (uuid.UUID, error) {
	return f.reportID, f.err
}

func (f *fakeReportService) ListStatuses(context.Context, string) ([]reports.ReportStatus, error) {
	return nil, f.err
}

type fakeTracker struct {
	joins []*subscriptions.SubscriptionEvent
}

func (f *fakeTracker) RecordJoin(_ context.Context, event *subscriptions.SubscriptionEvent) error {
	f.joins = append(f.joins, event)
	return nil
}

type testAPI struct {
	app      *fiber.App
	clicks   *fakeClickRecorder
	reports  *fakeReportService
	tracker  *fakeTracker
	provider *fakeStatsProvider
}

func newTestAPI() *testAPI {
	api := &testAPI{
		clicks:   &fakeClickRecorder{},
		reports:  &fakeReportService{reportID: uuid.New()},
		tracker:  &fakeTracker{},
		provider: &fakeStatsProvider{stats: &stats.ProjectStatistics{TotalClicks: 2}},
	}
	handler := NewHandler(api.clicks, api.provider, api.reports, api.tracker, testLogger)

	api.app = fiber.New()
	api.app.Post("/api/v1/clicks", handler.CreateClick)
	api.app.Get("/t/:link", handler.TrackRedirect)
	api.app.Post("/api/v1/reports", handler.SubmitReport)
	api.app.Get("/api/v1/projects/:id/reports", handler.ListReportStatuses)
	api.app.Get("/api/v1/projects/:id/stats", handler.GetProjectStats)
	api.app.Post("/api/v1/subscriptions", handler.RecordSubscription)
	return api
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestCreateClick(t *testing.T) {
	api := newTestAPI()

	resp := postJSON(t, api.app, "/api/v1/clicks", CreateClickParams{
		LinkID:    uuid.NewString(),
		ProjectID: uuid.NewString(),
		UTMSource: "telegram",
		UserAgent: "Mozilla/5.0",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["sessionToken"])

	require.Len(t, api.clicks.events, 1)
	assert.Equal(t, "telegram", api.clicks.events[0].UTMSource)
	assert.Equal(t, body["sessionToken"], api.clicks.events[0].SessionToken)
}

func TestCreateClickRejectsBadIDs(t *testing.T) {
	api := newTestAPI()

	resp := postJSON(t, api.app, "/api/v1/clicks", CreateClickParams{
		LinkID:    "nope",
		ProjectID: uuid.NewString(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, api.clicks.events)
}

func TestTrackRedirect(t *testing.T) {
	api := newTestAPI()

	path := fmt.Sprintf("/t/%s?pid=%s&to=https%%3A%%2F%%2Ft.me%%2Fmybot&utm_source=vk",
		uuid.NewString(), uuid.NewString())
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := api.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	require.Len(t, api.clicks.events, 1)
	location := resp.Header.Get("Location")
	assert.Contains(t, location, "https://t.me/mybot")
	assert.Contains(t, location, "start="+api.clicks.events[0].SessionToken)
	assert.Equal(t, "vk", api.clicks.events[0].UTMSource)
}

func TestTrackRedirectRejectsForeignTarget(t *testing.T) {
	api := newTestAPI()

	path := fmt.Sprintf("/t/%s?pid=%s&to=https%%3A%%2F%%2Fevil.example.com",
		uuid.NewString(), uuid.NewString())
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := api.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, api.clicks.events)
}

func TestSubmitReport(t *testing.T) {
	api := newTestAPI()

	resp := postJSON(t, api.app, "/api/v1/reports", reports.SubmitRequest{
		ProjectID: uuid.NewString(),
		Format:    "pdf",
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
		Email:     "owner@example.com",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, api.reports.reportID.String(), body["reportId"])
}

func TestSubmitReportValidationError(t *testing.T) {
	api := newTestAPI()
	api.reports.err = fmt.Errorf("%w: bad format", reports.ErrInvalidRequest)

	resp := postJSON(t, api.app, "/api/v1/reports", reports.SubmitRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetProjectStats(t *testing.T) {
	api := newTestAPI()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/"+uuid.NewString()+"/stats", nil)
	resp, err := api.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body stats.ProjectStatistics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.TotalClicks)
}

func TestGetProjectStatsChart(t *testing.T) {
	api := newTestAPI()
	base := "/api/v1/projects/" + uuid.NewString() + "/stats"

	resp, err := api.app.Test(httptest.NewRequest(http.MethodGet, base+"?chart=sources", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = api.app.Test(httptest.NewRequest(http.MethodGet, base+"?chart=pie", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecordSubscription(t *testing.T) {
	api := newTestAPI()

	resp := postJSON(t, api.app, "/api/v1/subscriptions", RecordSubscriptionParams{
		TelegramUserID: 42,
		SessionToken:   "token-1",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Len(t, api.tracker.joins, 1)
	assert.Equal(t, int64(42), api.tracker.joins[0].TelegramUserID)

	resp = postJSON(t, api.app, "/api/v1/subscriptions", RecordSubscriptionParams{SessionToken: "token-2"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, api.tracker.joins[1:])
}
