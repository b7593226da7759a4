package reports_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgfunnel/internal/reports"
	"tgfunnel/internal/testsupport"
)

func validSubmitRequest() reports.SubmitRequest {
	return reports.SubmitRequest{
		ProjectID: uuid.NewString(),
		Format:    "pdf",
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
		Email:     "owner@example.com",
	}
}

func TestSubmitEnqueuesTask(t *testing.T) {
	publisher := &testsupport.FakePublisher{}
	statuses := &testsupport.FakeStatusStore{}
	service := reports.NewService(publisher, statuses, testLogger)

	req := validSubmitRequest()
	reportID, err := service.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, reportID)

	require.Len(t, publisher.Tasks, 1)
	task := publisher.Tasks[0]
	assert.Equal(t, reportID, task.ReportID)
	assert.Equal(t, req.ProjectID, task.ProjectID.String())
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), task.StartDate)
	assert.Equal(t, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC), task.EndDate)
	assert.Equal(t, "owner@example.com", task.Email)
	assert.Equal(t, reports.FormatPDF, publisher.Queues[0])

	require.Len(t, statuses.Created, 1)
	assert.Equal(t, reports.StatusSubmitted, statuses.Created[0].Status)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*reports.SubmitRequest)
	}{
		{"bad project id", func(r *reports.SubmitRequest) { r.ProjectID = "not-a-uuid" }},
		{"bad format", func(r *reports.SubmitRequest) { r.Format = "csv" }},
		{"bad email", func(r *reports.SubmitRequest) { r.Email = "not-an-email" }},
		{"bad start date", func(r *reports.SubmitRequest) { r.StartDate = "03/01/2026" }},
		{"bad end date", func(r *reports.SubmitRequest) { r.EndDate = "" }},
		{"inverted range", func(r *reports.SubmitRequest) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			publisher := &testsupport.FakePublisher{}
			service := reports.NewService(publisher, &testsupport.FakeStatusStore{}, testLogger)

			req := validSubmitRequest()
			tc.mutate(&req)

			_, err := service.Submit(context.Background(), req)
			require.ErrorIs(t, err, reports.ErrInvalidRequest)
			assert.Empty(t, publisher.Tasks)
		})
	}
}

func TestSubmitPublishFailureMarksFailed(t *testing.T) {
	publisher := &testsupport.FakePublisher{Err: errors.New("broker down")}
	statuses := &testsupport.FakeStatusStore{}
	service := reports.NewService(publisher, statuses, testLogger)

	_, err := service.Submit(context.Background(), validSubmitRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enqueue report task")

	require.Len(t, statuses.Transitions, 1)
	assert.Equal(t, reports.StatusFailed, statuses.Transitions[0].Status)
}

func TestListStatusesRejectsBadProjectID(t *testing.T) {
	service := reports.NewService(&testsupport.FakePublisher{}, &testsupport.FakeStatusStore{}, testLogger)

	_, err := service.ListStatuses(context.Background(), "nope")
	require.ErrorIs(t, err, reports.ErrInvalidRequest)
}
