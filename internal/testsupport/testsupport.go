// Package testsupport provides in-memory fakes for the collaborators the
// aggregation and report pipelines depend on.
package testsupport

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"tgfunnel/internal/clicks"
	"tgfunnel/internal/pkg/geoip"
	"tgfunnel/internal/reports"
	"tgfunnel/internal/stats"
)

// FakeEventSource serves click events from memory, applying the same widened
// date window the persistent store uses.
type FakeEventSource struct {
	Events []clicks.ClickEvent
	Err    error
}

func (f *FakeEventSource) FindFiltered(_ context.Context, filter clicks.Filter) ([]clicks.ClickEvent, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	start, end := filter.Window()

	var out []clicks.ClickEvent
	for _, event := range f.Events {
		if event.ProjectID != filter.ProjectID {
			continue
		}
		if start != nil && event.Timestamp.Before(*start) {
			continue
		}
		if end != nil && !event.Timestamp.Before(*end) {
			continue
		}
		if !matchesAllowList(event.UTMSource, filter.Sources) ||
			!matchesAllowList(event.UTMCampaign, filter.Campaigns) ||
			!matchesAllowList(event.UTMContent, filter.Contents) {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func matchesAllowList(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == value {
			return true
		}
	}
	return false
}

// FakeGeoResolver resolves IPs from a fixed map; unknown or failing IPs
// degrade the same way the real resolver does.
type FakeGeoResolver struct {
	Locations map[string]geoip.Location
	FailIPs   map[string]bool

	mu    sync.Mutex
	Calls []string
}

func (f *FakeGeoResolver) Resolve(ipAddress string) (geoip.Location, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, ipAddress)
	f.mu.Unlock()

	if f.FailIPs[ipAddress] {
		return geoip.Unknown(), geoip.ErrUnresolvable
	}
	if loc, ok := f.Locations[ipAddress]; ok {
		return loc, nil
	}
	return geoip.Unknown(), nil
}

// FakeStatistics implements the coordinator's statistics dependency.
type FakeStatistics struct {
	Stats *stats.ProjectStatistics
	Err   error
}

func (f *FakeStatistics) GetProjectStats(context.Context, clicks.Filter) (*stats.ProjectStatistics, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Stats, nil
}

// StatusTransition records one status change applied to a report.
type StatusTransition struct {
	ReportID uuid.UUID
	Status   reports.Status
	Detail   string
	Error    string
}

// FakeStatusStore records created statuses and status transitions in order.
type FakeStatusStore struct {
	mu          sync.Mutex
	Created     []reports.ReportStatus
	Transitions []StatusTransition
	FailCreate  bool
	FailUpdates bool
}

func (f *FakeStatusStore) Create(_ context.Context, task reports.ReportTask, format reports.Format) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate {
		return errors.New("status store unavailable")
	}
	f.Created = append(f.Created, reports.ReportStatus{
		ReportID:  task.ReportID,
		ProjectID: task.ProjectID,
		Format:    format,
		Status:    reports.StatusSubmitted,
	})
	return nil
}

func (f *FakeStatusStore) ListByProject(_ context.Context, projectID uuid.UUID) ([]reports.ReportStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []reports.ReportStatus
	for i := len(f.Created) - 1; i >= 0; i-- {
		if f.Created[i].ProjectID == projectID {
			out = append(out, f.Created[i])
		}
	}
	return out, nil
}

func (f *FakeStatusStore) record(t StatusTransition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailUpdates {
		return errors.New("status store unavailable")
	}
	f.Transitions = append(f.Transitions, t)
	return nil
}

func (f *FakeStatusStore) SetProcessing(_ context.Context, reportID uuid.UUID) error {
	return f.record(StatusTransition{ReportID: reportID, Status: reports.StatusProcessing})
}

func (f *FakeStatusStore) SetSent(_ context.Context, reportID uuid.UUID, detail string) error {
	return f.record(StatusTransition{ReportID: reportID, Status: reports.StatusSent, Detail: detail})
}

func (f *FakeStatusStore) SetFailed(_ context.Context, reportID uuid.UUID, errMsg string) error {
	return f.record(StatusTransition{ReportID: reportID, Status: reports.StatusFailed, Error: errMsg})
}

// Statuses returns the recorded transitions in order.
func (f *FakeStatusStore) Statuses() []reports.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]reports.Status, len(f.Transitions))
	for i, t := range f.Transitions {
		out[i] = t.Status
	}
	return out
}

// RecordingMailer captures report and failure notifications.
type RecordingMailer struct {
	mu          sync.Mutex
	Reports     []reports.ReportTask
	Failures    []string
	ReportErr   error
	FailureErr  error
	Attachments []reports.Result
}

func (m *RecordingMailer) SendReport(_ context.Context, task reports.ReportTask, result reports.Result, _ reports.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReportErr != nil {
		return m.ReportErr
	}
	m.Reports = append(m.Reports, task)
	m.Attachments = append(m.Attachments, result)
	return nil
}

func (m *RecordingMailer) SendFailure(_ context.Context, _ reports.ReportTask, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailureErr != nil {
		return m.FailureErr
	}
	m.Failures = append(m.Failures, errorMessage)
	return nil
}

// FakePublisher records published report tasks.
type FakePublisher struct {
	mu     sync.Mutex
	Tasks  []reports.ReportTask
	Queues []reports.Format
	Err    error
}

func (p *FakePublisher) PublishReportTask(_ context.Context, task reports.ReportTask, format reports.Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Tasks = append(p.Tasks, task)
	p.Queues = append(p.Queues, format)
	return nil
}
