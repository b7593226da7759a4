// Package reports implements the asynchronous report pipeline: the task and
// status models, the PDF/Excel renderers, the submission service and the
// coordinator that drives aggregation, rendering and delivery.
package reports

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Format selects the report output format.
type Format string

// Supported report formats.
const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
)

// ParseFormat validates a requested format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatExcel:
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unknown report format: %q", s)
	}
}

// ReportTask is the immutable value object describing one report request.
// It is created at submission, serialized onto a queue, and carried through
// the pipeline unchanged. The report id is the correlation key between the
// queue message and the status record.
type ReportTask struct {
	ReportID  uuid.UUID `json:"reportId"`
	ProjectID uuid.UUID `json:"projectId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Email     string    `json:"email"`
}
