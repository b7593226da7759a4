package reports

import (
	"fmt"
	"time"

	"tgfunnel/internal/stats"
)

// Result is a renderer's outcome. Rendering failures are captured here,
// never raised past the renderer boundary, so the coordinator can react
// uniformly to both formats.
type Result struct {
	FileName     string
	FileBytes    []byte
	FileSize     int64
	GeneratedAt  time.Time
	Success      bool
	ErrorMessage string
}

// Renderer encodes a statistics model into an opaque file.
type Renderer interface {
	Render(task ReportTask, statistics *stats.ProjectStatistics) Result
}

// failedResult builds a Result for a captured rendering failure.
func failedResult(err error) Result {
	return Result{
		GeneratedAt:  time.Now().UTC(),
		Success:      false,
		ErrorMessage: fmt.Sprintf("report generation failed: %v", err),
	}
}

// reportFileName builds a unique file name embedding the project, the date
// range and the generation timestamp, so retries never collide.
func reportFileName(task ReportTask, extension string) string {
	return fmt.Sprintf("report_%s_%s_%s_%s.%s",
		task.ProjectID,
		task.StartDate.Format("20060102"),
		task.EndDate.Format("20060102"),
		time.Now().UTC().Format("20060102150405"),
		extension)
}
