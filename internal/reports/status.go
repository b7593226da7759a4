package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tgfunnel/internal/database"
)

// Status is the report pipeline state. Sent and Failed are terminal.
type Status string

// Report pipeline states.
const (
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// ReportStatus is the mutable progress record for one report request. Detail
// carries human-readable context (e.g. the delivery address); Error is set
// only on failure.
type ReportStatus struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReportID  uuid.UUID          `bson:"reportId" json:"reportId"`
	ProjectID uuid.UUID          `bson:"projectId" json:"projectId"`
	Format    Format             `bson:"format" json:"format"`
	Status    Status             `bson:"status" json:"status"`
	Detail    string             `bson:"detail,omitempty" json:"detail,omitempty"`
	Error     string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// StatusStore persists report status records in MongoDB, keyed by report id.
type StatusStore struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewStatusStore creates a status store backed by the shared database manager.
func NewStatusStore(db *database.Manager, logger *slog.Logger) *StatusStore {
	return &StatusStore{
		collection: db.ReportStatuses(),
		logger:     logger.With(slog.String("component", "reports.status")),
	}
}

// Create inserts the initial Submitted record for a report request.
func (s *StatusStore) Create(ctx context.Context, task ReportTask, format Format) error {
	record := ReportStatus{
		ReportID:  task.ReportID,
		ProjectID: task.ProjectID,
		Format:    format,
		Status:    StatusSubmitted,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("create report status: %w", err)
	}
	return nil
}

// SetProcessing marks the report as picked up by a consumer.
func (s *StatusStore) SetProcessing(ctx context.Context, reportID uuid.UUID) error {
	return s.update(ctx, reportID, bson.M{"status": StatusProcessing})
}

// SetSent marks the report as delivered; detail carries the destination.
func (s *StatusStore) SetSent(ctx context.Context, reportID uuid.UUID, detail string) error {
	return s.update(ctx, reportID, bson.M{"status": StatusSent, "detail": detail})
}

// SetFailed marks the report as terminally failed with an error message.
func (s *StatusStore) SetFailed(ctx context.Context, reportID uuid.UUID, errMsg string) error {
	return s.update(ctx, reportID, bson.M{"status": StatusFailed, "error": errMsg})
}

func (s *StatusStore) update(ctx context.Context, reportID uuid.UUID, fields bson.M) error {
	filter := bson.M{"reportId": reportID}
	result, err := s.collection.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update report status %s: %w", reportID, err)
	}
	if result.MatchedCount == 0 {
		s.logger.Warn("No status record for report", slog.String("reportId", reportID.String()))
	}
	return nil
}

// ListByProject returns all status records for a project, newest first.
func (s *StatusStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]ReportStatus, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"projectId": projectID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list report statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var statuses []ReportStatus
	if err := cursor.All(ctx, &statuses); err != nil {
		return nil, fmt.Errorf("decode report statuses: %w", err)
	}
	return statuses, nil
}
