package clicks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tgfunnel/internal/database"
)

// ErrSessionNotFound is returned when no click matches a session token.
var ErrSessionNotFound = errors.New("clicks: session token not found")

// Store persists and queries click events in MongoDB.
type Store struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewStore creates a click event store backed by the shared database manager.
func NewStore(db *database.Manager, logger *slog.Logger) *Store {
	return &Store{
		collection: db.ClickEvents(),
		logger:     logger.With(slog.String("component", "clicks.store")),
	}
}

// Insert records a new click event. The timestamp defaults to now (UTC) when
// unset.
func (s *Store) Insert(ctx context.Context, event *ClickEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	result, err := s.collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("insert click event: %w", err)
	}
	if oid, ok := result.InsertedID.(interface{ Hex() string }); ok {
		s.logger.Debug("Click event recorded",
			slog.String("id", oid.Hex()),
			slog.String("projectId", event.ProjectID.String()))
	}
	return nil
}

// FindFiltered returns all click events matching the filter, with the date
// window widened by one day on each side: [start-1d, end+1d).
func (s *Store) FindFiltered(ctx context.Context, filter Filter) ([]ClickEvent, error) {
	query := bson.M{"projectId": filter.ProjectID}

	start, end := filter.Window()
	window := bson.M{}
	if start != nil {
		window["$gte"] = *start
	}
	if end != nil {
		window["$lt"] = *end
	}
	if len(window) > 0 {
		query["timestamp"] = window
	}

	if len(filter.Sources) > 0 {
		query["utmSource"] = bson.M{"$in": filter.Sources}
	}
	if len(filter.Campaigns) > 0 {
		query["utmCampaign"] = bson.M{"$in": filter.Campaigns}
	}
	if len(filter.Contents) > 0 {
		query["utmContent"] = bson.M{"$in": filter.Contents}
	}

	cursor, err := s.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query click events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []ClickEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode click events: %w", err)
	}
	return events, nil
}

// MarkSubscribed flips the subscription flag for the click identified by the
// session token and records the resolved user id. The flag is monotone: a
// click already marked subscribed stays subscribed.
func (s *Store) MarkSubscribed(ctx context.Context, sessionToken string, userID int64) error {
	update := bson.M{"$set": bson.M{
		"isSubscribed": true,
		"userId":       userID,
	}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"sessionToken": sessionToken}, update)
	if err != nil {
		return fmt.Errorf("mark click subscribed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CountByProject returns the number of clicks recorded for a project.
func (s *Store) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return 0, fmt.Errorf("count click events: %w", err)
	}
	return count, nil
}
