package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"tgfunnel/internal/clicks"
	"tgfunnel/internal/database"
)

// ClickMarker is the subset of the click store the tracker needs.
type ClickMarker interface {
	MarkSubscribed(ctx context.Context, sessionToken string, userID int64) error
}

// Tracker records subscription events and flips the subscription flag on the
// originating click.
type Tracker struct {
	collection *mongo.Collection
	clicks     ClickMarker
	logger     *slog.Logger
}

// NewTracker creates a subscription tracker.
func NewTracker(db *database.Manager, marker ClickMarker, logger *slog.Logger) *Tracker {
	return &Tracker{
		collection: db.SubscriptionEvents(),
		clicks:     marker,
		logger:     logger.With(slog.String("component", "subscriptions.tracker")),
	}
}

// RecordJoin stores the subscription event and marks the matching click as
// subscribed. A join with no matching click is stored anyway; linkage can
// happen later when the user clicks again with the same session token.
func (t *Tracker) RecordJoin(ctx context.Context, event *SubscriptionEvent) error {
	if event.Action == "" {
		event.Action = ActionSubscribe
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if _, err := t.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert subscription event: %w", err)
	}

	err := t.clicks.MarkSubscribed(ctx, event.SessionToken, event.TelegramUserID)
	if errors.Is(err, clicks.ErrSessionNotFound) {
		t.logger.Warn("Subscription recorded with no matching click",
			slog.String("sessionToken", event.SessionToken),
			slog.Int64("telegramUserId", event.TelegramUserID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("link subscription to click: %w", err)
	}

	t.logger.Info("Subscription linked to click",
		slog.String("sessionToken", event.SessionToken),
		slog.Int64("telegramUserId", event.TelegramUserID))
	return nil
}
