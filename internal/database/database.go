// Package database manages the MongoDB connection and collections.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tgfunnel/internal/config"
)

// Collection names.
const (
	ClickEventsCollection        = "click_events"
	SubscriptionEventsCollection = "subscription_events"
	ReportStatusesCollection     = "report_statuses"
)

const connectTimeout = 10 * time.Second

// Manager owns the MongoDB client and exposes typed collection accessors.
type Manager struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// NewManager creates a manager; Connect must be called before use.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{logger: logger.With(slog.String("component", "database"))}
}

// Connect establishes the MongoDB connection and verifies it with a ping.
func (m *Manager) Connect(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}

	m.client = client
	m.db = client.Database(cfg.MongoDatabase)
	m.logger.Info("Connected to MongoDB", slog.String("database", cfg.MongoDatabase))
	return nil
}

// Database returns the underlying database handle.
func (m *Manager) Database() *mongo.Database {
	return m.db
}

// ClickEvents returns the click events collection.
func (m *Manager) ClickEvents() *mongo.Collection {
	return m.db.Collection(ClickEventsCollection)
}

// SubscriptionEvents returns the subscription events collection.
func (m *Manager) SubscriptionEvents() *mongo.Collection {
	return m.db.Collection(SubscriptionEventsCollection)
}

// ReportStatuses returns the report statuses collection.
func (m *Manager) ReportStatuses() *mongo.Collection {
	return m.db.Collection(ReportStatusesCollection)
}

// EnsureIndexes creates the indexes the query paths rely on.
func (m *Manager) EnsureIndexes(ctx context.Context) error {
	clickIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionToken", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "timestamp", Value: 1}},
		},
	}
	if _, err := m.ClickEvents().Indexes().CreateMany(ctx, clickIndexes); err != nil {
		return fmt.Errorf("create click event indexes: %w", err)
	}

	statusIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reportId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "projectId", Value: 1}},
		},
	}
	if _, err := m.ReportStatuses().Indexes().CreateMany(ctx, statusIndexes); err != nil {
		return fmt.Errorf("create report status indexes: %w", err)
	}

	subIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "sessionToken", Value: 1}},
		},
	}
	if _, err := m.SubscriptionEvents().Indexes().CreateMany(ctx, subIndexes); err != nil {
		return fmt.Errorf("create subscription event indexes: %w", err)
	}

	m.logger.Info("Database indexes ensured")
	return nil
}

// Close disconnects from MongoDB.
func (m *Manager) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect from mongodb: %w", err)
	}
	m.logger.Info("MongoDB connection closed")
	return nil
}
