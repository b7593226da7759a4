// Package internal wires the application components together.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	v1 "tgfunnel/api/v1"
	"tgfunnel/internal/clicks"
	"tgfunnel/internal/config"
	"tgfunnel/internal/database"
	"tgfunnel/internal/logging"
	"tgfunnel/internal/pkg/geoip"
	"tgfunnel/internal/queue"
	"tgfunnel/internal/reports"
	"tgfunnel/internal/stats"
	"tgfunnel/internal/subscriptions"
)

// Application bundles the API server's components and their lifecycles.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *database.Manager
	Queue  *queue.Client
	Geo    *geoip.Resolver

	server *fiber.App
}

// NewApp builds the API application: config, logger, Mongo, RabbitMQ, the
// statistics and report services, and the HTTP routes.
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig builds the application against the provided config.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg)

	db := database.NewManager(cfg, logger)
	if err := db.Connect(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.EnsureIndexes(context.Background()); err != nil {
		db.Close(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	queueClient := queue.NewClient(logger)
	if err := queueClient.Connect(cfg); err != nil {
		db.Close(context.Background())
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	geo := geoip.NewResolver(cfg.GeoDBPath, logger)

	clickStore := clicks.NewStore(db, logger)
	tracker := subscriptions.NewTracker(db, clickStore, logger)
	aggregator := stats.NewAggregator(clickStore, geo, logger)
	statusStore := reports.NewStatusStore(db, logger)
	reportService := reports.NewService(queueClient, statusStore, logger)

	handler := v1.NewHandler(clickStore, aggregator, reportService, tracker, logger)

	server := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	MountAppRoutes(server, handler)

	return &Application{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Queue:  queueClient,
		Geo:    geo,
		server: server,
	}, nil
}

// Start serves HTTP until Shutdown is called.
func (a *Application) Start() error {
	a.Logger.Info("Starting HTTP server", slog.String("port", a.Config.AppPort))
	return a.server.Listen(":" + a.Config.AppPort)
}

// Shutdown stops the HTTP server and releases the broker, database and
// GeoIP handles.
func (a *Application) Shutdown(ctx context.Context) error {
	a.Logger.Info("Shutting down application")

	if err := a.server.ShutdownWithContext(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}

	a.Queue.Close()
	if a.Geo != nil {
		a.Geo.Close()
	}
	if err := a.DB.Close(ctx); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	a.Logger.Info("Application stopped")
	return nil
}
