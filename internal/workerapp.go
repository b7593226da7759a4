package internal

import (
	"context"
	"fmt"
	"log/slog"

	"tgfunnel/internal/clicks"
	"tgfunnel/internal/config"
	"tgfunnel/internal/database"
	"tgfunnel/internal/logging"
	"tgfunnel/internal/mailer"
	"tgfunnel/internal/pkg/geoip"
	"tgfunnel/internal/queue"
	"tgfunnel/internal/reports"
	"tgfunnel/internal/stats"
	"tgfunnel/internal/worker"
)

// WorkerApplication bundles the report worker's components.
type WorkerApplication struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *database.Manager
	Queue    *queue.Client
	Geo      *geoip.Resolver
	Consumer *worker.Consumer
}

// NewWorkerApp builds the report worker: the same storage and broker stack
// as the API plus the render/mail pipeline behind the consumer.
func NewWorkerApp() (*WorkerApplication, error) {
	cfg := config.GetConfig()
	return NewWorkerAppWithConfig(cfg)
}

// NewWorkerAppWithConfig builds the worker against the provided config.
func NewWorkerAppWithConfig(cfg *config.Config) (*WorkerApplication, error) {
	logger := logging.NewLogger(cfg)

	db := database.NewManager(cfg, logger)
	if err := db.Connect(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	queueClient := queue.NewClient(logger)
	if err := queueClient.Connect(cfg); err != nil {
		db.Close(context.Background())
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	smtpMailer, err := mailer.NewSMTPMailer(cfg, logger)
	if err != nil {
		queueClient.Close()
		db.Close(context.Background())
		return nil, fmt.Errorf("create mailer: %w", err)
	}

	geo := geoip.NewResolver(cfg.GeoDBPath, logger)

	// Each delivery gets its own coordinator over the shared stores.
	newCoordinator := func() *reports.Coordinator {
		clickStore := clicks.NewStore(db, logger)
		return reports.NewCoordinator(
			stats.NewAggregator(clickStore, geo, logger),
			reports.NewPDFRenderer(logger),
			reports.NewExcelRenderer(logger),
			reports.NewStatusStore(db, logger),
			smtpMailer,
			logger,
		)
	}

	consumer := worker.NewConsumer(queueClient, newCoordinator,
		cfg.WorkerConcurrency, cfg.WorkerPrefetch, logger)

	return &WorkerApplication{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Queue:    queueClient,
		Geo:      geo,
		Consumer: consumer,
	}, nil
}

// Start begins consuming report tasks.
func (a *WorkerApplication) Start(ctx context.Context) error {
	return a.Consumer.Start(ctx)
}

// Shutdown drains in-flight tasks and releases all handles.
func (a *WorkerApplication) Shutdown(ctx context.Context) error {
	a.Logger.Info("Shutting down worker")

	a.Consumer.Stop()
	a.Queue.Close()
	a.Geo.Close()
	if err := a.DB.Close(ctx); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	a.Logger.Info("Worker stopped")
	return nil
}
