// main.go - report generation worker
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tgfunnel/internal"
)

const (
	defaultShutdownTimeout = 60 * time.Second
)

func main() {
	app, err := internal.NewWorkerApp()
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}

	log.Println("Starting report worker...")
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Println("Report worker started")

	waitForShutdownSignal(app)
}

// waitForShutdownSignal sets up signal handling and performs graceful shutdown
func waitForShutdownSignal(app *internal.WorkerApplication) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	log.Println("Initiating graceful shutdown...")
	if err := app.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
		os.Exit(1)
	}
	log.Println("Worker shutdown complete")
}
