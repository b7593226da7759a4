// Package worker runs the report consumer loop against the broker queues.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"tgfunnel/internal/queue"
	"tgfunnel/internal/reports"
)

// CoordinatorFactory builds a fresh coordinator for each delivery so every
// message is handled in its own unit of work.
type CoordinatorFactory func() *reports.Coordinator

// Consumer pulls report tasks off the format queues and drives them through
// the coordinator with bounded concurrency.
type Consumer struct {
	client      *queue.Client
	newCoord    CoordinatorFactory
	concurrency int
	prefetch    int
	logger      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(client *queue.Client, newCoord CoordinatorFactory, concurrency, prefetch int, logger *slog.Logger) *Consumer {
	return &Consumer{
		client:      client,
		newCoord:    newCoord,
		concurrency: concurrency,
		prefetch:    prefetch,
		logger:      logger.With(slog.String("component", "worker")),
	}
}

// Start registers consumers on both report queues and begins processing.
func (c *Consumer) Start(ctx context.Context) error {
	channel, err := c.client.Channel()
	if err != nil {
		return err
	}

	if err := channel.Qos(c.prefetch, 0, false); err != nil {
		return err
	}

	// Stop cancels only the receive loops. In-flight pipelines keep the
	// caller's context so a drain never aborts work already started.
	recvCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	sem := make(chan struct{}, c.concurrency)

	for _, spec := range []struct {
		queueName string
		format    reports.Format
	}{
		{queue.PDFReportQueue, reports.FormatPDF},
		{queue.ExcelReportQueue, reports.FormatExcel},
	} {
		deliveries, err := channel.Consume(spec.queueName, "", false, false, false, false, nil)
		if err != nil {
			cancel()
			return err
		}

		c.wg.Add(1)
		go c.consume(recvCtx, ctx, deliveries, spec.format, sem)
	}

	c.logger.Info("Report consumer started",
		slog.Int("concurrency", c.concurrency),
		slog.Int("prefetch", c.prefetch))
	return nil
}

func (c *Consumer) consume(recvCtx, taskCtx context.Context, deliveries <-chan amqp.Delivery, format reports.Format, sem chan struct{}) {
	defer c.wg.Done()

	for {
		select {
		case <-recvCtx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}

			select {
			case sem <- struct{}{}:
			case <-recvCtx.Done():
				// Never started, so leave it unacknowledged; the broker
				// redelivers it once the channel closes.
				return
			}

			c.wg.Add(1)
			go func(delivery amqp.Delivery) {
				defer c.wg.Done()
				defer func() { <-sem }()
				c.handle(taskCtx, delivery, format)
			}(delivery)
		}
	}
}

// handle processes a single delivery. Messages that cannot be deserialized
// or whose pipeline reports an unrecoverable failure are rejected without
// requeue; everything else is acked once the coordinator returns cleanly.
func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery, format reports.Format) {
	var task reports.ReportTask
	if err := json.Unmarshal(delivery.Body, &task); err != nil {
		c.logger.Error("Discarding malformed report task",
			slog.String("queue", delivery.RoutingKey),
			slog.Any("error", err))
		c.nack(delivery)
		return
	}

	logger := c.logger.With(
		slog.String("reportId", task.ReportID.String()),
		slog.String("format", string(format)))
	logger.Info("Processing report task")

	coordinator := c.newCoord()
	if err := coordinator.GenerateReport(ctx, task, format); err != nil {
		logger.Error("Report task failed", slog.Any("error", err))
		c.nack(delivery)
		return
	}

	if err := delivery.Ack(false); err != nil {
		logger.Warn("Unable to ack delivery", slog.Any("error", err))
		return
	}
	logger.Info("Report task completed")
}

func (c *Consumer) nack(delivery amqp.Delivery) {
	if err := delivery.Nack(false, false); err != nil {
		c.logger.Warn("Unable to nack delivery", slog.Any("error", err))
	}
}

// Stop halts delivery receipt and waits for in-flight tasks to finish.
// Deliveries that never started stay unacknowledged for redelivery.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("Report consumer stopped")
}
