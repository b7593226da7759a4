// Package queue owns the RabbitMQ connection and the report queues.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"tgfunnel/internal/config"
	"tgfunnel/internal/reports"
)

// Queue names. The status queue is declared for forward compatibility but
// has no active consumer.
const (
	PDFReportQueue    = "pdf_report_queue"
	ExcelReportQueue  = "excel_report_queue"
	ReportStatusQueue = "report_status_queue"
)

// ErrChannelClosed is returned when the broker channel is not available.
var ErrChannelClosed = errors.New("queue: channel is not open")

// QueueForFormat maps a report format to its queue name.
func QueueForFormat(format reports.Format) (string, error) {
	switch format {
	case reports.FormatPDF:
		return PDFReportQueue, nil
	case reports.FormatExcel:
		return ExcelReportQueue, nil
	default:
		return "", fmt.Errorf("queue: no queue for format %q", format)
	}
}

// Client owns the broker connection and channel for its lifetime: opened at
// startup, closed at shutdown, handed to consumers through the Channel
// accessor.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewClient creates an unconnected client; call Connect before use.
func NewClient(logger *slog.Logger) *Client {
	return &Client{logger: logger.With(slog.String("component", "queue"))}
}

// Connect dials the broker and declares the report queues.
func (c *Client) Connect(cfg *config.Config) error {
	conn, err := amqp.Dial(cfg.RabbitURL())
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	// Report queues are durable and non-exclusive; the status queue is
	// transient.
	for _, name := range []string{PDFReportQueue, ExcelReportQueue} {
		if _, err := channel.QueueDeclare(name, true, false, false, false, nil); err != nil {
			c.Close()
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}
	if _, err := channel.QueueDeclare(ReportStatusQueue, false, false, false, false, nil); err != nil {
		c.Close()
		return fmt.Errorf("declare queue %s: %w", ReportStatusQueue, err)
	}

	c.logger.Info("Connected to RabbitMQ",
		slog.String("host", cfg.RabbitHost),
		slog.Int("port", cfg.RabbitPort))
	return nil
}

// Channel returns the open broker channel.
func (c *Client) Channel() (*amqp.Channel, error) {
	if c.channel == nil || c.channel.IsClosed() {
		return nil, ErrChannelClosed
	}
	return c.channel, nil
}

// PublishReportTask serializes the task and publishes it to the queue for
// the requested format as a persistent message.
func (c *Client) PublishReportTask(ctx context.Context, task reports.ReportTask, format reports.Format) error {
	queueName, err := QueueForFormat(format)
	if err != nil {
		return err
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal report task: %w", err)
	}

	channel, err := c.Channel()
	if err != nil {
		return err
	}

	err = channel.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish report task: %w", err)
	}

	c.logger.Info("Report task enqueued",
		slog.String("reportId", task.ReportID.String()),
		slog.String("queue", queueName))
	return nil
}

// Close shuts the channel and connection down.
func (c *Client) Close() {
	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("Error closing channel", slog.Any("error", err))
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("Error closing connection", slog.Any("error", err))
		}
	}
	c.logger.Info("RabbitMQ connection closed")
}
