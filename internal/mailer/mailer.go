// Package mailer delivers rendered reports and failure notices by email.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"tgfunnel/internal/config"
	"tgfunnel/internal/reports"
)

// MIME types for the report attachments.
const (
	mimePDF   = "application/pdf"
	mimeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	client     *mail.Client
	senderMail string
	senderName string
	logger     *slog.Logger
}

// NewSMTPMailer builds the SMTP client from config. The sender address is
// required; a missing one is a configuration error surfaced at startup.
func NewSMTPMailer(cfg *config.Config, logger *slog.Logger) (*SMTPMailer, error) {
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("mailer: sender email is not configured")
	}

	client, err := mail.NewClient(cfg.SMTPHost,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SenderEmail),
		mail.WithPassword(cfg.SenderPassword),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: create smtp client: %w", err)
	}

	return &SMTPMailer{
		client:     client,
		senderMail: cfg.SenderEmail,
		senderName: cfg.SenderName,
		logger:     logger.With(slog.String("component", "mailer")),
	}, nil
}

// SendReport emails the rendered report file as an attachment.
func (m *SMTPMailer) SendReport(ctx context.Context, task reports.ReportTask, result reports.Result, format reports.Format) error {
	msg, err := m.newMessage(task.Email)
	if err != nil {
		return err
	}

	msg.Subject(fmt.Sprintf("Your %s report is ready - Telegram Funnel Analytics", formatLabel(format)))
	msg.SetBodyString(mail.TypeTextHTML, reportBody(task, result, format))
	msg.AttachReader(result.FileName, bytes.NewReader(result.FileBytes),
		mail.WithFileContentType(mail.ContentType(attachmentMIME(format))))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}

	m.logger.Info("Report email sent",
		slog.String("reportId", task.ReportID.String()),
		slog.String("email", task.Email))
	return nil
}

// SendFailure emails a failure notice so the requester always hears back.
func (m *SMTPMailer) SendFailure(ctx context.Context, task reports.ReportTask, errorMessage string) error {
	msg, err := m.newMessage(task.Email)
	if err != nil {
		return err
	}

	msg.Subject("Report generation failed - Telegram Funnel Analytics")
	msg.SetBodyString(mail.TypeTextHTML, failureBody(task, errorMessage))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send failure email: %w", err)
	}

	m.logger.Info("Failure email sent",
		slog.String("reportId", task.ReportID.String()),
		slog.String("email", task.Email))
	return nil
}

func (m *SMTPMailer) newMessage(to string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.senderName, m.senderMail); err != nil {
		return nil, fmt.Errorf("set sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", to, err)
	}
	return msg, nil
}

func formatLabel(format reports.Format) string {
	if format == reports.FormatExcel {
		return "Excel"
	}
	return "PDF"
}

func attachmentMIME(format reports.Format) string {
	if format == reports.FormatExcel {
		return mimeExcel
	}
	return mimePDF
}

func reportBody(task reports.ReportTask, result reports.Result, format reports.Format) string {
	fileSizeKB := result.FileSize / 1024
	return fmt.Sprintf(`
	<html>
	<body style="font-family: Arial, sans-serif;">
		<div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px;">
			<h2 style="color: #2c3e50;">Your %s report is ready</h2>
			<div style="background-color: white; padding: 15px; border-radius: 5px; margin: 15px 0;">
				<p><strong>Project:</strong> %s</p>
				<p><strong>Period:</strong> %s - %s</p>
				<p><strong>Format:</strong> %s</p>
				<p><strong>File size:</strong> %d KB</p>
				<p><strong>Generated at:</strong> %s</p>
			</div>
			<p>The report is attached to this message.</p>
			<div style="margin-top: 20px; padding-top: 15px; border-top: 1px solid #dee2e6; color: #6c757d; font-size: 12px;">
				<p>This message was generated automatically; please do not reply.</p>
				<p>Telegram Funnel Analytics &copy; %d</p>
			</div>
		</div>
	</body>
	</html>`,
		formatLabel(format),
		task.ProjectID,
		task.StartDate.Format("02.01.2006"), task.EndDate.Format("02.01.2006"),
		formatLabel(format),
		fileSizeKB,
		result.GeneratedAt.Format("02.01.2006 15:04"),
		time.Now().Year())
}

func failureBody(task reports.ReportTask, errorMessage string) string {
	return fmt.Sprintf(`
	<html>
	<body style="font-family: Arial, sans-serif;">
		<div style="background-color: #fff3cd; padding: 20px; border-radius: 5px; border: 1px solid #ffeaa7;">
			<h2 style="color: #856404;">Report generation failed</h2>
			<div style="background-color: white; padding: 15px; border-radius: 5px; margin: 15px 0;">
				<p><strong>Project:</strong> %s</p>
				<p><strong>Period:</strong> %s - %s</p>
				<p><strong>Reason:</strong> %s</p>
			</div>
			<p>Please try generating the report again, or contact support.</p>
			<div style="margin-top: 20px; padding-top: 15px; border-top: 1px solid #dee2e6; color: #6c757d; font-size: 12px;">
				<p>Telegram Funnel Analytics &copy; %d</p>
			</div>
		</div>
	</body>
	</html>`,
		task.ProjectID,
		task.StartDate.Format("02.01.2006"), task.EndDate.Format("02.01.2006"),
		errorMessage,
		time.Now().Year())
}
