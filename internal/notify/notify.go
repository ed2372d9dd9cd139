// Package notify delivers task and project notifications: an in-app row for
// the owner and, when configured, a Slack incoming webhook message.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	slackapi "github.com/slack-go/slack"

	"piktram/internal/models"
)

// RowWriter stores in-app notifications.
type RowWriter interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
}

// webhookPoster abstracts the Slack webhook call, enabling test mocks.
type webhookPoster interface {
	PostWebhook(ctx context.Context, url string, msg *slackapi.WebhookMessage) error
}

type slackWebhook struct{}

func (slackWebhook) PostWebhook(ctx context.Context, url string, msg *slackapi.WebhookMessage) error {
	return slackapi.PostWebhookContext(ctx, url, msg)
}

// Notifier fans a notification out to the row store and Slack.
type Notifier struct {
	rows       RowWriter
	webhook    webhookPoster
	webhookURL string
	logger     *slog.Logger
}

// New returns a Notifier. An empty webhookURL disables Slack delivery.
func New(rows RowWriter, webhookURL string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{rows: rows, webhook: slackWebhook{}, webhookURL: webhookURL, logger: logger}
}

// Notify writes the row first. A webhook failure does not undo the row;
// both errors are returned joined.
func (n *Notifier) Notify(ctx context.Context, msg models.Notification) error {
	var errs []error
	if n.rows != nil {
		if _, err := n.rows.CreateNotification(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("store notification: %w", err))
		}
	}
	if n.webhookURL != "" {
		if err := n.webhook.PostWebhook(ctx, n.webhookURL, webhookMessage(msg)); err != nil {
			n.logger.Warn("slack webhook failed", slog.String("kind", msg.Kind), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("slack webhook: %w", err))
		}
	}
	return errors.Join(errs...)
}

func webhookMessage(n models.Notification) *slackapi.WebhookMessage {
	text := fmt.Sprintf("*%s*", n.Title)
	if n.Body != "" {
		text += "\n" + n.Body
	}

	var fields []slackapi.AttachmentField
	if n.ProjectID != nil {
		fields = append(fields, slackapi.AttachmentField{Title: "Project", Value: fmt.Sprint(*n.ProjectID), Short: true})
	}
	if n.TaskID != nil {
		fields = append(fields, slackapi.AttachmentField{Title: "Task", Value: fmt.Sprint(*n.TaskID), Short: true})
	}

	msg := &slackapi.WebhookMessage{Text: text}
	if len(fields) > 0 {
		color := "#2563eb"
		if n.Kind == models.KindProjectComplete {
			color = "#059669"
		}
		msg.Attachments = []slackapi.Attachment{{Color: color, Fields: fields, Footer: n.Kind}}
	}
	return msg
}
