package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
	"github.com/slack-go/slack"
)

type postWebhookFunc func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// SlackSender posts notifications to a Slack incoming webhook.
type SlackSender struct {
	webhookURL string
	post       postWebhookFunc
}

func NewSlackSender(webhookURL string) *SlackSender {
	return &SlackSender{webhookURL: webhookURL, post: slack.PostWebhookContext}
}

// Send implements notification.Sender.
func (s *SlackSender) Send(ctx context.Context, n notification.Notification) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("*%s*\n%s", n.Title, n.Message),
		Attachments: []slack.Attachment{{
			Color:  color(n.Type),
			Fields: fields(n),
			Footer: string(n.Type),
		}},
	}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func color(t notification.NotificationType) string {
	switch t {
	case notification.TypeAttendanceRequested:
		return "warning"
	case notification.TypePayrollGenerated, notification.TypePayrollPaid:
		return "good"
	default:
		return "#439FE0"
	}
}

func fields(n notification.Notification) []slack.AttachmentField {
	keys := make([]string, 0, len(n.Data))
	for k := range n.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]slack.AttachmentField, 0, len(keys))
	for _, k := range keys {
		out = append(out, slack.AttachmentField{
			Title: strings.ReplaceAll(k, "_", " "),
			Value: fmt.Sprint(n.Data[k]),
			Short: true,
		})
	}
	return out
}

// LogSender writes notifications to the structured log. It is the default
// sink when no Slack webhook is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send implements notification.Sender.
func (s *LogSender) Send(ctx context.Context, n notification.Notification) error {
	s.logger.InfoContext(ctx, n.Title,
		"notification_id", n.ID,
		"type", n.Type,
		"recipient_id", n.RecipientID,
		"actor_id", n.ActorID,
		"message", n.Message,
	)
	return nil
}
