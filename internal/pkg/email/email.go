package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/config"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxRetries = 3

// Transport hands a complete MIME message to a mail service.
type Transport interface {
	Deliver(ctx context.Context, from string, to []string, msg []byte) error
}

// Sender mails notifications to the addressed employee, or to the configured
// admin mailboxes for notification.RecipientAdmins.
type Sender struct {
	cfg       config.EmailConfig
	employees employee.EmployeeRepository
	templates *template.Template
	transport Transport
	backoff   time.Duration
}

func NewSender(cfg config.EmailConfig, employees employee.EmployeeRepository, transport Transport) (*Sender, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Sender{
		cfg:       cfg,
		employees: employees,
		templates: tmpl,
		transport: transport,
		backoff:   time.Second,
	}, nil
}

type field struct {
	Name  string
	Value string
}

type notificationEmailData struct {
	RecipientName string
	Title         string
	Message       string
	Fields        []field
	SentAt        string
}

// Send implements notification.Sender.
func (s *Sender) Send(ctx context.Context, n notification.Notification) error {
	recipients, name, err := s.resolve(ctx, n.RecipientID)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	data := notificationEmailData{
		RecipientName: name,
		Title:         n.Title,
		Message:       n.Message,
		Fields:        fields(n.Data),
		SentAt:        n.CreatedAt.Format("02 Jan 2006 15:04"),
	}

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "notification.html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return s.sendHTML(ctx, recipients, n.Title, body.String())
}

func (s *Sender) resolve(ctx context.Context, recipientID string) ([]string, string, error) {
	if recipientID == notification.RecipientAdmins {
		return s.cfg.AdminEmails, "Admin", nil
	}

	emp, err := s.employees.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			slog.Warn("notification recipient has no employee profile, skipping email", "recipient_id", recipientID)
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to look up recipient: %w", err)
	}
	if emp.Email == "" {
		return nil, "", nil
	}
	return []string{emp.Email}, emp.FullName, nil
}

func fields(data map[string]interface{}) []field {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]field, 0, len(keys))
	for _, k := range keys {
		out = append(out, field{Name: strings.ReplaceAll(k, "_", " "), Value: fmt.Sprint(data[k])})
	}
	return out
}

func (s *Sender) sendHTML(ctx context.Context, to []string, subject, htmlBody string) error {
	if s.transport == nil {
		slog.Warn("Email transport not configured, skipping email send", "to", to, "subject", subject)
		return nil
	}

	from := s.cfg.From

	headers := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, from)
	headers += fmt.Sprintf("To: %s\r\n", strings.Join(to, ", "))
	headers += fmt.Sprintf("Subject: %s\r\n", subject)
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	headers += "\r\n"

	message := []byte(headers + htmlBody)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.transport.Deliver(ctx, from, to, message)
		if err == nil {
			slog.Info("Email sent successfully", "to", to, "subject", subject, "attempt", attempt)
			return nil
		}

		lastErr = err
		slog.Error("Failed to send email",
			"to", to,
			"subject", subject,
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", err,
		)

		// Exponential backoff: 1x, 2x, 4x
		if attempt < maxRetries {
			select {
			case <-time.After(s.backoff << (attempt - 1)):
			case <-ctx.Done():
				return fmt.Errorf("email send cancelled: %w", ctx.Err())
			}
		}
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}
