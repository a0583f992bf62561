// Package mailer renders HTML templates and delivers them over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
)

// Template ids.
const (
	TemplateOTP   = "otp"
	TemplateOrder = "order"
)

// ErrDelivery marks a failure to hand the message to the mail transport.
var ErrDelivery = errors.New("mailer: delivery failed")

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is one email: recipient, subject, template id and its variables.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     any
}

// Mailer sends a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Render executes the message template.
func Render(msg Message) (string, error) {
	t := templates.Lookup(msg.Template + ".html")
	if t == nil {
		return "", fmt.Errorf("mailer: unknown template %q", msg.Template)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, msg.Data); err != nil {
		return "", fmt.Errorf("mailer: rendering %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

// LogMailer renders messages and logs them instead of sending. Used when no
// SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if _, err := Render(msg); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail not sent (no SMTP configured)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("template", msg.Template),
		slog.Any("data", msg.Data),
	)
	return nil
}
