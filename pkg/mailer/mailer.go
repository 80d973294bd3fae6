package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/freshfork/mealkit-backend/pkg/config"
)

// Mailer sends one transactional email. Implementations must respect the
// context deadline; callers never retry, the notification worker does.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered transactional email.
type Message struct {
	To       string
	Subject  string
	TextBody string
}

type sendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendgrid builds a Mailer backed by the Sendgrid API.
func NewSendgrid(cfg config.SendgridConfig) (Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, fmt.Errorf("sendgrid from email is required")
	}
	return &sendgridMailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
	}, nil
}

func (m *sendgridMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient is required")
	}
	email := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail("", msg.To), msg.TextBody, "")
	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
