package email

import (
	"context"
	"os"
	"strings"
)

// Sender delivers a plain-text email to a single recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// FromEnv selects the sendgrid sender when SENDGRID_API_KEY is set and falls
// back to the console sender otherwise, so dev environments never need a key.
func FromEnv(logf func(msg string, keysAndValues ...any)) Sender {
	key := strings.TrimSpace(os.Getenv("SENDGRID_API_KEY"))
	if key == "" {
		return &Console{Logf: logf}
	}
	from := strings.TrimSpace(os.Getenv("SENDGRID_FROM_EMAIL"))
	if from == "" {
		from = "no-reply@neurolearn.app"
	}
	fromName := strings.TrimSpace(os.Getenv("SENDGRID_FROM_NAME"))
	if fromName == "" {
		fromName = "NeuroLearn"
	}
	return &SendGrid{APIKey: key, FromEmail: from, FromName: fromName}
}

// Console writes the message to the log instead of sending it.
type Console struct {
	Logf func(msg string, keysAndValues ...any)
}

func (s *Console) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Logf != nil {
		s.Logf("email.console", "to", to, "subject", subject, "body", body)
	}
	return nil
}
