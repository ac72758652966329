package notifier

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"interviewgo/internal/config"
	"interviewgo/internal/interview"
)

// EmailNotifier sends the completed transcript to a fixed recipient over SMTP.
type EmailNotifier struct {
	dialer          *gomail.Dialer
	from            string
	to              string
	subjectTemplate string
}

func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		dialer:          gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:            cfg.From,
		to:              cfg.To,
		subjectTemplate: cfg.SubjectTemplate,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, username, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", fmt.Sprintf(n.subjectTemplate, username))
	m.SetBody("text/plain", body)
	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}
	return nil
}

// NoOp satisfies the notifier port when email delivery is disabled.
type NoOp struct{}

func (NoOp) Notify(context.Context, string, string) error { return nil }

// FromConfig returns the email notifier when enabled, otherwise a no-op.
func FromConfig(cfg config.EmailConfig) interview.Notifier {
	if cfg.Enabled {
		return NewEmailNotifier(cfg)
	}
	return NoOp{}
}
