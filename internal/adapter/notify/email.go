package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"loan-tracker/internal/domain/loan"
	usecase "loan-tracker/internal/usecase/notification"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// EmailSink mails the rendered notification to the loan's contact address.
// Events without a contact address are skipped.
type EmailSink struct {
	cfg  SMTPConfig
	send func(e *email.Email) error
}

func NewEmailSink(cfg SMTPConfig) *EmailSink {
	s := &EmailSink{cfg: cfg}
	s.send = func(e *email.Email) error {
		addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
		var auth smtp.Auth
		if cfg.Username != "" {
			auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		}
		return e.Send(addr, auth)
	}
	return s
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, ev loan.Event) error {
	if ev.ContactEmail == "" {
		return usecase.ErrSkipped
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	title, msg := usecase.Render(ev)

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{ev.ContactEmail}
	e.Subject = title
	e.Text = []byte(msg + "\n\nLoan reference: " + ev.LoanID + "\n")
	if err := s.send(e); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
