package email

import (
	"context"

	"github.com/resend/resend-go/v2"
	"github.com/willjksn/echoflux/internal/config"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/logger"
)

// Sender delivers operational email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

type resendSender struct {
	client *resend.Client
	from   string
	logger *logger.Logger
}

// NewSender returns a resend-backed Sender, or a no-op sender when no API
// key is configured so callers never have to nil-check.
func NewSender(cfg *config.Configuration, log *logger.Logger) Sender {
	if !cfg.Email.Enabled || cfg.Email.APIKey == "" {
		log.Warnw("email disabled, alerts will be logged only")
		return &noopSender{logger: log}
	}
	return &resendSender{
		client: resend.NewClient(cfg.Email.APIKey),
		from:   cfg.Email.FromAddress,
		logger: log,
	}
}

func (s *resendSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    htmlBody,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to send email").
			WithDetail("subject", subject).
			Mark(ierr.ErrSystem)
	}

	s.logger.Debugw("email sent", "email_id", sent.Id, "subject", subject)
	return nil
}

type noopSender struct {
	logger *logger.Logger
}

func (s *noopSender) Send(_ context.Context, to []string, subject, _ string) error {
	s.logger.Infow("email suppressed", "to", to, "subject", subject)
	return nil
}
