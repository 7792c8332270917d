package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/lavify/lavify-backend/pkg/config"
	"github.com/lavify/lavify-backend/pkg/logger"
)

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender sends mail through a plain-auth SMTP relay.
type SMTPSender struct {
	cfg  config.SMTPConfig
	logg *logger.Logger
}

// NewSMTPSender builds a sender from SMTP configuration.
func NewSMTPSender(cfg config.SMTPConfig, logg *logger.Logger) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host and from address are required")
	}
	return &SMTPSender{cfg: cfg, logg: logg}, nil
}

// Send delivers a single HTML email. The caller decides whether a
// delivery failure matters; billing flows treat mail as best-effort.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	message := buildMessage(s.cfg.DefaultFrom, to, subject, htmlBody)

	if err := smtp.SendMail(addr, auth, s.cfg.DefaultFrom, []string{to}, []byte(message)); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "email delivery failed", err)
		}
		return fmt.Errorf("sending email: %w", err)
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "email_subject", subject), "email delivered")
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) string {
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": `text/html; charset="utf-8"`,
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.String()
}
