package mailer

import (
	"strings"
	"testing"

	"github.com/lavify/lavify-backend/pkg/config"
)

func TestNewSMTPSenderRequiresHostAndFrom(t *testing.T) {
	if _, err := NewSMTPSender(config.SMTPConfig{}, nil); err == nil {
		t.Fatalf("expected error without host/from")
	}
	if _, err := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com"}, nil); err == nil {
		t.Fatalf("expected error without from address")
	}
	if _, err := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", DefaultFrom: "billing@lavify.com"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildMessageHeadersAndBody(t *testing.T) {
	msg := buildMessage("billing@lavify.com", "owner@example.com", "Assinatura ativada", "<p>ok</p>")

	checks := []string{
		"From: billing@lavify.com\r\n",
		"To: owner@example.com\r\n",
		"Subject: Assinatura ativada\r\n",
		"MIME-Version: 1.0\r\n",
		`Content-Type: text/html; charset="utf-8"` + "\r\n",
	}
	for _, c := range checks {
		if !strings.Contains(msg, c) {
			t.Errorf("missing header %q", c)
		}
	}

	headerEnd := strings.Index(msg, "\r\n\r\n")
	if headerEnd < 0 {
		t.Fatalf("missing header/body separator")
	}
	if body := msg[headerEnd+4:]; body != "<p>ok</p>" {
		t.Fatalf("unexpected body %q", body)
	}
}
