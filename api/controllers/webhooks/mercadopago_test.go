package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lavify/lavify-backend/pkg/config"
	"github.com/lavify/lavify-backend/pkg/logger"
)

type recordingProcessor struct {
	mu     sync.Mutex
	bodies [][]byte
	done   chan struct{}
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{done: make(chan struct{}, 8)}
}

func (p *recordingProcessor) Process(ctx context.Context, body []byte) {
	p.mu.Lock()
	p.bodies = append(p.bodies, body)
	p.mu.Unlock()
	p.done <- struct{}{}
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bodies)
}

func (p *recordingProcessor) waitForCall(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler was not invoked")
	}
}

func webhookLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func signBody(secret, requestID, ts string, body []byte) string {
	manifest := fmt.Sprintf("id=%s;ts=%s;body=%s", requestID, ts, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return "ts=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestMercadoPagoDispatchesToReconciler(t *testing.T) {
	proc := newRecordingProcessor()
	cfg := config.MercadoPagoConfig{WebhookSecret: "whsec"}
	handler := MercadoPago(cfg, proc, webhookLogger())

	body := []byte(`{"type":"payment","data":{"id":"12345"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", strings.NewReader(string(body)))
	req.Header.Set("X-Signature", signBody("whsec", "req-1", "1723723200", body))
	req.Header.Set("X-Request-Id", "req-1")
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	proc.waitForCall(t)
	if proc.count() != 1 {
		t.Fatalf("expected 1 dispatch got %d", proc.count())
	}
}

func TestMercadoPagoIgnoresPayloadWithoutPaymentID(t *testing.T) {
	proc := newRecordingProcessor()
	cfg := config.MercadoPagoConfig{WebhookSecret: "whsec"}
	handler := MercadoPago(cfg, proc, webhookLogger())

	body := []byte(`{"type":"test"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", strings.NewReader(string(body)))
	req.Header.Set("X-Signature", signBody("whsec", "req-2", "1723723200", body))
	req.Header.Set("X-Request-Id", "req-2")
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if proc.count() != 0 {
		t.Fatalf("expected no dispatch got %d", proc.count())
	}
}

func TestMercadoPagoRejectsWhenNoSecretConfigured(t *testing.T) {
	proc := newRecordingProcessor()
	handler := MercadoPago(config.MercadoPagoConfig{}, proc, webhookLogger())

	body := []byte(`{"type":"payment","data":{"id":"12345"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", strings.NewReader(string(body)))
	req.Header.Set("X-Signature", signBody("whsec", "req-3", "1723723200", body))
	req.Header.Set("X-Request-Id", "req-3")
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("gateway must still see 200, got %d", resp.Code)
	}
	if proc.count() != 0 {
		t.Fatalf("expected no dispatch got %d", proc.count())
	}
}

func TestMercadoPagoRejectsBadSignatureSilently(t *testing.T) {
	proc := newRecordingProcessor()
	cfg := config.MercadoPagoConfig{WebhookSecret: "whsec"}
	handler := MercadoPago(cfg, proc, webhookLogger())

	body := `{"type":"payment","data":{"id":"12345"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", strings.NewReader(body))
	req.Header.Set("X-Signature", "ts=1,v1=deadbeef")
	req.Header.Set("X-Request-Id", "req-1")
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("gateway must still see 200, got %d", resp.Code)
	}
	if proc.count() != 0 {
		t.Fatalf("expected no dispatch got %d", proc.count())
	}
}

func TestMercadoPagoAcceptsValidSignature(t *testing.T) {
	proc := newRecordingProcessor()
	cfg := config.MercadoPagoConfig{WebhookSecret: "whsec"}
	handler := MercadoPago(cfg, proc, webhookLogger())

	body := []byte(`{"type":"payment","data":{"id":"12345"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", strings.NewReader(string(body)))
	req.Header.Set("X-Signature", signBody("whsec", "req-1", "1723723200", body))
	req.Header.Set("X-Request-Id", "req-1")
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	proc.waitForCall(t)
}
