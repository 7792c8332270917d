package webhooks

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/lavify/lavify-backend/internal/payments"
	"github.com/lavify/lavify-backend/pkg/config"
	"github.com/lavify/lavify-backend/pkg/logger"
	"github.com/lavify/lavify-backend/pkg/mercadopago"
)

const processTimeout = 30 * time.Second

// Processor reconciles one raw webhook notification.
type Processor interface {
	Process(ctx context.Context, body []byte)
}

// MercadoPago receives gateway payment notifications. The response is
// always 200 so the gateway never retries because of our own errors;
// reconciliation happens in the background off the request lifecycle.
func MercadoPago(cfg config.MercadoPagoConfig, rec Processor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			logg.Error(r.Context(), "reading webhook body", err)
			w.WriteHeader(http.StatusOK)
			return
		}

		sig := r.Header.Get("X-Signature")
		reqID := r.Header.Get("X-Request-Id")
		if !mercadopago.VerifySignature(cfg.WebhookSecret, sig, reqID, body) {
			logg.Warn(r.Context(), "webhook signature did not validate")
			w.WriteHeader(http.StatusOK)
			return
		}

		if _, ok := payments.ExtractPaymentID(body); !ok {
			logg.Info(logg.WithField(r.Context(), "event", "webhook.ignored"), "webhook carried no payment id")
			w.WriteHeader(http.StatusOK)
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
			defer cancel()
			rec.Process(ctx, body)
		}()

		w.WriteHeader(http.StatusOK)
	}
}
