package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lavify/lavify-backend/pkg/config"
	pkgerrors "github.com/lavify/lavify-backend/pkg/errors"
	"github.com/lavify/lavify-backend/pkg/logger"
)

const (
	defaultTimeout = 5 * time.Second
	currencyBRL    = "BRL"
)

// Client is a thin REST client for the Mercado Pago API. It performs no
// retries; callers decide whether a gateway failure is retryable.
type Client struct {
	cfg        config.MercadoPagoConfig
	httpClient *http.Client
	logg       *logger.Logger
}

// NewClient validates the configuration and builds a gateway client.
func NewClient(cfg config.MercadoPagoConfig, logg *logger.Logger) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("mercadopago access token is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("mercadopago base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logg:       logg,
	}, nil
}

// CreatePreference opens a checkout session for the given line items.
func (c *Client) CreatePreference(ctx context.Context, in PreferenceInput) (*Preference, error) {
	if in.ExternalReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference is required")
	}
	if len(in.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}

	var totalCents int64
	items := make([]preferenceItemPayload, 0, len(in.Items))
	for _, item := range in.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		totalCents += item.AmountCents * int64(qty)
		items = append(items, preferenceItemPayload{
			Title:       item.Title,
			Description: item.Description,
			Quantity:    qty,
			UnitPrice:   centsToUnit(item.AmountCents),
			CurrencyID:  currencyBRL,
		})
	}

	payload := preferenceRequestPayload{
		Items: items,
		Payer: preferencePayerPayload{
			Name:  in.PayerName,
			Email: in.PayerEmail,
		},
		BackURLs: preferenceBackURLsPayload{
			Success: c.cfg.SuccessURL,
			Failure: c.cfg.FailureURL,
			Pending: c.cfg.PendingURL,
		},
		AutoReturn:        "approved",
		ExternalReference: in.ExternalReference,
		NotificationURL:   c.cfg.NotifyURL,
	}

	var resp preferenceResponsePayload
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", payload, &resp); err != nil {
		return nil, err
	}

	return &Preference{
		ID:         resp.ID,
		InitPoint:  resp.InitPoint,
		TotalCents: totalCents,
	}, nil
}

// GetPayment fetches the full payment detail by gateway id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	var resp paymentResponsePayload
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &resp); err != nil {
		return nil, err
	}

	payment := &Payment{
		ID:                resp.ID,
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		TransactionAmount: resp.TransactionAmount,
		PaymentMethodID:   resp.PaymentMethodID,
		PaymentTypeID:     resp.PaymentTypeID,
	}
	if resp.DateApproved != "" {
		if approved, err := time.Parse(time.RFC3339, resp.DateApproved); err == nil {
			payment.DateApproved = &approved
		}
	}
	return payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if c.logg != nil {
			ctx = c.logg.WithFields(ctx, map[string]any{
				"gateway_status": resp.StatusCode,
				"gateway_path":   path,
			})
			c.logg.Warn(ctx, "payment gateway returned an error")
		}
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("payment gateway responded with status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}
	return nil
}

// centsToUnit converts integer cents into the gateway's decimal units.
func centsToUnit(cents int64) float64 {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).InexactFloat64()
}
