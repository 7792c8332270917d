package mercadopago

import "time"

// LineItem is one billable line in a checkout preference. Amounts are
// integer cents and converted to the gateway's decimal representation
// on the wire.
type LineItem struct {
	Title       string
	Description string
	AmountCents int64
	Quantity    int
}

// PreferenceInput is everything needed to open a checkout session.
// ExternalReference carries the subscription id so the webhook can
// correlate the payment back to the right subscription.
type PreferenceInput struct {
	ExternalReference string
	PayerName         string
	PayerEmail        string
	Items             []LineItem
}

// Preference is the created checkout session.
type Preference struct {
	ID         string
	InitPoint  string
	TotalCents int64
}

// Payment is the gateway's view of a single payment.
type Payment struct {
	ID                int64
	Status            string
	StatusDetail      string
	ExternalReference string
	TransactionAmount float64
	PaymentMethodID   string
	PaymentTypeID     string
	DateApproved      *time.Time
}

// AmountCents converts the gateway's decimal amount to integer cents.
func (p Payment) AmountCents() int64 {
	return int64(p.TransactionAmount*100 + 0.5)
}

type preferenceItemPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id"`
}

type preferencePayerPayload struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type preferenceBackURLsPayload struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type preferenceRequestPayload struct {
	Items             []preferenceItemPayload   `json:"items"`
	Payer             preferencePayerPayload    `json:"payer"`
	BackURLs          preferenceBackURLsPayload `json:"back_urls"`
	AutoReturn        string                    `json:"auto_return,omitempty"`
	ExternalReference string                    `json:"external_reference"`
	NotificationURL   string                    `json:"notification_url,omitempty"`
}

type preferenceResponsePayload struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type paymentResponsePayload struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
	PaymentMethodID   string  `json:"payment_method_id"`
	PaymentTypeID     string  `json:"payment_type_id"`
	DateApproved      string  `json:"date_approved"`
}
