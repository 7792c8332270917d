package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/api/responses"
	"github.com/lavify/lavify-backend/api/validators"
	"github.com/lavify/lavify-backend/internal/payments"
	"github.com/lavify/lavify-backend/pkg/db/models"
	pkgerrors "github.com/lavify/lavify-backend/pkg/errors"
	"github.com/lavify/lavify-backend/pkg/logger"
	"github.com/lavify/lavify-backend/pkg/pagination"
)

// PaymentService is the checkout and history surface the handlers
// consume.
type PaymentService interface {
	CreateCheckout(ctx context.Context, userID, subID uuid.UUID) (*payments.Checkout, error)
	RetryPayment(ctx context.Context, userID, subID uuid.UUID) (*payments.Checkout, error)
	GetStatusByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.SubscriptionPayment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*payments.Page, error)
	ListBySubscription(ctx context.Context, userID, subID uuid.UUID, params pagination.Params) (*payments.Page, error)
}

type paymentResponse struct {
	ID               uuid.UUID  `json:"id"`
	SubscriptionID   uuid.UUID  `json:"subscriptionId"`
	AmountCents      int64      `json:"amountCents"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	GatewayPaymentID *string    `json:"gatewayPaymentId,omitempty"`
	Method           *string    `json:"method,omitempty"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`
	FailedAt         *time.Time `json:"failedAt,omitempty"`
	ErrorMessage     *string    `json:"errorMessage,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type paymentPageResponse struct {
	Items      []paymentResponse `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

func newPaymentResponse(row *models.SubscriptionPayment) paymentResponse {
	return paymentResponse{
		ID:               row.ID,
		SubscriptionID:   row.SubscriptionID,
		AmountCents:      row.AmountCents,
		Currency:         row.Currency,
		Status:           row.Status.String(),
		GatewayPaymentID: row.GatewayPaymentID,
		Method:           row.Method,
		PaidAt:           row.PaidAt,
		FailedAt:         row.FailedAt,
		ErrorMessage:     row.ErrorMessage,
		CreatedAt:        row.CreatedAt,
	}
}

func newPaymentPageResponse(page *payments.Page) paymentPageResponse {
	resp := paymentPageResponse{NextCursor: page.NextCursor}
	for i := range page.Items {
		resp.Items = append(resp.Items, newPaymentResponse(&page.Items[i]))
	}
	return resp
}

// PaymentCheckout opens a gateway checkout session for a pending
// subscription and returns the redirect URL.
func PaymentCheckout(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subID, err := subscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkout, err := svc.CreateCheckout(r.Context(), userID, subID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

// PaymentRetry reopens a payment-failed subscription and returns a
// fresh checkout session.
func PaymentRetry(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subID, err := subscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkout, err := svc.RetryPayment(r.Context(), userID, subID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

// PaymentStatus looks up one payment by the gateway's id. Used by the
// client polling after checkout redirects back.
func PaymentStatus(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gatewayID := chi.URLParam(r, "gatewayPaymentId")
		if gatewayID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing payment id"))
			return
		}

		row, err := svc.GetStatusByGatewayID(r.Context(), gatewayID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentResponse(row))
	}
}

// PaymentHistory lists the caller's payment attempts, newest first.
func PaymentHistory(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentPageResponse(page))
	}
}

// SubscriptionPaymentHistory lists attempts for one subscription.
func SubscriptionPaymentHistory(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subID, err := subscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListBySubscription(r.Context(), userID, subID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentPageResponse(page))
	}
}
