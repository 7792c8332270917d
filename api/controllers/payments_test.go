package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/internal/payments"
	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	"github.com/lavify/lavify-backend/pkg/pagination"
)

type testPaymentService struct {
	checkoutFn func(ctx context.Context, userID, subID uuid.UUID) (*payments.Checkout, error)
	retryFn    func(ctx context.Context, userID, subID uuid.UUID) (*payments.Checkout, error)
	statusFn   func(ctx context.Context, gatewayPaymentID string) (*models.SubscriptionPayment, error)
	listUserFn func(ctx context.Context, userID uuid.UUID, params pagination.Params) (*payments.Page, error)
	listSubFn  func(ctx context.Context, userID, subID uuid.UUID, params pagination.Params) (*payments.Page, error)
}

func (s *testPaymentService) CreateCheckout(ctx context.Context, userID, subID uuid.UUID) (*payments.Checkout, error) {
	if s.checkoutFn != nil {
		return s.checkoutFn(ctx, userID, subID)
	}
	return nil, nil
}

func (s *testPaymentService) RetryPayment(ctx context.Context, userID, subID uuid.UUID) (*payments.Checkout, error) {
	if s.retryFn != nil {
		return s.retryFn(ctx, userID, subID)
	}
	return nil, nil
}

func (s *testPaymentService) GetStatusByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.SubscriptionPayment, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, gatewayPaymentID)
	}
	return nil, nil
}

func (s *testPaymentService) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*payments.Page, error) {
	if s.listUserFn != nil {
		return s.listUserFn(ctx, userID, params)
	}
	return &payments.Page{}, nil
}

func (s *testPaymentService) ListBySubscription(ctx context.Context, userID, subID uuid.UUID, params pagination.Params) (*payments.Page, error) {
	if s.listSubFn != nil {
		return s.listSubFn(ctx, userID, subID, params)
	}
	return &payments.Page{}, nil
}

func TestPaymentCheckoutSuccess(t *testing.T) {
	userID := uuid.New()
	subID := uuid.New()
	svc := &testPaymentService{
		checkoutFn: func(ctx context.Context, uid, sid uuid.UUID) (*payments.Checkout, error) {
			if uid != userID || sid != subID {
				t.Fatalf("unexpected ids %s %s", uid, sid)
			}
			return &payments.Checkout{
				PreferenceID:   "pref-1",
				InitPoint:      "https://mp.example/checkout/pref-1",
				SubscriptionID: sid.String(),
				TotalCents:     16900,
			}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/subscriptions/"+subID.String()+"/checkout", "", userID)
	req = addRouteParam(req, "subscriptionId", subID.String())
	resp := httptest.NewRecorder()
	PaymentCheckout(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data payments.Checkout `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.InitPoint == "" {
		t.Fatal("response missing init point")
	}
}

func TestPaymentCheckoutMissingAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/"+uuid.NewString()+"/checkout", nil)
	req = addRouteParam(req, "subscriptionId", uuid.NewString())
	resp := httptest.NewRecorder()
	PaymentCheckout(&testPaymentService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPaymentStatusReturnsRow(t *testing.T) {
	paidAt := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)
	svc := &testPaymentService{
		statusFn: func(ctx context.Context, gatewayID string) (*models.SubscriptionPayment, error) {
			if gatewayID != "12345" {
				t.Fatalf("unexpected gateway id %s", gatewayID)
			}
			return &models.SubscriptionPayment{
				ID:             uuid.New(),
				SubscriptionID: uuid.New(),
				AmountCents:    16900,
				Currency:       "BRL",
				Status:         enums.PaymentStatusPaid,
				PaidAt:         &paidAt,
			}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/payments/12345", "", uuid.New())
	req = addRouteParam(req, "gatewayPaymentId", "12345")
	resp := httptest.NewRecorder()
	PaymentStatus(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data paymentResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != enums.PaymentStatusPaid.String() {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestPaymentHistoryPassesPagination(t *testing.T) {
	userID := uuid.New()
	svc := &testPaymentService{
		listUserFn: func(ctx context.Context, uid uuid.UUID, params pagination.Params) (*payments.Page, error) {
			if params.Limit != 5 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return &payments.Page{
				Items:      []models.SubscriptionPayment{{ID: uuid.New(), Currency: "BRL"}},
				NextCursor: "abc",
			}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/payments/?limit=5", "", userID)
	resp := httptest.NewRecorder()
	PaymentHistory(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data paymentPageResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.NextCursor != "abc" {
		t.Fatalf("unexpected page %+v", envelope.Data)
	}
}

func TestPaymentHistoryRejectsBadLimit(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/payments/?limit=abc", "", uuid.New())
	resp := httptest.NewRecorder()
	PaymentHistory(&testPaymentService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
