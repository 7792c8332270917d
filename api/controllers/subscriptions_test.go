package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/api/middleware"
	subsvc "github.com/lavify/lavify-backend/internal/subscriptions"
	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	"github.com/lavify/lavify-backend/pkg/logger"
)

type testSubscriptionService struct {
	createFn      func(ctx context.Context, in subsvc.CreateInput) (*models.Subscription, error)
	getActiveFn   func(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	getByIDFn     func(ctx context.Context, subID uuid.UUID) (*models.Subscription, error)
	cancelFn      func(ctx context.Context, subID uuid.UUID) (*models.Subscription, error)
	upgradeFn     func(ctx context.Context, subID, planID uuid.UUID) (*models.Subscription, error)
	totalPriceFn  func(ctx context.Context, subID uuid.UUID) (*subsvc.PriceBreakdown, error)
	removeAddonFn func(ctx context.Context, subID, addonID uuid.UUID) error
	grantFreeFn   func(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

func (s *testSubscriptionService) Create(ctx context.Context, in subsvc.CreateInput) (*models.Subscription, error) {
	if s.createFn != nil {
		return s.createFn(ctx, in)
	}
	return nil, nil
}

func (s *testSubscriptionService) GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if s.getActiveFn != nil {
		return s.getActiveFn(ctx, userID)
	}
	return nil, nil
}

func (s *testSubscriptionService) GetByID(ctx context.Context, subID uuid.UUID) (*models.Subscription, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, subID)
	}
	return nil, nil
}

func (s *testSubscriptionService) Cancel(ctx context.Context, subID uuid.UUID) (*models.Subscription, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, subID)
	}
	return nil, nil
}

func (s *testSubscriptionService) Suspend(ctx context.Context, subID uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

func (s *testSubscriptionService) Upgrade(ctx context.Context, subID, planID uuid.UUID) (*models.Subscription, error) {
	if s.upgradeFn != nil {
		return s.upgradeFn(ctx, subID, planID)
	}
	return nil, nil
}

func (s *testSubscriptionService) Downgrade(ctx context.Context, subID, planID uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

func (s *testSubscriptionService) AddAddon(ctx context.Context, subID, addonID uuid.UUID) (*models.SubscriptionAddon, error) {
	return nil, nil
}

func (s *testSubscriptionService) RemoveAddon(ctx context.Context, subID, addonID uuid.UUID) error {
	if s.removeAddonFn != nil {
		return s.removeAddonFn(ctx, subID, addonID)
	}
	return nil
}

func (s *testSubscriptionService) CreateFreeForNewUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if s.grantFreeFn != nil {
		return s.grantFreeFn(ctx, userID)
	}
	return nil, nil
}

func (s *testSubscriptionService) TotalPrice(ctx context.Context, subID uuid.UUID) (*subsvc.PriceBreakdown, error) {
	if s.totalPriceFn != nil {
		return s.totalPriceFn(ctx, subID)
	}
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func authedRequest(method, target string, body string, userID uuid.UUID) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestSubscriptionCreateSuccess(t *testing.T) {
	userID := uuid.New()
	planID := uuid.New()
	svc := &testSubscriptionService{
		createFn: func(ctx context.Context, in subsvc.CreateInput) (*models.Subscription, error) {
			if in.UserID != userID {
				t.Fatalf("unexpected user %s", in.UserID)
			}
			if in.PlanID != planID {
				t.Fatalf("unexpected plan %s", in.PlanID)
			}
			if !in.Trial {
				t.Fatal("expected trial flag")
			}
			return &models.Subscription{
				ID:     uuid.New(),
				UserID: userID,
				PlanID: planID,
				Status: enums.SubscriptionStatusTrial,
			}, nil
		},
	}

	body := `{"planId":"` + planID.String() + `","trial":true}`
	req := authedRequest(http.MethodPost, "/api/v1/subscriptions", body, userID)
	resp := httptest.NewRecorder()
	SubscriptionCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data subscriptionResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != enums.SubscriptionStatusTrial.String() {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestSubscriptionCreateLifetimeRequiresAdmin(t *testing.T) {
	userID := uuid.New()
	svc := &testSubscriptionService{
		createFn: func(ctx context.Context, in subsvc.CreateInput) (*models.Subscription, error) {
			t.Fatal("non-admin lifetime request must not reach the service")
			return nil, nil
		},
	}

	body := `{"planId":"` + uuid.NewString() + `","lifetime":true}`
	req := authedRequest(http.MethodPost, "/api/v1/subscriptions", body, userID)
	resp := httptest.NewRecorder()
	SubscriptionCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSubscriptionCreateLifetimeAllowedForAdmin(t *testing.T) {
	userID := uuid.New()
	planID := uuid.New()
	svc := &testSubscriptionService{
		createFn: func(ctx context.Context, in subsvc.CreateInput) (*models.Subscription, error) {
			if !in.Lifetime {
				t.Fatal("expected lifetime flag")
			}
			return &models.Subscription{
				ID:     uuid.New(),
				UserID: userID,
				PlanID: planID,
				Status: enums.SubscriptionStatusLifetime,
			}, nil
		},
	}

	body := `{"planId":"` + planID.String() + `","lifetime":true}`
	req := authedRequest(http.MethodPost, "/api/v1/subscriptions", body, userID)
	req = req.WithContext(middleware.WithRole(req.Context(), string(enums.UserRoleAdmin)))
	resp := httptest.NewRecorder()
	SubscriptionCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSubscriptionCreateMissingAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(`{"planId":"`+uuid.NewString()+`"}`))
	resp := httptest.NewRecorder()
	SubscriptionCreate(&testSubscriptionService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestSubscriptionCreateInvalidBody(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/subscriptions", `{"planId":"not-a-uuid"}`, uuid.New())
	resp := httptest.NewRecorder()
	SubscriptionCreate(&testSubscriptionService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSubscriptionFetchActiveEmpty(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/subscriptions/active", "", uuid.New())
	resp := httptest.NewRecorder()
	SubscriptionFetchActive(&testSubscriptionService{}, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data != nil {
		t.Fatalf("expected empty data got %v", envelope.Data)
	}
}

func TestSubscriptionCancelRejectsForeignOwner(t *testing.T) {
	subID := uuid.New()
	svc := &testSubscriptionService{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return &models.Subscription{ID: id, UserID: uuid.New()}, nil
		},
		cancelFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			t.Fatal("cancel must not be reached")
			return nil, nil
		},
	}

	req := authedRequest(http.MethodDelete, "/api/v1/subscriptions/"+subID.String(), "", uuid.New())
	req = addRouteParam(req, "subscriptionId", subID.String())
	resp := httptest.NewRecorder()
	SubscriptionCancel(svc, testLogger())(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestSubscriptionCancelSuccess(t *testing.T) {
	userID := uuid.New()
	subID := uuid.New()
	svc := &testSubscriptionService{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return &models.Subscription{ID: id, UserID: userID, Status: enums.SubscriptionStatusActive}, nil
		},
		cancelFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return &models.Subscription{ID: id, UserID: userID, Status: enums.SubscriptionStatusCanceled}, nil
		},
	}

	req := authedRequest(http.MethodDelete, "/api/v1/subscriptions/"+subID.String(), "", userID)
	req = addRouteParam(req, "subscriptionId", subID.String())
	resp := httptest.NewRecorder()
	SubscriptionCancel(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data subscriptionResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != enums.SubscriptionStatusCanceled.String() {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestSubscriptionUpgradePassesTargetPlan(t *testing.T) {
	userID := uuid.New()
	subID := uuid.New()
	planID := uuid.New()
	svc := &testSubscriptionService{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return &models.Subscription{ID: id, UserID: userID}, nil
		},
		upgradeFn: func(ctx context.Context, id, target uuid.UUID) (*models.Subscription, error) {
			if target != planID {
				t.Fatalf("unexpected plan %s", target)
			}
			return &models.Subscription{ID: id, UserID: userID, PlanID: target, Status: enums.SubscriptionStatusActive}, nil
		},
	}

	body := `{"planId":"` + planID.String() + `"}`
	req := authedRequest(http.MethodPost, "/api/v1/subscriptions/"+subID.String()+"/upgrade", body, userID)
	req = addRouteParam(req, "subscriptionId", subID.String())
	resp := httptest.NewRecorder()
	SubscriptionUpgrade(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSubscriptionPriceReturnsBreakdown(t *testing.T) {
	userID := uuid.New()
	subID := uuid.New()
	svc := &testSubscriptionService{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return &models.Subscription{ID: id, UserID: userID}, nil
		},
		totalPriceFn: func(ctx context.Context, id uuid.UUID) (*subsvc.PriceBreakdown, error) {
			return &subsvc.PriceBreakdown{
				Lines:      []subsvc.PriceLine{{Label: "Pro", AmountCents: 16900}},
				TotalCents: 16900,
			}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/subscriptions/"+subID.String()+"/price", "", userID)
	req = addRouteParam(req, "subscriptionId", subID.String())
	resp := httptest.NewRecorder()
	SubscriptionPrice(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data subsvc.PriceBreakdown `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.TotalCents != 16900 {
		t.Fatalf("unexpected total %d", envelope.Data.TotalCents)
	}
}

func TestSubscriptionRemoveAddonInvalidID(t *testing.T) {
	userID := uuid.New()
	subID := uuid.New()
	svc := &testSubscriptionService{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return &models.Subscription{ID: id, UserID: userID}, nil
		},
	}

	req := authedRequest(http.MethodDelete, "/api/v1/subscriptions/"+subID.String()+"/addons/bad", "", userID)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("subscriptionId", subID.String())
	routeCtx.URLParams.Add("addonId", "bad")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	resp := httptest.NewRecorder()
	SubscriptionRemoveAddon(svc, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminGrantFreeSubscription(t *testing.T) {
	userID := uuid.New()
	svc := &testSubscriptionService{
		grantFreeFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			if id != userID {
				t.Fatalf("unexpected user %s", id)
			}
			return &models.Subscription{
				ID:     uuid.New(),
				UserID: id,
				Status: enums.SubscriptionStatusActive,
			}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/admin/v1/users/"+userID.String()+"/free-subscription", "", uuid.New())
	req = addRouteParam(req, "userId", userID.String())
	resp := httptest.NewRecorder()
	AdminGrantFreeSubscription(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminGrantFreeSubscriptionConflictWhenHistoryExists(t *testing.T) {
	userID := uuid.New()
	svc := &testSubscriptionService{
		grantFreeFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return nil, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/admin/v1/users/"+userID.String()+"/free-subscription", "", uuid.New())
	req = addRouteParam(req, "userId", userID.String())
	resp := httptest.NewRecorder()
	AdminGrantFreeSubscription(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestAdminGrantFreeSubscriptionInvalidUserID(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/admin/v1/users/bad/free-subscription", "", uuid.New())
	req = addRouteParam(req, "userId", "bad")
	resp := httptest.NewRecorder()
	AdminGrantFreeSubscription(&testSubscriptionService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
