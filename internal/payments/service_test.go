package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/internal/subscriptions"
	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	pkgerrors "github.com/lavify/lavify-backend/pkg/errors"
	"github.com/lavify/lavify-backend/pkg/logger"
)

// stubUserLookup satisfies the subscriptions repository surface the
// payment service touches (the payer lookup only).
type stubUserLookup struct {
	subscriptions.Repository

	userID uuid.UUID
}

func (s *stubUserLookup) FindUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if id != s.userID {
		return nil, nil
	}
	return &models.User{ID: id, Name: "Maria", Email: "maria@example.com"}, nil
}

func newServiceFixture(t *testing.T, subStatus enums.SubscriptionStatus) (*Service, *reconcilerFixture) {
	t.Helper()

	f := newReconcilerFixture(t, subStatus)
	svc, err := NewService(ServiceParams{
		Repo:              f.repo,
		Subscriptions:     f.subs,
		SubscriptionsRepo: &stubUserLookup{userID: f.subs.sub.UserID},
		Gateway:           f.gateway,
		Logger:            logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, f
}

func TestCreateCheckout(t *testing.T) {
	svc, f := newServiceFixture(t, enums.SubscriptionStatusPending)

	checkout, err := svc.CreateCheckout(context.Background(), f.subs.sub.UserID, f.subID)
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}

	if checkout.InitPoint == "" || checkout.PreferenceID == "" {
		t.Fatalf("checkout missing gateway session: %+v", checkout)
	}
	if checkout.TotalCents != 16900 {
		t.Fatalf("expected itemized total, got %d", checkout.TotalCents)
	}
	if f.subs.cleanups != 1 {
		t.Fatalf("stale pending cleanup must run before checkout")
	}
}

func TestCreateCheckoutOwnershipAndState(t *testing.T) {
	svc, f := newServiceFixture(t, enums.SubscriptionStatusPending)

	if _, err := svc.CreateCheckout(context.Background(), uuid.New(), f.subID); pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for foreign subscription, got %v", err)
	}

	f.subs.sub.Status = enums.SubscriptionStatusActive
	if _, err := svc.CreateCheckout(context.Background(), f.subs.sub.UserID, f.subID); pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for non-pending subscription, got %v", err)
	}
}

func TestRetryPaymentReopensFailedSubscription(t *testing.T) {
	svc, f := newServiceFixture(t, enums.SubscriptionStatusPaymentFailed)

	checkout, err := svc.RetryPayment(context.Background(), f.subs.sub.UserID, f.subID)
	if err != nil {
		t.Fatalf("retry payment: %v", err)
	}
	if f.subs.retried != 1 {
		t.Fatalf("expected retry transition, got %d", f.subs.retried)
	}
	if checkout.InitPoint == "" {
		t.Fatalf("retry must open a fresh checkout")
	}
}

func TestRetryPaymentRequiresFailedState(t *testing.T) {
	svc, f := newServiceFixture(t, enums.SubscriptionStatusActive)

	if _, err := svc.RetryPayment(context.Background(), f.subs.sub.UserID, f.subID); pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGetStatusByGatewayID(t *testing.T) {
	svc, f := newServiceFixture(t, enums.SubscriptionStatusActive)

	if _, err := svc.GetStatusByGatewayID(context.Background(), "missing"); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	gatewayID := "200"
	_ = f.repo.Create(context.Background(), &models.SubscriptionPayment{
		SubscriptionID:   f.subID,
		AmountCents:      16900,
		Status:           enums.PaymentStatusPaid,
		GatewayPaymentID: &gatewayID,
	})

	payment, err := svc.GetStatusByGatewayID(context.Background(), gatewayID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if payment.Status != enums.PaymentStatusPaid {
		t.Fatalf("expected PAID, got %s", payment.Status)
	}
}
