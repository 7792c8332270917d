package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/internal/subscriptions"
	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	pkgerrors "github.com/lavify/lavify-backend/pkg/errors"
	"github.com/lavify/lavify-backend/pkg/logger"
	"github.com/lavify/lavify-backend/pkg/mercadopago"
	"github.com/lavify/lavify-backend/pkg/pagination"
)

// Lifecycle is the slice of the subscription service the payment flow
// drives.
type Lifecycle interface {
	GetByID(ctx context.Context, subID uuid.UUID) (*models.Subscription, error)
	TotalPrice(ctx context.Context, subID uuid.UUID) (*subscriptions.PriceBreakdown, error)
	CleanupStalePending(ctx context.Context, userID uuid.UUID, olderThan time.Duration) error
	MarkPendingForRetry(ctx context.Context, subID uuid.UUID) (*models.Subscription, error)
	ActivateAfterPayment(ctx context.Context, subID uuid.UUID, gatewayPaymentID string) (*models.Subscription, error)
	RenewAfterPayment(ctx context.Context, subID uuid.UUID, gatewayPaymentID string) (*models.Subscription, error)
	HandleFailedPayment(ctx context.Context, subID uuid.UUID, reason string) (*models.Subscription, error)
}

// Gateway is the payment provider surface the service talks to.
type Gateway interface {
	CreatePreference(ctx context.Context, in mercadopago.PreferenceInput) (*mercadopago.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo              Repository
	Subscriptions     Lifecycle
	SubscriptionsRepo subscriptions.Repository
	Gateway           Gateway
	Logger            *logger.Logger
	PendingPaymentTTL time.Duration
}

// Service opens checkout sessions and exposes payment history.
type Service struct {
	repo       Repository
	subs       Lifecycle
	subsRepo   subscriptions.Repository
	gateway    Gateway
	logg       *logger.Logger
	pendingTTL time.Duration
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription service is required")
	}
	if params.SubscriptionsRepo == nil {
		return nil, errors.New("subscriptions repo is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	ttl := params.PendingPaymentTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{
		repo:       params.Repo,
		subs:       params.Subscriptions,
		subsRepo:   params.SubscriptionsRepo,
		gateway:    params.Gateway,
		logg:       params.Logger,
		pendingTTL: ttl,
	}, nil
}

// Checkout is the created gateway session the client is redirected to.
type Checkout struct {
	PreferenceID   string `json:"preferenceId"`
	InitPoint      string `json:"initPoint"`
	SubscriptionID string `json:"subscriptionId"`
	TotalCents     int64  `json:"totalCents"`
}

// CreateCheckout opens a gateway checkout session for a pending
// subscription. The caller's other abandoned pending subscriptions are
// swept first so only one checkout can settle.
func (s *Service) CreateCheckout(ctx context.Context, userID, subID uuid.UUID) (*Checkout, error) {
	if err := s.subs.CleanupStalePending(ctx, userID, s.pendingTTL); err != nil {
		s.logg.Error(ctx, "cleaning stale pending subscriptions before checkout", err)
	}

	sub, err := s.subs.GetByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "subscription belongs to another account")
	}
	if sub.Status != enums.SubscriptionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not awaiting payment")
	}

	breakdown, err := s.subs.TotalPrice(ctx, subID)
	if err != nil {
		return nil, err
	}

	user, err := s.subsRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	items := make([]mercadopago.LineItem, 0, len(breakdown.Lines))
	for _, line := range breakdown.Lines {
		items = append(items, mercadopago.LineItem{
			Title:       line.Label,
			AmountCents: line.AmountCents,
			Quantity:    1,
		})
	}

	pref, err := s.gateway.CreatePreference(ctx, mercadopago.PreferenceInput{
		ExternalReference: sub.ID.String(),
		PayerName:         user.Name,
		PayerEmail:        user.Email,
		Items:             items,
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSubscriptionID(ctx, sub.ID.String())
	s.logg.Info(ctx, "checkout preference created")

	return &Checkout{
		PreferenceID:   pref.ID,
		InitPoint:      pref.InitPoint,
		SubscriptionID: sub.ID.String(),
		TotalCents:     pref.TotalCents,
	}, nil
}

// RetryPayment reopens a failed subscription and starts a new checkout
// for it.
func (s *Service) RetryPayment(ctx context.Context, userID, subID uuid.UUID) (*Checkout, error) {
	sub, err := s.subs.GetByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "subscription belongs to another account")
	}

	if _, err := s.subs.MarkPendingForRetry(ctx, subID); err != nil {
		return nil, err
	}
	return s.CreateCheckout(ctx, userID, subID)
}

// GetStatusByGatewayID returns the payment row recorded for a gateway
// payment id.
func (s *Service) GetStatusByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.SubscriptionPayment, error) {
	payment, err := s.repo.FindByGatewayID(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

// Page is one cursor-paginated slice of payment history.
type Page struct {
	Items      []models.SubscriptionPayment `json:"items"`
	NextCursor string                       `json:"nextCursor,omitempty"`
}

// ListByUser returns the caller's payment history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByUser(ctx, userID, params.Limit, cursor)
	if err != nil {
		return nil, err
	}
	return buildPage(rows, params.Limit), nil
}

// ListBySubscription returns payment attempts for one subscription,
// newest first. Ownership is checked against the caller.
func (s *Service) ListBySubscription(ctx context.Context, userID, subID uuid.UUID, params pagination.Params) (*Page, error) {
	sub, err := s.subs.GetByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "subscription belongs to another account")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListBySubscription(ctx, subID, params.Limit, cursor)
	if err != nil {
		return nil, err
	}
	return buildPage(rows, params.Limit), nil
}

func buildPage(rows []models.SubscriptionPayment, limit int) *Page {
	size := pagination.NormalizeLimit(limit)
	page := &Page{Items: rows}
	if len(rows) > size {
		page.Items = rows[:size]
		last := page.Items[len(page.Items)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page
}
