package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	"github.com/lavify/lavify-backend/pkg/logger"
	"github.com/lavify/lavify-backend/pkg/mercadopago"
	"github.com/lavify/lavify-backend/pkg/redis"
)

const webhookScope = "mercadopago"

// TxRunner executes fn within a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReconcilerParams groups dependencies for the webhook reconciler.
type ReconcilerParams struct {
	DB            TxRunner
	Repo          Repository
	Subscriptions Lifecycle
	Gateway       Gateway
	Replay        redis.ReplayStore
	Logger        *logger.Logger
	ReplayTTL     time.Duration
}

// Reconciler turns gateway webhook notifications into subscription
// transitions. The webhook payload is treated as a hint only; the
// payment is always re-fetched from the gateway before anything moves.
type Reconciler struct {
	db        TxRunner
	repo      Repository
	subs      Lifecycle
	gateway   Gateway
	replay    redis.ReplayStore
	logg      *logger.Logger
	replayTTL time.Duration
}

// NewReconciler builds a webhook reconciler.
func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription service is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	ttl := params.ReplayTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Reconciler{
		db:        params.DB,
		repo:      params.Repo,
		subs:      params.Subscriptions,
		gateway:   params.Gateway,
		replay:    params.Replay,
		logg:      params.Logger,
		replayTTL: ttl,
	}, nil
}

type webhookPayload struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
	ID       json.Number `json:"id"`
	Resource string      `json:"resource"`
}

// ExtractPaymentID pulls the gateway payment id out of a webhook body.
// The gateway sends three shapes over time: data.id, a top-level id,
// and a resource URL whose last segment is the id.
func ExtractPaymentID(body []byte) (string, bool) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	if id := payload.Data.ID.String(); id != "" {
		return id, true
	}
	if id := payload.ID.String(); id != "" {
		return id, true
	}
	if payload.Resource != "" {
		trimmed := strings.TrimRight(payload.Resource, "/")
		if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && idx < len(trimmed)-1 {
			return trimmed[idx+1:], true
		}
	}
	return "", false
}

// Process reconciles one webhook notification. Errors are contained:
// the webhook endpoint always acknowledges, so everything here is
// logged instead of propagated to the gateway.
func (r *Reconciler) Process(ctx context.Context, body []byte) {
	paymentID, ok := ExtractPaymentID(body)
	if !ok {
		r.logg.Warn(ctx, "webhook payload carried no payment id")
		return
	}
	ctx = r.logg.WithField(ctx, "gateway_payment_id", paymentID)

	if !r.claim(ctx, paymentID) {
		r.logg.Info(ctx, "webhook already processed, skipping replay")
		return
	}

	payment, err := r.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		r.release(ctx, paymentID)
		r.logg.Error(ctx, "fetching payment from gateway", err)
		return
	}

	if payment.ExternalReference == "" {
		r.logg.Warn(ctx, "gateway payment has no external reference, cannot correlate")
		return
	}
	subID, err := uuid.Parse(payment.ExternalReference)
	if err != nil {
		r.logg.Error(ctx, "gateway external reference is not a subscription id", err)
		return
	}
	ctx = r.logg.WithSubscriptionID(ctx, subID.String())

	if err := r.apply(ctx, subID, paymentID, payment); err != nil {
		r.release(ctx, paymentID)
		r.logg.Error(ctx, "applying payment to subscription", err)
	}
}

// claim takes the replay guard for this payment id. Without a replay
// store every delivery is processed; idempotent transitions downstream
// keep that safe.
func (r *Reconciler) claim(ctx context.Context, paymentID string) bool {
	if r.replay == nil {
		return true
	}
	claimed, err := r.replay.SetNX(ctx, r.replay.WebhookKey(webhookScope, paymentID), "1", r.replayTTL)
	if err != nil {
		r.logg.Error(ctx, "webhook replay guard unavailable, processing anyway", err)
		return true
	}
	return claimed
}

// release frees the replay guard so the gateway's retry can try again.
func (r *Reconciler) release(ctx context.Context, paymentID string) {
	if r.replay == nil {
		return
	}
	if err := r.replay.Del(ctx, r.replay.WebhookKey(webhookScope, paymentID)); err != nil {
		r.logg.Error(ctx, "releasing webhook replay guard", err)
	}
}

// apply settles the payment row inside one transaction. The row is
// loaded under a FOR UPDATE lock and stays locked until commit, so two
// concurrent deliveries of the same payment serialize and only the
// first one settles. Lifecycle transitions run after the commit; the
// loser of the race finds a terminal row and never reaches them.
func (r *Reconciler) apply(ctx context.Context, subID uuid.UUID, paymentID string, gateway *mercadopago.Payment) error {
	sub, err := r.subs.GetByID(ctx, subID)
	if err != nil {
		return err
	}

	status := mercadopago.MapStatus(gateway.Status)
	now := time.Now().UTC()

	var settled bool
	err = r.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)

		row, err := r.loadOrCreateRow(ctx, repo, subID, paymentID, sub, gateway)
		if err != nil {
			return err
		}
		if row.Status.IsTerminal() {
			r.logg.Info(ctx, "payment already settled, nothing to reconcile")
			return nil
		}

		switch status {
		case enums.PaymentStatusPaid:
			row.Status = enums.PaymentStatusPaid
			row.PaidAt = &now
			if gateway.DateApproved != nil {
				row.PaidAt = gateway.DateApproved
			}
			row.Method = methodOf(gateway)
			if err := repo.Update(ctx, row); err != nil {
				return err
			}
			settled = true
			return nil

		case enums.PaymentStatusProcessing:
			row.Status = enums.PaymentStatusProcessing
			row.Method = methodOf(gateway)
			return repo.Update(ctx, row)

		case enums.PaymentStatusFailed:
			row.Status = enums.PaymentStatusFailed
			row.FailedAt = &now
			row.Method = methodOf(gateway)
			if gateway.StatusDetail != "" {
				detail := gateway.StatusDetail
				row.ErrorMessage = &detail
			}
			if err := repo.Update(ctx, row); err != nil {
				return err
			}
			settled = true
			return nil

		default:
			r.logg.Info(ctx, "gateway payment still pending, no transition")
			return nil
		}
	})
	if err != nil || !settled {
		return err
	}

	switch status {
	case enums.PaymentStatusPaid:
		if sub.Status == enums.SubscriptionStatusActive || sub.Status == enums.SubscriptionStatusPastDue {
			_, err = r.subs.RenewAfterPayment(ctx, subID, paymentID)
		} else {
			_, err = r.subs.ActivateAfterPayment(ctx, subID, paymentID)
		}
		return err

	case enums.PaymentStatusFailed:
		_, err = r.subs.HandleFailedPayment(ctx, subID, gateway.StatusDetail)
		return err
	}
	return nil
}

// loadOrCreateRow finds the payment row for this notification. It
// prefers the gateway id, falls back to the subscription's open
// attempt, and as a last resort records a fresh row so a notification
// arriving before checkout bookkeeping is never lost. Lookups take row
// locks, so it must run inside the settle transaction.
func (r *Reconciler) loadOrCreateRow(ctx context.Context, repo Repository, subID uuid.UUID, paymentID string, sub *models.Subscription, gateway *mercadopago.Payment) (*models.SubscriptionPayment, error) {
	row, err := repo.FindByGatewayIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}

	row, err = repo.FindLatestOpenBySubscriptionForUpdate(ctx, subID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		row.GatewayPaymentID = &paymentID
		if err := repo.Update(ctx, row); err != nil {
			return nil, err
		}
		return row, nil
	}

	amount := gateway.AmountCents()
	if amount == 0 {
		amount = sub.PriceCents
	}
	row = &models.SubscriptionPayment{
		SubscriptionID:   subID,
		AmountCents:      amount,
		Currency:         "BRL",
		Status:           enums.PaymentStatusPending,
		GatewayPaymentID: &paymentID,
	}
	if err := repo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func methodOf(payment *mercadopago.Payment) *string {
	if payment.PaymentMethodID == "" {
		return nil
	}
	method := payment.PaymentMethodID
	return &method
}
