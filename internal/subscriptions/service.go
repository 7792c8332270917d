package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lavify/lavify-backend/internal/catalog"
	"github.com/lavify/lavify-backend/internal/companies"
	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	pkgerrors "github.com/lavify/lavify-backend/pkg/errors"
	"github.com/lavify/lavify-backend/pkg/logger"
)

const (
	defaultTrialDays          = 7
	defaultTrialWarningWindow = 12 * time.Hour
)

// TxRunner executes fn within a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Mailer is the notification surface the lifecycle needs. Delivery
// failures are logged by the service and never block a transition.
type Mailer interface {
	SubscriptionActivated(ctx context.Context, user *models.User, plan *models.SubscriptionPlan) error
	SubscriptionRenewed(ctx context.Context, user *models.User, plan *models.SubscriptionPlan, breakdown PriceBreakdown) error
	PaymentFailed(ctx context.Context, user *models.User, plan *models.SubscriptionPlan, reason string) error
	SubscriptionCanceled(ctx context.Context, user *models.User, plan *models.SubscriptionPlan) error
	SubscriptionUpgraded(ctx context.Context, user *models.User, oldPlan, newPlan *models.SubscriptionPlan) error
	TrialExpired(ctx context.Context, user *models.User, plan *models.SubscriptionPlan) error
	TrialEndingSoon(ctx context.Context, user *models.User, plan *models.SubscriptionPlan, daysLeft int) error
}

// PriceLine is one entry in an itemized price breakdown.
type PriceLine struct {
	Label       string `json:"label"`
	AmountCents int64  `json:"amountCents"`
}

// PriceBreakdown itemizes what a subscription costs per cycle.
type PriceBreakdown struct {
	Lines      []PriceLine `json:"lines"`
	TotalCents int64       `json:"totalCents"`
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	DB        TxRunner
	Repo      Repository
	Catalog   catalog.Repository
	Companies companies.Repository
	Mailer    Mailer
	Logger    *logger.Logger
	TrialDays int
	// TrialWarningWindow is how far behind each warning mark a sweep
	// looks for ending trials. Defaults to 12h.
	TrialWarningWindow time.Duration
	Now                func() time.Time
}

// Service owns the subscription state machine. Every transition is an
// atomic read-modify-write inside a database transaction.
type Service struct {
	db        TxRunner
	repo      Repository
	catalog   catalog.Repository
	companies companies.Repository
	mailer     Mailer
	logg       *logger.Logger
	trialDays  int
	warnWindow time.Duration
	now        func() time.Time
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog repo is required")
	}
	if params.Companies == nil {
		return nil, errors.New("companies repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	trialDays := params.TrialDays
	if trialDays <= 0 {
		trialDays = defaultTrialDays
	}
	warnWindow := params.TrialWarningWindow
	if warnWindow <= 0 {
		warnWindow = defaultTrialWarningWindow
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		db:         params.DB,
		repo:       params.Repo,
		catalog:    params.Catalog,
		companies:  params.Companies,
		mailer:     params.Mailer,
		logg:       params.Logger,
		trialDays:  trialDays,
		warnWindow: warnWindow,
		now:        now,
	}, nil
}

// CreateInput carries the purchase request for a new subscription.
type CreateInput struct {
	UserID   uuid.UUID
	PlanID   uuid.UUID
	Trial    bool
	Lifetime bool
}

// Create provisions a new subscription. Free plans and lifetime grants
// become usable immediately; paid plans start PENDING with a companion
// payment row and wait for the gateway.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Subscription, error) {
	var created *models.Subscription
	var plan *models.SubscriptionPlan

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		var err error
		plan, err = catalogRepo.FindPlanByID(ctx, in.PlanID)
		if err != nil {
			return err
		}
		if plan == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		if !plan.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "plan is not available for purchase")
		}

		live, err := repo.FindLiveByUser(ctx, in.UserID)
		if err != nil {
			return err
		}
		if live != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "an active subscription already exists for this account")
		}

		if in.Trial {
			used, err := repo.HasTrialUsed(ctx, in.UserID)
			if err != nil {
				return err
			}
			if used {
				return pkgerrors.New(pkgerrors.CodeConflict, "trial period has already been used")
			}
		}

		now := s.now()
		priceCents := plan.PriceCents

		if !in.Lifetime && !plan.IsFree() {
			promo, err := catalogRepo.FindRedeemablePromotion(ctx, plan.ID, now)
			if err != nil {
				return err
			}
			if promo != nil && promo.IsRedeemable(now) {
				priceCents = promo.Apply(priceCents)
				if err := catalogRepo.IncrementPromotionUse(ctx, promo.ID); err != nil {
					return err
				}
				s.logg.Info(s.logg.WithFields(ctx, map[string]any{
					"promotion":   promo.Name,
					"price_cents": priceCents,
				}), "promotion applied at purchase")
			}
		}

		sub := &models.Subscription{
			UserID:     in.UserID,
			PlanID:     plan.ID,
			StartDate:  now,
			PriceCents: priceCents,
		}

		switch {
		case in.Lifetime:
			sub.Status = enums.SubscriptionStatusLifetime

		case in.Trial:
			days := plan.TrialDays
			if days <= 0 {
				days = s.trialDays
			}
			trialEnd := now.Add(time.Duration(days) * 24 * time.Hour)
			sub.Status = enums.SubscriptionStatusTrial
			sub.TrialStart = &now
			sub.TrialEnd = &trialEnd
			sub.IsCurrentlyTrial = true
			sub.IsTrialUsed = true

		case plan.IsFree():
			sub.Status = enums.SubscriptionStatusActive

		default:
			sub.Status = enums.SubscriptionStatusPending
		}

		if err := repo.Create(ctx, sub); err != nil {
			// The partial unique index backstops the live check above
			// when two creates race past it.
			if pkgerrors.IsUniqueViolation(err, "uniq_subscriptions_live_per_user") {
				return pkgerrors.New(pkgerrors.CodeConflict, "an active subscription already exists for this account")
			}
			return err
		}

		if sub.Status == enums.SubscriptionStatusPending {
			payment := &models.SubscriptionPayment{
				SubscriptionID: sub.ID,
				AmountCents:    sub.PriceCents,
				Currency:       "BRL",
				Status:         enums.PaymentStatusPending,
			}
			if err := repo.CreatePayment(ctx, payment); err != nil {
				return err
			}
		}

		created = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created.Status.GrantsAccess() {
		s.notifyActivated(ctx, created.UserID, plan)
	}
	return created, nil
}

// ActivateAfterPayment moves a subscription to ACTIVE after the gateway
// confirmed a payment. Already-usable subscriptions are left untouched
// so replayed webhooks stay harmless.
func (s *Service) ActivateAfterPayment(ctx context.Context, subID uuid.UUID, gatewayPaymentID string) (*models.Subscription, error) {
	var sub *models.Subscription
	var activated bool

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		sub, err = repo.FindByID(ctx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		if sub.Status == enums.SubscriptionStatusActive || sub.Status == enums.SubscriptionStatusLifetime {
			return nil
		}

		now := s.now()
		next := NextBillingDate(now)
		sub.Status = enums.SubscriptionStatusActive
		sub.IsCurrentlyTrial = false
		sub.StartDate = now
		sub.NextBillingDate = &next
		if gatewayPaymentID != "" {
			sub.GatewayPaymentID = &gatewayPaymentID
		}
		activated = true
		return repo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	if activated {
		s.notifyActivated(ctx, sub.UserID, sub.Plan)
	}
	return sub, nil
}

// RenewAfterPayment pushes the billing anchor one cycle forward after a
// successful renewal charge. Past-due subscriptions recover to ACTIVE.
func (s *Service) RenewAfterPayment(ctx context.Context, subID uuid.UUID, gatewayPaymentID string) (*models.Subscription, error) {
	var sub *models.Subscription

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		sub, err = repo.FindByID(ctx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}

		now := s.now()
		next := NextBillingDate(now)
		sub.Status = enums.SubscriptionStatusActive
		sub.IsCurrentlyTrial = false
		sub.NextBillingDate = &next
		if gatewayPaymentID != "" {
			sub.GatewayPaymentID = &gatewayPaymentID
		}
		return repo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	breakdown, berr := s.TotalPrice(ctx, sub.ID)
	if berr != nil {
		s.logg.Error(ctx, "computing renewal breakdown for receipt", berr)
		breakdown = &PriceBreakdown{TotalCents: sub.PriceCents}
	}
	s.notify(ctx, sub.UserID, func(user *models.User) error {
		return s.mailer.SubscriptionRenewed(ctx, user, sub.Plan, *breakdown)
	})
	return sub, nil
}

// HandleFailedPayment marks the subscription PAYMENT_FAILED. The
// transition applies from any prior state, lifetime and canceled
// included; the gateway's word on a failed charge is final here and the
// retry path is the only way back.
func (s *Service) HandleFailedPayment(ctx context.Context, subID uuid.UUID, reason string) (*models.Subscription, error) {
	var sub *models.Subscription

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		sub, err = repo.FindByID(ctx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}

		sub.Status = enums.SubscriptionStatusPaymentFailed
		sub.IsCurrentlyTrial = false
		return repo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, sub.UserID, func(user *models.User) error {
		return s.mailer.PaymentFailed(ctx, user, sub.Plan, reason)
	})
	return sub, nil
}

// Cancel ends the subscription at the subscriber's request.
func (s *Service) Cancel(ctx context.Context, subID uuid.UUID) (*models.Subscription, error) {
	var sub *models.Subscription

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		sub, err = repo.FindByID(ctx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		if sub.Status == enums.SubscriptionStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is already canceled")
		}

		now := s.now()
		sub.Status = enums.SubscriptionStatusCanceled
		sub.IsCurrentlyTrial = false
		sub.CanceledAt = &now
		sub.EndDate = &now
		return repo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, sub.UserID, func(user *models.User) error {
		return s.mailer.SubscriptionCanceled(ctx, user, sub.Plan)
	})
	return sub, nil
}

// Suspend is an administrative stop. No automatic transition targets
// SUSPENDED; only this call reaches it.
func (s *Service) Suspend(ctx context.Context, subID uuid.UUID) (*models.Subscription, error) {
	var sub *models.Subscription

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		sub, err = repo.FindByID(ctx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}

		sub.Status = enums.SubscriptionStatusSuspended
		sub.IsCurrentlyTrial = false
		return repo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Upgrade replaces the plan with a more expensive one. The new price
// takes effect from the next cycle; there is no proration.
func (s *Service) Upgrade(ctx context.Context, subID, newPlanID uuid.UUID) (*models.Subscription, error) {
	var sub *models.Subscription
	var oldPlan, newPlan *models.SubscriptionPlan

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		var err error
		sub, err = repo.FindByID(ctx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		oldPlan = sub.Plan

		newPlan, err = catalogRepo.FindPlanByID(ctx, newPlanID)
		if err != nil {
			return err
		}
		if newPlan == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		if !newPlan.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "plan is not available for purchase")
		}
		if newPlan.PriceCents <= sub.PriceCents {
			return pkgerrors.New(pkgerrors.CodeConflict, "new plan must be more expensive than the current one")
		}

		sub.PlanID = newPlan.ID
		sub.Plan = newPlan
		sub.PriceCents = newPlan.PriceCents
		sub.IsCurrentlyTrial = false
		return repo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, sub.UserID, func(user *models.User) error {
		return s.mailer.SubscriptionUpgraded(ctx, user, oldPlan, newPlan)
	})
	return sub, nil
}

// Downgrade replaces the plan with a cheaper one, but only when the
// account fits inside the new plan's limits. The rejection names how
// many companies must be deactivated first.
func (s *Service) Downgrade(ctx context.Context, subID, newPlanID uuid.UUID) (*models.Subscription, error) {
	var sub *models.Subscription

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		companyRepo := s.companies.WithTx(tx)

		var err error
		sub, err = repo.FindByID(ctx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}

		newPlan, err := catalogRepo.FindPlanByID(ctx, newPlanID)
		if err != nil {
			return err
		}
		if newPlan == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		if !newPlan.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "plan is not available for purchase")
		}
		if newPlan.PriceCents >= sub.PriceCents {
			return pkgerrors.New(pkgerrors.CodeConflict, "new plan must be cheaper than the current one")
		}

		activeCompanies, err := companyRepo.CountActiveByUser(ctx, sub.UserID)
		if err != nil {
			return err
		}
		if activeCompanies > int64(newPlan.MaxCompanies) {
			excess := activeCompanies - int64(newPlan.MaxCompanies)
			return pkgerrors.New(pkgerrors.CodeLimitExceeded,
				fmt.Sprintf("deactivate %d company(ies) before downgrading", excess)).
				WithDetails(map[string]any{
					"current": activeCompanies,
					"limit":   newPlan.MaxCompanies,
				})
		}

		sub.PlanID = newPlan.ID
		sub.Plan = newPlan
		sub.PriceCents = newPlan.PriceCents
		sub.IsCurrentlyTrial = false
		return repo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// AddAddon attaches an addon to the subscription, capped by the plan's
// addon limit.
func (s *Service) AddAddon(ctx context.Context, subID, addonID uuid.UUID) (*models.SubscriptionAddon, error) {
	var link *models.SubscriptionAddon

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		sub, err := repo.FindByID(ctx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}

		addon, err := catalogRepo.FindAddonByID(ctx, addonID)
		if err != nil {
			return err
		}
		if addon == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "addon not found")
		}
		if !addon.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "addon is not available")
		}

		existing, err := repo.FindActiveAddonLink(ctx, subID, addonID)
		if err != nil {
			return err
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "addon is already attached to this subscription")
		}

		count, err := repo.CountActiveAddonLinks(ctx, subID)
		if err != nil {
			return err
		}
		maxAddons := 0
		if sub.Plan != nil {
			maxAddons = sub.Plan.MaxAddons
		}
		if count >= int64(maxAddons) {
			return pkgerrors.New(pkgerrors.CodeLimitExceeded, "addon limit reached for the current plan").
				WithDetails(map[string]any{
					"current": count,
					"limit":   maxAddons,
				})
		}

		link = &models.SubscriptionAddon{
			SubscriptionID: subID,
			AddonID:        addonID,
			Active:         true,
			AddedAt:        s.now(),
			Addon:          addon,
		}
		return repo.CreateAddonLink(ctx, link)
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RemoveAddon detaches an addon. The link row is kept with a removal
// timestamp.
func (s *Service) RemoveAddon(ctx context.Context, subID, addonID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		link, err := repo.FindActiveAddonLink(ctx, subID, addonID)
		if err != nil {
			return err
		}
		if link == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "addon is not attached to this subscription")
		}

		now := s.now()
		link.Active = false
		link.RemovedAt = &now
		return repo.UpdateAddonLink(ctx, link)
	})
}

// TotalPrice itemizes the per-cycle price: the plan snapshot plus every
// active addon.
func (s *Service) TotalPrice(ctx context.Context, subID uuid.UUID) (*PriceBreakdown, error) {
	sub, err := s.repo.FindByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	planLabel := "Plan"
	if sub.Plan != nil {
		planLabel = sub.Plan.Name
	}
	breakdown := &PriceBreakdown{
		Lines:      []PriceLine{{Label: planLabel, AmountCents: sub.PriceCents}},
		TotalCents: sub.PriceCents,
	}

	links, err := s.repo.ListActiveAddonLinks(ctx, subID)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		if link.Addon == nil {
			continue
		}
		breakdown.Lines = append(breakdown.Lines, PriceLine{
			Label:       link.Addon.Name,
			AmountCents: link.Addon.PriceCents,
		})
		breakdown.TotalCents += link.Addon.PriceCents
	}
	return breakdown, nil
}

// GetActive returns the newest usable subscription for the user, or nil.
func (s *Service) GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return s.repo.FindUsableByUser(ctx, userID)
}

// GetByID returns the subscription or a typed not-found error.
func (s *Service) GetByID(ctx context.Context, subID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return sub, nil
}

// CreateFreeForNewUser attaches the cheapest free plan at signup. It is
// a logged no-op when the user already has any subscription history or
// no free plan exists.
func (s *Service) CreateFreeForNewUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	has, err := s.repo.HasAnyByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if has {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "free plan skipped: user already has subscription history")
		return nil, nil
	}

	freePlan, err := s.catalog.FindCheapestFreePlan(ctx)
	if err != nil {
		return nil, err
	}
	if freePlan == nil {
		s.logg.Warn(ctx, "free plan skipped: no active free plan in catalog")
		return nil, nil
	}

	return s.Create(ctx, CreateInput{UserID: userID, PlanID: freePlan.ID})
}

// MarkPendingForRetry reopens a failed subscription for another payment
// attempt: PAYMENT_FAILED goes back to PENDING with a fresh payment row.
func (s *Service) MarkPendingForRetry(ctx context.Context, subID uuid.UUID) (*models.Subscription, error) {
	var sub *models.Subscription

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		sub, err = repo.FindByID(ctx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		if sub.Status != enums.SubscriptionStatusPaymentFailed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only failed subscriptions can be retried")
		}

		sub.Status = enums.SubscriptionStatusPending
		if err := repo.Update(ctx, sub); err != nil {
			return err
		}

		payment := &models.SubscriptionPayment{
			SubscriptionID: sub.ID,
			AmountCents:    sub.PriceCents,
			Currency:       "BRL",
			Status:         enums.PaymentStatusPending,
		}
		return repo.CreatePayment(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// CleanupStalePending removes this user's abandoned PENDING
// subscriptions before a new checkout is opened.
func (s *Service) CleanupStalePending(ctx context.Context, userID uuid.UUID, olderThan time.Duration) error {
	cutoff := s.now().Add(-olderThan)
	removed, err := s.repo.DeleteStalePending(ctx, userID, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		ctx = s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "removed": removed})
		s.logg.Info(ctx, "removed stale pending subscriptions")
	}
	return nil
}

// CheckExpired sweeps trials past their end date into EXPIRED and flags
// active subscriptions past their billing anchor as PAST_DUE.
func (s *Service) CheckExpired(ctx context.Context) error {
	now := s.now()
	var errs error

	expired, err := s.repo.ListExpiredTrials(ctx, now)
	if err != nil {
		return err
	}
	for i := range expired {
		sub := expired[i]
		txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			sub.Status = enums.SubscriptionStatusExpired
			sub.IsCurrentlyTrial = false
			sub.EndDate = &now
			return repo.Update(ctx, &sub)
		})
		if txErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("expiring trial %s: %w", sub.ID, txErr))
			continue
		}
		s.notify(ctx, sub.UserID, func(user *models.User) error {
			return s.mailer.TrialExpired(ctx, user, sub.Plan)
		})
	}

	pastDue, err := s.repo.ListPastDue(ctx, now)
	if err != nil {
		return multierr.Append(errs, err)
	}
	for i := range pastDue {
		sub := pastDue[i]
		txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			sub.Status = enums.SubscriptionStatusPastDue
			return repo.Update(ctx, &sub)
		})
		if txErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("marking past due %s: %w", sub.ID, txErr))
			continue
		}
		s.logg.Info(s.logg.WithSubscriptionID(ctx, sub.ID.String()), "subscription marked past due")
	}

	return errs
}

// trialWarningDays are the advance-notice windows for trial-end emails.
var trialWarningDays = []int{3, 1}

// CheckTrialWarnings emails subscribers whose trial ends in 3 days or
// 1 day. Each pass looks at a fixed window behind the warning mark, so
// a sweep running twice inside the same window sends nothing new.
func (s *Service) CheckTrialWarnings(ctx context.Context) error {
	now := s.now()
	var errs error

	for _, days := range trialWarningDays {
		warnAt := now.Add(time.Duration(days) * 24 * time.Hour)
		from := warnAt.Add(-s.warnWindow)

		subs, err := s.repo.ListTrialsNeedingWarning(ctx, from, warnAt, days)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("listing trials ending in %dd: %w", days, err))
			continue
		}
		for i := range subs {
			sub := subs[i]
			daysLeft := days

			// Claim the mark before mailing so a sweep that overlaps
			// the next tick cannot send a second copy.
			claimed, err := s.repo.MarkTrialWarningSent(ctx, sub.ID, daysLeft)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("marking %dd warning for %s: %w", daysLeft, sub.ID, err))
				continue
			}
			if !claimed {
				continue
			}
			s.notify(ctx, sub.UserID, func(user *models.User) error {
				return s.mailer.TrialEndingSoon(ctx, user, sub.Plan, daysLeft)
			})
		}
	}

	return errs
}

func (s *Service) notifyActivated(ctx context.Context, userID uuid.UUID, plan *models.SubscriptionPlan) {
	s.notify(ctx, userID, func(user *models.User) error {
		return s.mailer.SubscriptionActivated(ctx, user, plan)
	})
}

// notify resolves the user and runs the mail callback. Failures are
// logged and swallowed: email never blocks a billing transition.
func (s *Service) notify(ctx context.Context, userID uuid.UUID, send func(user *models.User) error) {
	if s.mailer == nil {
		return
	}
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		s.logg.Error(ctx, "loading user for notification", err)
		return
	}
	if user == nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "notification skipped: user not found")
		return
	}
	if err := send(user); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "sending notification email", err)
	}
}
