package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/api/middleware"
	"github.com/lavify/lavify-backend/api/responses"
	"github.com/lavify/lavify-backend/api/validators"
	subsvc "github.com/lavify/lavify-backend/internal/subscriptions"
	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	pkgerrors "github.com/lavify/lavify-backend/pkg/errors"
	"github.com/lavify/lavify-backend/pkg/logger"
)

// SubscriptionService is the lifecycle surface the handlers consume.
type SubscriptionService interface {
	Create(ctx context.Context, in subsvc.CreateInput) (*models.Subscription, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetByID(ctx context.Context, subID uuid.UUID) (*models.Subscription, error)
	Cancel(ctx context.Context, subID uuid.UUID) (*models.Subscription, error)
	Suspend(ctx context.Context, subID uuid.UUID) (*models.Subscription, error)
	Upgrade(ctx context.Context, subID, newPlanID uuid.UUID) (*models.Subscription, error)
	Downgrade(ctx context.Context, subID, newPlanID uuid.UUID) (*models.Subscription, error)
	AddAddon(ctx context.Context, subID, addonID uuid.UUID) (*models.SubscriptionAddon, error)
	RemoveAddon(ctx context.Context, subID, addonID uuid.UUID) error
	TotalPrice(ctx context.Context, subID uuid.UUID) (*subsvc.PriceBreakdown, error)
	CreateFreeForNewUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

type subscriptionCreateRequest struct {
	PlanID   string `json:"planId" validate:"required,uuid"`
	Trial    bool   `json:"trial"`
	Lifetime bool   `json:"lifetime"`
}

type subscriptionChangePlanRequest struct {
	PlanID string `json:"planId" validate:"required,uuid"`
}

type subscriptionAddonRequest struct {
	AddonID string `json:"addonId" validate:"required,uuid"`
}

type subscriptionResponse struct {
	ID               uuid.UUID      `json:"id"`
	PlanID           uuid.UUID      `json:"planId"`
	PlanName         string         `json:"planName,omitempty"`
	Status           string         `json:"status"`
	PriceCents       int64          `json:"priceCents"`
	StartDate        time.Time      `json:"startDate"`
	EndDate          *time.Time     `json:"endDate,omitempty"`
	TrialEnd         *time.Time     `json:"trialEnd,omitempty"`
	NextBillingDate  *time.Time     `json:"nextBillingDate,omitempty"`
	CanceledAt       *time.Time     `json:"canceledAt,omitempty"`
	IsCurrentlyTrial bool           `json:"isCurrentlyTrial"`
	Addons           []addonSummary `json:"addons,omitempty"`
}

type addonSummary struct {
	AddonID    uuid.UUID `json:"addonId"`
	Name       string    `json:"name,omitempty"`
	PriceCents int64     `json:"priceCents,omitempty"`
}

func newSubscriptionResponse(sub *models.Subscription) subscriptionResponse {
	resp := subscriptionResponse{
		ID:               sub.ID,
		PlanID:           sub.PlanID,
		Status:           sub.Status.String(),
		PriceCents:       sub.PriceCents,
		StartDate:        sub.StartDate,
		EndDate:          sub.EndDate,
		TrialEnd:         sub.TrialEnd,
		NextBillingDate:  sub.NextBillingDate,
		CanceledAt:       sub.CanceledAt,
		IsCurrentlyTrial: sub.IsCurrentlyTrial,
	}
	if sub.Plan != nil {
		resp.PlanName = sub.Plan.Name
	}
	for _, link := range sub.Addons {
		if !link.Active {
			continue
		}
		summary := addonSummary{AddonID: link.AddonID}
		if link.Addon != nil {
			summary.Name = link.Addon.Name
			summary.PriceCents = link.Addon.PriceCents
		}
		resp.Addons = append(resp.Addons, summary)
	}
	return resp
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func subscriptionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "subscriptionId"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription id")
	}
	return id, nil
}

// requireOwnership loads the subscription and rejects access by anyone
// but its owner.
func requireOwnership(r *http.Request, svc SubscriptionService) (uuid.UUID, *models.Subscription, error) {
	userID, err := callerID(r)
	if err != nil {
		return uuid.Nil, nil, err
	}
	subID, err := subscriptionID(r)
	if err != nil {
		return uuid.Nil, nil, err
	}
	sub, err := svc.GetByID(r.Context(), subID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if sub.UserID != userID {
		return uuid.Nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "subscription belongs to another account")
	}
	return userID, sub, nil
}

func SubscriptionCreate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscriptionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		planID, err := uuid.Parse(payload.PlanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan id"))
			return
		}

		// Lifetime grants are an administrative action.
		if payload.Lifetime && middleware.RoleFromContext(r.Context()) != string(enums.UserRoleAdmin) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "lifetime subscriptions are granted by an administrator"))
			return
		}

		sub, err := svc.Create(r.Context(), subsvc.CreateInput{
			UserID:   userID,
			PlanID:   planID,
			Trial:    payload.Trial,
			Lifetime: payload.Lifetime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSubscriptionResponse(sub))
	}
}

// SubscriptionFetchActive returns the caller's usable subscription, or
// an empty body when there is none.
func SubscriptionFetchActive(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.GetActive(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteSuccess(w, nil)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

func SubscriptionCancel(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sub, err := requireOwnership(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		canceled, err := svc.Cancel(r.Context(), sub.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(canceled))
	}
}

func SubscriptionUpgrade(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return changePlan(svc, logg, svc.Upgrade)
}

func SubscriptionDowngrade(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return changePlan(svc, logg, svc.Downgrade)
}

func changePlan(svc SubscriptionService, logg *logger.Logger, apply func(ctx context.Context, subID, planID uuid.UUID) (*models.Subscription, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sub, err := requireOwnership(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscriptionChangePlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		planID, err := uuid.Parse(payload.PlanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan id"))
			return
		}

		updated, err := apply(r.Context(), sub.ID, planID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(updated))
	}
}

func SubscriptionAddAddon(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sub, err := requireOwnership(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscriptionAddonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addonID, err := uuid.Parse(payload.AddonID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid addon id"))
			return
		}

		link, err := svc.AddAddon(r.Context(), sub.ID, addonID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary := addonSummary{AddonID: link.AddonID}
		if link.Addon != nil {
			summary.Name = link.Addon.Name
			summary.PriceCents = link.Addon.PriceCents
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

func SubscriptionRemoveAddon(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sub, err := requireOwnership(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addonID, err := uuid.Parse(chi.URLParam(r, "addonId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid addon id"))
			return
		}

		if err := svc.RemoveAddon(r.Context(), sub.ID, addonID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func SubscriptionPrice(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sub, err := requireOwnership(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := svc.TotalPrice(r.Context(), sub.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, breakdown)
	}
}

// AdminSubscriptionSuspend is the operator kill switch for a
// misbehaving account.
func AdminSubscriptionSuspend(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subID, err := subscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Suspend(r.Context(), subID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

// AdminGrantFreeSubscription attaches the cheapest active free plan to
// an account with no subscription history, the same bootstrap new
// signups get.
func AdminGrantFreeSubscription(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id"))
			return
		}

		sub, err := svc.CreateFreeForNewUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "account already has subscription history or no free plan is active"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSubscriptionResponse(sub))
	}
}
