package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/api/responses"
	"github.com/lavify/lavify-backend/api/validators"
	"github.com/lavify/lavify-backend/internal/catalog"
	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	pkgerrors "github.com/lavify/lavify-backend/pkg/errors"
	"github.com/lavify/lavify-backend/pkg/logger"
)

// CatalogService is the plan and addon surface the handlers consume.
type CatalogService interface {
	ListPlans(ctx context.Context, onlyActive bool) ([]models.SubscriptionPlan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	CreatePlan(ctx context.Context, in catalog.PlanInput) (*models.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, in catalog.PlanInput) (*models.SubscriptionPlan, error)
	DeactivatePlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	ListAddons(ctx context.Context, onlyActive bool) ([]models.Addon, error)
}

type planRequest struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	PriceCents   int64    `json:"priceCents" validate:"min=0"`
	Interval     string   `json:"interval" validate:"required"`
	TrialDays    int      `json:"trialDays" validate:"min=0"`
	MaxCompanies int      `json:"maxCompanies" validate:"min=0"`
	MaxUsers     int      `json:"maxUsers" validate:"min=0"`
	MaxAddons    int      `json:"maxAddons" validate:"min=0"`
	Features     []string `json:"features"`
	Active       bool     `json:"active"`
	DisplayOrder int      `json:"displayOrder"`
}

type planResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PriceCents   int64     `json:"priceCents"`
	Interval     string    `json:"interval"`
	TrialDays    int       `json:"trialDays"`
	MaxCompanies int       `json:"maxCompanies"`
	MaxUsers     int       `json:"maxUsers"`
	MaxAddons    int       `json:"maxAddons"`
	Features     []string  `json:"features"`
	Active       bool      `json:"active"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}

type addonResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	FeatureKey  string    `json:"featureKey"`
	Active      bool      `json:"active"`
}

func newPlanResponse(plan *models.SubscriptionPlan) planResponse {
	return planResponse{
		ID:           plan.ID,
		Name:         plan.Name,
		Description:  plan.Description,
		PriceCents:   plan.PriceCents,
		Interval:     plan.Interval.String(),
		TrialDays:    plan.TrialDays,
		MaxCompanies: plan.MaxCompanies,
		MaxUsers:     plan.MaxUsers,
		MaxAddons:    plan.MaxAddons,
		Features:     plan.Features,
		Active:       plan.Active,
		DisplayOrder: plan.DisplayOrder,
		CreatedAt:    plan.CreatedAt,
	}
}

func newAddonResponse(addon *models.Addon) addonResponse {
	return addonResponse{
		ID:          addon.ID,
		Name:        addon.Name,
		Description: addon.Description,
		PriceCents:  addon.PriceCents,
		FeatureKey:  addon.FeatureKey,
		Active:      addon.Active,
	}
}

func (p planRequest) toInput() (catalog.PlanInput, error) {
	interval, err := enums.ParsePlanInterval(p.Interval)
	if err != nil {
		return catalog.PlanInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid interval")
	}
	return catalog.PlanInput{
		Name:         p.Name,
		Description:  p.Description,
		PriceCents:   p.PriceCents,
		Interval:     interval,
		TrialDays:    p.TrialDays,
		MaxCompanies: p.MaxCompanies,
		MaxUsers:     p.MaxUsers,
		MaxAddons:    p.MaxAddons,
		Features:     p.Features,
		Active:       p.Active,
		DisplayOrder: p.DisplayOrder,
	}, nil
}

// ListPlans serves the public catalog: active plans only.
func ListPlans(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := svc.ListPlans(r.Context(), true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]planResponse, 0, len(plans))
		for i := range plans {
			out = append(out, newPlanResponse(&plans[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func GetPlan(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "planId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan id"))
			return
		}
		plan, err := svc.GetPlan(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPlanResponse(plan))
	}
}

func ListAddons(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addons, err := svc.ListAddons(r.Context(), true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]addonResponse, 0, len(addons))
		for i := range addons {
			out = append(out, newAddonResponse(&addons[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminListPlans includes inactive plans.
func AdminListPlans(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := svc.ListPlans(r.Context(), false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]planResponse, 0, len(plans))
		for i := range plans {
			out = append(out, newPlanResponse(&plans[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func AdminCreatePlan(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload planRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.CreatePlan(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPlanResponse(plan))
	}
}

func AdminUpdatePlan(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "planId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan id"))
			return
		}
		var payload planRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.UpdatePlan(r.Context(), id, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPlanResponse(plan))
	}
}

func AdminDeactivatePlan(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "planId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan id"))
			return
		}
		plan, err := svc.DeactivatePlan(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPlanResponse(plan))
	}
}
