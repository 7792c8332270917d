package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	pkgerrors "github.com/lavify/lavify-backend/pkg/errors"
)

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo Repository
}

// Service exposes the plan and addon catalog.
type Service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// PlanInput carries the admin-editable plan fields.
type PlanInput struct {
	Name         string
	Description  string
	PriceCents   int64
	Interval     enums.PlanInterval
	TrialDays    int
	MaxCompanies int
	MaxUsers     int
	MaxAddons    int
	Features     []string
	Active       bool
	DisplayOrder int
}

func (in PlanInput) validate() error {
	if in.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan name is required")
	}
	if in.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan price must not be negative")
	}
	if !in.Interval.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid plan interval")
	}
	if in.TrialDays < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "trial days must not be negative")
	}
	return nil
}

// ListPlans returns catalog plans, optionally restricted to active ones.
func (s *Service) ListPlans(ctx context.Context, onlyActive bool) ([]models.SubscriptionPlan, error) {
	return s.repo.ListPlans(ctx, onlyActive)
}

// GetPlan fetches a single plan or a typed not-found error.
func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	plan, err := s.repo.FindPlanByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

// CreatePlan adds a plan to the catalog.
func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*models.SubscriptionPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	plan := &models.SubscriptionPlan{
		Name:         in.Name,
		Description:  in.Description,
		PriceCents:   in.PriceCents,
		Interval:     in.Interval,
		TrialDays:    in.TrialDays,
		MaxCompanies: in.MaxCompanies,
		MaxUsers:     in.MaxUsers,
		MaxAddons:    in.MaxAddons,
		Features:     in.Features,
		Active:       in.Active,
		DisplayOrder: in.DisplayOrder,
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdatePlan replaces the editable fields of an existing plan. Existing
// subscriptions keep their price snapshot, so repricing here never
// changes what current subscribers pay.
func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, in PlanInput) (*models.SubscriptionPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	plan.Name = in.Name
	plan.Description = in.Description
	plan.PriceCents = in.PriceCents
	plan.Interval = in.Interval
	plan.TrialDays = in.TrialDays
	plan.MaxCompanies = in.MaxCompanies
	plan.MaxUsers = in.MaxUsers
	plan.MaxAddons = in.MaxAddons
	plan.Features = in.Features
	plan.Active = in.Active
	plan.DisplayOrder = in.DisplayOrder

	if err := s.repo.UpdatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// DeactivatePlan hides a plan from new purchases without touching
// subscriptions already attached to it.
func (s *Service) DeactivatePlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	plan.Active = false
	if err := s.repo.UpdatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ListAddons returns catalog addons.
func (s *Service) ListAddons(ctx context.Context, onlyActive bool) ([]models.Addon, error) {
	return s.repo.ListAddons(ctx, onlyActive)
}

// GetAddon fetches a single addon or a typed not-found error.
func (s *Service) GetAddon(ctx context.Context, id uuid.UUID) (*models.Addon, error) {
	addon, err := s.repo.FindAddonByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if addon == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "addon not found")
	}
	return addon, nil
}
