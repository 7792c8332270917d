package entitlements

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/internal/companies"
	"github.com/lavify/lavify-backend/internal/subscriptions"
	"github.com/lavify/lavify-backend/pkg/logger"
)

// Decision is the outcome of an entitlement check. Reason is only set
// when access is denied and is safe to show to the subscriber.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CompanyQuota reports how much room the current plan leaves for new
// companies.
type CompanyQuota struct {
	Allowed bool   `json:"allowed"`
	Limit   int    `json:"limit"`
	Current int64  `json:"current"`
	Reason  string `json:"reason,omitempty"`
}

// ServiceParams groups dependencies for the entitlement service.
type ServiceParams struct {
	Subscriptions subscriptions.Repository
	Companies     companies.Repository
	Logger        *logger.Logger
}

// Service answers feature and quota questions against the caller's
// current subscription. It never mutates anything.
type Service struct {
	subs      subscriptions.Repository
	companies companies.Repository
	logg      *logger.Logger
}

// NewService builds an entitlement service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Subscriptions == nil {
		return nil, errors.New("subscriptions repo is required")
	}
	if params.Companies == nil {
		return nil, errors.New("companies repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subs:      params.Subscriptions,
		companies: params.Companies,
		logg:      params.Logger,
	}, nil
}

// HasFeatureAccess resolves whether the user's current subscription
// unlocks the feature, either through the plan's feature list or
// through an attached addon. Addons only count while the addon itself
// is still active in the catalog.
func (s *Service) HasFeatureAccess(ctx context.Context, userID uuid.UUID, featureKey string) (Decision, error) {
	sub, err := s.subs.FindUsableByUser(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if sub == nil {
		return Decision{Reason: "no active subscription"}, nil
	}

	planName := "current plan"
	if sub.Plan != nil {
		planName = sub.Plan.Name
		for _, key := range sub.Plan.Features {
			if key == featureKey {
				return Decision{Allowed: true}, nil
			}
		}
	}

	links, err := s.subs.ListActiveAddonLinks(ctx, sub.ID)
	if err != nil {
		return Decision{}, err
	}
	for _, link := range links {
		if link.Addon == nil || !link.Addon.Active {
			continue
		}
		if link.Addon.FeatureKey == featureKey {
			return Decision{Allowed: true}, nil
		}
	}

	return Decision{
		Reason: fmt.Sprintf("feature %q is not included in the %s plan", featureKey, planName),
	}, nil
}

// CanCreateMoreCompanies checks the company count against the plan's
// limit.
func (s *Service) CanCreateMoreCompanies(ctx context.Context, userID uuid.UUID) (CompanyQuota, error) {
	sub, err := s.subs.FindUsableByUser(ctx, userID)
	if err != nil {
		return CompanyQuota{}, err
	}
	if sub == nil {
		return CompanyQuota{Reason: "no active subscription"}, nil
	}

	limit := 0
	if sub.Plan != nil {
		limit = sub.Plan.MaxCompanies
	}

	current, err := s.companies.CountActiveByUser(ctx, userID)
	if err != nil {
		return CompanyQuota{}, err
	}

	quota := CompanyQuota{Limit: limit, Current: current}
	if current >= int64(limit) {
		quota.Reason = fmt.Sprintf("plan limit of %d company(ies) reached", limit)
		return quota, nil
	}
	quota.Allowed = true
	return quota, nil
}
