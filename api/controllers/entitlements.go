package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/api/responses"
	"github.com/lavify/lavify-backend/internal/entitlements"
	pkgerrors "github.com/lavify/lavify-backend/pkg/errors"
	"github.com/lavify/lavify-backend/pkg/logger"
)

// EntitlementService answers access questions for the handlers.
type EntitlementService interface {
	HasFeatureAccess(ctx context.Context, userID uuid.UUID, featureKey string) (entitlements.Decision, error)
	CanCreateMoreCompanies(ctx context.Context, userID uuid.UUID) (entitlements.CompanyQuota, error)
}

// EntitlementFeature answers whether the caller's subscription unlocks
// a feature. The feature key comes from the query string so gateways
// can cache by URL.
func EntitlementFeature(svc EntitlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		featureKey := r.URL.Query().Get("featureKey")
		if featureKey == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing featureKey"))
			return
		}

		decision, err := svc.HasFeatureAccess(r.Context(), userID, featureKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decision)
	}
}

// EntitlementCompanyQuota reports whether the caller may register
// another company under the current plan.
func EntitlementCompanyQuota(svc EntitlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quota, err := svc.CanCreateMoreCompanies(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quota)
	}
}
