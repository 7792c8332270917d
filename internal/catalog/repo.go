package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lavify/lavify-backend/pkg/db/models"
)

// Repository handles plan and addon persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) error
	UpdatePlan(ctx context.Context, plan *models.SubscriptionPlan) error
	ListPlans(ctx context.Context, onlyActive bool) ([]models.SubscriptionPlan, error)
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	FindCheapestFreePlan(ctx context.Context) (*models.SubscriptionPlan, error)
	FindRedeemablePromotion(ctx context.Context, planID uuid.UUID, at time.Time) (*models.Promotion, error)
	IncrementPromotionUse(ctx context.Context, id uuid.UUID) error
	CreateAddon(ctx context.Context, addon *models.Addon) error
	UpdateAddon(ctx context.Context, addon *models.Addon) error
	ListAddons(ctx context.Context, onlyActive bool) ([]models.Addon, error)
	FindAddonByID(ctx context.Context, id uuid.UUID) (*models.Addon, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) UpdatePlan(ctx context.Context, plan *models.SubscriptionPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *repository) ListPlans(ctx context.Context, onlyActive bool) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	query := r.db.WithContext(ctx).Order("display_order ASC, price_cents ASC")
	if onlyActive {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindCheapestFreePlan(ctx context.Context) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("active = ? AND price_cents = 0", true).
		Order("display_order ASC").
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// FindRedeemablePromotion returns the best promotion a purchase of the
// plan can redeem right now, preferring plan-scoped promotions over
// storewide ones. Returns nil when nothing applies.
func (r *repository) FindRedeemablePromotion(ctx context.Context, planID uuid.UUID, at time.Time) (*models.Promotion, error) {
	var promo models.Promotion
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("valid_from <= ? AND valid_until >= ?", at, at).
		Where("plan_id IS NULL OR plan_id = ?", planID).
		Where("max_uses IS NULL OR used_count < max_uses").
		Order("plan_id IS NULL, value DESC").
		First(&promo).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

// IncrementPromotionUse bumps the usage counter. Runs as a single UPDATE
// so concurrent redemptions never lose a count.
func (r *repository) IncrementPromotionUse(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ?", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
}

func (r *repository) CreateAddon(ctx context.Context, addon *models.Addon) error {
	return r.db.WithContext(ctx).Create(addon).Error
}

func (r *repository) UpdateAddon(ctx context.Context, addon *models.Addon) error {
	return r.db.WithContext(ctx).Save(addon).Error
}

func (r *repository) ListAddons(ctx context.Context, onlyActive bool) ([]models.Addon, error) {
	var addons []models.Addon
	query := r.db.WithContext(ctx).Order("name ASC")
	if onlyActive {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&addons).Error; err != nil {
		return nil, err
	}
	return addons, nil
}

func (r *repository) FindAddonByID(ctx context.Context, id uuid.UUID) (*models.Addon, error) {
	var addon models.Addon
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&addon).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &addon, nil
}
