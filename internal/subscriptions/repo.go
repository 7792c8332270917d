package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
)

// Repository handles subscription persistence, including addon links,
// companion payment rows and the tenant lookup used for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindLiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindUsableByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	HasAnyByUser(ctx context.Context, userID uuid.UUID) (bool, error)
	HasTrialUsed(ctx context.Context, userID uuid.UUID) (bool, error)
	DeleteStalePending(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
	ListExpiredTrials(ctx context.Context, now time.Time) ([]models.Subscription, error)
	ListPastDue(ctx context.Context, now time.Time) ([]models.Subscription, error)
	ListTrialsNeedingWarning(ctx context.Context, from, to time.Time, days int) ([]models.Subscription, error)
	MarkTrialWarningSent(ctx context.Context, id uuid.UUID, days int) (bool, error)
	CreatePayment(ctx context.Context, payment *models.SubscriptionPayment) error
	CreateAddonLink(ctx context.Context, link *models.SubscriptionAddon) error
	UpdateAddonLink(ctx context.Context, link *models.SubscriptionAddon) error
	FindActiveAddonLink(ctx context.Context, subID, addonID uuid.UUID) (*models.SubscriptionAddon, error)
	ListActiveAddonLinks(ctx context.Context, subID uuid.UUID) ([]models.SubscriptionAddon, error)
	CountActiveAddonLinks(ctx context.Context, subID uuid.UUID) (int64, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) Update(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindLiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN (?)", userID, enums.LiveSubscriptionStatuses).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindUsableByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	usable := []enums.SubscriptionStatus{
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusTrial,
		enums.SubscriptionStatusLifetime,
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status IN (?)", userID, usable).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) HasAnyByUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) HasTrialUsed(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND is_trial_used = ?", userID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteStalePending hard-deletes PENDING subscriptions older than the
// cutoff that never saw a successful payment. This is the only place a
// subscription row is ever deleted.
func (r *repository) DeleteStalePending(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND created_at < ?", userID, enums.SubscriptionStatusPending, cutoff).
		Where("id NOT IN (?)", r.db.
			Model(&models.SubscriptionPayment{}).
			Select("subscription_id").
			Where("status = ?", enums.PaymentStatusPaid)).
		Delete(&models.Subscription{})
	return result.RowsAffected, result.Error
}

func (r *repository) ListExpiredTrials(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("status = ? AND trial_end IS NOT NULL AND trial_end <= ?", enums.SubscriptionStatusTrial, now).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) ListPastDue(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_billing_date IS NOT NULL AND next_billing_date <= ?", enums.SubscriptionStatusActive, now).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ListTrialsNeedingWarning returns trials ending inside (from, to] that
// have not been notified for this mark yet. A smaller recorded mark means
// the warning already went out.
func (r *repository) ListTrialsNeedingWarning(ctx context.Context, from, to time.Time, days int) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("status = ? AND trial_end > ? AND trial_end <= ?", enums.SubscriptionStatusTrial, from, to).
		Where("trial_warn_days_sent = 0 OR trial_warn_days_sent > ?", days).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// MarkTrialWarningSent claims the warning mark for a subscription. The
// guarded UPDATE makes the claim first-writer-wins, so two overlapping
// sweeps can never both report true for the same mark.
func (r *repository) MarkTrialWarningSent(ctx context.Context, id uuid.UUID, days int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Where("trial_warn_days_sent = 0 OR trial_warn_days_sent > ?", days).
		UpdateColumn("trial_warn_days_sent", days)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.SubscriptionPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) CreateAddonLink(ctx context.Context, link *models.SubscriptionAddon) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) UpdateAddonLink(ctx context.Context, link *models.SubscriptionAddon) error {
	return r.db.WithContext(ctx).Save(link).Error
}

func (r *repository) FindActiveAddonLink(ctx context.Context, subID, addonID uuid.UUID) (*models.SubscriptionAddon, error) {
	var link models.SubscriptionAddon
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ? AND addon_id = ? AND active = ?", subID, addonID, true).
		Order("added_at DESC").
		First(&link).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *repository) ListActiveAddonLinks(ctx context.Context, subID uuid.UUID) ([]models.SubscriptionAddon, error) {
	var links []models.SubscriptionAddon
	if err := r.db.WithContext(ctx).
		Preload("Addon").
		Where("subscription_id = ? AND active = ?", subID, true).
		Order("added_at ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repository) CountActiveAddonLinks(ctx context.Context, subID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SubscriptionAddon{}).
		Where("subscription_id = ? AND active = ?", subID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
