package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/enums"
	"github.com/lavify/lavify-backend/pkg/pagination"
)

// Repository handles payment attempt persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.SubscriptionPayment) error
	Update(ctx context.Context, payment *models.SubscriptionPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPayment, error)
	FindByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.SubscriptionPayment, error)
	FindByGatewayIDForUpdate(ctx context.Context, gatewayPaymentID string) (*models.SubscriptionPayment, error)
	FindLatestOpenBySubscription(ctx context.Context, subID uuid.UUID) (*models.SubscriptionPayment, error)
	FindLatestOpenBySubscriptionForUpdate(ctx context.Context, subID uuid.UUID) (*models.SubscriptionPayment, error)
	ListBySubscription(ctx context.Context, subID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.SubscriptionPayment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.SubscriptionPayment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.SubscriptionPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) Update(ctx context.Context, payment *models.SubscriptionPayment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	if err := r.db.WithContext(ctx).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindByGatewayIDForUpdate is FindByGatewayID with a row lock. It must
// run inside a transaction; concurrent webhook deliveries for the same
// payment serialize on it.
func (r *repository) FindByGatewayIDForUpdate(ctx context.Context, gatewayPaymentID string) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindLatestOpenBySubscription returns the newest payment attempt that
// is still awaiting settlement.
func (r *repository) FindLatestOpenBySubscription(ctx context.Context, subID uuid.UUID) (*models.SubscriptionPayment, error) {
	return r.findLatestOpen(ctx, subID, false)
}

// FindLatestOpenBySubscriptionForUpdate is the row-locked variant for
// transactional settlement.
func (r *repository) FindLatestOpenBySubscriptionForUpdate(ctx context.Context, subID uuid.UUID) (*models.SubscriptionPayment, error) {
	return r.findLatestOpen(ctx, subID, true)
}

func (r *repository) findLatestOpen(ctx context.Context, subID uuid.UUID, forUpdate bool) (*models.SubscriptionPayment, error) {
	query := r.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var payment models.SubscriptionPayment
	if err := query.
		Where("subscription_id = ? AND status IN (?)", subID,
			[]enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusProcessing}).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListBySubscription(ctx context.Context, subID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.SubscriptionPayment, error) {
	query := r.db.WithContext(ctx).
		Where("subscription_id = ?", subID)
	return r.list(query, limit, cursor)
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.SubscriptionPayment, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.id = subscription_payments.subscription_id").
		Where("subscriptions.user_id = ?", userID)
	return r.list(query, limit, cursor)
}

func (r *repository) list(query *gorm.DB, limit int, cursor *pagination.Cursor) ([]models.SubscriptionPayment, error) {
	if cursor != nil {
		query = query.Where(
			"(subscription_payments.created_at, subscription_payments.id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.SubscriptionPayment
	if err := query.
		Order("subscription_payments.created_at DESC, subscription_payments.id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
