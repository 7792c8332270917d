package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/pkg/enums"
)

// Subscription is the single billing relationship of an account.
// PriceCents snapshots the plan price at purchase so catalog edits never
// reprice an existing subscription. GatewayPaymentID holds the last
// payment id reported by the gateway for support lookups.
type Subscription struct {
	ID               uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID           uuid.UUID                `gorm:"column:plan_id;type:uuid;not null;index"`
	Status           enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'PENDING'"`
	TrialStart       *time.Time               `gorm:"column:trial_start"`
	TrialEnd         *time.Time               `gorm:"column:trial_end;index"`
	IsCurrentlyTrial bool                     `gorm:"column:is_currently_trial;not null;default:false"`
	IsTrialUsed      bool                     `gorm:"column:is_trial_used;not null;default:false"`
	// TrialWarnDaysSent records the smallest ending-soon mark already
	// notified (0 = none), so overlapping sweeps never resend one.
	TrialWarnDaysSent int `gorm:"column:trial_warn_days_sent;not null;default:0"`
	StartDate        time.Time                `gorm:"column:start_date;not null"`
	EndDate          *time.Time               `gorm:"column:end_date"`
	NextBillingDate  *time.Time               `gorm:"column:next_billing_date;index"`
	PriceCents       int64                    `gorm:"column:price_cents;not null"`
	GatewayPaymentID *string                  `gorm:"column:gateway_payment_id"`
	CanceledAt       *time.Time               `gorm:"column:canceled_at"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Plan   *SubscriptionPlan   `gorm:"foreignKey:PlanID"`
	Addons []SubscriptionAddon `gorm:"foreignKey:SubscriptionID"`
}
