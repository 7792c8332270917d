package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lavify/lavify-backend/pkg/enums"
)

// SubscriptionPayment is one settlement attempt for a subscription.
// GatewayPaymentID is the gateway's payment id once known; rows created
// ahead of checkout start without one.
type SubscriptionPayment struct {
	ID               uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID   uuid.UUID           `gorm:"column:subscription_id;type:uuid;not null;index"`
	AmountCents      int64               `gorm:"column:amount_cents;not null"`
	Currency         string              `gorm:"column:currency;not null;default:'BRL'"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'PENDING'"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id;index"`
	Method           *string             `gorm:"column:method"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	FailedAt         *time.Time          `gorm:"column:failed_at"`
	ErrorMessage     *string             `gorm:"column:error_message"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
