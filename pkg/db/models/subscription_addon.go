package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionAddon links an addon to a subscription. Rows are never
// deleted; removal flips Active and stamps RemovedAt so the history of
// attach/detach cycles survives for billing audits.
type SubscriptionAddon struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID  `gorm:"column:subscription_id;type:uuid;not null;index"`
	AddonID        uuid.UUID  `gorm:"column:addon_id;type:uuid;not null;index"`
	Active         bool       `gorm:"column:active;not null;default:true"`
	AddedAt        time.Time  `gorm:"column:added_at;not null"`
	RemovedAt      *time.Time `gorm:"column:removed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Addon *Addon `gorm:"foreignKey:AddonID"`
}
