package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lavify/lavify-backend/pkg/enums"
)

// SubscriptionPlan is a sellable plan in the catalog. Prices are stored
// in integer cents; features is the list of feature keys the plan unlocks.
type SubscriptionPlan struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string             `gorm:"column:name;not null;uniqueIndex"`
	Description  string             `gorm:"column:description;not null;default:''"`
	PriceCents   int64              `gorm:"column:price_cents;not null"`
	Interval     enums.PlanInterval `gorm:"column:interval;type:plan_interval;not null;default:'MONTHLY'"`
	TrialDays    int                `gorm:"column:trial_days;not null;default:0"`
	MaxCompanies int                `gorm:"column:max_companies;not null;default:1"`
	MaxUsers     int                `gorm:"column:max_users;not null;default:1"`
	MaxAddons    int                `gorm:"column:max_addons;not null;default:0"`
	Features     pq.StringArray     `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	Active       bool               `gorm:"column:active;not null;default:true"`
	DisplayOrder int                `gorm:"column:display_order;not null;default:0"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsFree reports whether the plan bills nothing.
func (p SubscriptionPlan) IsFree() bool {
	return p.PriceCents == 0
}
