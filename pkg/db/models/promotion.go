package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lavify/lavify-backend/pkg/enums"
)

// Promotion discounts a plan price at purchase time. Value is a percent
// (0-100) for PERCENT promotions and an amount in cents for FIXED ones.
type Promotion struct {
	ID         uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string             `gorm:"column:name;not null"`
	Kind       enums.DiscountType `gorm:"column:kind;type:discount_type;not null"`
	Value      decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	PlanID     *uuid.UUID         `gorm:"column:plan_id;type:uuid;index"`
	ValidFrom  time.Time          `gorm:"column:valid_from;not null"`
	ValidUntil time.Time          `gorm:"column:valid_until;not null"`
	MaxUses    *int               `gorm:"column:max_uses"`
	UsedCount  int                `gorm:"column:used_count;not null;default:0"`
	Active     bool               `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Apply discounts a price in cents. Percent values round half up to the
// nearest cent and the result never goes below zero.
func (p Promotion) Apply(priceCents int64) int64 {
	var discount int64
	switch p.Kind {
	case enums.DiscountTypePercent:
		discount = decimal.NewFromInt(priceCents).
			Mul(p.Value).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case enums.DiscountTypeFixed:
		discount = p.Value.Round(0).IntPart()
	default:
		return priceCents
	}
	if discount >= priceCents {
		return 0
	}
	return priceCents - discount
}

// IsRedeemable reports whether the promotion applies at the given instant.
func (p Promotion) IsRedeemable(at time.Time) bool {
	if !p.Active {
		return false
	}
	if at.Before(p.ValidFrom) || at.After(p.ValidUntil) {
		return false
	}
	if p.MaxUses != nil && p.UsedCount >= *p.MaxUses {
		return false
	}
	return true
}
