package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/piecehub/piecehub-backend/pkg/enums"
)

// LoyaltyReward is a redeemable catalog entry. Admin CRUD lives outside the
// core; redemption decrements Stock when it is finite (nil means unlimited).
type LoyaltyReward struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string           `gorm:"column:name;not null"`
	Description    *string          `gorm:"column:description"`
	PointsRequired int              `gorm:"column:points_required;not null;index"`
	Type           enums.RewardType `gorm:"column:type;not null"`
	ValueCents     *int             `gorm:"column:value_cents"`
	Stock          *int             `gorm:"column:stock"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true;index"`
	ValidFrom      *time.Time       `gorm:"column:valid_from"`
	ValidUntil     *time.Time       `gorm:"column:valid_until"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
