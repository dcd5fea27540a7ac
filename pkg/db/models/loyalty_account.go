package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyAccount is the materialized point balance for one user. It is mutated
// exclusively through ledger operations under a row lock, never directly, and
// satisfies TotalPoints == AvailablePoints + UsedPoints + ExpiredPoints.
type LoyaltyAccount struct {
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	TotalPoints     int       `gorm:"column:total_points;not null;default:0"`
	AvailablePoints int       `gorm:"column:available_points;not null;default:0"`
	UsedPoints      int       `gorm:"column:used_points;not null;default:0"`
	ExpiredPoints   int       `gorm:"column:expired_points;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the balance table name.
func (LoyaltyAccount) TableName() string {
	return "loyalty_accounts"
}
