package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/piecehub/piecehub-backend/pkg/enums"
)

// LoyaltyTransaction is one immutable entry in the points ledger. Entries are
// only ever appended; a cancellation flips the Cancelled flag and is balanced
// by a new compensating entry, the point amount is never edited.
type LoyaltyTransaction struct {
	ID                 uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID                    `gorm:"column:user_id;type:uuid;not null;index"`
	Points             int                          `gorm:"column:points;not null"`
	Type               enums.LoyaltyTransactionType `gorm:"column:type;not null;index"`
	Operation          enums.LoyaltyOperation       `gorm:"column:operation;not null"`
	RelatedID          *uuid.UUID                   `gorm:"column:related_id;type:uuid"`
	Description        string                       `gorm:"column:description"`
	BalanceAfter       int                          `gorm:"column:balance_after;not null"`
	ExpiresAt          *time.Time                   `gorm:"column:expires_at;index:idx_loyalty_tx_expiry"`
	Expired            bool                         `gorm:"column:expired;not null;default:false;index:idx_loyalty_tx_expiry"`
	Cancelled          bool                         `gorm:"column:cancelled;not null;default:false"`
	CancelledAt        *time.Time                   `gorm:"column:cancelled_at"`
	CancellationReason *string                      `gorm:"column:cancellation_reason"`
	RewardData         json.RawMessage              `gorm:"column:reward_data;type:jsonb"`
	CreatedAt          time.Time                    `gorm:"column:created_at;autoCreateTime;index"`
}

// SignedPoints is the entry's effect on the available balance.
func (t LoyaltyTransaction) SignedPoints() int {
	if t.Operation == enums.LoyaltyOperationDebit {
		return -t.Points
	}
	return t.Points
}
