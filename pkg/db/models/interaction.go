package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/piecehub/piecehub-backend/pkg/enums"
)

// Interaction is an append-only, scored record of a user action on a product.
// Rows are never updated after insert; the maintenance job prunes only old views.
type Interaction struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID  uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	Type       enums.InteractionType `gorm:"column:type;not null"`
	Score      int                   `gorm:"column:score;not null"`
	OccurredAt time.Time             `gorm:"column:occurred_at;not null;index"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
}
