package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is the canonical catalog listing. The catalog service owns writes;
// the recommendation and loyalty core only reads it.
type Product struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID uuid.UUID      `gorm:"column:category_id;type:uuid;not null"`
	SKU        string         `gorm:"column:sku;not null"`
	Name       string         `gorm:"column:name;not null"`
	Brand      *string        `gorm:"column:brand"`
	PriceCents int            `gorm:"column:price_cents;not null"`
	Stock      int            `gorm:"column:stock;not null;default:0"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`
	JobType    *string        `gorm:"column:job_type"`
	OEMRefs    pq.StringArray `gorm:"column:oem_refs;type:text[];not null;default:ARRAY[]::text[]"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Category groups products; read-only here.
type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
