package interactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piecehub/piecehub-backend/pkg/db/models"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	"github.com/piecehub/piecehub-backend/pkg/pagination"
)

// TypeCount aggregates interaction volume per action type.
type TypeCount struct {
	Type  enums.InteractionType `gorm:"column:type"`
	Count int64                 `gorm:"column:count"`
}

// ProductScore ranks a product by summed interaction weight; ties are broken
// by the most recent action.
type ProductScore struct {
	ProductID      uuid.UUID `gorm:"column:product_id" json:"product_id"`
	TotalScore     int64     `gorm:"column:total_score" json:"total_score"`
	LastOccurredAt time.Time `gorm:"column:last_occurred_at" json:"last_occurred_at"`
}

// Repository manages persistence for the interaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, interaction *models.Interaction) error
	ProductExists(ctx context.Context, productID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Interaction, error)
	CountsByType(ctx context.Context, userID uuid.UUID) ([]TypeCount, error)
	CountDistinctProducts(ctx context.Context, userID uuid.UUID) (int64, error)
	SumScoresByUser(ctx context.Context, userID uuid.UUID, limit int) ([]ProductScore, error)
	SumScoresSince(ctx context.Context, since *time.Time, limit int) ([]ProductScore, error)
	DeleteViewsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an interaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, interaction *models.Interaction) error {
	return r.db.WithContext(ctx).Create(interaction).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Interaction, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Interaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountsByType(ctx context.Context, userID uuid.UUID) ([]TypeCount, error) {
	var rows []TypeCount
	if err := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Select("type, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("type").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountDistinctProducts(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("user_id = ?", userID).
		Distinct("product_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) SumScoresByUser(ctx context.Context, userID uuid.UUID, limit int) ([]ProductScore, error) {
	var rows []ProductScore
	if err := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Select("product_id, SUM(score) AS total_score, MAX(occurred_at) AS last_occurred_at").
		Where("user_id = ?", userID).
		Group("product_id").
		Order("total_score DESC, last_occurred_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SumScoresSince(ctx context.Context, since *time.Time, limit int) ([]ProductScore, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Select("product_id, SUM(score) AS total_score, MAX(occurred_at) AS last_occurred_at").
		Group("product_id").
		Order("total_score DESC, last_occurred_at DESC").
		Limit(limit)
	if since != nil {
		query = query.Where("occurred_at >= ?", *since)
	}
	var rows []ProductScore
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteViewsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("type = ? AND occurred_at < ?", enums.InteractionTypeView, cutoff).
		Delete(&models.Interaction{})
	return result.RowsAffected, result.Error
}
