package recommendations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piecehub/piecehub-backend/internal/vehicles"
	"github.com/piecehub/piecehub-backend/pkg/db/models"
	"github.com/piecehub/piecehub-backend/pkg/enums"
)

// ProductCount pairs a product with its interaction volume.
type ProductCount struct {
	Product models.Product
	Count   int64
}

// Repository runs the ranking queries behind each strategy. All product
// reads are restricted to active, in-stock rows; a non-nil vehicleID further
// restricts to compatible parts.
type Repository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ProductsByIDs(ctx context.Context, ids []uuid.UUID, vehicleID *uuid.UUID) ([]models.Product, error)
	RecentProductIDs(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error)
	RecentlyViewedProductIDs(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error)
	CategoryIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error)
	ActiveInCategories(ctx context.Context, categoryIDs, excludeIDs []uuid.UUID, vehicleID *uuid.UUID, limit int) ([]models.Product, error)
	Popular(ctx context.Context, vehicleID *uuid.UUID, limit int) ([]models.Product, error)
	TrendingProductIDs(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error)
	SameCategory(ctx context.Context, product *models.Product, vehicleID *uuid.UUID, limit int) ([]models.Product, error)
	OtherCategories(ctx context.Context, product *models.Product, vehicleID *uuid.UUID, limit int) ([]models.Product, error)
	CoPurchasedProductIDs(ctx context.Context, productID uuid.UUID, limit int) ([]uuid.UUID, error)
	ByJobTypes(ctx context.Context, jobTypes []string, excludeIDs []uuid.UUID, vehicleID *uuid.UUID, limit int) ([]models.Product, error)
	Newest(ctx context.Context, vehicleID *uuid.UUID, limit int) ([]models.Product, error)
	TotalInteractions(ctx context.Context) (int64, error)
	InteractionsOfType(ctx context.Context, interactionType enums.InteractionType) (int64, error)
	MostInteracted(ctx context.Context, interactionType enums.InteractionType, limit int) ([]ProductCount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a recommendation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) sellable(ctx context.Context, vehicleID *uuid.UUID) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("products.is_active = ? AND products.stock > 0", true)
	if vehicleID != nil {
		query = query.Scopes(vehicles.CompatibleWith(*vehicleID))
	}
	return query
}

func (r *repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ProductsByIDs(ctx context.Context, ids []uuid.UUID, vehicleID *uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	if err := r.sellable(ctx, vehicleID).
		Where("products.id IN ?", ids).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) RecentProductIDs(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) RecentlyViewedProductIDs(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("user_id = ? AND type = ?", userID, enums.InteractionTypeView).
		Order("occurred_at DESC").
		Limit(limit).
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) CategoryIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ?", productIDs).
		Distinct().
		Pluck("category_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) ActiveInCategories(ctx context.Context, categoryIDs, excludeIDs []uuid.UUID, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	query := r.sellable(ctx, vehicleID)
	if len(categoryIDs) > 0 {
		query = query.Where("products.category_id IN ?", categoryIDs)
	}
	if len(excludeIDs) > 0 {
		query = query.Where("products.id NOT IN ?", excludeIDs)
	}

	var products []models.Product
	if err := query.
		Order("products.created_at DESC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) Popular(ctx context.Context, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	var products []models.Product
	if err := r.sellable(ctx, vehicleID).
		Select("products.*, (SELECT COUNT(*) FROM order_items oi WHERE oi.product_id = products.id) AS order_items_count").
		Order("order_items_count DESC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) TrendingProductIDs(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Select("product_id").
		Where("occurred_at >= ?", since).
		Group("product_id").
		Order("COUNT(*) DESC").
		Limit(limit).
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) SameCategory(ctx context.Context, product *models.Product, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	var products []models.Product
	if err := r.sellable(ctx, vehicleID).
		Where("products.id <> ? AND products.category_id = ?", product.ID, product.CategoryID).
		Order("products.price_cents ASC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) OtherCategories(ctx context.Context, product *models.Product, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	var products []models.Product
	if err := r.sellable(ctx, vehicleID).
		Where("products.id <> ? AND products.category_id <> ?", product.ID, product.CategoryID).
		Order("products.created_at DESC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) CoPurchasedProductIDs(ctx context.Context, productID uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Table("order_items AS oi1").
		Select("oi2.product_id").
		Joins("JOIN order_items oi2 ON oi1.order_id = oi2.order_id AND oi2.product_id <> oi1.product_id").
		Where("oi1.product_id = ?", productID).
		Group("oi2.product_id").
		Order("COUNT(*) DESC").
		Limit(limit).
		Pluck("oi2.product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) ByJobTypes(ctx context.Context, jobTypes []string, excludeIDs []uuid.UUID, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	if len(jobTypes) == 0 {
		return nil, nil
	}
	query := r.sellable(ctx, vehicleID).
		Where("products.job_type IN ?", jobTypes)
	if len(excludeIDs) > 0 {
		query = query.Where("products.id NOT IN ?", excludeIDs)
	}

	var products []models.Product
	if err := query.Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) Newest(ctx context.Context, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	var products []models.Product
	if err := r.sellable(ctx, vehicleID).
		Order("products.created_at DESC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) TotalInteractions(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Interaction{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) InteractionsOfType(ctx context.Context, interactionType enums.InteractionType) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("type = ?", interactionType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) MostInteracted(ctx context.Context, interactionType enums.InteractionType, limit int) ([]ProductCount, error) {
	type row struct {
		models.Product
		InteractionsCount int64 `gorm:"column:interactions_count"`
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.*, COUNT(i.id) AS interactions_count").
		Joins("JOIN interactions i ON i.product_id = products.id AND i.type = ?", interactionType).
		Group("products.id").
		Order("interactions_count DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make([]ProductCount, 0, len(rows))
	for _, item := range rows {
		counts = append(counts, ProductCount{Product: item.Product, Count: item.InteractionsCount})
	}
	return counts, nil
}
