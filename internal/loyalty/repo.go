package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/piecehub/piecehub-backend/pkg/db/models"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	"github.com/piecehub/piecehub-backend/pkg/pagination"
)

// Repository manages persistence for loyalty accounts, ledger entries and rewards.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	LockAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	SaveAccount(ctx context.Context, account *models.LoyaltyAccount) error
	CreateTransaction(ctx context.Context, transaction *models.LoyaltyTransaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.LoyaltyTransaction, error)
	SaveTransaction(ctx context.Context, transaction *models.LoyaltyTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LoyaltyTransaction, error)
	OverdueCreditIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	SumPointsByType(ctx context.Context, userID uuid.UUID, transactionType enums.LoyaltyTransactionType) (int64, error)
	CountRedemptions(ctx context.Context, userID uuid.UUID) (int64, error)
	FirstTransactionAt(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	PointsExpiringBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error)
	GetReward(ctx context.Context, id uuid.UUID) (*models.LoyaltyReward, error)
	LockReward(ctx context.Context, id uuid.UUID) (*models.LoyaltyReward, error)
	SaveReward(ctx context.Context, reward *models.LoyaltyReward) error
	ListActiveRewards(ctx context.Context) ([]models.LoyaltyReward, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a loyalty repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	if err := r.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// LockAccount takes the account row lock that serializes every balance
// mutation for a user. The row is created on first use.
func (r *repository) LockAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	seed := models.LoyaltyAccount{UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	var account models.LoyaltyAccount
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) SaveAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *repository) CreateTransaction(ctx context.Context, transaction *models.LoyaltyTransaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repository) GetTransaction(ctx context.Context, id uuid.UUID) (*models.LoyaltyTransaction, error) {
	var transaction models.LoyaltyTransaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *repository) SaveTransaction(ctx context.Context, transaction *models.LoyaltyTransaction) error {
	return r.db.WithContext(ctx).Save(transaction).Error
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LoyaltyTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.LoyaltyTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) OverdueCreditIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("operation = ? AND expired = ? AND cancelled = ?", enums.LoyaltyOperationCredit, false, false).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Order("expires_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) SumPointsByType(ctx context.Context, userID uuid.UUID, transactionType enums.LoyaltyTransactionType) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("user_id = ? AND type = ?", userID, transactionType).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) CountRedemptions(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("user_id = ? AND type = ? AND operation = ?", userID, enums.LoyaltyTransactionTypeReward, enums.LoyaltyOperationDebit).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) FirstTransactionAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var transaction models.LoyaltyTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		First(&transaction).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &transaction.CreatedAt, nil
}

func (r *repository) PointsExpiringBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("user_id = ? AND operation = ? AND expired = ? AND cancelled = ?", userID, enums.LoyaltyOperationCredit, false, false).
		Where("expires_at BETWEEN ? AND ?", from, to).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) GetReward(ctx context.Context, id uuid.UUID) (*models.LoyaltyReward, error) {
	var reward models.LoyaltyReward
	if err := r.db.WithContext(ctx).First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repository) LockReward(ctx context.Context, id uuid.UUID) (*models.LoyaltyReward, error) {
	var reward models.LoyaltyReward
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repository) SaveReward(ctx context.Context, reward *models.LoyaltyReward) error {
	return r.db.WithContext(ctx).Save(reward).Error
}

func (r *repository) ListActiveRewards(ctx context.Context) ([]models.LoyaltyReward, error) {
	var rewards []models.LoyaltyReward
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("stock IS NULL OR stock > 0").
		Order("points_required ASC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *repository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
