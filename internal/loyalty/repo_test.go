package loyalty

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/piecehub/piecehub-backend/pkg/db/models"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	"github.com/piecehub/piecehub-backend/pkg/pagination"
)

func setupLoyaltyTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	accounts := `
CREATE TABLE IF NOT EXISTS loyalty_accounts (
  user_id TEXT PRIMARY KEY,
  total_points INTEGER NOT NULL DEFAULT 0,
  available_points INTEGER NOT NULL DEFAULT 0,
  used_points INTEGER NOT NULL DEFAULT 0,
  expired_points INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	transactions := `
CREATE TABLE IF NOT EXISTS loyalty_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  points INTEGER NOT NULL,
  type TEXT NOT NULL,
  operation TEXT NOT NULL,
  related_id TEXT,
  description TEXT,
  balance_after INTEGER NOT NULL,
  expires_at DATETIME,
  expired INTEGER NOT NULL DEFAULT 0,
  cancelled INTEGER NOT NULL DEFAULT 0,
  cancelled_at DATETIME,
  cancellation_reason TEXT,
  reward_data TEXT,
  created_at DATETIME
);`
	rewards := `
CREATE TABLE IF NOT EXISTS loyalty_rewards (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  points_required INTEGER NOT NULL,
  type TEXT NOT NULL,
  value_cents INTEGER,
  stock INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  valid_from DATETIME,
  valid_until DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(accounts).Error)
	require.NoError(t, db.Exec(transactions).Error)
	require.NoError(t, db.Exec(rewards).Error)
	require.NoError(t, db.Exec(orders).Error)
	// the shared-cache database survives between tests in this package
	for _, table := range []string{"loyalty_accounts", "loyalty_transactions", "loyalty_rewards", "orders"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	return db
}

func createLedgerEntry(t *testing.T, db *gorm.DB, userID uuid.UUID, points int, txType enums.LoyaltyTransactionType, op enums.LoyaltyOperation, created time.Time, expiresAt *time.Time) *models.LoyaltyTransaction {
	t.Helper()

	entry := &models.LoyaltyTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		Points:       points,
		Type:         txType,
		Operation:    op,
		BalanceAfter: points,
		ExpiresAt:    expiresAt,
		CreatedAt:    created,
	}
	require.NoError(t, db.Create(entry).Error)
	return entry
}

func TestRepositoryListTransactions_cursorPagination(t *testing.T) {
	db := setupLoyaltyTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)
	oldest := createLedgerEntry(t, db, userID, 100, enums.LoyaltyTransactionTypeOrder, enums.LoyaltyOperationCredit, now.Add(-2*time.Hour), nil)
	middle := createLedgerEntry(t, db, userID, 50, enums.LoyaltyTransactionTypeManual, enums.LoyaltyOperationCredit, now.Add(-time.Hour), nil)
	newest := createLedgerEntry(t, db, userID, 30, enums.LoyaltyTransactionTypeReward, enums.LoyaltyOperationDebit, now, nil)
	createLedgerEntry(t, db, uuid.New(), 999, enums.LoyaltyTransactionTypeOrder, enums.LoyaltyOperationCredit, now, nil)

	first, err := repo.ListTransactions(context.Background(), userID, 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, newest.ID, first[0].ID)
	assert.Equal(t, middle.ID, first[1].ID)

	cursor := &pagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	second, err := repo.ListTransactions(context.Background(), userID, 2, cursor)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, oldest.ID, second[0].ID)
}

func TestRepositoryOverdueCreditIDs(t *testing.T) {
	db := setupLoyaltyTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	overdue := createLedgerEntry(t, db, userID, 100, enums.LoyaltyTransactionTypeOrder, enums.LoyaltyOperationCredit, now.Add(-time.Hour), &past)
	createLedgerEntry(t, db, userID, 50, enums.LoyaltyTransactionTypeOrder, enums.LoyaltyOperationCredit, now, &future)
	createLedgerEntry(t, db, userID, 25, enums.LoyaltyTransactionTypeReward, enums.LoyaltyOperationDebit, now, &past)

	expired := createLedgerEntry(t, db, userID, 10, enums.LoyaltyTransactionTypeOrder, enums.LoyaltyOperationCredit, now, &past)
	require.NoError(t, db.Model(expired).Update("expired", true).Error)
	cancelled := createLedgerEntry(t, db, userID, 10, enums.LoyaltyTransactionTypeOrder, enums.LoyaltyOperationCredit, now, &past)
	require.NoError(t, db.Model(cancelled).Update("cancelled", true).Error)

	ids, err := repo.OverdueCreditIDs(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, overdue.ID, ids[0])
}

func TestRepositoryAggregates(t *testing.T) {
	db := setupLoyaltyTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)
	first := createLedgerEntry(t, db, userID, 100, enums.LoyaltyTransactionTypeOrder, enums.LoyaltyOperationCredit, now.Add(-time.Hour), nil)
	createLedgerEntry(t, db, userID, 40, enums.LoyaltyTransactionTypeExpiration, enums.LoyaltyOperationDebit, now.Add(-30*time.Minute), nil)
	createLedgerEntry(t, db, userID, 20, enums.LoyaltyTransactionTypeExpiration, enums.LoyaltyOperationDebit, now.Add(-20*time.Minute), nil)
	createLedgerEntry(t, db, userID, 50, enums.LoyaltyTransactionTypeReward, enums.LoyaltyOperationDebit, now, nil)

	expired, err := repo.SumPointsByType(context.Background(), userID, enums.LoyaltyTransactionTypeExpiration)
	require.NoError(t, err)
	assert.Equal(t, int64(60), expired)

	redemptions, err := repo.CountRedemptions(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), redemptions)

	memberSince, err := repo.FirstTransactionAt(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, memberSince)
	assert.True(t, memberSince.Equal(first.CreatedAt))

	none, err := repo.FirstTransactionAt(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRepositoryPointsExpiringBetween(t *testing.T) {
	db := setupLoyaltyTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	now := time.Now().UTC()
	soon := now.Add(10 * 24 * time.Hour)
	later := now.Add(60 * 24 * time.Hour)

	createLedgerEntry(t, db, userID, 80, enums.LoyaltyTransactionTypeOrder, enums.LoyaltyOperationCredit, now, &soon)
	createLedgerEntry(t, db, userID, 70, enums.LoyaltyTransactionTypeOrder, enums.LoyaltyOperationCredit, now, &later)

	total, err := repo.PointsExpiringBetween(context.Background(), userID, now, now.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(80), total)
}

func TestRepositoryListActiveRewards(t *testing.T) {
	db := setupLoyaltyTestDB(t)
	repo := NewRepository(db)

	stockZero := 0
	stockFive := 5
	rewards := []*models.LoyaltyReward{
		{ID: uuid.New(), Name: "Bon de réduction 5€", PointsRequired: 500, Type: enums.RewardTypeDiscount, IsActive: true},
		{ID: uuid.New(), Name: "Livraison offerte", PointsRequired: 300, Type: enums.RewardTypeFreeShipping, IsActive: true, Stock: &stockFive},
		{ID: uuid.New(), Name: "Épuisé", PointsRequired: 100, Type: enums.RewardTypeGift, IsActive: true, Stock: &stockZero},
		{ID: uuid.New(), Name: "Désactivé", PointsRequired: 100, Type: enums.RewardTypeGift, IsActive: false},
	}
	for _, reward := range rewards {
		require.NoError(t, db.Create(reward).Error)
	}

	active, err := repo.ListActiveRewards(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Livraison offerte", active[0].Name)
	assert.Equal(t, "Bon de réduction 5€", active[1].Name)
}

func TestRepositoryAccountRoundTrip(t *testing.T) {
	db := setupLoyaltyTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	account := &models.LoyaltyAccount{UserID: userID, TotalPoints: 100, AvailablePoints: 60, UsedPoints: 40}
	require.NoError(t, repo.SaveAccount(context.Background(), account))

	loaded, err := repo.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 100, loaded.TotalPoints)
	assert.Equal(t, 60, loaded.AvailablePoints)

	_, err = repo.GetAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
