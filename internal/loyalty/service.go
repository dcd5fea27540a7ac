package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piecehub/piecehub-backend/pkg/config"
	"github.com/piecehub/piecehub-backend/pkg/db/models"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	pkgerrors "github.com/piecehub/piecehub-backend/pkg/errors"
	"github.com/piecehub/piecehub-backend/pkg/logger"
	"github.com/piecehub/piecehub-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns every mutation of the points ledger. All writes run under the
// account row lock so concurrent redemptions and credits serialize cleanly.
type Service interface {
	AddPoints(ctx context.Context, input AddPointsInput) (*models.LoyaltyTransaction, error)
	AddPointsFromOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.LoyaltyTransaction, error)
	RedeemReward(ctx context.Context, userID, rewardID uuid.UUID) (*models.LoyaltyTransaction, error)
	CancelTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*models.LoyaltyTransaction, error)
	ExpirePoints(ctx context.Context) (int, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	Summary(ctx context.Context, userID uuid.UUID) (*AccountSummary, error)
	TransactionHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error)
	AvailableRewards(ctx context.Context, userID uuid.UUID) ([]RewardView, error)
	Stats(ctx context.Context, userID uuid.UUID) (*UserStats, error)
}

type service struct {
	repo Repository
	tx   txRunner
	cfg  config.LoyaltyConfig
	logg *logger.Logger
	now  func() time.Time
}

// Params bundles the dependencies the loyalty service needs.
type Params struct {
	Repo   Repository
	Tx     txRunner
	Config config.LoyaltyConfig
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService wires a loyalty service with the provided stack.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("loyalty repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Now == nil {
		p.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: p.Repo, tx: p.Tx, cfg: p.Config, logg: p.Logger, now: p.Now}, nil
}

// AddPointsInput captures a manual or order-driven credit.
type AddPointsInput struct {
	UserID      uuid.UUID
	Points      int
	Type        enums.LoyaltyTransactionType
	RelatedID   *uuid.UUID
	Description string
}

// AddPoints credits points to the user's account. The credit carries an
// expiry date so the maintenance job can claw unspent points back later.
func (s *service) AddPoints(ctx context.Context, input AddPointsInput) (*models.LoyaltyTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be positive")
	}
	transactionType := input.Type
	if transactionType == "" {
		transactionType = enums.LoyaltyTransactionTypeManual
	}
	if transactionType != enums.LoyaltyTransactionTypeOrder && transactionType != enums.LoyaltyTransactionTypeManual {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("type %q cannot be credited directly", transactionType))
	}

	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Ajout de %d points", input.Points)
	}

	var created *models.LoyaltyTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		account, err := repo.LockAccount(ctx, input.UserID)
		if err != nil {
			return err
		}
		account.TotalPoints += input.Points
		account.AvailablePoints += input.Points
		if err := repo.SaveAccount(ctx, account); err != nil {
			return err
		}

		expiresAt := s.now().AddDate(0, s.cfg.ValidityMonths(), 0)
		created = &models.LoyaltyTransaction{
			UserID:       input.UserID,
			Points:       input.Points,
			Type:         transactionType,
			Operation:    enums.LoyaltyOperationCredit,
			RelatedID:    input.RelatedID,
			Description:  description,
			BalanceAfter: account.AvailablePoints,
			ExpiresAt:    &expiresAt,
		}
		return repo.CreateTransaction(ctx, created)
	})
	if err != nil {
		return nil, s.mapTxError(err, "add points")
	}
	return created, nil
}

// AddPointsFromOrder converts an order total into points at the configured
// rate and credits them. Truncation always rounds down.
func (s *service) AddPointsFromOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.LoyaltyTransaction, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id are required")
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}

	points := order.TotalCents * s.cfg.PointsPerCurrencyUnit / 100
	if points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total too small to earn points")
	}

	related := order.ID
	return s.AddPoints(ctx, AddPointsInput{
		UserID:      userID,
		Points:      points,
		Type:        enums.LoyaltyTransactionTypeOrder,
		RelatedID:   &related,
		Description: fmt.Sprintf("Points gagnés pour la commande #%s", order.ID),
	})
}

type rewardSnapshot struct {
	RewardID   uuid.UUID        `json:"reward_id"`
	RewardName string           `json:"reward_name"`
	RewardType enums.RewardType `json:"reward_type"`
	ValueCents *int             `json:"reward_value_cents"`
}

// RedeemReward debits the reward's cost and records a snapshot of the reward
// at redemption time. Balance, activity window and stock are all checked
// under lock.
func (s *service) RedeemReward(ctx context.Context, userID, rewardID uuid.UUID) (*models.LoyaltyTransaction, error) {
	if userID == uuid.Nil || rewardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and reward id are required")
	}

	var created *models.LoyaltyTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		reward, err := repo.LockReward(ctx, rewardID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
			}
			return err
		}
		now := s.now()
		if !reward.IsActive {
			return pkgerrors.New(pkgerrors.CodeRewardInactive, "reward is not active")
		}
		if reward.ValidFrom != nil && now.Before(*reward.ValidFrom) {
			return pkgerrors.New(pkgerrors.CodeRewardInactive, "reward is not yet available")
		}
		if reward.ValidUntil != nil && now.After(*reward.ValidUntil) {
			return pkgerrors.New(pkgerrors.CodeRewardInactive, "reward offer has ended")
		}
		if reward.Stock != nil && *reward.Stock <= 0 {
			return pkgerrors.New(pkgerrors.CodeRewardOutOfStock, "reward is out of stock")
		}

		account, err := repo.LockAccount(ctx, userID)
		if err != nil {
			return err
		}
		if account.AvailablePoints < reward.PointsRequired {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "not enough points").WithDetails(map[string]any{
				"required":  reward.PointsRequired,
				"available": account.AvailablePoints,
			})
		}

		account.AvailablePoints -= reward.PointsRequired
		account.UsedPoints += reward.PointsRequired
		if err := repo.SaveAccount(ctx, account); err != nil {
			return err
		}

		if reward.Stock != nil {
			remaining := *reward.Stock - 1
			reward.Stock = &remaining
			if err := repo.SaveReward(ctx, reward); err != nil {
				return err
			}
		}

		snapshot, err := json.Marshal(rewardSnapshot{
			RewardID:   reward.ID,
			RewardName: reward.Name,
			RewardType: reward.Type,
			ValueCents: reward.ValueCents,
		})
		if err != nil {
			return err
		}

		related := reward.ID
		created = &models.LoyaltyTransaction{
			UserID:       userID,
			Points:       reward.PointsRequired,
			Type:         enums.LoyaltyTransactionTypeReward,
			Operation:    enums.LoyaltyOperationDebit,
			RelatedID:    &related,
			Description:  fmt.Sprintf("Échange : %s", reward.Name),
			BalanceAfter: account.AvailablePoints,
			RewardData:   snapshot,
		}
		return repo.CreateTransaction(ctx, created)
	})
	if err != nil {
		return nil, s.mapTxError(err, "redeem reward")
	}
	return created, nil
}

// CancelTransaction voids a ledger entry by applying its inverse to the
// balance and appending a compensating entry. The original entry is flagged,
// never rewritten.
func (s *service) CancelTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*models.LoyaltyTransaction, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	var compensating *models.LoyaltyTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		original, err := repo.GetTransaction(ctx, transactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return err
		}
		if original.Cancelled {
			return pkgerrors.New(pkgerrors.CodeAlreadyCancelled, "transaction already cancelled")
		}
		// An expired credit's points already left the balance through the
		// expiration sweep; reversing it here would drive the balance negative.
		if original.Expired {
			return pkgerrors.New(pkgerrors.CodeConflict, "credit has expired, cancel the expiration entry instead")
		}

		account, err := repo.LockAccount(ctx, original.UserID)
		if err != nil {
			return err
		}

		if original.Operation == enums.LoyaltyOperationCredit {
			account.AvailablePoints -= original.Points
			account.TotalPoints -= original.Points
		} else {
			account.AvailablePoints += original.Points
			if original.Type == enums.LoyaltyTransactionTypeExpiration {
				account.ExpiredPoints -= original.Points
			} else {
				account.UsedPoints -= original.Points
			}
		}
		if err := repo.SaveAccount(ctx, account); err != nil {
			return err
		}

		now := s.now()
		original.Cancelled = true
		original.CancelledAt = &now
		original.CancellationReason = &reason
		if err := repo.SaveTransaction(ctx, original); err != nil {
			return err
		}

		related := original.ID
		compensating = &models.LoyaltyTransaction{
			UserID:       original.UserID,
			Points:       original.Points,
			Type:         enums.LoyaltyTransactionTypeCancellation,
			Operation:    original.Operation.Inverse(),
			RelatedID:    &related,
			Description:  fmt.Sprintf("Annulation : %s. Raison : %s", original.Description, reason),
			BalanceAfter: account.AvailablePoints,
		}
		return repo.CreateTransaction(ctx, compensating)
	})
	if err != nil {
		return nil, s.mapTxError(err, "cancel transaction")
	}
	return compensating, nil
}

// ExpirePoints processes every overdue credit independently so one bad row
// never blocks the batch. A credit expires at most min(points, available)
// to keep the balance non-negative.
func (s *service) ExpirePoints(ctx context.Context) (int, error) {
	batchCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.ExpiryBatchTimeout > 0 {
		batchCtx, cancel = context.WithTimeout(ctx, s.cfg.ExpiryBatchTimeout)
		defer cancel()
	}

	ids, err := s.repo.OverdueCreditIDs(batchCtx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list overdue credits")
	}

	totalExpired := 0
	for _, id := range ids {
		if batchCtx.Err() != nil {
			s.logg.Warn(ctx, "points expiration batch timed out, remaining credits deferred")
			break
		}
		expired, err := s.expireCredit(batchCtx, id)
		if err != nil {
			s.logg.Error(s.logg.WithField(ctx, "transaction_id", id.String()), "expiring credit failed", err)
			continue
		}
		totalExpired += expired
	}
	return totalExpired, nil
}

func (s *service) expireCredit(ctx context.Context, creditID uuid.UUID) (int, error) {
	expired := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		credit, err := repo.GetTransaction(ctx, creditID)
		if err != nil {
			return err
		}
		// Re-check under the transaction; another worker may have won.
		if credit.Expired || credit.Cancelled {
			return nil
		}

		account, err := repo.LockAccount(ctx, credit.UserID)
		if err != nil {
			return err
		}

		credit.Expired = true
		if err := repo.SaveTransaction(ctx, credit); err != nil {
			return err
		}

		points := credit.Points
		if account.AvailablePoints < points {
			points = account.AvailablePoints
		}
		if points <= 0 {
			return nil
		}

		account.AvailablePoints -= points
		account.ExpiredPoints += points
		if err := repo.SaveAccount(ctx, account); err != nil {
			return err
		}

		related := credit.ID
		if err := repo.CreateTransaction(ctx, &models.LoyaltyTransaction{
			UserID:       credit.UserID,
			Points:       points,
			Type:         enums.LoyaltyTransactionTypeExpiration,
			Operation:    enums.LoyaltyOperationDebit,
			RelatedID:    &related,
			Description:  fmt.Sprintf("Expiration de %d points", points),
			BalanceAfter: account.AvailablePoints,
		}); err != nil {
			return err
		}
		expired = points
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	return account.AvailablePoints, nil
}

// AccountSummary is the dashboard view of an account, tier included.
type AccountSummary struct {
	UserID             uuid.UUID `json:"user_id"`
	Tier               Tier      `json:"tier"`
	TierColor          string    `json:"tier_color"`
	TierBenefits       []string  `json:"tier_benefits"`
	TotalPoints        int       `json:"total_points"`
	AvailablePoints    int       `json:"available_points"`
	UsedPoints         int       `json:"used_points"`
	ExpiredPoints      int       `json:"expired_points"`
	PointsExpiringSoon int64     `json:"points_expiring_soon"`
	PointsToNextTier   *int      `json:"points_to_next_tier"`
	UsagePercentage    float64   `json:"usage_percentage"`
}

func (s *service) Summary(ctx context.Context, userID uuid.UUID) (*AccountSummary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			account = &models.LoyaltyAccount{UserID: userID}
		} else {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
		}
	}

	now := s.now()
	expiringSoon, err := s.repo.PointsExpiringBetween(ctx, userID, now, now.AddDate(0, 0, 30))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum expiring points")
	}

	usage := 0.0
	if account.TotalPoints > 0 {
		usage = math.Round(float64(account.UsedPoints)/float64(account.TotalPoints)*10000) / 100
	}

	tier := TierFor(account.TotalPoints)
	return &AccountSummary{
		UserID:             userID,
		Tier:               tier,
		TierColor:          tier.Color(),
		TierBenefits:       tier.Benefits(),
		TotalPoints:        account.TotalPoints,
		AvailablePoints:    account.AvailablePoints,
		UsedPoints:         account.UsedPoints,
		ExpiredPoints:      account.ExpiredPoints,
		PointsExpiringSoon: expiringSoon,
		PointsToNextTier:   PointsToNextTier(account.TotalPoints),
		UsagePercentage:    usage,
	}, nil
}

// HistoryPage is one cursor page of a user's ledger, newest first.
type HistoryPage struct {
	Transactions []models.LoyaltyTransaction
	NextCursor   *string
}

func (s *service) TransactionHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse cursor")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	limit = pagination.NormalizeLimit(limit)

	rows, err := s.repo.ListTransactions(ctx, userID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}

	page := &HistoryPage{Transactions: rows}
	if len(rows) > limit {
		page.Transactions = rows[:limit]
		last := page.Transactions[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}
	return page, nil
}

// RewardView decorates a catalog entry with per-user affordability.
type RewardView struct {
	models.LoyaltyReward
	CanRedeem *bool `json:"can_redeem,omitempty"`
}

// AvailableRewards lists active, in-stock rewards cheapest first. When a user
// is provided each entry carries whether they can afford it.
func (s *service) AvailableRewards(ctx context.Context, userID uuid.UUID) ([]RewardView, error) {
	rewards, err := s.repo.ListActiveRewards(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list rewards")
	}

	views := make([]RewardView, 0, len(rewards))
	if userID == uuid.Nil {
		for _, reward := range rewards {
			views = append(views, RewardView{LoyaltyReward: reward})
		}
		return views, nil
	}

	available, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, reward := range rewards {
		can := available >= reward.PointsRequired
		views = append(views, RewardView{LoyaltyReward: reward, CanRedeem: &can})
	}
	return views, nil
}

// UserStats aggregates lifetime loyalty activity for one user.
type UserStats struct {
	TotalPoints     int        `json:"total_points"`
	AvailablePoints int        `json:"available_points"`
	UsedPoints      int        `json:"used_points"`
	ExpiredPoints   int64      `json:"expired_points"`
	RewardsRedeemed int64      `json:"rewards_redeemed"`
	MemberSince     *time.Time `json:"member_since"`
}

func (s *service) Stats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &UserStats{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}

	expiredSum, err := s.repo.SumPointsByType(ctx, userID, enums.LoyaltyTransactionTypeExpiration)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum expired points")
	}
	redeemed, err := s.repo.CountRedemptions(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count redemptions")
	}
	memberSince, err := s.repo.FirstTransactionAt(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load first transaction")
	}

	return &UserStats{
		TotalPoints:     account.TotalPoints,
		AvailablePoints: account.AvailablePoints,
		UsedPoints:      account.UsedPoints,
		ExpiredPoints:   expiredSum,
		RewardsRedeemed: redeemed,
		MemberSince:     memberSince,
	}, nil
}

// mapTxError keeps domain errors and converts storage-level serialization
// failures into a retryable conflict.
func (s *service) mapTxError(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if isSerializationFailure(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, op)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "40001") ||
		strings.Contains(msg, "40P01") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "deadlock detected")
}
