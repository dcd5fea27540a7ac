package interactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/piecehub/piecehub-backend/pkg/config"
	"github.com/piecehub/piecehub-backend/pkg/db/models"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	pkgerrors "github.com/piecehub/piecehub-backend/pkg/errors"
	"github.com/piecehub/piecehub-backend/pkg/logger"
	"github.com/piecehub/piecehub-backend/pkg/pagination"
)

// Service records and reads the interaction log.
type Service interface {
	Track(ctx context.Context, input TrackInput) (*models.Interaction, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error)
	Stats(ctx context.Context, userID uuid.UUID) (*StatsDTO, error)
	MostInteracted(ctx context.Context, userID uuid.UUID, limit int) ([]ProductScore, error)
	Popular(ctx context.Context, limit, windowDays int) ([]ProductScore, error)
	PruneOldViews(ctx context.Context, now time.Time) (int64, error)
}

type service struct {
	repo Repository
	cfg  config.InteractionsConfig
	logg *logger.Logger
}

// Params bundles the dependencies the interaction service needs.
type Params struct {
	Repo   Repository
	Config config.InteractionsConfig
	Logger *logger.Logger
}

// NewService wires an interaction service with the provided stack.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("interaction repository required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: p.Repo, cfg: p.Config, logg: p.Logger}, nil
}

// TrackInput captures one user action on a product.
type TrackInput struct {
	UserID     uuid.UUID
	ProductID  uuid.UUID
	Type       enums.InteractionType
	OccurredAt time.Time
}

// Track validates and appends a scored interaction. The score is resolved from
// the type's weight at write time so later weight changes never rewrite history.
func (s *service) Track(ctx context.Context, input TrackInput) (*models.Interaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid interaction type %q", input.Type))
	}
	exists, err := s.repo.ProductExists(ctx, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product %s", input.ProductID))
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	interaction := &models.Interaction{
		UserID:     input.UserID,
		ProductID:  input.ProductID,
		Type:       input.Type,
		Score:      input.Type.Score(),
		OccurredAt: occurredAt,
	}
	if err := s.repo.Create(ctx, interaction); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create interaction")
	}
	return interaction, nil
}

// HistoryPage is one cursor page of a user's interaction log.
type HistoryPage struct {
	Interactions []models.Interaction
	NextCursor   *string
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByUser(ctx, userID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list interactions")
	}

	page := &HistoryPage{Interactions: rows}
	if len(rows) > limit {
		page.Interactions = rows[:limit]
		last := page.Interactions[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}
	return page, nil
}

// StatsDTO summarizes a user's interaction volume.
type StatsDTO struct {
	Total            int64                           `json:"total"`
	ByType           map[enums.InteractionType]int64 `json:"by_type"`
	DistinctProducts int64                           `json:"distinct_products"`
}

func (s *service) Stats(ctx context.Context, userID uuid.UUID) (*StatsDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	counts, err := s.repo.CountsByType(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count interactions by type")
	}
	distinct, err := s.repo.CountDistinctProducts(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count distinct products")
	}

	stats := &StatsDTO{
		ByType:           make(map[enums.InteractionType]int64, len(counts)),
		DistinctProducts: distinct,
	}
	for _, row := range counts {
		stats.ByType[row.Type] = row.Count
		stats.Total += row.Count
	}
	return stats, nil
}

// MostInteracted ranks the products a user engaged with by summed score.
func (s *service) MostInteracted(ctx context.Context, userID uuid.UUID, limit int) ([]ProductScore, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.SumScoresByUser(ctx, userID, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum scores by user")
	}
	return rows, nil
}

// Popular ranks products across all users by summed score. A positive
// windowDays restricts the aggregation to recent interactions; zero or
// negative means all time.
func (s *service) Popular(ctx context.Context, limit, windowDays int) ([]ProductScore, error) {
	var since *time.Time
	if windowDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)
		since = &cutoff
	}
	rows, err := s.repo.SumScoresSince(ctx, since, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum scores since")
	}
	return rows, nil
}

// PruneOldViews deletes view rows older than the retention window. Heavier
// signals (cart, wishlist, purchase) are kept indefinitely.
func (s *service) PruneOldViews(ctx context.Context, now time.Time) (int64, error) {
	retention := time.Duration(s.cfg.ViewRetentionDays) * 24 * time.Hour
	if retention <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-retention)

	deleted, err := s.repo.DeleteViewsBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prune old views")
	}
	if deleted > 0 {
		s.logg.Info(s.logg.WithField(ctx, "deleted", deleted), "pruned stale view interactions")
	}
	return deleted, nil
}
