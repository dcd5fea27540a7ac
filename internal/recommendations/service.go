package recommendations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piecehub/piecehub-backend/pkg/config"
	"github.com/piecehub/piecehub-backend/pkg/db/models"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	pkgerrors "github.com/piecehub/piecehub-backend/pkg/errors"
	"github.com/piecehub/piecehub-backend/pkg/logger"
)

// Options carries the per-request knobs shared by every strategy.
type Options struct {
	Limit     int
	VehicleID *uuid.UUID
}

// UserRecommendations is the composed payload for a user landing surface.
type UserRecommendations struct {
	Personalized   []models.Product `json:"personalized"`
	Popular        []models.Product `json:"popular"`
	RecentlyViewed []models.Product `json:"recently_viewed"`
	Trending       []models.Product `json:"trending"`
}

// ProductRecommendations is the composed payload for a product detail page.
type ProductRecommendations struct {
	Similar                  []models.Product `json:"similar"`
	FrequentlyBoughtTogether []models.Product `json:"frequently_bought_together"`
	Complementary            []models.Product `json:"complementary"`
}

// AdminStats summarizes interaction volume for the back office.
type AdminStats struct {
	TotalInteractions int64          `json:"total_interactions"`
	TotalViews        int64          `json:"total_views"`
	TotalClicks       int64          `json:"total_clicks"`
	MostViewed        []ProductCount `json:"most_viewed"`
	MostClicked       []ProductCount `json:"most_clicked"`
}

// Service ranks products for users, products and carts.
type Service interface {
	Personalized(ctx context.Context, userID uuid.UUID, opts Options) ([]models.Product, error)
	Popular(ctx context.Context, opts Options) ([]models.Product, error)
	RecentlyViewed(ctx context.Context, userID uuid.UUID, opts Options) ([]models.Product, error)
	Trending(ctx context.Context, opts Options) ([]models.Product, error)
	Similar(ctx context.Context, productID uuid.UUID, opts Options) ([]models.Product, error)
	FrequentlyBoughtTogether(ctx context.Context, productID uuid.UUID, opts Options) ([]models.Product, error)
	Complementary(ctx context.Context, productID uuid.UUID, opts Options) ([]models.Product, error)
	Newest(ctx context.Context, opts Options) ([]models.Product, error)
	ByStrategy(ctx context.Context, strategy enums.RecommendationStrategy, userID uuid.UUID, opts Options) ([]models.Product, error)
	ForUser(ctx context.Context, userID uuid.UUID, opts Options) (*UserRecommendations, error)
	ForProduct(ctx context.Context, productID uuid.UUID, opts Options) (*ProductRecommendations, error)
	ForCart(ctx context.Context, productIDs []uuid.UUID, opts Options) ([]models.Product, error)
	Stats(ctx context.Context) (*AdminStats, error)
}

type service struct {
	repo Repository
	cfg  config.RecommendationsConfig
	logg *logger.Logger
	now  func() time.Time
}

// Params bundles the dependencies the recommendation service needs.
type Params struct {
	Repo   Repository
	Config config.RecommendationsConfig
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService wires a recommendation service with the provided stack.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("recommendation repository required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Now == nil {
		p.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: p.Repo, cfg: p.Config, logg: p.Logger, now: p.Now}, nil
}

func (s *service) limit(opts Options) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	if s.cfg.DefaultLimit > 0 {
		return s.cfg.DefaultLimit
	}
	return 12
}

func (s *service) sample() int {
	if s.cfg.InteractionSample > 0 {
		return s.cfg.InteractionSample
	}
	return 50
}

// Personalized recommends fresh products from the categories the user has
// recently interacted with, excluding everything they already touched. An
// empty candidate set falls through to Popular, as does any read that exceeds
// the strategy's time budget.
func (s *service) Personalized(ctx context.Context, userID uuid.UUID, opts Options) ([]models.Product, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	budgetCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.ReadBudget > 0 {
		budgetCtx, cancel = context.WithTimeout(ctx, s.cfg.ReadBudget)
		defer cancel()
	}

	products, err := s.personalized(budgetCtx, userID, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "personalized read budget exceeded, serving popular")
			return s.Popular(context.WithoutCancel(ctx), opts)
		}
		return nil, err
	}
	return products, nil
}

func (s *service) personalized(ctx context.Context, userID uuid.UUID, opts Options) ([]models.Product, error) {
	interacted, err := s.repo.RecentProductIDs(ctx, userID, s.sample())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load recent interactions")
	}
	if len(interacted) == 0 {
		return s.Popular(ctx, opts)
	}
	categories, err := s.repo.CategoryIDs(ctx, interacted)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load interacted categories")
	}

	products, err := s.repo.ActiveInCategories(ctx, categories, interacted, opts.VehicleID, s.limit(opts))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank personalized products")
	}
	if len(products) == 0 {
		return s.Popular(ctx, opts)
	}
	return products, nil
}

func (s *service) Popular(ctx context.Context, opts Options) ([]models.Product, error) {
	products, err := s.repo.Popular(ctx, opts.VehicleID, s.limit(opts))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank popular products")
	}
	return products, nil
}

func (s *service) RecentlyViewed(ctx context.Context, userID uuid.UUID, opts Options) ([]models.Product, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	ids, err := s.repo.RecentlyViewedProductIDs(ctx, userID, s.sample())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load viewed products")
	}
	ids = dedupeIDs(ids, s.limit(opts))

	products, err := s.repo.ProductsByIDs(ctx, ids, opts.VehicleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	return orderByIDs(products, ids), nil
}

func (s *service) Trending(ctx context.Context, opts Options) ([]models.Product, error) {
	windowDays := s.cfg.TrendingWindowDays
	if windowDays <= 0 {
		windowDays = 7
	}
	since := s.now().AddDate(0, 0, -windowDays)

	ids, err := s.repo.TrendingProductIDs(ctx, since, s.sample())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank trending products")
	}

	products, err := s.repo.ProductsByIDs(ctx, ids, opts.VehicleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	products = orderByIDs(products, ids)
	if limit := s.limit(opts); len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (s *service) Similar(ctx context.Context, productID uuid.UUID, opts Options) ([]models.Product, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.SameCategory(ctx, product, opts.VehicleID, s.limit(opts))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank similar products")
	}
	return products, nil
}

func (s *service) FrequentlyBoughtTogether(ctx context.Context, productID uuid.UUID, opts Options) ([]models.Product, error) {
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}

	ids, err := s.repo.CoPurchasedProductIDs(ctx, productID, s.sample())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank co-purchased products")
	}

	products, err := s.repo.ProductsByIDs(ctx, ids, opts.VehicleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	products = orderByIDs(products, ids)
	if limit := s.limit(opts); len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (s *service) Complementary(ctx context.Context, productID uuid.UUID, opts Options) ([]models.Product, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.OtherCategories(ctx, product, opts.VehicleID, s.limit(opts))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank complementary products")
	}
	return products, nil
}

func (s *service) Newest(ctx context.Context, opts Options) ([]models.Product, error) {
	products, err := s.repo.Newest(ctx, opts.VehicleID, s.limit(opts))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank newest products")
	}
	return products, nil
}

// ByStrategy dispatches the widget endpoint. Strategies that need a user or a
// product context reject requests without one.
func (s *service) ByStrategy(ctx context.Context, strategy enums.RecommendationStrategy, userID uuid.UUID, opts Options) ([]models.Product, error) {
	switch strategy {
	case enums.StrategyPersonalized:
		return s.Personalized(ctx, userID, opts)
	case enums.StrategyPopular:
		return s.Popular(ctx, opts)
	case enums.StrategyRecentlyViewed:
		return s.RecentlyViewed(ctx, userID, opts)
	case enums.StrategyTrending:
		return s.Trending(ctx, opts)
	case enums.StrategyNew:
		return s.Newest(ctx, opts)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("strategy %q is not available as a widget", strategy))
	}
}

func (s *service) ForUser(ctx context.Context, userID uuid.UUID, opts Options) (*UserRecommendations, error) {
	personalized, err := s.Personalized(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	popular, err := s.Popular(ctx, Options{Limit: 8, VehicleID: opts.VehicleID})
	if err != nil {
		return nil, err
	}
	recent, err := s.RecentlyViewed(ctx, userID, Options{Limit: 6, VehicleID: opts.VehicleID})
	if err != nil {
		return nil, err
	}
	trending, err := s.Trending(ctx, Options{Limit: 6, VehicleID: opts.VehicleID})
	if err != nil {
		return nil, err
	}
	return &UserRecommendations{
		Personalized:   personalized,
		Popular:        popular,
		RecentlyViewed: recent,
		Trending:       trending,
	}, nil
}

func (s *service) ForProduct(ctx context.Context, productID uuid.UUID, opts Options) (*ProductRecommendations, error) {
	similar, err := s.Similar(ctx, productID, Options{Limit: 8, VehicleID: opts.VehicleID})
	if err != nil {
		return nil, err
	}
	together, err := s.FrequentlyBoughtTogether(ctx, productID, Options{Limit: 4, VehicleID: opts.VehicleID})
	if err != nil {
		return nil, err
	}
	complementary, err := s.Complementary(ctx, productID, Options{Limit: 6, VehicleID: opts.VehicleID})
	if err != nil {
		return nil, err
	}
	return &ProductRecommendations{
		Similar:                  similar,
		FrequentlyBoughtTogether: together,
		Complementary:            complementary,
	}, nil
}

// ForCart merges complementary picks for each cart line with job-based kit
// suggestions, deduped and never echoing the cart's own products.
func (s *service) ForCart(ctx context.Context, productIDs []uuid.UUID, opts Options) ([]models.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	cartProducts, err := s.repo.ProductsByIDs(ctx, productIDs, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart products")
	}

	inCart := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		inCart[id] = struct{}{}
	}

	seen := map[uuid.UUID]struct{}{}
	var merged []models.Product
	appendUnique := func(products []models.Product) {
		for _, product := range products {
			if _, ok := inCart[product.ID]; ok {
				continue
			}
			if _, ok := seen[product.ID]; ok {
				continue
			}
			seen[product.ID] = struct{}{}
			merged = append(merged, product)
		}
	}

	for i := range cartProducts {
		complementary, err := s.repo.OtherCategories(ctx, &cartProducts[i], opts.VehicleID, 3)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank complementary products")
		}
		appendUnique(complementary)
	}

	jobTypes := make([]string, 0, len(cartProducts))
	jobSeen := map[string]struct{}{}
	for _, product := range cartProducts {
		if product.JobType == nil || *product.JobType == "" {
			continue
		}
		if _, ok := jobSeen[*product.JobType]; ok {
			continue
		}
		jobSeen[*product.JobType] = struct{}{}
		jobTypes = append(jobTypes, *product.JobType)
	}
	if len(jobTypes) > 0 {
		jobBased, err := s.repo.ByJobTypes(ctx, jobTypes, productIDs, opts.VehicleID, 10)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank job-based products")
		}
		appendUnique(jobBased)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 6
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s *service) Stats(ctx context.Context) (*AdminStats, error) {
	total, err := s.repo.TotalInteractions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count interactions")
	}
	views, err := s.repo.InteractionsOfType(ctx, enums.InteractionTypeView)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count views")
	}
	clicks, err := s.repo.InteractionsOfType(ctx, enums.InteractionTypeClick)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count clicks")
	}
	mostViewed, err := s.repo.MostInteracted(ctx, enums.InteractionTypeView, 10)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank most viewed")
	}
	mostClicked, err := s.repo.MostInteracted(ctx, enums.InteractionTypeClick, 10)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank most clicked")
	}
	return &AdminStats{
		TotalInteractions: total,
		TotalViews:        views,
		TotalClicks:       clicks,
		MostViewed:        mostViewed,
		MostClicked:       mostClicked,
	}, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func dedupeIDs(ids []uuid.UUID, limit int) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, limit)
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out
}

// orderByIDs re-sorts an unordered Find result back into ranking order.
func orderByIDs(products []models.Product, ids []uuid.UUID) []models.Product {
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	out := make([]models.Product, 0, len(products))
	for _, id := range ids {
		if product, ok := byID[id]; ok {
			out = append(out, product)
		}
	}
	return out
}
