package recommendations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piecehub/piecehub-backend/pkg/config"
	"github.com/piecehub/piecehub-backend/pkg/db/models"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	pkgerrors "github.com/piecehub/piecehub-backend/pkg/errors"
	"github.com/piecehub/piecehub-backend/pkg/logger"
)

type fakeRepo struct {
	products       map[uuid.UUID]models.Product
	recentIDs      []uuid.UUID
	viewedIDs      []uuid.UUID
	trendingIDs    []uuid.UUID
	coPurchasedIDs []uuid.UUID
	popular        []models.Product
	newest         []models.Product
	jobBased       []models.Product
	otherCategory  []models.Product
	recentFn       func(ctx context.Context) ([]uuid.UUID, error)

	lastCategoryIDs []uuid.UUID
	lastExcludeIDs  []uuid.UUID
	lastVehicleID   *uuid.UUID
}

func newRepo() *fakeRepo {
	return &fakeRepo{products: map[uuid.UUID]models.Product{}}
}

func (f *fakeRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ProductsByIDs(ctx context.Context, ids []uuid.UUID, vehicleID *uuid.UUID) ([]models.Product, error) {
	f.lastVehicleID = vehicleID
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) RecentProductIDs(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error) {
	if f.recentFn != nil {
		return f.recentFn(ctx)
	}
	return f.recentIDs, nil
}

func (f *fakeRepo) RecentlyViewedProductIDs(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error) {
	return f.viewedIDs, nil
}

func (f *fakeRepo) CategoryIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]struct{}{}
	var out []uuid.UUID
	for _, id := range productIDs {
		if p, ok := f.products[id]; ok {
			if _, dup := seen[p.CategoryID]; !dup {
				seen[p.CategoryID] = struct{}{}
				out = append(out, p.CategoryID)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) ActiveInCategories(ctx context.Context, categoryIDs, excludeIDs []uuid.UUID, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	f.lastCategoryIDs = categoryIDs
	f.lastExcludeIDs = excludeIDs
	f.lastVehicleID = vehicleID

	excluded := map[uuid.UUID]struct{}{}
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	inCategory := map[uuid.UUID]struct{}{}
	for _, id := range categoryIDs {
		inCategory[id] = struct{}{}
	}

	var out []models.Product
	for _, p := range f.products {
		if _, skip := excluded[p.ID]; skip {
			continue
		}
		if len(inCategory) > 0 {
			if _, ok := inCategory[p.CategoryID]; !ok {
				continue
			}
		}
		if !p.IsActive || p.Stock <= 0 {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) Popular(ctx context.Context, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	f.lastVehicleID = vehicleID
	if len(f.popular) > limit {
		return f.popular[:limit], nil
	}
	return f.popular, nil
}

func (f *fakeRepo) TrendingProductIDs(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	return f.trendingIDs, nil
}

func (f *fakeRepo) SameCategory(ctx context.Context, product *models.Product, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.ID != product.ID && p.CategoryID == product.CategoryID && p.IsActive && p.Stock > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) OtherCategories(ctx context.Context, product *models.Product, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	if f.otherCategory != nil {
		return f.otherCategory, nil
	}
	var out []models.Product
	for _, p := range f.products {
		if p.ID != product.ID && p.CategoryID != product.CategoryID && p.IsActive && p.Stock > 0 {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) CoPurchasedProductIDs(ctx context.Context, productID uuid.UUID, limit int) ([]uuid.UUID, error) {
	return f.coPurchasedIDs, nil
}

func (f *fakeRepo) ByJobTypes(ctx context.Context, jobTypes []string, excludeIDs []uuid.UUID, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	return f.jobBased, nil
}

func (f *fakeRepo) Newest(ctx context.Context, vehicleID *uuid.UUID, limit int) ([]models.Product, error) {
	return f.newest, nil
}

func (f *fakeRepo) TotalInteractions(ctx context.Context) (int64, error) { return 100, nil }

func (f *fakeRepo) InteractionsOfType(ctx context.Context, interactionType enums.InteractionType) (int64, error) {
	if interactionType == enums.InteractionTypeView {
		return 70, nil
	}
	return 20, nil
}

func (f *fakeRepo) MostInteracted(ctx context.Context, interactionType enums.InteractionType, limit int) ([]ProductCount, error) {
	return nil, nil
}

func addProduct(repo *fakeRepo, categoryID uuid.UUID, jobType string) models.Product {
	p := models.Product{
		ID:         uuid.New(),
		CategoryID: categoryID,
		SKU:        uuid.NewString()[:8],
		Name:       "part",
		PriceCents: 1999,
		Stock:      5,
		IsActive:   true,
	}
	if jobType != "" {
		p.JobType = &jobType
	}
	repo.products[p.ID] = p
	return p
}

func testConfig() config.RecommendationsConfig {
	return config.RecommendationsConfig{
		DefaultLimit:       12,
		TrendingWindowDays: 7,
		InteractionSample:  50,
		ReadBudget:         time.Second,
	}
}

func newService(t *testing.T, repo Repository, cfg config.RecommendationsConfig) Service {
	t.Helper()
	svc, err := NewService(Params{
		Repo:   repo,
		Config: cfg,
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestPersonalized_UsesInteractedCategories(t *testing.T) {
	repo := newRepo()
	brakes := uuid.New()
	filters := uuid.New()

	seen := addProduct(repo, brakes, "")
	fresh := addProduct(repo, brakes, "")
	offTopic := addProduct(repo, filters, "")

	repo.recentIDs = []uuid.UUID{seen.ID}

	svc := newService(t, repo, testConfig())
	got, err := svc.Personalized(context.Background(), uuid.New(), Options{})
	if err != nil {
		t.Fatalf("Personalized error: %v", err)
	}

	for _, p := range got {
		if p.ID == seen.ID {
			t.Fatalf("already-interacted product must be excluded")
		}
		if p.ID == offTopic.ID {
			t.Fatalf("product outside interacted categories must be excluded")
		}
	}
	found := false
	for _, p := range got {
		if p.ID == fresh.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fresh product from interacted category")
	}
	if len(repo.lastCategoryIDs) != 1 || repo.lastCategoryIDs[0] != brakes {
		t.Fatalf("expected query scoped to the brakes category, got %v", repo.lastCategoryIDs)
	}
}

func TestPersonalized_ShortHistoryStaysPersonalized(t *testing.T) {
	repo := newRepo()
	brakes := uuid.New()
	filters := uuid.New()

	pads := addProduct(repo, brakes, "")
	discs := addProduct(repo, brakes, "")
	oilFilter := addProduct(repo, filters, "")
	fresh := addProduct(repo, brakes, "")
	bestseller := addProduct(repo, uuid.New(), "")
	repo.popular = []models.Product{bestseller}

	// three interactions only: still category-scoped, never the popular list
	repo.recentIDs = []uuid.UUID{pads.ID, discs.ID, oilFilter.ID}

	svc := newService(t, repo, testConfig())
	got, err := svc.Personalized(context.Background(), uuid.New(), Options{})
	if err != nil {
		t.Fatalf("Personalized error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected personalized results for a three-interaction user")
	}
	foundFresh := false
	for _, p := range got {
		if p.ID == bestseller.ID {
			t.Fatalf("short history must not divert to the popular list")
		}
		if p.ID == pads.ID || p.ID == discs.ID || p.ID == oilFilter.ID {
			t.Fatalf("already-interacted product must be excluded")
		}
		if p.ID == fresh.ID {
			foundFresh = true
		}
	}
	if !foundFresh {
		t.Fatalf("expected fresh in-category product, got %+v", got)
	}
}

func TestPersonalized_NoHistoryFallsBackToPopular(t *testing.T) {
	repo := newRepo()
	repo.popular = []models.Product{{ID: uuid.New(), Name: "bestseller"}}

	svc := newService(t, repo, testConfig())
	got, err := svc.Personalized(context.Background(), uuid.New(), Options{})
	if err != nil {
		t.Fatalf("Personalized error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "bestseller" {
		t.Fatalf("expected popular fallback, got %+v", got)
	}
}

func TestPersonalized_EmptyCandidatesFallBackToPopular(t *testing.T) {
	repo := newRepo()
	brakes := uuid.New()
	pads := addProduct(repo, brakes, "")
	repo.recentIDs = []uuid.UUID{pads.ID}
	repo.popular = []models.Product{{ID: uuid.New(), Name: "bestseller"}}

	// the only in-category product is the one already interacted with
	svc := newService(t, repo, testConfig())
	got, err := svc.Personalized(context.Background(), uuid.New(), Options{})
	if err != nil {
		t.Fatalf("Personalized error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "bestseller" {
		t.Fatalf("expected popular fallback when no candidates remain, got %+v", got)
	}
}

func TestPersonalized_BudgetExceededServesPopular(t *testing.T) {
	repo := newRepo()
	repo.popular = []models.Product{{ID: uuid.New(), Name: "bestseller"}}
	repo.recentFn = func(ctx context.Context) ([]uuid.UUID, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	cfg := testConfig()
	cfg.ReadBudget = 10 * time.Millisecond
	svc := newService(t, repo, cfg)

	got, err := svc.Personalized(context.Background(), uuid.New(), Options{})
	if err != nil {
		t.Fatalf("expected popular fallback, got error %v", err)
	}
	if len(got) != 1 || got[0].Name != "bestseller" {
		t.Fatalf("expected popular fallback, got %+v", got)
	}
}

func TestPersonalized_CallerCancellationIsNotMasked(t *testing.T) {
	repo := newRepo()
	repo.recentFn = func(ctx context.Context) ([]uuid.UUID, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	svc := newService(t, repo, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Personalized(ctx, uuid.New(), Options{}); err == nil {
		t.Fatalf("expected error when caller context is cancelled")
	}
}

func TestTrending_PreservesRankingOrder(t *testing.T) {
	repo := newRepo()
	cat := uuid.New()
	first := addProduct(repo, cat, "")
	second := addProduct(repo, cat, "")
	third := addProduct(repo, cat, "")
	repo.trendingIDs = []uuid.UUID{second.ID, third.ID, first.ID}

	svc := newService(t, repo, testConfig())
	got, err := svc.Trending(context.Background(), Options{Limit: 2})
	if err != nil {
		t.Fatalf("Trending error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit applied, got %d", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != third.ID {
		t.Fatalf("expected ranking order preserved")
	}
}

func TestRecentlyViewed_DedupesIDs(t *testing.T) {
	repo := newRepo()
	cat := uuid.New()
	p := addProduct(repo, cat, "")
	repo.viewedIDs = []uuid.UUID{p.ID, p.ID, p.ID}

	svc := newService(t, repo, testConfig())
	got, err := svc.RecentlyViewed(context.Background(), uuid.New(), Options{Limit: 6})
	if err != nil {
		t.Fatalf("RecentlyViewed error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected deduped result, got %d", len(got))
	}
}

func TestFrequentlyBoughtTogether(t *testing.T) {
	repo := newRepo()
	cat := uuid.New()
	anchor := addProduct(repo, cat, "")
	companion := addProduct(repo, cat, "")
	repo.coPurchasedIDs = []uuid.UUID{companion.ID}

	svc := newService(t, repo, testConfig())
	got, err := svc.FrequentlyBoughtTogether(context.Background(), anchor.ID, Options{Limit: 4})
	if err != nil {
		t.Fatalf("FrequentlyBoughtTogether error: %v", err)
	}
	if len(got) != 1 || got[0].ID != companion.ID {
		t.Fatalf("expected the co-purchased companion, got %+v", got)
	}

	if _, err := svc.FrequentlyBoughtTogether(context.Background(), uuid.New(), Options{}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestForCart_MergesAndExcludesCart(t *testing.T) {
	repo := newRepo()
	oils := uuid.New()
	brakes := uuid.New()

	inCart := addProduct(repo, oils, "oil_change")
	complementary := addProduct(repo, brakes, "")
	kitPart := addProduct(repo, oils, "oil_change")

	repo.otherCategory = []models.Product{complementary, inCart}
	repo.jobBased = []models.Product{kitPart, complementary}

	svc := newService(t, repo, testConfig())
	got, err := svc.ForCart(context.Background(), []uuid.UUID{inCart.ID}, Options{})
	if err != nil {
		t.Fatalf("ForCart error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 unique recommendations, got %d", len(got))
	}
	for _, p := range got {
		if p.ID == inCart.ID {
			t.Fatalf("cart products must never be recommended back")
		}
	}
}

func TestForCart_EmptyCart(t *testing.T) {
	svc := newService(t, newRepo(), testConfig())
	got, err := svc.ForCart(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("ForCart error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result for empty cart")
	}
}

func TestByStrategy_RejectsUnknownWidget(t *testing.T) {
	svc := newService(t, newRepo(), testConfig())
	_, err := svc.ByStrategy(context.Background(), enums.StrategySimilar, uuid.Nil, Options{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestForUser_ComposesSections(t *testing.T) {
	repo := newRepo()
	repo.popular = []models.Product{{ID: uuid.New()}}

	svc := newService(t, repo, testConfig())
	got, err := svc.ForUser(context.Background(), uuid.New(), Options{})
	if err != nil {
		t.Fatalf("ForUser error: %v", err)
	}
	if len(got.Popular) != 1 {
		t.Fatalf("expected popular section populated")
	}
	if len(got.Personalized) != 1 {
		t.Fatalf("sparse user should get popular products as personalized")
	}
}

func TestStats(t *testing.T) {
	svc := newService(t, newRepo(), testConfig())
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalInteractions != 100 || stats.TotalViews != 70 || stats.TotalClicks != 20 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
