package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	interactionsvc "github.com/piecehub/piecehub-backend/internal/interactions"
	loyaltysvc "github.com/piecehub/piecehub-backend/internal/loyalty"
	recosvc "github.com/piecehub/piecehub-backend/internal/recommendations"
	pkgAuth "github.com/piecehub/piecehub-backend/pkg/auth"
	"github.com/piecehub/piecehub-backend/pkg/config"
	"github.com/piecehub/piecehub-backend/pkg/db/models"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	"github.com/piecehub/piecehub-backend/pkg/logger"
	"github.com/piecehub/piecehub-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubInteractions struct{}

func (stubInteractions) Track(context.Context, interactionsvc.TrackInput) (*models.Interaction, error) {
	return &models.Interaction{}, nil
}

func (stubInteractions) History(context.Context, uuid.UUID, pagination.Params) (*interactionsvc.HistoryPage, error) {
	return &interactionsvc.HistoryPage{}, nil
}

func (stubInteractions) Stats(context.Context, uuid.UUID) (*interactionsvc.StatsDTO, error) {
	return &interactionsvc.StatsDTO{}, nil
}

func (stubInteractions) MostInteracted(context.Context, uuid.UUID, int) ([]interactionsvc.ProductScore, error) {
	return nil, nil
}

func (stubInteractions) Popular(context.Context, int, int) ([]interactionsvc.ProductScore, error) {
	return nil, nil
}

func (stubInteractions) PruneOldViews(context.Context, time.Time) (int64, error) { return 0, nil }

type stubRecommendations struct{}

func (stubRecommendations) Personalized(context.Context, uuid.UUID, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) Popular(context.Context, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) RecentlyViewed(context.Context, uuid.UUID, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) Trending(context.Context, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) Similar(context.Context, uuid.UUID, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) FrequentlyBoughtTogether(context.Context, uuid.UUID, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) Complementary(context.Context, uuid.UUID, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) Newest(context.Context, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) ByStrategy(context.Context, enums.RecommendationStrategy, uuid.UUID, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) ForUser(context.Context, uuid.UUID, recosvc.Options) (*recosvc.UserRecommendations, error) {
	return &recosvc.UserRecommendations{}, nil
}

func (stubRecommendations) ForProduct(context.Context, uuid.UUID, recosvc.Options) (*recosvc.ProductRecommendations, error) {
	return &recosvc.ProductRecommendations{}, nil
}

func (stubRecommendations) ForCart(context.Context, []uuid.UUID, recosvc.Options) ([]models.Product, error) {
	return nil, nil
}

func (stubRecommendations) Stats(context.Context) (*recosvc.AdminStats, error) {
	return &recosvc.AdminStats{}, nil
}

type stubVehicles struct{}

func (stubVehicles) ResolveByPlate(context.Context, string) (*models.Vehicle, error) {
	return &models.Vehicle{}, nil
}

func (stubVehicles) GetVehicle(context.Context, uuid.UUID) (*models.Vehicle, error) {
	return &models.Vehicle{}, nil
}

func (stubVehicles) CheckCompatibility(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

func (stubVehicles) CompatibleProducts(context.Context, uuid.UUID, int) ([]models.Product, error) {
	return nil, nil
}

type stubLoyalty struct{}

func (stubLoyalty) AddPoints(context.Context, loyaltysvc.AddPointsInput) (*models.LoyaltyTransaction, error) {
	return &models.LoyaltyTransaction{}, nil
}

func (stubLoyalty) AddPointsFromOrder(context.Context, uuid.UUID, uuid.UUID) (*models.LoyaltyTransaction, error) {
	return &models.LoyaltyTransaction{}, nil
}

func (stubLoyalty) RedeemReward(context.Context, uuid.UUID, uuid.UUID) (*models.LoyaltyTransaction, error) {
	return &models.LoyaltyTransaction{}, nil
}

func (stubLoyalty) CancelTransaction(context.Context, uuid.UUID, string) (*models.LoyaltyTransaction, error) {
	return &models.LoyaltyTransaction{}, nil
}

func (stubLoyalty) ExpirePoints(context.Context) (int, error) { return 0, nil }

func (stubLoyalty) Balance(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (stubLoyalty) Summary(context.Context, uuid.UUID) (*loyaltysvc.AccountSummary, error) {
	return &loyaltysvc.AccountSummary{}, nil
}

func (stubLoyalty) TransactionHistory(context.Context, uuid.UUID, pagination.Params) (*loyaltysvc.HistoryPage, error) {
	return &loyaltysvc.HistoryPage{}, nil
}

func (stubLoyalty) AvailableRewards(context.Context, uuid.UUID) ([]loyaltysvc.RewardView, error) {
	return nil, nil
}

func (stubLoyalty) Stats(context.Context, uuid.UUID) (*loyaltysvc.UserStats, error) {
	return &loyaltysvc.UserStats{}, nil
}

func routerConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "piecehub-gateway"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	return NewRouter(
		cfg,
		logger.New(logger.Options{ServiceName: "test"}),
		stubPinger{},
		nil,
		stubInteractions{},
		stubRecommendations{},
		stubVehicles{},
		stubLoyalty{},
	)
}

func bearerToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgAuth.AccessTokenClaims{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestRouterPublicSurface(t *testing.T) {
	cfg := routerConfig()
	router := newTestRouter(t, cfg)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/public/ping", http.StatusOK},
		{http.MethodGet, "/api/public/v1/vehicles/plate/AB-123-CD", http.StatusOK},
		{http.MethodGet, "/api/public/v1/vehicles/" + uuid.NewString(), http.StatusOK},
		{http.MethodGet, "/api/public/v1/vehicles/" + uuid.NewString() + "/products", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("%s %s: expected %d got %d", tt.method, tt.path, tt.want, resp.Code)
		}
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	cfg := routerConfig()
	router := newTestRouter(t, cfg)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/ping"},
		{http.MethodGet, "/api/v1/recommendations"},
		{http.MethodGet, "/api/v1/loyalty/account"},
		{http.MethodGet, "/api/v1/interactions"},
		{http.MethodGet, "/api/admin/v1/recommendations/stats"},
	}
	for _, tt := range paths {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tt.method, tt.path, resp.Code)
		}
	}
}

func TestRouterAuthedSurface(t *testing.T) {
	cfg := routerConfig()
	router := newTestRouter(t, cfg)
	token := bearerToken(t, cfg, enums.UserRoleCustomer)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/ping", "", http.StatusOK},
		{http.MethodGet, "/api/v1/recommendations", "", http.StatusOK},
		{http.MethodGet, "/api/v1/recommendations/popular", "", http.StatusOK},
		{http.MethodGet, "/api/v1/products/" + uuid.NewString() + "/recommendations", "", http.StatusOK},
		{http.MethodPost, "/api/v1/recommendations/cart", `{"product_ids":["` + uuid.NewString() + `"]}`, http.StatusOK},
		{http.MethodGet, "/api/v1/loyalty/account", "", http.StatusOK},
		{http.MethodGet, "/api/v1/loyalty/balance", "", http.StatusOK},
		{http.MethodGet, "/api/v1/loyalty/transactions", "", http.StatusOK},
		{http.MethodGet, "/api/v1/loyalty/rewards", "", http.StatusOK},
		{http.MethodPost, "/api/v1/loyalty/rewards/" + uuid.NewString() + "/redeem", "", http.StatusCreated},
		{http.MethodPost, "/api/v1/interactions/", `{"product_id":"` + uuid.NewString() + `","type":"view"}`, http.StatusCreated},
		{http.MethodGet, "/api/v1/interactions/stats", "", http.StatusOK},
		{http.MethodGet, "/api/v1/interactions/top", "", http.StatusOK},
		{http.MethodGet, "/api/v1/interactions/popular?window_days=7", "", http.StatusOK},
	}
	for _, tt := range tests {
		var req *http.Request
		if tt.body != "" {
			req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(tt.method, tt.path, nil)
		}
		req.Header.Set("Authorization", token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("%s %s: expected %d got %d (%s)", tt.method, tt.path, tt.want, resp.Code, resp.Body.String())
		}
	}
}

func TestRouterAdminSurface(t *testing.T) {
	cfg := routerConfig()
	router := newTestRouter(t, cfg)
	customer := bearerToken(t, cfg, enums.UserRoleCustomer)
	admin := bearerToken(t, cfg, enums.UserRoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/recommendations/stats", nil)
	req.Header.Set("Authorization", customer)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("customer on admin route: expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/recommendations/stats", nil)
	req.Header.Set("Authorization", admin)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin stats: expected 200 got %d", resp.Code)
	}

	body := `{"user_id":"` + uuid.NewString() + `","points":100,"description":"geste commercial"}`
	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/loyalty/credit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", admin)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("admin credit: expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/loyalty/transactions/"+uuid.NewString()+"/cancel",
		strings.NewReader(`{"reason":"commande remboursée"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", admin)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("admin cancel: expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
}
