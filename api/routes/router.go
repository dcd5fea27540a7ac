package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/piecehub/piecehub-backend/api/controllers"
	"github.com/piecehub/piecehub-backend/api/middleware"
	interactionsvc "github.com/piecehub/piecehub-backend/internal/interactions"
	loyaltysvc "github.com/piecehub/piecehub-backend/internal/loyalty"
	recosvc "github.com/piecehub/piecehub-backend/internal/recommendations"
	vehiclesvc "github.com/piecehub/piecehub-backend/internal/vehicles"
	"github.com/piecehub/piecehub-backend/pkg/config"
	"github.com/piecehub/piecehub-backend/pkg/db"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	"github.com/piecehub/piecehub-backend/pkg/logger"
	"github.com/piecehub/piecehub-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	interactionsService interactionsvc.Service,
	recommendationsService recosvc.Service,
	vehiclesService vehiclesvc.Service,
	loyaltyService loyaltysvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	trackPolicy := middleware.NewTrackRateLimitPolicy(
		"track",
		cfg.RateLimit.TrackWindow,
		cfg.RateLimit.TrackIPLimit,
		cfg.RateLimit.TrackUserLimit,
	)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Route("/v1/vehicles", func(r chi.Router) {
			r.Get("/plate/{plate}", controllers.VehicleResolvePlate(vehiclesService, logg))
			r.Get("/{vehicleID}", controllers.VehicleGet(vehiclesService, logg))
			r.Get("/{vehicleID}/products", controllers.VehicleCompatibleProducts(vehiclesService, logg))
			r.Get("/{vehicleID}/compatibility/{productID}", controllers.VehicleCompatibility(vehiclesService, logg))
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/interactions", func(r chi.Router) {
			r.With(middleware.TrackRateLimit(trackPolicy, redisClient, logg)).
				Post("/", controllers.InteractionTrack(interactionsService, logg))
			r.Get("/", controllers.InteractionHistory(interactionsService, logg))
			r.Get("/stats", controllers.InteractionStats(interactionsService, logg))
			r.Get("/top", controllers.InteractionTop(interactionsService, logg))
			r.Get("/popular", controllers.InteractionPopular(interactionsService, logg))
		})

		r.Route("/v1/recommendations", func(r chi.Router) {
			r.Get("/", controllers.RecommendationsForUser(recommendationsService, logg))
			r.Post("/cart", controllers.RecommendationsForCart(recommendationsService, logg))
			r.Get("/{strategy}", controllers.RecommendationsByStrategy(recommendationsService, logg))
		})
		r.Get("/v1/products/{productID}/recommendations", controllers.RecommendationsForProduct(recommendationsService, logg))

		r.Route("/v1/loyalty", func(r chi.Router) {
			r.Get("/account", controllers.LoyaltySummary(loyaltyService, logg))
			r.Get("/balance", controllers.LoyaltyBalance(loyaltyService, logg))
			r.Get("/transactions", controllers.LoyaltyHistory(loyaltyService, logg))
			r.Get("/stats", controllers.LoyaltyStats(loyaltyService, logg))
			r.Get("/rewards", controllers.LoyaltyRewards(loyaltyService, logg))
			r.Post("/rewards/{rewardID}/redeem", controllers.LoyaltyRedeem(loyaltyService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Get("/ping", controllers.AdminPing())

		r.Route("/v1/loyalty", func(r chi.Router) {
			r.Post("/credit", controllers.LoyaltyAdminCredit(loyaltyService, logg))
			r.Post("/orders", controllers.LoyaltyAdminCreditOrder(loyaltyService, logg))
			r.Post("/transactions/{transactionID}/cancel", controllers.LoyaltyAdminCancel(loyaltyService, logg))
		})
		r.Get("/v1/recommendations/stats", controllers.RecommendationAdminStats(recommendationsService, logg))
	})

	return r
}
