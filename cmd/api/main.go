package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/piecehub/piecehub-backend/api/routes"
	"github.com/piecehub/piecehub-backend/internal/interactions"
	"github.com/piecehub/piecehub-backend/internal/loyalty"
	"github.com/piecehub/piecehub-backend/internal/recommendations"
	"github.com/piecehub/piecehub-backend/internal/vehicles"
	"github.com/piecehub/piecehub-backend/pkg/config"
	"github.com/piecehub/piecehub-backend/pkg/db"
	"github.com/piecehub/piecehub-backend/pkg/logger"
	"github.com/piecehub/piecehub-backend/pkg/migrate"
	"github.com/piecehub/piecehub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	interactionsService, err := interactions.NewService(interactions.Params{
		Repo:   interactions.NewRepository(dbClient.DB()),
		Config: cfg.Interactions,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create interactions service", err)
		os.Exit(1)
	}

	recommendationsService, err := recommendations.NewService(recommendations.Params{
		Repo:   recommendations.NewRepository(dbClient.DB()),
		Config: cfg.Recommendations,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create recommendations service", err)
		os.Exit(1)
	}

	vehiclesService, err := vehicles.NewService(vehicles.Params{
		Repo:   vehicles.NewRepository(dbClient.DB()),
		Cache:  redisClient,
		API:    vehicles.NewPlateAPI(cfg.VehicleAPI),
		Config: cfg.VehicleAPI,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create vehicles service", err)
		os.Exit(1)
	}

	loyaltyService, err := loyalty.NewService(loyalty.Params{
		Repo:   loyalty.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Config: cfg.Loyalty,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create loyalty service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			interactionsService,
			recommendationsService,
			vehiclesService,
			loyaltyService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
