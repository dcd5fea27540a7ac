package vehicles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piecehub/piecehub-backend/pkg/config"
	"github.com/piecehub/piecehub-backend/pkg/db"
	"github.com/piecehub/piecehub-backend/pkg/db/models"
	pkgerrors "github.com/piecehub/piecehub-backend/pkg/errors"
	"github.com/piecehub/piecehub-backend/pkg/logger"
	"github.com/piecehub/piecehub-backend/pkg/redis"
)

var plateCleanRe = regexp.MustCompile(`[^A-Z0-9]`)

// CleanPlate normalizes a raw registration plate: uppercase, alphanumerics only.
func CleanPlate(raw string) string {
	return plateCleanRe.ReplaceAllString(strings.ToUpper(raw), "")
}

type plateCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

// Service resolves vehicles and answers compatibility questions.
type Service interface {
	ResolveByPlate(ctx context.Context, rawPlate string) (*models.Vehicle, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	CheckCompatibility(ctx context.Context, productID, vehicleID uuid.UUID) (bool, error)
	CompatibleProducts(ctx context.Context, vehicleID uuid.UUID, limit int) ([]models.Product, error)
}

type service struct {
	repo     Repository
	cache    plateCache
	api      PlateAPI
	fallback PlateAPI
	cfg      config.VehicleAPIConfig
	logg     *logger.Logger
}

// Params bundles the dependencies the vehicle service needs.
type Params struct {
	Repo   Repository
	Cache  plateCache
	API    PlateAPI
	Config config.VehicleAPIConfig
	Logger *logger.Logger
}

// NewService wires a vehicle service with the provided stack.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("vehicle repository required")
	}
	if p.Cache == nil {
		return nil, fmt.Errorf("plate cache required")
	}
	if p.API == nil {
		return nil, fmt.Errorf("plate api required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     p.Repo,
		cache:    p.Cache,
		api:      p.API,
		fallback: NewMockPlateAPI(),
		cfg:      p.Config,
		logg:     p.Logger,
	}, nil
}

// ResolveByPlate turns a registration plate into a vehicle row. Resolution
// order: redis cache, stored lookups, the external API, then the deterministic
// simulator when the API is unreachable.
func (s *service) ResolveByPlate(ctx context.Context, rawPlate string) (*models.Vehicle, error) {
	plate := CleanPlate(rawPlate)
	if len(plate) < 4 || len(plate) > 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid license plate")
	}

	cacheKey := s.cache.CacheKey("plate", plate)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		var data PlateData
		if jsonErr := json.Unmarshal([]byte(cached), &data); jsonErr == nil {
			return s.findOrCreateVehicle(ctx, &data)
		}
	} else if !redis.IsMiss(err) {
		s.logg.Warn(s.logg.WithField(ctx, "plate", plate), "plate cache read failed")
	}

	lookup, err := s.repo.GetPlateLookup(ctx, plate)
	if err == nil && lookup.Vehicle != nil {
		return lookup.Vehicle, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plate lookup")
	}

	apiCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	data, err := s.api.Lookup(apiCtx, plate)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "plate", plate), "vehicle api lookup failed, using simulator")
		data, err = s.fallback.Lookup(ctx, plate)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve plate")
		}
	}

	vehicle, err := s.findOrCreateVehicle(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SavePlateLookup(ctx, &models.LicensePlateLookup{
		LicensePlate: plate,
		VehicleID:    &vehicle.ID,
	}); err != nil && !db.IsUniqueViolation(err, "idx_license_plate_lookups_plate") {
		s.logg.Warn(s.logg.WithField(ctx, "plate", plate), "persisting plate lookup failed")
	}

	if payload, jsonErr := json.Marshal(data); jsonErr == nil {
		if err := s.cache.Set(ctx, cacheKey, string(payload), s.cfg.CacheTTL); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "plate", plate), "plate cache write failed")
		}
	}
	return vehicle, nil
}

func (s *service) findOrCreateVehicle(ctx context.Context, data *PlateData) (*models.Vehicle, error) {
	if data.VIN != nil && *data.VIN != "" {
		vehicle, err := s.repo.FindVehicleByVIN(ctx, *data.VIN)
		if err == nil {
			return vehicle, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find vehicle by vin")
		}
	}

	vehicle, err := s.repo.FindVehicle(ctx, data.Make, data.Model, data.Year)
	if err == nil {
		return vehicle, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find vehicle")
	}

	created := &models.Vehicle{
		Make:         data.Make,
		Model:        data.Model,
		Year:         data.Year,
		FuelType:     data.FuelType,
		EngineSize:   data.EngineSize,
		EngineCode:   data.EngineCode,
		Transmission: data.Transmission,
		BodyType:     data.BodyType,
		VIN:          data.VIN,
	}
	if err := s.repo.CreateVehicle(ctx, created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vehicle")
	}
	return created, nil
}

func (s *service) GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}
	vehicle, err := s.repo.GetVehicle(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vehicle")
	}
	return vehicle, nil
}

func (s *service) CheckCompatibility(ctx context.Context, productID, vehicleID uuid.UUID) (bool, error) {
	if productID == uuid.Nil || vehicleID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "product id and vehicle id are required")
	}
	ok, err := s.repo.IsCompatible(ctx, productID, vehicleID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check compatibility")
	}
	return ok, nil
}

func (s *service) CompatibleProducts(ctx context.Context, vehicleID uuid.UUID, limit int) ([]models.Product, error) {
	if vehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if _, err := s.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	products, err := s.repo.ListCompatibleProducts(ctx, vehicleID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list compatible products")
	}
	return products, nil
}
