package vehicles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piecehub/piecehub-backend/pkg/db/models"
)

// CompatibleWith is a query scope restricting products to those with a
// compatibility row for the vehicle. Applied by recommendation queries so
// every strategy filters identically.
func CompatibleWith(vehicleID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"EXISTS (SELECT 1 FROM vehicle_compatibility vc WHERE vc.product_id = products.id AND vc.vehicle_id = ?)",
			vehicleID,
		)
	}
}

// Repository manages vehicles, compatibility rows and plate lookups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicle(ctx context.Context, make, model string, year int) (*models.Vehicle, error)
	FindVehicleByVIN(ctx context.Context, vin string) (*models.Vehicle, error)
	IsCompatible(ctx context.Context, productID, vehicleID uuid.UUID) (bool, error)
	ListCompatibleProducts(ctx context.Context, vehicleID uuid.UUID, limit int) ([]models.Product, error)
	GetPlateLookup(ctx context.Context, plate string) (*models.LicensePlateLookup, error)
	SavePlateLookup(ctx context.Context, lookup *models.LicensePlateLookup) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vehicle repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.WithContext(ctx).First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repository) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *repository) FindVehicle(ctx context.Context, make, model string, year int) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.db.WithContext(ctx).
		Where("make = ? AND model = ? AND year = ?", make, model, year).
		First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repository) FindVehicleByVIN(ctx context.Context, vin string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.WithContext(ctx).Where("vin = ?", vin).First(&vehicle).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repository) IsCompatible(ctx context.Context, productID, vehicleID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VehicleCompatibility{}).
		Where("product_id = ? AND vehicle_id = ?", productID, vehicleID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListCompatibleProducts(ctx context.Context, vehicleID uuid.UUID, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Scopes(CompatibleWith(vehicleID)).
		Where("products.is_active = ?", true).
		Order("products.name ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) GetPlateLookup(ctx context.Context, plate string) (*models.LicensePlateLookup, error) {
	var lookup models.LicensePlateLookup
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Where("license_plate = ?", plate).
		First(&lookup).Error
	if err != nil {
		return nil, err
	}
	return &lookup, nil
}

func (r *repository) SavePlateLookup(ctx context.Context, lookup *models.LicensePlateLookup) error {
	return r.db.WithContext(ctx).Create(lookup).Error
}
