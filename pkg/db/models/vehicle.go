package models

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle identifies a concrete car used as a compatibility filter key.
type Vehicle struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Make         string    `gorm:"column:make;not null"`
	Model        string    `gorm:"column:model;not null"`
	Year         int       `gorm:"column:year;not null"`
	FuelType     *string   `gorm:"column:fuel_type"`
	EngineSize   *string   `gorm:"column:engine_size"`
	EngineCode   *string   `gorm:"column:engine_code"`
	Transmission *string   `gorm:"column:transmission"`
	BodyType     *string   `gorm:"column:body_type"`
	VIN          *string   `gorm:"column:vin"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// VehicleCompatibility asserts that a product fits a vehicle.
type VehicleCompatibility struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_vehicle"`
	VehicleID uuid.UUID `gorm:"column:vehicle_id;type:uuid;not null;uniqueIndex:idx_product_vehicle"`
	Verified  bool      `gorm:"column:verified;not null;default:false"`
	Notes     *string   `gorm:"column:notes"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the join table name.
func (VehicleCompatibility) TableName() string {
	return "vehicle_compatibility"
}

// LicensePlateLookup caches resolved registration plates.
type LicensePlateLookup struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicensePlate string     `gorm:"column:license_plate;not null;uniqueIndex"`
	VehicleID    *uuid.UUID `gorm:"column:vehicle_id;type:uuid"`
	Vehicle      *Vehicle   `gorm:"foreignKey:VehicleID"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
