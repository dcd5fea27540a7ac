package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/piecehub/piecehub-backend/api/responses"
	"github.com/piecehub/piecehub-backend/api/validators"
	vehiclesvc "github.com/piecehub/piecehub-backend/internal/vehicles"
	"github.com/piecehub/piecehub-backend/pkg/logger"
	"github.com/piecehub/piecehub-backend/pkg/pagination"
)

// VehicleResolvePlate identifies a vehicle from a French registration plate.
func VehicleResolvePlate(svc vehiclesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicle, err := svc.ResolveByPlate(r.Context(), chi.URLParam(r, "plate"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicle)
	}
}

// VehicleGet returns a stored vehicle by id.
func VehicleGet(svc vehiclesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicleID, err := pathUUID(r, "vehicleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicle, err := svc.GetVehicle(r.Context(), vehicleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicle)
	}
}

// VehicleCompatibility answers whether one product fits one vehicle.
func VehicleCompatibility(svc vehiclesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicleID, err := pathUUID(r, "vehicleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		compatible, err := svc.CheckCompatibility(r.Context(), productID, vehicleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"product_id": productID,
			"vehicle_id": vehicleID,
			"compatible": compatible,
		})
	}
}

// VehicleCompatibleProducts lists sellable parts that fit the vehicle.
func VehicleCompatibleProducts(svc vehiclesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicleID, err := pathUUID(r, "vehicleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.CompatibleProducts(r.Context(), vehicleID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}
