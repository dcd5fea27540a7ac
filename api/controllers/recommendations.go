package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/piecehub/piecehub-backend/api/responses"
	"github.com/piecehub/piecehub-backend/api/validators"
	recosvc "github.com/piecehub/piecehub-backend/internal/recommendations"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	pkgerrors "github.com/piecehub/piecehub-backend/pkg/errors"
	"github.com/piecehub/piecehub-backend/pkg/logger"
	"github.com/piecehub/piecehub-backend/pkg/pagination"
)

func recommendationOptions(r *http.Request) (recosvc.Options, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
	if err != nil {
		return recosvc.Options{}, err
	}
	vehicleID, err := queryUUID(r, "vehicle_id")
	if err != nil {
		return recosvc.Options{}, err
	}
	return recosvc.Options{Limit: limit, VehicleID: vehicleID}, nil
}

// RecommendationsForUser returns the composed landing-page sections.
func RecommendationsForUser(svc recosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		opts, err := recommendationOptions(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sections, err := svc.ForUser(r.Context(), userID, opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sections)
	}
}

// RecommendationsByStrategy serves a single named widget.
func RecommendationsByStrategy(svc recosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		strategy, err := enums.ParseRecommendationStrategy(chi.URLParam(r, "strategy"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown strategy").WithDetails(map[string]any{"field": "strategy"}))
			return
		}
		opts, err := recommendationOptions(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.ByStrategy(r.Context(), strategy, userID, opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"strategy": strategy,
			"products": products,
		})
	}
}

// RecommendationsForProduct returns the product detail page sections.
func RecommendationsForProduct(svc recosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		opts, err := recommendationOptions(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sections, err := svc.ForProduct(r.Context(), productID, opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sections)
	}
}

type cartRecommendationsRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids" validate:"required,min=1"`
}

// RecommendationsForCart suggests add-ons for the current cart contents.
func RecommendationsForCart(svc recosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartRecommendationsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		opts, err := recommendationOptions(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.ForCart(r.Context(), payload.ProductIDs, opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

// RecommendationAdminStats summarizes interaction volume for the back office.
func RecommendationAdminStats(svc recosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
