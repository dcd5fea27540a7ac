package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/piecehub/piecehub-backend/api/responses"
	"github.com/piecehub/piecehub-backend/api/validators"
	interactionsvc "github.com/piecehub/piecehub-backend/internal/interactions"
	"github.com/piecehub/piecehub-backend/pkg/enums"
	pkgerrors "github.com/piecehub/piecehub-backend/pkg/errors"
	"github.com/piecehub/piecehub-backend/pkg/logger"
	"github.com/piecehub/piecehub-backend/pkg/pagination"
)

type trackInteractionRequest struct {
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
	Type       string    `json:"type" validate:"required"`
	OccurredAt *string   `json:"occurred_at"`
}

// InteractionTrack records one user action on a product.
func InteractionTrack(svc interactionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload trackInteractionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		interactionType, err := enums.ParseInteractionType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown interaction type").WithDetails(map[string]any{"field": "type"}))
			return
		}

		input := interactionsvc.TrackInput{
			UserID:    userID,
			ProductID: payload.ProductID,
			Type:      interactionType,
		}
		if payload.OccurredAt != nil {
			occurredAt, err := time.Parse(time.RFC3339, *payload.OccurredAt)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid occurred_at").WithDetails(map[string]any{"field": "occurred_at"}))
				return
			}
			input.OccurredAt = occurredAt
		}

		interaction, err := svc.Track(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, interaction)
	}
}

// InteractionHistory returns a cursor page of the caller's interaction log.
func InteractionHistory(svc interactionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"interactions": page.Interactions,
			"next_cursor":  page.NextCursor,
		})
	}
}

// InteractionTop ranks the caller's products by summed interaction score.
func InteractionTop(svc interactionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.MostInteracted(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

// InteractionPopular ranks products across all users by summed interaction
// score, optionally restricted to a recent window.
func InteractionPopular(svc interactionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		windowDays, err := validators.ParseQueryInt(r, "window_days", 0, 0, 365)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.Popular(r.Context(), limit, windowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

// InteractionStats summarizes the caller's interaction volume.
func InteractionStats(svc interactionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
