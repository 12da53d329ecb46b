package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealrounds/mealrounds-backend/api/responses"
	"github.com/mealrounds/mealrounds-backend/api/validators"
	"github.com/mealrounds/mealrounds-backend/internal/catalog"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

// EffectiveCatalog returns the merged default+override catalog for a client
// on a date.
func EffectiveCatalog(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := validators.ParseQueryDate(r, "date", time.Now().UTC().Truncate(24*time.Hour))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clientID, err := uuid.Parse(r.URL.Query().Get("client_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "client_id query parameter is required"))
			return
		}

		items, err := svc.Effective(r.Context(), date, clientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"date": date.Format("2006-01-02"), "items": items})
	}
}

type catalogEntryRequest struct {
	Name      string `json:"name" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=0"`
	Price     string `json:"price" validate:"required"`
	SortOrder int    `json:"sort_order"`
}

type replaceCatalogRequest struct {
	Date     string                `json:"date" validate:"required"`
	ClientID *uuid.UUID            `json:"client_id,omitempty"`
	Entries  []catalogEntryRequest `json:"entries" validate:"dive"`
}

// ReplaceCatalogDay replaces a day's catalog entries for either the default
// scope or one client.
func ReplaceCatalogDay(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replaceCatalogRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD"))
			return
		}

		entries := make([]models.CatalogEntry, 0, len(req.Entries))
		for _, e := range req.Entries {
			price, err := decimal.NewFromString(e.Price)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "invalid price for "+e.Name))
				return
			}
			entries = append(entries, models.CatalogEntry{
				ID:        uuid.New(),
				EntryDate: date,
				ClientID:  req.ClientID,
				Name:      e.Name,
				Quantity:  e.Quantity,
				Price:     price,
				SortOrder: e.SortOrder,
			})
		}

		if err := svc.ReplaceDay(r.Context(), date, req.ClientID, entries); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"replaced": len(entries)})
	}
}
