package controllers

import (
	"fmt"
	"net/http"

	"github.com/mealrounds/mealrounds-backend/api/responses"
	"github.com/mealrounds/mealrounds-backend/api/validators"
	"github.com/mealrounds/mealrounds-backend/internal/settings"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

// GetWeeklyCutoff returns the active weekly order cutoff.
func GetWeeklyCutoff(svc *settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cutoff, err := svc.WeeklyCutoff(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"day":  cutoff.Day.String(),
			"time": fmt.Sprintf("%02d:%02d", cutoff.Hour, cutoff.Minute),
		})
	}
}

type setCutoffRequest struct {
	Day  string `json:"day" validate:"required"`
	Time string `json:"time" validate:"required"`
}

// SetWeeklyCutoff stores a new weekly order cutoff.
func SetWeeklyCutoff(svc *settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setCutoffRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetWeeklyCutoff(r.Context(), req.Day, req.Time); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"day": req.Day, "time": req.Time})
	}
}
