package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mealrounds/mealrounds-backend/api/responses"
	"github.com/mealrounds/mealrounds-backend/internal/schedule"
	"github.com/mealrounds/mealrounds-backend/internal/settings"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

// PreviewDates computes the delivery and take-effect dates a reconciliation
// would assign right now, without writing anything.
func PreviewDates(calc *schedule.Calculator, svc *settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		weekday, _, err := schedule.NormalizeWeekdayKey(r.URL.Query().Get("weekday"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cutoffHours := 0
		if raw := r.URL.Query().Get("cutoff_hours"); raw != "" {
			cutoffHours, err = strconv.Atoi(raw)
			if err != nil || cutoffHours < 0 {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "cutoff_hours must be a non-negative integer"))
				return
			}
		}

		cutoff, err := svc.WeeklyCutoff(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := time.Now()
		deliveryDate, err := calc.NextDeliveryDate(weekday, cutoffHours, now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		takeEffectDate, err := calc.TakeEffectDate(cutoff, now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"weekday":          weekday.String(),
			"delivery_date":    deliveryDate.Format("2006-01-02"),
			"take_effect_date": takeEffectDate.Format("2006-01-02"),
		})
	}
}
