package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mealrounds/mealrounds-backend/api/responses"
	"github.com/mealrounds/mealrounds-backend/api/validators"
	"github.com/mealrounds/mealrounds-backend/internal/ordering"
	"github.com/mealrounds/mealrounds-backend/internal/promotion"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

// Reconciler is the slice of the order reconciler the API exposes.
type Reconciler interface {
	Reconcile(ctx context.Context, clientID uuid.UUID, cfg ordering.Config) error
}

// Promoter is the slice of the promotion service the API exposes.
type Promoter interface {
	PromoteDue(ctx context.Context, today time.Time) (promotion.Report, error)
}

// Allocator exposes order-number allocation.
type Allocator interface {
	Allocate(ctx context.Context, count int) ([]int64, error)
}

// ReconcileOrders applies a desired order configuration for a client.
func ReconcileOrders(reconciler Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := parseClientID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var cfg ordering.Config
		if err := validators.DecodeJSONBody(r, &cfg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := reconciler.Reconcile(r.Context(), clientID, cfg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "reconciled"})
	}
}

// PromoteDueOrders triggers a promotion pass immediately.
func PromoteDueOrders(promoter Promoter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := promoter.PromoteDue(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{
			"promoted": report.Promoted,
			"failed":   report.Failed,
		}
		if report.Err != nil {
			payload["errors"] = report.Err.Error()
		}
		responses.WriteSuccess(w, payload)
	}
}

type allocateRequest struct {
	Count int `json:"count" validate:"required,min=1,max=100"`
}

// AllocateOrderNumbers reserves order numbers from the shared number space.
func AllocateOrderNumbers(allocator Allocator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req allocateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		numbers, err := allocator.Allocate(r.Context(), req.Count)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"numbers": numbers})
	}
}

func parseClientID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "clientID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid client id").
			WithDetails(map[string]any{"client_id": raw})
	}
	return id, nil
}
