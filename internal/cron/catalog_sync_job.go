package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mealrounds/mealrounds-backend/internal/catalog"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

const catalogSyncActor = "catalog-sync"

// propagator is the slice of the catalog propagation service the job needs.
type propagator interface {
	PropagateDate(ctx context.Context, date time.Time, actor string) (catalog.PropagationReport, error)
}

// CatalogSyncJobParams configure the catalog propagation job.
type CatalogSyncJobParams struct {
	Logger     *logger.Logger
	Propagator propagator
}

// NewCatalogSyncJob builds the job that pushes the day's effective catalog
// onto client orders.
func NewCatalogSyncJob(params CatalogSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Propagator == nil {
		return nil, fmt.Errorf("propagator required")
	}
	return &catalogSyncJob{
		logg:       params.Logger,
		propagator: params.Propagator,
		now:        time.Now,
	}, nil
}

type catalogSyncJob struct {
	logg       *logger.Logger
	propagator propagator
	now        func() time.Time
}

func (j *catalogSyncJob) Name() string { return "catalog-sync" }

func (j *catalogSyncJob) Run(ctx context.Context) error {
	today := j.now().UTC().Truncate(24 * time.Hour)
	report, err := j.propagator.PropagateDate(ctx, today, catalogSyncActor)
	if err != nil {
		return fmt.Errorf("catalog sync: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"synced":  report.Synced,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	})
	if report.Err != nil {
		j.logg.Error(logCtx, "catalog sync finished with failures", report.Err)
		return nil
	}
	j.logg.Info(logCtx, "catalog sync complete")
	return nil
}
