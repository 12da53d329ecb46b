package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mealrounds/mealrounds-backend/internal/promotion"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
	"github.com/mealrounds/mealrounds-backend/pkg/metrics"
)

// promoter is the slice of the promotion service the job needs.
type promoter interface {
	PromoteDue(ctx context.Context, today time.Time) (promotion.Report, error)
}

// PromoteDueJobParams configure the order promotion job.
type PromoteDueJobParams struct {
	Logger   *logger.Logger
	Promoter promoter
	Metrics  *metrics.CronJobMetrics
}

// NewPromoteDueJob builds the job that promotes due scheduled orders.
func NewPromoteDueJob(params PromoteDueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Promoter == nil {
		return nil, fmt.Errorf("promoter required")
	}
	return &promoteDueJob{
		logg:     params.Logger,
		promoter: params.Promoter,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

type promoteDueJob struct {
	logg     *logger.Logger
	promoter promoter
	metrics  *metrics.CronJobMetrics
	now      func() time.Time
}

func (j *promoteDueJob) Name() string { return "promote-due-orders" }

func (j *promoteDueJob) Run(ctx context.Context) error {
	today := j.now().UTC()
	report, err := j.promoter.PromoteDue(ctx, today)
	if err != nil {
		return fmt.Errorf("promote due orders: %w", err)
	}

	if j.metrics != nil {
		j.metrics.AddPromoted(report.Promoted)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"promoted": report.Promoted,
		"failed":   report.Failed,
	})
	if report.Err != nil {
		j.logg.Error(logCtx, "promotion pass finished with failures", report.Err)
		return nil
	}
	j.logg.Info(logCtx, "promotion pass complete")
	return nil
}
