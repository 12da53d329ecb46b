package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mealrounds/mealrounds-backend/internal/promotion"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

type fakePromoter struct {
	report promotion.Report
	err    error
	called int
	lastAt time.Time
}

func (f *fakePromoter) PromoteDue(ctx context.Context, today time.Time) (promotion.Report, error) {
	f.called++
	f.lastAt = today
	return f.report, f.err
}

func newPromoteDueJob(t *testing.T, p *fakePromoter) *promoteDueJob {
	t.Helper()
	jobIface, err := NewPromoteDueJob(PromoteDueJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Promoter: p,
	})
	if err != nil {
		t.Fatalf("NewPromoteDueJob: %v", err)
	}
	job, ok := jobIface.(*promoteDueJob)
	if !ok {
		t.Fatalf("expected promoteDueJob, got %T", jobIface)
	}
	return job
}

func TestPromoteDueJobRunsPromoter(t *testing.T) {
	now := time.Date(2024, time.June, 10, 6, 0, 0, 0, time.UTC)
	p := &fakePromoter{report: promotion.Report{Promoted: 3}}
	job := newPromoteDueJob(t, p)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.called != 1 {
		t.Fatalf("promoter called %d times, want 1", p.called)
	}
	if !p.lastAt.Equal(now) {
		t.Fatalf("promoter ran with %s, want %s", p.lastAt, now)
	}
}

func TestPromoteDueJobPropagatesListingErrors(t *testing.T) {
	p := &fakePromoter{err: errors.New("boom")}
	job := newPromoteDueJob(t, p)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPromoteDueJobToleratesPerOrderFailures(t *testing.T) {
	p := &fakePromoter{report: promotion.Report{Promoted: 1, Failed: 1, Err: errors.New("one failed")}}
	job := newPromoteDueJob(t, p)

	// Per-order failures are reported, not escalated; the next cycle retries.
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
