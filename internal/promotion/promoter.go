package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mealrounds/mealrounds-backend/internal/ordering"
	"github.com/mealrounds/mealrounds-backend/internal/schedule"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
	"github.com/mealrounds/mealrounds-backend/pkg/enums"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

// Report summarizes one promotion run. Err aggregates per-order failures; a
// failed order never blocks the rest of the batch.
type Report struct {
	Promoted int
	Failed   int
	Err      error
}

// Service copies due scheduled orders into the realized partition.
type Service struct {
	repo ordering.Repository
	calc *schedule.Calculator
	tx   ordering.TxRunner
	log  *logger.Logger
	now  func() time.Time
}

// Option tunes promoter behavior.
type Option func(*Service)

// WithClock overrides the promoter's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds the promoter.
func NewService(repo ordering.Repository, calc *schedule.Calculator, tx ordering.TxRunner, log *logger.Logger, opts ...Option) (*Service, error) {
	if repo == nil || calc == nil || tx == nil || log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "promotion: all dependencies are required")
	}
	s := &Service{repo: repo, calc: calc, tx: tx, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PromoteDue materializes every scheduled order whose take-effect date is on
// or before today. Each order is promoted in its own transaction; failures
// are collected into the report and do not stop the batch.
func (s *Service) PromoteDue(ctx context.Context, today time.Time) (Report, error) {
	due, err := s.repo.FindDueScheduledOrders(ctx, today)
	if err != nil {
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing due orders")
	}

	var report Report
	for i := range due {
		source := due[i]
		orderCtx := s.log.WithFields(ctx, map[string]any{
			"order_number": source.OrderNumber,
			"client_id":    source.ClientID.String(),
		})
		if err := s.promoteOne(orderCtx, &source); err != nil {
			report.Failed++
			report.Err = multierr.Append(report.Err,
				fmt.Errorf("order %d: %w", source.OrderNumber, err))
			s.log.Error(orderCtx, "order promotion failed", err)
			continue
		}
		report.Promoted++
		s.log.Info(orderCtx, "order promoted")
	}
	return report, nil
}

func (s *Service) promoteOne(ctx context.Context, source *models.ScheduledOrder) error {
	// Re-resolve the delivery date from the stored weekday so the realized
	// order reflects the next actual occurrence, not a stale computed value.
	deliveryDate := source.DeliveryDate
	if source.DeliveryWeekday != nil {
		resolved, err := s.calc.NextDeliveryDate(*source.DeliveryWeekday, 0, s.now())
		if err != nil {
			return err
		}
		deliveryDate = &resolved
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		realized := &models.DeliveryOrder{
			ID:              uuid.New(),
			OrderNumber:     source.OrderNumber,
			ClientID:        source.ClientID,
			ServiceKind:     source.ServiceKind,
			CaseID:          source.CaseID,
			Status:          enums.OrderStatusPending,
			DeliveryDate:    deliveryDate,
			DeliveryWeekday: source.DeliveryWeekday,
			ItemCount:       source.ItemCount,
			TotalValue:      source.TotalValue,
			VendorID:        source.VendorID,
			UpdatedBy:       source.UpdatedBy,
		}
		if err := repo.CreateDeliveryOrder(ctx, realized); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating realized order")
		}

		for _, vendor := range source.Vendors {
			copied := &models.OrderVendor{
				ID:       uuid.New(),
				OrderID:  realized.ID,
				VendorID: vendor.VendorID,
			}
			if err := repo.CreateOrderVendor(ctx, copied); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "copying vendor selection")
			}
			items := make([]models.OrderLineItem, 0, len(vendor.Items))
			for _, item := range vendor.Items {
				items = append(items, models.OrderLineItem{
					ID:            uuid.New(),
					OrderVendorID: copied.ID,
					OrderID:       realized.ID,
					ItemID:        item.ItemID,
					Name:          item.Name,
					Price:         item.Price,
					Quantity:      item.Quantity,
				})
			}
			if err := repo.CreateLineItems(ctx, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "copying line items")
			}
		}

		boxes := make([]models.OrderBox, 0, len(source.Boxes))
		for _, box := range source.Boxes {
			boxes = append(boxes, models.OrderBox{
				ID:        uuid.New(),
				OrderID:   realized.ID,
				VendorID:  box.VendorID,
				BoxTypeID: box.BoxTypeID,
				Quantity:  box.Quantity,
				Items:     box.Items,
			})
		}
		if err := repo.CreateOrderBoxes(ctx, boxes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "copying box selections")
		}

		if err := repo.MarkScheduledProcessed(ctx, source.ID, realized.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking source order processed")
		}
		return nil
	})
}
