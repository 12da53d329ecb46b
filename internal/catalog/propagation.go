package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/mealrounds/mealrounds-backend/internal/clients"
	"github.com/mealrounds/mealrounds-backend/internal/ordering"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
	"github.com/mealrounds/mealrounds-backend/pkg/enums"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

const defaultPropagationWorkers = 8

// Reconciler is the slice of the order reconciler the propagation job needs.
// Propagation always goes through Reconcile, which honors the user_modified
// freeze, so a client's manual edits survive a catalog sync.
type Reconciler interface {
	Reconcile(ctx context.Context, clientID uuid.UUID, cfg ordering.Config) error
}

// PropagationReport summarizes one propagation run.
type PropagationReport struct {
	Synced  int
	Skipped int
	Failed  int
	Err     error
}

// PropagationService pushes the effective catalog for a date onto every
// active client's scheduled food orders.
type PropagationService struct {
	catalog    Service
	clients    clients.Repository
	reconciler Reconciler
	log        *logger.Logger
	workers    int
}

// PropagationOption tunes the propagation service.
type PropagationOption func(*PropagationService)

// WithWorkers caps the number of clients synced concurrently.
func WithWorkers(n int) PropagationOption {
	return func(s *PropagationService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewPropagationService builds the propagation service.
func NewPropagationService(catalog Service, clientRepo clients.Repository, reconciler Reconciler, log *logger.Logger, opts ...PropagationOption) (*PropagationService, error) {
	if catalog == nil || clientRepo == nil || reconciler == nil || log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog: all propagation dependencies are required")
	}
	s := &PropagationService{
		catalog:    catalog,
		clients:    clientRepo,
		reconciler: reconciler,
		log:        log,
		workers:    defaultPropagationWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PropagateDate syncs the effective catalog for date to all active clients.
// Clients run in parallel; within one client the reconciler processes weekday
// partitions serially, keeping the replace-vs-merge decision consistent.
func (s *PropagationService) PropagateDate(ctx context.Context, date time.Time, actor string) (PropagationReport, error) {
	active, err := s.clients.ListActive(ctx)
	if err != nil {
		return PropagationReport{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing active clients")
	}

	ids := make([]uuid.UUID, 0, len(active))
	for _, client := range active {
		ids = append(ids, client.ID)
	}
	effective, err := s.catalog.EffectiveBatch(ctx, date, ids)
	if err != nil {
		return PropagationReport{}, err
	}

	type outcome struct {
		synced  bool
		skipped bool
		err     error
	}
	outcomes := make([]outcome, len(active))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)
	for i := range active {
		i := i
		client := active[i]
		group.Go(func() error {
			cfg, ok := buildFoodConfig(client, effective[client.ID], actor)
			if !ok {
				outcomes[i] = outcome{skipped: true}
				return nil
			}
			if err := s.reconciler.Reconcile(groupCtx, client.ID, cfg); err != nil {
				outcomes[i] = outcome{err: fmt.Errorf("client %s: %w", client.Name, err)}
				return nil
			}
			outcomes[i] = outcome{synced: true}
			return nil
		})
	}
	// Workers never return errors; failures are collected per client.
	_ = group.Wait()

	var report PropagationReport
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			report.Failed++
			report.Err = multierr.Append(report.Err, o.err)
		case o.skipped:
			report.Skipped++
		case o.synced:
			report.Synced++
		}
	}
	return report, nil
}

// buildFoodConfig maps the effective catalog onto the client's stored vendor
// snapshot. Clients without a food vendor snapshot or without catalog content
// are skipped.
func buildFoodConfig(client models.Client, items []EffectiveItem, actor string) (ordering.Config, bool) {
	if len(client.FoodVendors) == 0 || len(items) == 0 {
		return ordering.Config{}, false
	}

	selections := make([]ordering.ItemSelection, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		selections = append(selections, ordering.ItemSelection{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	if len(selections) == 0 {
		return ordering.Config{}, false
	}

	partitions := make(map[string][]ordering.VendorSelection)
	for _, snap := range client.FoodVendors {
		if snap.Weekday == "" {
			continue
		}
		partitions[snap.Weekday] = append(partitions[snap.Weekday], ordering.VendorSelection{
			VendorID: snap.VendorID,
			Items:    selections,
		})
	}
	if len(partitions) == 0 {
		return ordering.Config{}, false
	}

	return ordering.Config{
		Kind:  enums.ServiceKindFood,
		Actor: actor,
		Food:  &ordering.FoodConfig{Partitions: partitions},
	}, true
}
