package ordering

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mealrounds/mealrounds-backend/internal/clients"
	"github.com/mealrounds/mealrounds-backend/internal/schedule"
	"github.com/mealrounds/mealrounds-backend/pkg/db"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
	"github.com/mealrounds/mealrounds-backend/pkg/enums"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// VendorDirectory resolves vendor ids, normally through the TTL cache.
type VendorDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

// CutoffSource yields the active weekly order cutoff.
type CutoffSource interface {
	WeeklyCutoff(ctx context.Context) (schedule.WeeklyCutoff, error)
}

// NumberSource allocates order numbers from the shared number space.
type NumberSource interface {
	Allocate(ctx context.Context, count int) ([]int64, error)
}

// CatalogChecker reports whether a client has any catalog rows assigned yet.
type CatalogChecker interface {
	HasAnyForClient(ctx context.Context, clientID uuid.UUID) (bool, error)
}

// Service reconciles desired order configurations against the scheduled
// partition. Each delivery-weekday partition is processed in its own
// transaction, so one weekday's failure never rolls back another's commit.
type Service struct {
	repo    Repository
	clients clients.Repository
	vendors VendorDirectory
	cutoffs CutoffSource
	numbers NumberSource
	catalog CatalogChecker
	calc    *schedule.Calculator
	tx      TxRunner
	log     *logger.Logger
	now     func() time.Time
}

// ServiceOption tunes reconciler behavior.
type ServiceOption func(*Service)

// WithClock overrides the reconciler's time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds the reconciler.
func NewService(
	repo Repository,
	clientRepo clients.Repository,
	vendors VendorDirectory,
	cutoffs CutoffSource,
	numbers NumberSource,
	catalog CatalogChecker,
	calc *schedule.Calculator,
	tx TxRunner,
	log *logger.Logger,
	opts ...ServiceOption,
) (*Service, error) {
	if repo == nil || clientRepo == nil || vendors == nil || cutoffs == nil ||
		numbers == nil || catalog == nil || calc == nil || tx == nil || log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ordering: all reconciler dependencies are required")
	}
	s := &Service{
		repo:    repo,
		clients: clientRepo,
		vendors: vendors,
		cutoffs: cutoffs,
		numbers: numbers,
		catalog: catalog,
		calc:    calc,
		tx:      tx,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// resolvedLine is an item selection after menu-directory resolution, ready to
// persist.
type resolvedLine struct {
	itemID   *uuid.UUID
	name     string
	price    decimal.Decimal
	quantity int
}

func (l resolvedLine) key() string {
	return strings.ToLower(strings.TrimSpace(l.name))
}

func (l resolvedLine) total() decimal.Decimal {
	return l.price.Mul(decimal.NewFromInt(int64(l.quantity)))
}

// Reconcile applies the desired configuration to the client's scheduled
// orders. Food configurations fan out per delivery weekday; other kinds map
// to a single partition. Partition failures are collected rather than
// aborting the remaining partitions.
func (s *Service) Reconcile(ctx context.Context, clientID uuid.UUID, cfg Config) error {
	if clientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "client not found")
	}

	ctx = s.log.WithClientID(ctx, clientID.String())

	if cfg.IsEmpty() {
		return s.reconcileEmpty(ctx, client, cfg)
	}

	switch cfg.Kind {
	case enums.ServiceKindFood:
		return s.reconcileFood(ctx, client, cfg)
	case enums.ServiceKindBoxes:
		return s.reconcileBoxes(ctx, client, cfg)
	case enums.ServiceKindCustom:
		return s.reconcileCustom(ctx, client, cfg)
	case enums.ServiceKindProduce:
		return s.reconcileProduce(ctx, client, cfg)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown service kind %q", cfg.Kind))
}

// reconcileEmpty handles a configuration with no positive-quantity content.
// A brand-new client with no catalog assigned and no existing orders gets a
// zero-content placeholder row to edit later; anyone else is rejected.
func (s *Service) reconcileEmpty(ctx context.Context, client *models.Client, cfg Config) error {
	hasCatalog, err := s.catalog.HasAnyForClient(ctx, client.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking client catalog")
	}
	hasOrders, err := s.repo.HasScheduledOrders(ctx, client.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking existing orders")
	}
	if hasCatalog || hasOrders {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s configuration has no positive-quantity items", cfg.Kind))
	}

	numbers, err := s.numbers.Allocate(ctx, 1)
	if err != nil {
		return err
	}
	order := &models.ScheduledOrder{
		ID:          uuid.New(),
		OrderNumber: numbers[0],
		ClientID:    client.ID,
		ServiceKind: cfg.Kind,
		CaseID:      cfg.CaseID,
		Status:      enums.OrderStatusScheduled,
		TotalValue:  decimal.Zero,
		UpdatedBy:   cfg.Actor,
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateScheduledOrder(ctx, order); err != nil {
			return wrapCreateErr(err, "creating placeholder order")
		}
		s.log.Info(ctx, "created placeholder order for new client")
		return nil
	})
}

func (s *Service) reconcileFood(ctx context.Context, client *models.Client, cfg Config) error {
	// Deterministic partition order; a failed weekday does not block the rest.
	keys := make([]string, 0, len(cfg.Food.Partitions))
	for key := range cfg.Food.Partitions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs error
	for _, key := range keys {
		weekday, _, err := schedule.NormalizeWeekdayKey(key)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		selections := cfg.Food.Partitions[key]
		if err := s.reconcileFoodPartition(ctx, client, weekday, selections, cfg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("weekday %s: %w", weekday, err))
		}
	}
	return errs
}

func (s *Service) reconcileFoodPartition(ctx context.Context, client *models.Client, weekday enums.Weekday, selections []VendorSelection, cfg Config) error {
	plans := make([]vendorPlanView, 0, len(selections))
	maxCutoffHours := 0
	for _, sel := range selections {
		vendor, err := s.vendors.Get(ctx, sel.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "vendor "+sel.VendorID.String()+" not found")
		}
		if len(vendor.DeliveryDays) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("vendor %s has no configured delivery days", vendor.Name))
		}
		if !vendor.DeliversOn(weekday) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("vendor %s does not deliver on %s", vendor.Name, weekday))
		}
		lines, err := s.resolveLines(ctx, sel.Items)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			continue
		}
		if vendor.CutoffHours > maxCutoffHours {
			maxCutoffHours = vendor.CutoffHours
		}
		plans = append(plans, vendorPlanView{vendor: vendor, lines: lines})
	}
	if len(plans) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("no positive-quantity items for %s", weekday))
	}

	takeEffect, deliveryDate, err := s.computeDates(ctx, weekday, maxCutoffHours, true)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindScheduledOrder(ctx, client.ID, enums.ServiceKindFood, &weekday)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading scheduled order")
		}

		created := false
		if order == nil {
			numbers, err := s.numbers.Allocate(ctx, 1)
			if err != nil {
				return err
			}
			order = &models.ScheduledOrder{
				ID:              uuid.New(),
				OrderNumber:     numbers[0],
				ClientID:        client.ID,
				ServiceKind:     enums.ServiceKindFood,
				Status:          enums.OrderStatusScheduled,
				DeliveryWeekday: &weekday,
			}
			created = true
		}

		var itemCount int
		total := decimal.Zero

		if !created && order.UserModified {
			itemCount, total, err = s.mergeFoodAdditive(ctx, repo, order, plans)
		} else {
			itemCount, total, err = s.replaceFood(ctx, repo, order, created, plans)
		}
		if err != nil {
			return err
		}

		order.CaseID = firstNonNil(cfg.CaseID, order.CaseID)
		order.DeliveryDate = &deliveryDate
		order.TakeEffectDate = &takeEffect
		order.ItemCount = itemCount
		// Recomputed totals are authoritative over anything the caller sent.
		order.TotalValue = total
		order.UpdatedBy = cfg.Actor
		if len(plans) == 1 {
			id := plans[0].vendor.ID
			order.VendorID = &id
		} else {
			order.VendorID = nil
		}

		if created {
			if err := repo.CreateScheduledOrder(ctx, order); err != nil {
				return wrapCreateErr(err, "creating scheduled order")
			}
			// Children reference the order id, so they are written after the
			// header exists.
			if _, _, err := s.insertFoodChildren(ctx, repo, order.ID, plans); err != nil {
				return err
			}
		} else if err := repo.SaveScheduledOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating scheduled order")
		}

		snapshot := buildFoodSnapshots(weekday, plans)
		merged := mergeFoodSnapshots(client.FoodVendors, weekday, snapshot)
		if err := s.clients.WithTx(tx).UpdateVendorSnapshots(ctx, client.ID, merged, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating client vendor snapshot")
		}
		client.FoodVendors = merged
		return nil
	})
}

// replaceFood implements full replace mode: drop every child row and
// re-insert the desired set.
func (s *Service) replaceFood(ctx context.Context, repo Repository, order *models.ScheduledOrder, created bool, plans []vendorPlanView) (int, decimal.Decimal, error) {
	if !created {
		if err := repo.DeleteOrderSubtree(ctx, order.ID); err != nil {
			return 0, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing order children")
		}
		return s.insertFoodChildren(ctx, repo, order.ID, plans)
	}
	// Creation path: children are inserted after the header write.
	itemCount := 0
	total := decimal.Zero
	for _, plan := range plans {
		for _, line := range plan.lines {
			itemCount += line.quantity
			total = total.Add(line.total())
		}
	}
	return itemCount, total, nil
}

func (s *Service) insertFoodChildren(ctx context.Context, repo Repository, orderID uuid.UUID, plans []vendorPlanView) (int, decimal.Decimal, error) {
	itemCount := 0
	total := decimal.Zero
	for _, plan := range plans {
		orderVendor := &models.OrderVendor{
			ID:       uuid.New(),
			OrderID:  orderID,
			VendorID: plan.vendor.ID,
		}
		if err := repo.CreateOrderVendor(ctx, orderVendor); err != nil {
			return 0, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
				"creating vendor selection for "+plan.vendor.Name)
		}
		items := make([]models.OrderLineItem, 0, len(plan.lines))
		for _, line := range plan.lines {
			items = append(items, models.OrderLineItem{
				ID:            uuid.New(),
				OrderVendorID: orderVendor.ID,
				OrderID:       orderID,
				ItemID:        line.itemID,
				Name:          line.name,
				Price:         line.price,
				Quantity:      line.quantity,
			})
			itemCount += line.quantity
			total = total.Add(line.total())
		}
		if err := repo.CreateLineItems(ctx, items); err != nil {
			return 0, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
				"creating line items for "+plan.vendor.Name)
		}
	}
	return itemCount, total, nil
}

// mergeFoodAdditive implements additive merge mode for user-modified orders:
// desired names absent from the stored order are appended, stored names
// absent from the desired set are deleted, and stored names present in both
// keep their existing quantities.
func (s *Service) mergeFoodAdditive(ctx context.Context, repo Repository, order *models.ScheduledOrder, plans []vendorPlanView) (int, decimal.Decimal, error) {
	existingVendors, err := repo.FindOrderVendors(ctx, order.ID)
	if err != nil {
		return 0, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order children")
	}

	vendorByID := make(map[uuid.UUID]*models.OrderVendor, len(existingVendors))
	for i := range existingVendors {
		vendorByID[existingVendors[i].VendorID] = &existingVendors[i]
	}

	desiredVendorIDs := make(map[uuid.UUID]struct{}, len(plans))
	itemCount := 0
	total := decimal.Zero

	for _, plan := range plans {
		desiredVendorIDs[plan.vendor.ID] = struct{}{}

		existing := vendorByID[plan.vendor.ID]
		if existing == nil {
			orderVendor := &models.OrderVendor{
				ID:       uuid.New(),
				OrderID:  order.ID,
				VendorID: plan.vendor.ID,
			}
			if err := repo.CreateOrderVendor(ctx, orderVendor); err != nil {
				return 0, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
					"creating vendor selection for "+plan.vendor.Name)
			}
			existing = orderVendor
		}

		keptByName := make(map[string]models.OrderLineItem, len(existing.Items))
		for _, item := range existing.Items {
			keptByName[normalizeItemName(item.Name)] = item
		}

		desiredNames := make(map[string]struct{}, len(plan.lines))
		var appends []models.OrderLineItem
		for _, line := range plan.lines {
			desiredNames[line.key()] = struct{}{}
			if kept, ok := keptByName[line.key()]; ok {
				// The client's own edit wins over the desired quantity.
				itemCount += kept.Quantity
				total = total.Add(kept.LineTotal())
				continue
			}
			appends = append(appends, models.OrderLineItem{
				ID:            uuid.New(),
				OrderVendorID: existing.ID,
				OrderID:       order.ID,
				ItemID:        line.itemID,
				Name:          line.name,
				Price:         line.price,
				Quantity:      line.quantity,
			})
			itemCount += line.quantity
			total = total.Add(line.total())
		}
		if err := repo.CreateLineItems(ctx, appends); err != nil {
			return 0, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
				"appending line items for "+plan.vendor.Name)
		}

		var stale []uuid.UUID
		for name, item := range keptByName {
			if _, ok := desiredNames[name]; !ok {
				stale = append(stale, item.ID)
			}
		}
		if err := repo.DeleteLineItems(ctx, stale); err != nil {
			return 0, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
				"deleting removed line items for "+plan.vendor.Name)
		}
	}

	var staleVendors []uuid.UUID
	for vendorID, existing := range vendorByID {
		if _, ok := desiredVendorIDs[vendorID]; !ok {
			staleVendors = append(staleVendors, existing.ID)
		}
	}
	if err := repo.DeleteOrderVendors(ctx, staleVendors); err != nil {
		return 0, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting removed vendor selections")
	}

	return itemCount, total, nil
}

func (s *Service) reconcileBoxes(ctx context.Context, client *models.Client, cfg Config) error {
	for _, sel := range cfg.Boxes.Selections {
		vendor, err := s.vendors.Get(ctx, sel.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "vendor "+sel.VendorID.String()+" not found")
		}
		if len(vendor.DeliveryDays) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("vendor %s has no configured delivery days", vendor.Name))
		}
	}

	// Box orders tolerate unresolved dates and persist with nulls.
	var takeEffectPtr, deliveryPtr *time.Time
	if cutoff, err := s.cutoffs.WeeklyCutoff(ctx); err == nil {
		if takeEffect, err := s.calc.TakeEffectDate(cutoff, s.now()); err == nil {
			takeEffectPtr = &takeEffect
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindScheduledOrder(ctx, client.ID, enums.ServiceKindBoxes, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading scheduled order")
		}

		created := false
		if order == nil {
			numbers, err := s.numbers.Allocate(ctx, 1)
			if err != nil {
				return err
			}
			order = &models.ScheduledOrder{
				ID:          uuid.New(),
				OrderNumber: numbers[0],
				ClientID:    client.ID,
				ServiceKind: enums.ServiceKindBoxes,
				Status:      enums.OrderStatusScheduled,
			}
			created = true
			if err := repo.CreateScheduledOrder(ctx, order); err != nil {
				return wrapCreateErr(err, "creating scheduled order")
			}
		}

		var boxes []models.OrderBox
		if !created && order.UserModified {
			boxes, err = s.mergeBoxesAdditive(ctx, repo, order, cfg.Boxes.Selections)
		} else {
			boxes, err = s.replaceBoxes(ctx, repo, order, created, cfg.Boxes.Selections)
		}
		if err != nil {
			return err
		}

		itemCount := 0
		total := decimal.Zero
		for _, box := range boxes {
			itemCount += box.Quantity
			total = total.Add(box.Items.Total().Mul(decimal.NewFromInt(int64(box.Quantity))))
		}

		order.CaseID = firstNonNil(cfg.CaseID, order.CaseID)
		order.TakeEffectDate = takeEffectPtr
		order.DeliveryDate = deliveryPtr
		order.ItemCount = itemCount
		order.TotalValue = total
		order.UpdatedBy = cfg.Actor
		if err := repo.SaveScheduledOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating scheduled order")
		}

		merged := mergeBoxSnapshots(client.BoxVendors, boxes)
		if err := s.clients.WithTx(tx).UpdateVendorSnapshots(ctx, client.ID, nil, merged); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating client box snapshot")
		}
		client.BoxVendors = merged
		return nil
	})
}

func (s *Service) replaceBoxes(ctx context.Context, repo Repository, order *models.ScheduledOrder, created bool, selections []BoxSelection) ([]models.OrderBox, error) {
	if !created {
		if err := repo.DeleteOrderSubtree(ctx, order.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing order children")
		}
	}
	boxes := make([]models.OrderBox, 0, len(selections))
	for _, sel := range selections {
		boxes = append(boxes, models.OrderBox{
			ID:        uuid.New(),
			OrderID:   order.ID,
			VendorID:  sel.VendorID,
			BoxTypeID: sel.BoxTypeID,
			Quantity:  sel.Quantity,
			Items:     sel.Items,
		})
	}
	if err := repo.CreateOrderBoxes(ctx, boxes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating box selections")
	}
	return boxes, nil
}

// mergeBoxesAdditive keeps existing box rows for vendors the desired set still
// names, appends rows for new vendors, and removes rows for vendors dropped
// from the desired set.
func (s *Service) mergeBoxesAdditive(ctx context.Context, repo Repository, order *models.ScheduledOrder, selections []BoxSelection) ([]models.OrderBox, error) {
	existing, err := repo.FindOrderBoxes(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading box selections")
	}

	existingByVendor := make(map[uuid.UUID]models.OrderBox, len(existing))
	for _, box := range existing {
		existingByVendor[box.VendorID] = box
	}

	desiredVendors := make(map[uuid.UUID]struct{}, len(selections))
	var final []models.OrderBox
	var appends []models.OrderBox
	for _, sel := range selections {
		desiredVendors[sel.VendorID] = struct{}{}
		if kept, ok := existingByVendor[sel.VendorID]; ok {
			final = append(final, kept)
			continue
		}
		box := models.OrderBox{
			ID:        uuid.New(),
			OrderID:   order.ID,
			VendorID:  sel.VendorID,
			BoxTypeID: sel.BoxTypeID,
			Quantity:  sel.Quantity,
			Items:     sel.Items,
		}
		appends = append(appends, box)
		final = append(final, box)
	}
	if err := repo.CreateOrderBoxes(ctx, appends); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending box selections")
	}

	var stale []uuid.UUID
	for vendorID, box := range existingByVendor {
		if _, ok := desiredVendors[vendorID]; !ok {
			stale = append(stale, box.ID)
		}
	}
	if err := repo.DeleteOrderBoxes(ctx, stale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting removed box selections")
	}
	return final, nil
}

func (s *Service) reconcileCustom(ctx context.Context, client *models.Client, cfg Config) error {
	line := resolvedLine{
		name:     cfg.Custom.Name,
		price:    cfg.Custom.Price,
		quantity: cfg.Custom.Quantity,
	}
	return s.reconcileSingleVendor(ctx, client, enums.ServiceKindCustom, cfg.Custom.VendorID, line, cfg)
}

func (s *Service) reconcileProduce(ctx context.Context, client *models.Client, cfg Config) error {
	line := resolvedLine{
		name:     "Produce",
		price:    cfg.Produce.Amount,
		quantity: 1,
	}
	return s.reconcileSingleVendor(ctx, client, enums.ServiceKindProduce, cfg.Produce.VendorID, line, cfg)
}

// reconcileSingleVendor covers the custom and produce kinds: one vendor, one
// line, delivery on the vendor's first configured weekday.
func (s *Service) reconcileSingleVendor(ctx context.Context, client *models.Client, kind enums.ServiceKind, vendorID uuid.UUID, line resolvedLine, cfg Config) error {
	vendor, err := s.vendors.Get(ctx, vendorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "vendor "+vendorID.String()+" not found")
	}
	if len(vendor.DeliveryDays) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("vendor %s has no configured delivery days", vendor.Name))
	}
	weekday := vendor.DeliveryDays[0]

	takeEffect, deliveryDate, err := s.computeDates(ctx, weekday, vendor.CutoffHours, kind.RequiresDeliveryDate())
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindScheduledOrder(ctx, client.ID, kind, &weekday)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading scheduled order")
		}

		created := false
		if order == nil {
			numbers, err := s.numbers.Allocate(ctx, 1)
			if err != nil {
				return err
			}
			order = &models.ScheduledOrder{
				ID:              uuid.New(),
				OrderNumber:     numbers[0],
				ClientID:        client.ID,
				ServiceKind:     kind,
				Status:          enums.OrderStatusScheduled,
				DeliveryWeekday: &weekday,
			}
			created = true
			if err := repo.CreateScheduledOrder(ctx, order); err != nil {
				return wrapCreateErr(err, "creating scheduled order")
			}
		}

		plans := []vendorPlanView{{vendor: vendor, lines: []resolvedLine{line}}}

		var itemCount int
		total := decimal.Zero
		if !created && order.UserModified {
			itemCount, total, err = s.mergeFoodAdditive(ctx, repo, order, plans)
		} else {
			if !created {
				if err := repo.DeleteOrderSubtree(ctx, order.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing order children")
				}
			}
			itemCount, total, err = s.insertFoodChildren(ctx, repo, order.ID, plans)
		}
		if err != nil {
			return err
		}

		order.CaseID = firstNonNil(cfg.CaseID, order.CaseID)
		order.DeliveryDate = &deliveryDate
		order.TakeEffectDate = &takeEffect
		order.ItemCount = itemCount
		order.TotalValue = total
		order.UpdatedBy = cfg.Actor
		vid := vendor.ID
		order.VendorID = &vid

		if err := repo.SaveScheduledOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating scheduled order")
		}
		return nil
	})
}

// computeDates resolves the take-effect and delivery dates. When mandatory is
// false a computation failure is tolerated and zero times are returned.
func (s *Service) computeDates(ctx context.Context, weekday enums.Weekday, cutoffHours int, mandatory bool) (time.Time, time.Time, error) {
	cutoff, err := s.cutoffs.WeeklyCutoff(ctx)
	if err != nil {
		if mandatory {
			return time.Time{}, time.Time{}, err
		}
		return time.Time{}, time.Time{}, nil
	}
	now := s.now()
	takeEffect, err := s.calc.TakeEffectDate(cutoff, now)
	if err != nil {
		if mandatory {
			return time.Time{}, time.Time{}, err
		}
		return time.Time{}, time.Time{}, nil
	}
	deliveryDate, err := s.calc.NextDeliveryDate(weekday, cutoffHours, now)
	if err != nil {
		if mandatory {
			return time.Time{}, time.Time{}, err
		}
		return time.Time{}, time.Time{}, nil
	}
	return takeEffect, deliveryDate, nil
}

func (s *Service) resolveLines(ctx context.Context, items []ItemSelection) ([]resolvedLine, error) {
	var menuIDs []uuid.UUID
	for _, item := range items {
		if item.ItemID != nil && item.Quantity > 0 {
			menuIDs = append(menuIDs, *item.ItemID)
		}
	}
	directory, err := s.repo.FindMenuItems(ctx, menuIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving menu items")
	}

	lines := make([]resolvedLine, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		line := resolvedLine{
			itemID:   item.ItemID,
			name:     item.Name,
			price:    item.Price,
			quantity: item.Quantity,
		}
		if item.ItemID != nil {
			menuItem, ok := directory[*item.ItemID]
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("unknown menu item %s", item.ItemID))
			}
			line.name = menuItem.Name
			line.price = menuItem.Price
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// vendorPlanView pairs a resolved vendor with its desired lines.
type vendorPlanView struct {
	vendor *models.Vendor
	lines  []resolvedLine
}

func normalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// wrapCreateErr distinguishes a losing race on the shared order-number index,
// which callers retry, from a genuine store failure.
func wrapCreateErr(err error, msg string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, msg+": order number already taken")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// buildFoodSnapshots produces the denormalized per-weekday vendor snapshot
// written back onto the client row.
func buildFoodSnapshots(weekday enums.Weekday, plans []vendorPlanView) []models.FoodVendorSnapshot {
	snapshots := make([]models.FoodVendorSnapshot, 0, len(plans))
	for _, plan := range plans {
		items := make(map[string]int, len(plan.lines))
		for _, line := range plan.lines {
			items[line.name] = line.quantity
		}
		snapshots = append(snapshots, models.FoodVendorSnapshot{
			VendorID: plan.vendor.ID,
			Weekday:  weekday.String(),
			Items:    items,
		})
	}
	return snapshots
}

// mergeFoodSnapshots replaces the snapshot entries for one weekday while
// leaving entries for other weekdays untouched.
func mergeFoodSnapshots(existing []models.FoodVendorSnapshot, weekday enums.Weekday, replacement []models.FoodVendorSnapshot) []models.FoodVendorSnapshot {
	merged := make([]models.FoodVendorSnapshot, 0, len(existing)+len(replacement))
	for _, snap := range existing {
		if snap.Weekday != weekday.String() {
			merged = append(merged, snap)
		}
	}
	return append(merged, replacement...)
}

// mergeBoxSnapshots writes the reconciled box set onto the client row,
// keeping item maps already stored under an unchanged vendor id when the new
// row carries none.
func mergeBoxSnapshots(existing []models.BoxVendorSnapshot, boxes []models.OrderBox) []models.BoxVendorSnapshot {
	previous := make(map[uuid.UUID]models.BoxVendorSnapshot, len(existing))
	for _, snap := range existing {
		previous[snap.VendorID] = snap
	}

	merged := make([]models.BoxVendorSnapshot, 0, len(boxes))
	for _, box := range boxes {
		snap := models.BoxVendorSnapshot{
			VendorID:  box.VendorID,
			BoxTypeID: box.BoxTypeID,
			Quantity:  box.Quantity,
			Items:     box.Items,
		}
		if len(snap.Items) == 0 {
			if prior, ok := previous[box.VendorID]; ok && len(prior.Items) > 0 {
				snap.Items = prior.Items
			}
		} else if prior, ok := previous[box.VendorID]; ok {
			snap.Items = snap.Items.Merge(prior.Items)
		}
		merged = append(merged, snap)
	}
	return merged
}
