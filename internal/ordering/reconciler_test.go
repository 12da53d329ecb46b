package ordering

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mealrounds/mealrounds-backend/internal/clients"
	"github.com/mealrounds/mealrounds-backend/internal/schedule"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
	"github.com/mealrounds/mealrounds-backend/pkg/enums"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

type fakeOrderRepo struct {
	orders    map[uuid.UUID]*models.ScheduledOrder
	vendors   map[uuid.UUID]*models.OrderVendor
	items     map[uuid.UUID]*models.OrderLineItem
	boxes     map[uuid.UUID]*models.OrderBox
	menu      map[uuid.UUID]models.MenuItem
	delivered map[uuid.UUID]*models.DeliveryOrder
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:    map[uuid.UUID]*models.ScheduledOrder{},
		vendors:   map[uuid.UUID]*models.OrderVendor{},
		items:     map[uuid.UUID]*models.OrderLineItem{},
		boxes:     map[uuid.UUID]*models.OrderBox{},
		menu:      map[uuid.UUID]models.MenuItem{},
		delivered: map[uuid.UUID]*models.DeliveryOrder{},
	}
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) MaxScheduledOrderNumber(ctx context.Context) (int64, error) {
	var max int64
	for _, o := range f.orders {
		if o.OrderNumber > max {
			max = o.OrderNumber
		}
	}
	return max, nil
}

func (f *fakeOrderRepo) MaxDeliveryOrderNumber(ctx context.Context) (int64, error) {
	var max int64
	for _, o := range f.delivered {
		if o.OrderNumber > max {
			max = o.OrderNumber
		}
	}
	return max, nil
}

func (f *fakeOrderRepo) ScheduledOrderNumberExists(ctx context.Context, number int64) (bool, error) {
	for _, o := range f.orders {
		if o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrderRepo) DeliveryOrderNumberExists(ctx context.Context, number int64) (bool, error) {
	for _, o := range f.delivered {
		if o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrderRepo) FindScheduledOrder(ctx context.Context, clientID uuid.UUID, kind enums.ServiceKind, weekday *enums.Weekday) (*models.ScheduledOrder, error) {
	for _, o := range f.orders {
		if o.ClientID != clientID || o.ServiceKind != kind || o.Status != enums.OrderStatusScheduled {
			continue
		}
		if weekday == nil && o.DeliveryWeekday == nil {
			return o, nil
		}
		if weekday != nil && o.DeliveryWeekday != nil && *o.DeliveryWeekday == *weekday {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderRepo) HasScheduledOrders(ctx context.Context, clientID uuid.UUID) (bool, error) {
	for _, o := range f.orders {
		if o.ClientID == clientID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrderRepo) CreateScheduledOrder(ctx context.Context, order *models.ScheduledOrder) error {
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) SaveScheduledOrder(ctx context.Context, order *models.ScheduledOrder) error {
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) FindOrderVendors(ctx context.Context, orderID uuid.UUID) ([]models.OrderVendor, error) {
	var result []models.OrderVendor
	for _, v := range f.vendors {
		if v.OrderID != orderID {
			continue
		}
		cp := *v
		cp.Items = nil
		for _, item := range f.items {
			if item.OrderVendorID == v.ID {
				cp.Items = append(cp.Items, *item)
			}
		}
		result = append(result, cp)
	}
	return result, nil
}

func (f *fakeOrderRepo) FindOrderBoxes(ctx context.Context, orderID uuid.UUID) ([]models.OrderBox, error) {
	var result []models.OrderBox
	for _, b := range f.boxes {
		if b.OrderID == orderID {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (f *fakeOrderRepo) CreateOrderVendor(ctx context.Context, vendor *models.OrderVendor) error {
	cp := *vendor
	f.vendors[vendor.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) DeleteOrderVendors(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		for itemID, item := range f.items {
			if item.OrderVendorID == id {
				delete(f.items, itemID)
			}
		}
		delete(f.vendors, id)
	}
	return nil
}

func (f *fakeOrderRepo) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	for _, item := range items {
		cp := item
		f.items[item.ID] = &cp
	}
	return nil
}

func (f *fakeOrderRepo) DeleteLineItems(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.items, id)
	}
	return nil
}

func (f *fakeOrderRepo) CreateOrderBoxes(ctx context.Context, boxes []models.OrderBox) error {
	for _, box := range boxes {
		cp := box
		f.boxes[box.ID] = &cp
	}
	return nil
}

func (f *fakeOrderRepo) DeleteOrderBoxes(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.boxes, id)
	}
	return nil
}

func (f *fakeOrderRepo) DeleteOrderSubtree(ctx context.Context, orderID uuid.UUID) error {
	for id, item := range f.items {
		if item.OrderID == orderID {
			delete(f.items, id)
		}
	}
	for id, v := range f.vendors {
		if v.OrderID == orderID {
			delete(f.vendors, id)
		}
	}
	for id, b := range f.boxes {
		if b.OrderID == orderID {
			delete(f.boxes, id)
		}
	}
	return nil
}

func (f *fakeOrderRepo) FindMenuItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error) {
	result := map[uuid.UUID]models.MenuItem{}
	for _, id := range ids {
		if item, ok := f.menu[id]; ok {
			result[id] = item
		}
	}
	return result, nil
}

func (f *fakeOrderRepo) FindDueScheduledOrders(ctx context.Context, today time.Time) ([]models.ScheduledOrder, error) {
	var due []models.ScheduledOrder
	for _, o := range f.orders {
		if o.Status != enums.OrderStatusScheduled || o.TakeEffectDate == nil || o.TakeEffectDate.After(today) {
			continue
		}
		cp := *o
		vendors, _ := f.FindOrderVendors(ctx, o.ID)
		boxes, _ := f.FindOrderBoxes(ctx, o.ID)
		cp.Vendors = vendors
		cp.Boxes = boxes
		due = append(due, cp)
	}
	return due, nil
}

func (f *fakeOrderRepo) MarkScheduledProcessed(ctx context.Context, orderID, promotedID uuid.UUID) error {
	o, ok := f.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = enums.OrderStatusProcessed
	pid := promotedID
	o.PromotedOrderID = &pid
	return nil
}

func (f *fakeOrderRepo) CreateDeliveryOrder(ctx context.Context, order *models.DeliveryOrder) error {
	cp := *order
	f.delivered[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) lineItemsFor(orderID uuid.UUID) []models.OrderLineItem {
	var result []models.OrderLineItem
	for _, item := range f.items {
		if item.OrderID == orderID {
			result = append(result, *item)
		}
	}
	return result
}

func (f *fakeOrderRepo) singleOrder(t *testing.T) *models.ScheduledOrder {
	t.Helper()
	if len(f.orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(f.orders))
	}
	for _, o := range f.orders {
		return o
	}
	return nil
}

type fakeClientRepo struct {
	client *models.Client
}

func (f *fakeClientRepo) WithTx(tx *gorm.DB) clients.Repository { return f }

func (f *fakeClientRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	if f.client == nil || f.client.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *f.client
	return &cp, nil
}

func (f *fakeClientRepo) ListActive(ctx context.Context) ([]models.Client, error) {
	if f.client == nil {
		return nil, nil
	}
	return []models.Client{*f.client}, nil
}

func (f *fakeClientRepo) UpdateVendorSnapshots(ctx context.Context, id uuid.UUID, food []models.FoodVendorSnapshot, boxes []models.BoxVendorSnapshot) error {
	if food != nil {
		f.client.FoodVendors = food
	}
	if boxes != nil {
		f.client.BoxVendors = boxes
	}
	return nil
}

type fakeVendorDir struct {
	vendors map[uuid.UUID]*models.Vendor
}

func (f *fakeVendorDir) Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	v, ok := f.vendors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return v, nil
}

type fakeCutoffs struct{}

func (fakeCutoffs) WeeklyCutoff(ctx context.Context) (schedule.WeeklyCutoff, error) {
	return schedule.WeeklyCutoff{Day: enums.WeekdayFriday, Hour: 17}, nil
}

type fakeNumbers struct {
	next int64
}

func (f *fakeNumbers) Allocate(ctx context.Context, count int) ([]int64, error) {
	if f.next == 0 {
		f.next = 100000
	}
	numbers := make([]int64, count)
	for i := range numbers {
		numbers[i] = f.next
		f.next++
	}
	return numbers, nil
}

type fakeCatalogCheck struct {
	hasCatalog bool
}

func (f *fakeCatalogCheck) HasAnyForClient(ctx context.Context, clientID uuid.UUID) (bool, error) {
	return f.hasCatalog, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type harness struct {
	repo    *fakeOrderRepo
	clients *fakeClientRepo
	vendors *fakeVendorDir
	catalog *fakeCatalogCheck
	svc     *Service
}

// Monday 2024-06-03 10:00 UTC, well before the Friday 17:00 cutoff.
var testNow = time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:    newFakeOrderRepo(),
		clients: &fakeClientRepo{client: &models.Client{ID: uuid.New(), Name: "Ada", Active: true}},
		vendors: &fakeVendorDir{vendors: map[uuid.UUID]*models.Vendor{}},
		catalog: &fakeCatalogCheck{},
	}
	svc, err := NewService(
		h.repo,
		h.clients,
		h.vendors,
		fakeCutoffs{},
		&fakeNumbers{},
		h.catalog,
		schedule.NewCalculator(time.UTC),
		fakeTx{},
		logger.New(logger.Options{ServiceName: "test"}),
		WithClock(func() time.Time { return testNow }),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) addVendor(days ...enums.Weekday) *models.Vendor {
	v := &models.Vendor{
		ID:           uuid.New(),
		Name:         "Hillside Farm",
		Kind:         enums.ServiceKindFood,
		DeliveryDays: days,
		Active:       true,
	}
	h.vendors.vendors[v.ID] = v
	return v
}

func foodConfig(vendorID uuid.UUID, partition string, items ...ItemSelection) Config {
	return Config{
		Kind:  enums.ServiceKindFood,
		Actor: "tester",
		Food: &FoodConfig{
			Partitions: map[string][]VendorSelection{
				partition: {{VendorID: vendorID, Items: items}},
			},
		},
	}
}

func item(name string, qty int, price string) ItemSelection {
	return ItemSelection{Name: name, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func TestReconcileCreatesScheduledOrder(t *testing.T) {
	h := newHarness(t)
	vendor := h.addVendor(enums.WeekdayThursday)

	cfg := foodConfig(vendor.ID, "Thursday", item("Milk", 2, "1.50"), item("Bread", 1, "2.00"))
	if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	order := h.repo.singleOrder(t)
	if order.OrderNumber < 100000 {
		t.Fatalf("order number = %d, want >= 100000", order.OrderNumber)
	}
	if order.ItemCount != 3 {
		t.Fatalf("item count = %d, want 3", order.ItemCount)
	}
	if !order.TotalValue.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("total = %s, want 5.00", order.TotalValue)
	}
	if order.DeliveryDate == nil || !order.DeliveryDate.Equal(time.Date(2024, time.June, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("delivery date = %v, want 2024-06-06", order.DeliveryDate)
	}
	if order.TakeEffectDate == nil || !order.TakeEffectDate.Equal(time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("take effect = %v, want 2024-06-09", order.TakeEffectDate)
	}
	if len(h.clients.client.FoodVendors) != 1 || h.clients.client.FoodVendors[0].VendorID != vendor.ID {
		t.Fatalf("snapshot = %+v, want single entry for vendor", h.clients.client.FoodVendors)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	h := newHarness(t)
	vendor := h.addVendor(enums.WeekdayThursday)
	cfg := foodConfig(vendor.ID, "Thursday", item("Milk", 2, "1.50"))

	for i := 0; i < 2; i++ {
		if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg); err != nil {
			t.Fatalf("Reconcile pass %d: %v", i+1, err)
		}
	}

	order := h.repo.singleOrder(t)
	lines := h.repo.lineItemsFor(order.ID)
	if len(lines) != 1 {
		t.Fatalf("got %d line items after two passes, want 1", len(lines))
	}
	if order.ItemCount != 2 || !order.TotalValue.Equal(decimal.RequireFromString("3.00")) {
		t.Fatalf("totals = %d/%s, want 2/3.00", order.ItemCount, order.TotalValue)
	}
	if len(h.repo.vendors) != 1 {
		t.Fatalf("got %d vendor selections, want 1", len(h.repo.vendors))
	}
}

func TestReconcileUserModifiedFreeze(t *testing.T) {
	h := newHarness(t)
	vendor := h.addVendor(enums.WeekdayThursday)

	cfg := foodConfig(vendor.ID, "Thursday", item("Bread", 3, "2.00"))
	if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg); err != nil {
		t.Fatalf("initial Reconcile: %v", err)
	}
	order := h.repo.singleOrder(t)
	order.UserModified = true

	update := foodConfig(vendor.ID, "Thursday", item("Bread", 1, "2.00"), item("Milk", 2, "1.50"))
	if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, update); err != nil {
		t.Fatalf("additive Reconcile: %v", err)
	}

	lines := h.repo.lineItemsFor(order.ID)
	if len(lines) != 2 {
		t.Fatalf("got %d line items, want Bread kept plus Milk appended", len(lines))
	}
	for _, line := range lines {
		if line.Name == "Bread" && line.Quantity != 3 {
			t.Fatalf("Bread quantity = %d, want preserved 3", line.Quantity)
		}
		if line.Name == "Milk" && line.Quantity != 2 {
			t.Fatalf("Milk quantity = %d, want appended 2", line.Quantity)
		}
	}

	stored := h.repo.orders[order.ID]
	if stored.ItemCount != 5 || !stored.TotalValue.Equal(decimal.RequireFromString("9.00")) {
		t.Fatalf("totals = %d/%s, want 5/9.00 (3 Bread + 2 Milk)", stored.ItemCount, stored.TotalValue)
	}
}

func TestReconcileUserModifiedRemovesDroppedItems(t *testing.T) {
	h := newHarness(t)
	vendor := h.addVendor(enums.WeekdayThursday)

	cfg := foodConfig(vendor.ID, "Thursday", item("Bread", 3, "2.00"), item("Milk", 2, "1.50"))
	if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg); err != nil {
		t.Fatalf("initial Reconcile: %v", err)
	}
	order := h.repo.singleOrder(t)
	order.UserModified = true

	update := foodConfig(vendor.ID, "Thursday", item("Bread", 1, "2.00"))
	if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, update); err != nil {
		t.Fatalf("additive Reconcile: %v", err)
	}

	lines := h.repo.lineItemsFor(order.ID)
	if len(lines) != 1 || lines[0].Name != "Bread" || lines[0].Quantity != 3 {
		t.Fatalf("lines = %+v, want only Bread qty 3", lines)
	}
}

func TestReconcilePlaceholderForNewClient(t *testing.T) {
	h := newHarness(t)

	cfg := Config{Kind: enums.ServiceKindFood, Actor: "tester"}
	if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	order := h.repo.singleOrder(t)
	if order.Status != enums.OrderStatusScheduled {
		t.Fatalf("status = %s, want scheduled", order.Status)
	}
	if order.TakeEffectDate != nil || order.DeliveryDate != nil {
		t.Fatal("placeholder order must have null dates")
	}
	if order.ItemCount != 0 || !order.TotalValue.IsZero() {
		t.Fatalf("placeholder totals = %d/%s, want zero", order.ItemCount, order.TotalValue)
	}
}

func TestReconcileEmptyRejectedForEstablishedClient(t *testing.T) {
	h := newHarness(t)
	h.catalog.hasCatalog = true

	cfg := Config{Kind: enums.ServiceKindFood}
	err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestReconcileRejectsVendorWithoutDeliveryDays(t *testing.T) {
	h := newHarness(t)
	vendor := h.addVendor()

	cfg := foodConfig(vendor.ID, "Thursday", item("Milk", 1, "1.50"))
	err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg)
	if err == nil {
		t.Fatal("expected error for vendor without delivery days")
	}
}

func TestReconcileRejectsVendorNotDeliveringOnWeekday(t *testing.T) {
	h := newHarness(t)
	vendor := h.addVendor(enums.WeekdayMonday)

	cfg := foodConfig(vendor.ID, "Thursday", item("Milk", 1, "1.50"))
	err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg)
	if err == nil {
		t.Fatal("expected error for vendor not delivering on Thursday")
	}
}

func TestReconcileCompositeWeekdayKey(t *testing.T) {
	h := newHarness(t)
	vendor := h.addVendor(enums.WeekdayThursday)

	cfg := foodConfig(vendor.ID, "Thursday_Food", item("Milk", 1, "1.50"))
	if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	order := h.repo.singleOrder(t)
	if order.DeliveryWeekday == nil || *order.DeliveryWeekday != enums.WeekdayThursday {
		t.Fatalf("weekday = %v, want Thursday from composite key", order.DeliveryWeekday)
	}
}

func TestReconcileMenuItemResolution(t *testing.T) {
	h := newHarness(t)
	vendor := h.addVendor(enums.WeekdayThursday)
	menuID := uuid.New()
	h.repo.menu[menuID] = models.MenuItem{
		ID:    menuID,
		Name:  "Oat Milk",
		Price: decimal.RequireFromString("2.25"),
	}

	cfg := foodConfig(vendor.ID, "Thursday", ItemSelection{ItemID: &menuID, Quantity: 2})
	if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	order := h.repo.singleOrder(t)
	lines := h.repo.lineItemsFor(order.ID)
	if len(lines) != 1 || lines[0].Name != "Oat Milk" {
		t.Fatalf("lines = %+v, want directory-resolved Oat Milk", lines)
	}
	if !order.TotalValue.Equal(decimal.RequireFromString("4.50")) {
		t.Fatalf("total = %s, want 4.50 from directory price", order.TotalValue)
	}
}

func TestReconcileBoxesTolerateNullDates(t *testing.T) {
	h := newHarness(t)
	vendor := h.addVendor(enums.WeekdayThursday)

	cfg := Config{
		Kind:  enums.ServiceKindBoxes,
		Actor: "tester",
		Boxes: &BoxesConfig{Selections: []BoxSelection{{VendorID: vendor.ID, Quantity: 2}}},
	}
	if err := h.svc.Reconcile(context.Background(), h.clients.client.ID, cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	order := h.repo.singleOrder(t)
	if order.ServiceKind != enums.ServiceKindBoxes {
		t.Fatalf("kind = %s, want boxes", order.ServiceKind)
	}
	if order.DeliveryDate != nil {
		t.Fatal("box order must persist without a delivery date")
	}
	if len(h.repo.boxes) != 1 {
		t.Fatalf("got %d box rows, want 1", len(h.repo.boxes))
	}
}

func TestReconcileUnknownClient(t *testing.T) {
	h := newHarness(t)
	err := h.svc.Reconcile(context.Background(), uuid.New(), Config{Kind: enums.ServiceKindFood})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("err = %v, want not-found error", err)
	}
}
