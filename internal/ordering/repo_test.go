package ordering

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
	"github.com/mealrounds/mealrounds-backend/pkg/enums"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	scheduledOrders := `
CREATE TABLE IF NOT EXISTS scheduled_orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL UNIQUE,
  client_id TEXT NOT NULL,
  service_kind TEXT NOT NULL,
  case_id TEXT,
  status TEXT NOT NULL DEFAULT 'scheduled',
  delivery_date DATE,
  take_effect_date DATE,
  delivery_weekday TEXT,
  item_count INTEGER NOT NULL DEFAULT 0,
  total_value NUMERIC NOT NULL DEFAULT 0,
  vendor_id TEXT,
  user_modified INTEGER NOT NULL DEFAULT 0,
  promoted_order_id TEXT,
  updated_by TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`
	deliveryOrders := `
CREATE TABLE IF NOT EXISTS delivery_orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL UNIQUE,
  client_id TEXT NOT NULL,
  service_kind TEXT NOT NULL,
  case_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  delivery_date DATE,
  delivery_weekday TEXT,
  item_count INTEGER NOT NULL DEFAULT 0,
  total_value NUMERIC NOT NULL DEFAULT 0,
  vendor_id TEXT,
  updated_by TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`
	orderVendors := `
CREATE TABLE IF NOT EXISTS order_vendors (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderLineItems := `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_vendor_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  item_id TEXT,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL DEFAULT 0,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderBoxes := `
CREATE TABLE IF NOT EXISTS order_boxes (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  box_type_id TEXT,
  quantity INTEGER NOT NULL,
  items TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	menuItems := `
CREATE TABLE IF NOT EXISTS menu_items (
  id TEXT PRIMARY KEY,
  vendor_id TEXT,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	for _, schema := range []string{scheduledOrders, deliveryOrders, orderVendors, orderLineItems, orderBoxes, menuItems} {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

func insertScheduled(t *testing.T, repo Repository, clientID uuid.UUID, number int64, kind enums.ServiceKind, weekday *enums.Weekday, takeEffect *time.Time) *models.ScheduledOrder {
	t.Helper()

	order := &models.ScheduledOrder{
		ID:              uuid.New(),
		OrderNumber:     number,
		ClientID:        clientID,
		ServiceKind:     kind,
		Status:          enums.OrderStatusScheduled,
		DeliveryWeekday: weekday,
		TakeEffectDate:  takeEffect,
		TotalValue:      decimal.Zero,
	}
	require.NoError(t, repo.CreateScheduledOrder(context.Background(), order))
	return order
}

func TestMaxOrderNumberSpansEmptyPartition(t *testing.T) {
	repo := NewRepository(setupOrderTestDB(t))
	ctx := context.Background()

	max, err := repo.MaxScheduledOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	weekday := enums.WeekdayThursday
	insertScheduled(t, repo, uuid.New(), 100004, enums.ServiceKindFood, &weekday, nil)
	insertScheduled(t, repo, uuid.New(), 100001, enums.ServiceKindBoxes, nil, nil)

	max, err = repo.MaxScheduledOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100004), max)

	max, err = repo.MaxDeliveryOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)
}

func TestOrderNumberExistsChecksOnePartition(t *testing.T) {
	repo := NewRepository(setupOrderTestDB(t))
	ctx := context.Background()

	weekday := enums.WeekdayMonday
	insertScheduled(t, repo, uuid.New(), 100007, enums.ServiceKindFood, &weekday, nil)

	exists, err := repo.ScheduledOrderNumberExists(ctx, 100007)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.DeliveryOrderNumberExists(ctx, 100007)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFindScheduledOrderMatchesWeekdayPartition(t *testing.T) {
	repo := NewRepository(setupOrderTestDB(t))
	ctx := context.Background()
	clientID := uuid.New()

	thursday := enums.WeekdayThursday
	monday := enums.WeekdayMonday
	insertScheduled(t, repo, clientID, 100010, enums.ServiceKindFood, &thursday, nil)
	insertScheduled(t, repo, clientID, 100011, enums.ServiceKindFood, &monday, nil)
	insertScheduled(t, repo, clientID, 100012, enums.ServiceKindBoxes, nil, nil)

	found, err := repo.FindScheduledOrder(ctx, clientID, enums.ServiceKindFood, &thursday)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(100010), found.OrderNumber)

	found, err = repo.FindScheduledOrder(ctx, clientID, enums.ServiceKindBoxes, nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(100012), found.OrderNumber)

	friday := enums.WeekdayFriday
	found, err = repo.FindScheduledOrder(ctx, clientID, enums.ServiceKindFood, &friday)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDeleteOrderSubtreeRemovesChildren(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	weekday := enums.WeekdayThursday
	order := insertScheduled(t, repo, uuid.New(), 100020, enums.ServiceKindFood, &weekday, nil)

	vendor := &models.OrderVendor{ID: uuid.New(), OrderID: order.ID, VendorID: uuid.New()}
	require.NoError(t, repo.CreateOrderVendor(ctx, vendor))
	require.NoError(t, repo.CreateLineItems(ctx, []models.OrderLineItem{
		{ID: uuid.New(), OrderVendorID: vendor.ID, OrderID: order.ID, Name: "Bread", Price: decimal.NewFromInt(2), Quantity: 3},
	}))
	require.NoError(t, repo.CreateOrderBoxes(ctx, []models.OrderBox{
		{ID: uuid.New(), OrderID: order.ID, VendorID: uuid.New(), Quantity: 1},
	}))

	require.NoError(t, repo.DeleteOrderSubtree(ctx, order.ID))

	vendors, err := repo.FindOrderVendors(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, vendors)

	boxes, err := repo.FindOrderBoxes(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, boxes)

	var lineCount int64
	require.NoError(t, db.Model(&models.OrderLineItem{}).Where("order_id = ?", order.ID).Count(&lineCount).Error)
	assert.Equal(t, int64(0), lineCount)
}

func TestFindDueScheduledOrdersFiltersAndSorts(t *testing.T) {
	repo := NewRepository(setupOrderTestDB(t))
	ctx := context.Background()
	today := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	weekday := enums.WeekdayThursday
	past := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	future := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)

	insertScheduled(t, repo, uuid.New(), 100031, enums.ServiceKindFood, &weekday, &due)
	insertScheduled(t, repo, uuid.New(), 100030, enums.ServiceKindFood, &weekday, &past)
	insertScheduled(t, repo, uuid.New(), 100032, enums.ServiceKindFood, &weekday, &future)
	insertScheduled(t, repo, uuid.New(), 100033, enums.ServiceKindBoxes, nil, nil)

	orders, err := repo.FindDueScheduledOrders(ctx, today)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(100030), orders[0].OrderNumber)
	assert.Equal(t, int64(100031), orders[1].OrderNumber)
}

func TestMarkScheduledProcessedLinksPromotedOrder(t *testing.T) {
	repo := NewRepository(setupOrderTestDB(t))
	ctx := context.Background()

	weekday := enums.WeekdayThursday
	order := insertScheduled(t, repo, uuid.New(), 100040, enums.ServiceKindFood, &weekday, nil)
	promotedID := uuid.New()

	require.NoError(t, repo.MarkScheduledProcessed(ctx, order.ID, promotedID))

	found, err := repo.FindScheduledOrder(ctx, order.ClientID, enums.ServiceKindFood, &weekday)
	require.NoError(t, err)
	assert.Nil(t, found)

	var row models.ScheduledOrder
	require.NoError(t, repoDB(repo).Where("id = ?", order.ID).First(&row).Error)
	assert.Equal(t, enums.OrderStatusProcessed, row.Status)
	require.NotNil(t, row.PromotedOrderID)
	assert.Equal(t, promotedID, *row.PromotedOrderID)
}

func repoDB(r Repository) *gorm.DB {
	return r.(*repository).base.DB(context.Background())
}
