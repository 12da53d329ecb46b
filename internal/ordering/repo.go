package ordering

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealrounds/mealrounds-backend/internal/repo"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
	"github.com/mealrounds/mealrounds-backend/pkg/enums"
)

// Repository is the materialized-order store across both partitions. It also
// satisfies sequence.NumberStore so the allocator can read the shared
// order-number space.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	MaxScheduledOrderNumber(ctx context.Context) (int64, error)
	MaxDeliveryOrderNumber(ctx context.Context) (int64, error)
	ScheduledOrderNumberExists(ctx context.Context, number int64) (bool, error)
	DeliveryOrderNumberExists(ctx context.Context, number int64) (bool, error)

	FindScheduledOrder(ctx context.Context, clientID uuid.UUID, kind enums.ServiceKind, weekday *enums.Weekday) (*models.ScheduledOrder, error)
	HasScheduledOrders(ctx context.Context, clientID uuid.UUID) (bool, error)
	CreateScheduledOrder(ctx context.Context, order *models.ScheduledOrder) error
	SaveScheduledOrder(ctx context.Context, order *models.ScheduledOrder) error

	FindOrderVendors(ctx context.Context, orderID uuid.UUID) ([]models.OrderVendor, error)
	FindOrderBoxes(ctx context.Context, orderID uuid.UUID) ([]models.OrderBox, error)
	CreateOrderVendor(ctx context.Context, vendor *models.OrderVendor) error
	DeleteOrderVendors(ctx context.Context, ids []uuid.UUID) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	DeleteLineItems(ctx context.Context, ids []uuid.UUID) error
	CreateOrderBoxes(ctx context.Context, boxes []models.OrderBox) error
	DeleteOrderBoxes(ctx context.Context, ids []uuid.UUID) error
	DeleteOrderSubtree(ctx context.Context, orderID uuid.UUID) error

	FindMenuItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error)

	FindDueScheduledOrders(ctx context.Context, today time.Time) ([]models.ScheduledOrder, error)
	MarkScheduledProcessed(ctx context.Context, orderID, promotedID uuid.UUID) error
	CreateDeliveryOrder(ctx context.Context, order *models.DeliveryOrder) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) MaxScheduledOrderNumber(ctx context.Context) (int64, error) {
	return r.maxNumber(ctx, "scheduled_orders")
}

func (r *repository) MaxDeliveryOrderNumber(ctx context.Context) (int64, error) {
	return r.maxNumber(ctx, "delivery_orders")
}

func (r *repository) maxNumber(ctx context.Context, table string) (int64, error) {
	var max *int64
	err := r.base.DB(ctx).
		Table(table).
		Select("MAX(order_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *repository) ScheduledOrderNumberExists(ctx context.Context, number int64) (bool, error) {
	return r.numberExists(ctx, "scheduled_orders", number)
}

func (r *repository) DeliveryOrderNumberExists(ctx context.Context, number int64) (bool, error) {
	return r.numberExists(ctx, "delivery_orders", number)
}

func (r *repository) numberExists(ctx context.Context, table string, number int64) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Table(table).
		Where("order_number = ?", number).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindScheduledOrder(ctx context.Context, clientID uuid.UUID, kind enums.ServiceKind, weekday *enums.Weekday) (*models.ScheduledOrder, error) {
	query := r.base.DB(ctx).
		Where("client_id = ? AND service_kind = ? AND status = ?", clientID, kind, enums.OrderStatusScheduled)
	if weekday == nil {
		query = query.Where("delivery_weekday IS NULL")
	} else {
		query = query.Where("delivery_weekday = ?", *weekday)
	}

	var order models.ScheduledOrder
	err := query.First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) HasScheduledOrders(ctx context.Context, clientID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.ScheduledOrder{}).
		Where("client_id = ?", clientID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreateScheduledOrder(ctx context.Context, order *models.ScheduledOrder) error {
	return r.base.DB(ctx).Omit("Vendors", "Boxes").Create(order).Error
}

func (r *repository) SaveScheduledOrder(ctx context.Context, order *models.ScheduledOrder) error {
	return r.base.DB(ctx).Omit("Vendors", "Boxes").Save(order).Error
}

func (r *repository) FindOrderVendors(ctx context.Context, orderID uuid.UUID) ([]models.OrderVendor, error) {
	var vendors []models.OrderVendor
	err := r.base.DB(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Find(&vendors).Error
	if err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *repository) FindOrderBoxes(ctx context.Context, orderID uuid.UUID) ([]models.OrderBox, error) {
	var boxes []models.OrderBox
	err := r.base.DB(ctx).
		Where("order_id = ?", orderID).
		Find(&boxes).Error
	if err != nil {
		return nil, err
	}
	return boxes, nil
}

func (r *repository) CreateOrderVendor(ctx context.Context, vendor *models.OrderVendor) error {
	return r.base.DB(ctx).Omit("Items").Create(vendor).Error
}

func (r *repository) DeleteOrderVendors(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	tx := r.base.DB(ctx)
	if err := tx.Where("order_vendor_id IN ?", ids).Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.OrderVendor{}).Error
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.base.DB(ctx).Create(&items).Error
}

func (r *repository) DeleteLineItems(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.base.DB(ctx).
		Where("id IN ?", ids).
		Delete(&models.OrderLineItem{}).Error
}

func (r *repository) CreateOrderBoxes(ctx context.Context, boxes []models.OrderBox) error {
	if len(boxes) == 0 {
		return nil
	}
	return r.base.DB(ctx).Create(&boxes).Error
}

func (r *repository) DeleteOrderBoxes(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.base.DB(ctx).
		Where("id IN ?", ids).
		Delete(&models.OrderBox{}).Error
}

// DeleteOrderSubtree removes every child row owned by the order: line items,
// vendor selections and box selections, in dependency order.
func (r *repository) DeleteOrderSubtree(ctx context.Context, orderID uuid.UUID) error {
	tx := r.base.DB(ctx)
	if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderVendor{}).Error; err != nil {
		return err
	}
	return tx.Where("order_id = ?", orderID).Delete(&models.OrderBox{}).Error
}

func (r *repository) FindMenuItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error) {
	result := make(map[uuid.UUID]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var items []models.MenuItem
	err := r.base.DB(ctx).
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		result[item.ID] = item
	}
	return result, nil
}

func (r *repository) FindDueScheduledOrders(ctx context.Context, today time.Time) ([]models.ScheduledOrder, error) {
	var orders []models.ScheduledOrder
	err := r.base.DB(ctx).
		Preload("Vendors.Items").
		Preload("Vendors").
		Preload("Boxes").
		Where("status = ? AND take_effect_date IS NOT NULL AND take_effect_date <= ?", enums.OrderStatusScheduled, today).
		Order("take_effect_date ASC, order_number ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) MarkScheduledProcessed(ctx context.Context, orderID, promotedID uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.ScheduledOrder{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":            enums.OrderStatusProcessed,
			"promoted_order_id": promotedID,
		}).Error
}

func (r *repository) CreateDeliveryOrder(ctx context.Context, order *models.DeliveryOrder) error {
	return r.base.DB(ctx).Omit("Vendors", "Boxes").Create(order).Error
}
