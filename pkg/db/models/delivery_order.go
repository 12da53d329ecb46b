package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealrounds/mealrounds-backend/pkg/enums"
)

// DeliveryOrder is a realized order. Rows land here when the promoter
// materializes a due scheduled order; they share one order-number space with
// scheduled_orders and are immutable to the reconciler.
type DeliveryOrder struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     int64             `gorm:"column:order_number;not null;uniqueIndex"`
	ClientID        uuid.UUID         `gorm:"column:client_id;type:uuid;not null"`
	ServiceKind     enums.ServiceKind `gorm:"column:service_kind;type:text;not null"`
	CaseID          *string           `gorm:"column:case_id"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	DeliveryDate    *time.Time        `gorm:"column:delivery_date;type:date"`
	DeliveryWeekday *enums.Weekday    `gorm:"column:delivery_weekday;type:text"`
	ItemCount       int               `gorm:"column:item_count;not null;default:0"`
	TotalValue      decimal.Decimal   `gorm:"column:total_value;type:numeric(12,2);not null;default:0"`
	VendorID        *uuid.UUID        `gorm:"column:vendor_id;type:uuid"`
	UpdatedBy       string            `gorm:"column:updated_by;not null;default:''"`
	Vendors         []OrderVendor     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Boxes           []OrderBox        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
