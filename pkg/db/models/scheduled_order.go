package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealrounds/mealrounds-backend/pkg/enums"
)

// ScheduledOrder is a not-yet-effective order in the future partition. Orders
// stay here until their take-effect date arrives and the promoter copies them
// into delivery_orders.
type ScheduledOrder struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     int64             `gorm:"column:order_number;not null;uniqueIndex"`
	ClientID        uuid.UUID         `gorm:"column:client_id;type:uuid;not null"`
	ServiceKind     enums.ServiceKind `gorm:"column:service_kind;type:text;not null"`
	CaseID          *string           `gorm:"column:case_id"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'scheduled'"`
	DeliveryDate    *time.Time        `gorm:"column:delivery_date;type:date"`
	TakeEffectDate  *time.Time        `gorm:"column:take_effect_date;type:date"`
	DeliveryWeekday *enums.Weekday    `gorm:"column:delivery_weekday;type:text"`
	ItemCount       int               `gorm:"column:item_count;not null;default:0"`
	TotalValue      decimal.Decimal   `gorm:"column:total_value;type:numeric(12,2);not null;default:0"`
	VendorID        *uuid.UUID        `gorm:"column:vendor_id;type:uuid"`
	UserModified    bool              `gorm:"column:user_modified;not null;default:false"`
	PromotedOrderID *uuid.UUID        `gorm:"column:promoted_order_id;type:uuid"`
	UpdatedBy       string            `gorm:"column:updated_by;not null;default:''"`
	Vendors         []OrderVendor     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Boxes           []OrderBox        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
