package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mealrounds/mealrounds-backend/pkg/types"
)

// OrderBox is a box selection attached to an order. The per-item breakdown is
// stored as a JSON document rather than as child rows.
type OrderBox struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID  uuid.UUID        `gorm:"column:vendor_id;type:uuid;not null"`
	BoxTypeID *uuid.UUID       `gorm:"column:box_type_id;type:uuid"`
	Quantity  int              `gorm:"column:quantity;not null"`
	Items     types.BoxItemMap `gorm:"column:items;type:jsonb;serializer:json"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
