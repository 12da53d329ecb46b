package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderVendor is a vendor selection attached to an order. Orders in both
// partitions own their children through the order id; at most one row exists
// per (order, vendor).
type OrderVendor struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID  uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null"`
	Items     []OrderLineItem `gorm:"foreignKey:OrderVendorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
