package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem is one item line under a vendor selection. Either ItemID
// references the menu directory or Name/Price carry a free-text line; a row
// never persists with quantity zero.
type OrderLineItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderVendorID uuid.UUID       `gorm:"column:order_vendor_id;type:uuid;not null;index"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ItemID        *uuid.UUID      `gorm:"column:item_id;type:uuid"`
	Name          string          `gorm:"column:name;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	Quantity      int             `gorm:"column:quantity;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotal returns quantity × price for the line.
func (i OrderLineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
