package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mealrounds/mealrounds-backend/pkg/types"
)

// FoodVendorSnapshot is the denormalized copy of a client's food vendor
// selection kept on the client row for fast reads.
type FoodVendorSnapshot struct {
	VendorID uuid.UUID      `json:"vendor_id"`
	Weekday  string         `json:"weekday,omitempty"`
	Items    map[string]int `json:"items,omitempty"`
}

// BoxVendorSnapshot mirrors a client's box selection on the client row.
type BoxVendorSnapshot struct {
	VendorID  uuid.UUID        `json:"vendor_id"`
	BoxTypeID *uuid.UUID       `json:"box_type_id,omitempty"`
	Quantity  int              `json:"quantity"`
	Items     types.BoxItemMap `json:"items,omitempty"`
}

// Client is a delivery recipient. The vendor snapshot columns hold the last
// reconciled configuration and are maintained by the reconciler.
type Client struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string               `gorm:"column:name;not null"`
	CaseID      *string              `gorm:"column:case_id"`
	Active      bool                 `gorm:"column:active;not null;default:true"`
	FoodVendors []FoodVendorSnapshot `gorm:"column:food_vendors;type:jsonb;serializer:json"`
	BoxVendors  []BoxVendorSnapshot  `gorm:"column:box_vendors;type:jsonb;serializer:json"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
