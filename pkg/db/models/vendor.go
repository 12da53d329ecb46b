package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mealrounds/mealrounds-backend/pkg/enums"
)

// Vendor is a supplier with fixed weekly delivery days and an order cutoff
// window expressed in hours before delivery.
type Vendor struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string            `gorm:"column:name;not null"`
	Kind         enums.ServiceKind `gorm:"column:kind;type:text;not null;default:'food'"`
	DeliveryDays []enums.Weekday   `gorm:"column:delivery_days;type:jsonb;serializer:json"`
	CutoffHours  int               `gorm:"column:cutoff_hours;not null;default:0"`
	IsDefault    bool              `gorm:"column:is_default;not null;default:false"`
	Active       bool              `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// DeliversOn reports whether the vendor delivers on the given weekday.
func (v Vendor) DeliversOn(day enums.Weekday) bool {
	for _, candidate := range v.DeliveryDays {
		if candidate == day {
			return true
		}
	}
	return false
}
