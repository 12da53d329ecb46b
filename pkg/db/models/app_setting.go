package models

import "time"

// AppSetting is a key/value row for operator-tunable settings such as the
// weekly order cutoff.
type AppSetting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
