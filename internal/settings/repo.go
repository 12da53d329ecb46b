package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mealrounds/mealrounds-backend/internal/repo"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
)

// Setting keys understood by the scheduling services.
const (
	KeyWeeklyCutoffDay  = "weekly_cutoff_day"
	KeyWeeklyCutoffTime = "weekly_cutoff_time"
)

// Repository exposes the app_settings key/value store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds a settings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.AppSetting
	err := r.base.DB(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (r *repository) Set(ctx context.Context, key, value string) error {
	row := models.AppSetting{Key: key, Value: value}
	return r.base.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}
