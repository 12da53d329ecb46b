package clients

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealrounds/mealrounds-backend/internal/repo"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
)

// Repository exposes client reads and snapshot maintenance.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	ListActive(ctx context.Context) ([]models.Client, error)
	UpdateVendorSnapshots(ctx context.Context, id uuid.UUID, food []models.FoodVendorSnapshot, boxes []models.BoxVendorSnapshot) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds a client repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.base.DB(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Client, error) {
	var list []models.Client
	err := r.base.DB(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) UpdateVendorSnapshots(ctx context.Context, id uuid.UUID, food []models.FoodVendorSnapshot, boxes []models.BoxVendorSnapshot) error {
	updates := map[string]any{}
	if food != nil {
		updates["food_vendors"] = food
	}
	if boxes != nil {
		updates["box_vendors"] = boxes
	}
	if len(updates) == 0 {
		return nil
	}
	return r.base.DB(ctx).
		Model(&models.Client{}).
		Where("id = ?", id).
		Updates(updates).Error
}
