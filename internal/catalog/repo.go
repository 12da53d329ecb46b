package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealrounds/mealrounds-backend/internal/repo"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
)

// Repository exposes catalog reads and admin writes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDefaultEntries(ctx context.Context, date time.Time) ([]models.CatalogEntry, error)
	FindClientEntries(ctx context.Context, date time.Time, clientID uuid.UUID) ([]models.CatalogEntry, error)
	FindEntriesForClients(ctx context.Context, date time.Time, clientIDs []uuid.UUID) ([]models.CatalogEntry, error)
	HasAnyForClient(ctx context.Context, clientID uuid.UUID) (bool, error)
	ReplaceDayEntries(ctx context.Context, date time.Time, clientID *uuid.UUID, entries []models.CatalogEntry) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) FindDefaultEntries(ctx context.Context, date time.Time) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	err := r.base.DB(ctx).
		Where("entry_date = ? AND client_id IS NULL", date).
		Order("sort_order ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindClientEntries(ctx context.Context, date time.Time, clientID uuid.UUID) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	err := r.base.DB(ctx).
		Where("entry_date = ? AND client_id = ?", date, clientID).
		Order("sort_order ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindEntriesForClients(ctx context.Context, date time.Time, clientIDs []uuid.UUID) ([]models.CatalogEntry, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}
	var entries []models.CatalogEntry
	err := r.base.DB(ctx).
		Where("entry_date = ? AND client_id IN ?", date, clientIDs).
		Order("sort_order ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) HasAnyForClient(ctx context.Context, clientID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.CatalogEntry{}).
		Where("client_id = ?", clientID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ReplaceDayEntries(ctx context.Context, date time.Time, clientID *uuid.UUID, entries []models.CatalogEntry) error {
	scope := r.base.DB(ctx).Where("entry_date = ?", date)
	if clientID == nil {
		scope = scope.Where("client_id IS NULL")
	} else {
		scope = scope.Where("client_id = ?", *clientID)
	}
	if err := scope.Delete(&models.CatalogEntry{}).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entries[i].EntryDate = date
		entries[i].ClientID = clientID
		entries[i].Name = NormalizeName(entries[i].Name)
	}
	return r.base.DB(ctx).Create(&entries).Error
}
