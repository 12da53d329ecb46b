package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
)

// Service resolves effective catalogs: the admin default template merged with
// per-client overrides.
type Service interface {
	Effective(ctx context.Context, date time.Time, clientID uuid.UUID) ([]EffectiveItem, error)
	EffectiveBatch(ctx context.Context, date time.Time, clientIDs []uuid.UUID) (map[uuid.UUID][]EffectiveItem, error)
	ReplaceDay(ctx context.Context, date time.Time, clientID *uuid.UUID, entries []models.CatalogEntry) error
}

type service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Effective(ctx context.Context, date time.Time, clientID uuid.UUID) ([]EffectiveItem, error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	defaults, err := s.repo.FindDefaultEntries(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default catalog")
	}
	overrides, err := s.repo.FindClientEntries(ctx, date, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client catalog")
	}
	return MergeEffective(defaults, overrides), nil
}

// EffectiveBatch resolves many clients with exactly two reads: one for the
// default scope and one covering every requested client. The per-client merge
// happens in memory, keeping cost sub-linear in client count.
func (s *service) EffectiveBatch(ctx context.Context, date time.Time, clientIDs []uuid.UUID) (map[uuid.UUID][]EffectiveItem, error) {
	result := make(map[uuid.UUID][]EffectiveItem, len(clientIDs))
	if len(clientIDs) == 0 {
		return result, nil
	}

	defaults, err := s.repo.FindDefaultEntries(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default catalog")
	}
	scoped, err := s.repo.FindEntriesForClients(ctx, date, clientIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client catalogs")
	}

	byClient := make(map[uuid.UUID][]models.CatalogEntry, len(clientIDs))
	for _, entry := range scoped {
		if entry.ClientID == nil {
			continue
		}
		byClient[*entry.ClientID] = append(byClient[*entry.ClientID], entry)
	}

	for _, clientID := range clientIDs {
		result[clientID] = MergeEffective(defaults, byClient[clientID])
	}
	return result, nil
}

func (s *service) ReplaceDay(ctx context.Context, date time.Time, clientID *uuid.UUID, entries []models.CatalogEntry) error {
	if err := s.repo.ReplaceDayEntries(ctx, date, clientID, entries); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace catalog day")
	}
	return nil
}
