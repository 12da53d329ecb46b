package settings

import (
	"context"

	"github.com/mealrounds/mealrounds-backend/internal/schedule"
	"github.com/mealrounds/mealrounds-backend/pkg/config"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

// Service resolves operator-tunable settings, falling back to config defaults
// when no database row exists.
type Service struct {
	repo     Repository
	defaults config.DeliveryConfig
	log      *logger.Logger
}

// NewService builds a settings service.
func NewService(repo Repository, defaults config.DeliveryConfig, log *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings: repository is required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings: logger is required")
	}
	return &Service{repo: repo, defaults: defaults, log: log}, nil
}

// WeeklyCutoff returns the active weekly order cutoff. A malformed database
// override is logged and ignored in favor of the configured default.
func (s *Service) WeeklyCutoff(ctx context.Context) (schedule.WeeklyCutoff, error) {
	day := s.defaults.WeeklyCutoffDay
	clock := s.defaults.WeeklyCutoffTime

	if v, ok, err := s.repo.Get(ctx, KeyWeeklyCutoffDay); err != nil {
		return schedule.WeeklyCutoff{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading weekly cutoff day")
	} else if ok {
		day = v
	}
	if v, ok, err := s.repo.Get(ctx, KeyWeeklyCutoffTime); err != nil {
		return schedule.WeeklyCutoff{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading weekly cutoff time")
	} else if ok {
		clock = v
	}

	cutoff, err := schedule.ParseWeeklyCutoff(day, clock)
	if err != nil {
		warnCtx := s.log.WithFields(ctx, map[string]any{"day": day, "time": clock})
		s.log.Warn(warnCtx, "invalid weekly cutoff override, using defaults")
		return schedule.ParseWeeklyCutoff(s.defaults.WeeklyCutoffDay, s.defaults.WeeklyCutoffTime)
	}
	return cutoff, nil
}

// SetWeeklyCutoff stores a new cutoff after validating it parses.
func (s *Service) SetWeeklyCutoff(ctx context.Context, day, clock string) error {
	if _, err := schedule.ParseWeeklyCutoff(day, clock); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid weekly cutoff")
	}
	if err := s.repo.Set(ctx, KeyWeeklyCutoffDay, day); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing weekly cutoff day")
	}
	if err := s.repo.Set(ctx, KeyWeeklyCutoffTime, clock); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing weekly cutoff time")
	}
	return nil
}
