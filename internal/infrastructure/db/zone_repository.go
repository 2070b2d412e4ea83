package db

import (
	"context"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type zoneRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewZoneRepository(db *gorm.DB, log *logger.Logger) ports.ZoneRepository {
	return &zoneRepository{db: db, log: log}
}

func (r *zoneRepository) Create(ctx context.Context, zone *domain.Zone) error {
	if err := r.db.WithContext(ctx).Create(zone).Error; err != nil {
		r.log.Errorw("zone_repo_create_failed", "name", zone.Name, "error", err)
		return err
	}
	r.log.Infow("zone_repo_create_ok", "id", zone.ID, "name", zone.Name)
	return nil
}

func (r *zoneRepository) GetByName(ctx context.Context, name string) (*domain.Zone, error) {
	var zone domain.Zone
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&zone).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *zoneRepository) GetAll(ctx context.Context) ([]domain.Zone, error) {
	var zones []domain.Zone
	if err := r.db.WithContext(ctx).Order("name asc").Find(&zones).Error; err != nil {
		r.log.Errorw("zone_repo_list_failed", "error", err)
		return nil, err
	}
	return zones, nil
}

func (r *zoneRepository) Update(ctx context.Context, zone *domain.Zone) error {
	if err := r.db.WithContext(ctx).Save(zone).Error; err != nil {
		r.log.Errorw("zone_repo_update_failed", "id", zone.ID, "error", err)
		return err
	}
	return nil
}

func (r *zoneRepository) UpdateState(ctx context.Context, name string, state domain.ZoneState) error {
	if err := r.db.WithContext(ctx).
		Model(&domain.Zone{}).
		Where("name = ?", name).
		Update("state", state).Error; err != nil {
		r.log.Errorw("zone_repo_update_state_failed", "name", name, "state", state, "error", err)
		return err
	}
	r.log.Infow("zone_repo_update_state_ok", "name", name, "state", state)
	return nil
}

func (r *zoneRepository) Delete(ctx context.Context, name string) error {
	if err := r.db.WithContext(ctx).Where("name = ?", name).Delete(&domain.Zone{}).Error; err != nil {
		r.log.Errorw("zone_repo_delete_failed", "name", name, "error", err)
		return err
	}
	r.log.Infow("zone_repo_delete_ok", "name", name)
	return nil
}
