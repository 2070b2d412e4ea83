package db

import (
	"context"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type datasetRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepository(db *gorm.DB, log *logger.Logger) ports.DatasetRepository {
	return &datasetRepository{db: db, log: log}
}

func (r *datasetRepository) Create(ctx context.Context, dataset *domain.Dataset) error {
	if err := r.db.WithContext(ctx).Create(dataset).Error; err != nil {
		r.log.Errorw("dataset_repo_create_failed", "path", dataset.Path, "error", err)
		return err
	}
	r.log.Infow("dataset_repo_create_ok", "id", dataset.ID, "path", dataset.Path)
	return nil
}

func (r *datasetRepository) GetByPath(ctx context.Context, path string) (*domain.Dataset, error) {
	var dataset domain.Dataset
	if err := r.db.WithContext(ctx).Where("path = ?", path).First(&dataset).Error; err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (r *datasetRepository) GetAll(ctx context.Context) ([]domain.Dataset, error) {
	var datasets []domain.Dataset
	if err := r.db.WithContext(ctx).Order("path asc").Find(&datasets).Error; err != nil {
		r.log.Errorw("dataset_repo_list_failed", "error", err)
		return nil, err
	}
	return datasets, nil
}

func (r *datasetRepository) GetByPurpose(ctx context.Context, purpose domain.DatasetPurpose) ([]domain.Dataset, error) {
	var datasets []domain.Dataset
	err := r.db.WithContext(ctx).
		Where("purpose = ?", purpose).
		Order("path asc").
		Find(&datasets).Error
	if err != nil {
		r.log.Errorw("dataset_repo_list_by_purpose_failed", "purpose", purpose, "error", err)
		return nil, err
	}
	return datasets, nil
}

func (r *datasetRepository) Update(ctx context.Context, dataset *domain.Dataset) error {
	if err := r.db.WithContext(ctx).Save(dataset).Error; err != nil {
		r.log.Errorw("dataset_repo_update_failed", "id", dataset.ID, "error", err)
		return err
	}
	return nil
}
