package db

import (
	"context"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type artifactRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepository(db *gorm.DB, log *logger.Logger) ports.ArtifactRepository {
	return &artifactRepository{db: db, log: log}
}

func (r *artifactRepository) Create(ctx context.Context, artifact *domain.Artifact) error {
	if err := r.db.WithContext(ctx).Create(artifact).Error; err != nil {
		r.log.Errorw("artifact_repo_create_failed", "filename", artifact.Filename, "error", err)
		return err
	}
	r.log.Infow("artifact_repo_create_ok", "id", artifact.ID, "filename", artifact.Filename, "dataset", artifact.Dataset)
	return nil
}

func (r *artifactRepository) GetByID(ctx context.Context, id uint) (*domain.Artifact, error) {
	var artifact domain.Artifact
	if err := r.db.WithContext(ctx).First(&artifact, id).Error; err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (r *artifactRepository) GetByPath(ctx context.Context, dataset, filename string) (*domain.Artifact, error) {
	var artifact domain.Artifact
	err := r.db.WithContext(ctx).
		Where("dataset = ? AND filename = ?", dataset, filename).
		First(&artifact).Error
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (r *artifactRepository) GetAll(ctx context.Context) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact
	if err := r.db.WithContext(ctx).Order("dataset asc, filename asc").Find(&artifacts).Error; err != nil {
		r.log.Errorw("artifact_repo_list_failed", "error", err)
		return nil, err
	}
	return artifacts, nil
}

func (r *artifactRepository) GetByDataset(ctx context.Context, dataset string) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact
	err := r.db.WithContext(ctx).
		Where("dataset = ?", dataset).
		Order("filename asc").
		Find(&artifacts).Error
	if err != nil {
		r.log.Errorw("artifact_repo_list_by_dataset_failed", "dataset", dataset, "error", err)
		return nil, err
	}
	return artifacts, nil
}

func (r *artifactRepository) Update(ctx context.Context, artifact *domain.Artifact) error {
	if err := r.db.WithContext(ctx).Save(artifact).Error; err != nil {
		r.log.Errorw("artifact_repo_update_failed", "id", artifact.ID, "error", err)
		return err
	}
	return nil
}

func (r *artifactRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Artifact{}, id).Error; err != nil {
		r.log.Errorw("artifact_repo_delete_failed", "id", id, "error", err)
		return err
	}
	r.log.Infow("artifact_repo_delete_ok", "id", id)
	return nil
}

// Move relocates the artifact row and adjusts both dataset accounting rows in
// one transaction. The physical file move happens before this is called and
// is not rolled back if the transaction fails; that gap is accepted and the
// caller reports it.
func (r *artifactRepository) Move(ctx context.Context, id uint, destDataset string, sizeBytes int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var artifact domain.Artifact
		if err := tx.First(&artifact, id).Error; err != nil {
			return err
		}
		source := artifact.Dataset

		if err := tx.Model(&artifact).Update("dataset", destDataset).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Dataset{}).
			Where("path = ?", source).
			UpdateColumn("used_bytes", gorm.Expr("used_bytes - ?", sizeBytes)).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Dataset{}).
			Where("path = ?", destDataset).
			UpdateColumn("used_bytes", gorm.Expr("used_bytes + ?", sizeBytes)).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		r.log.Errorw("artifact_repo_move_failed", "id", id, "dest", destDataset, "error", err)
		return err
	}
	r.log.Infow("artifact_repo_move_ok", "id", id, "dest", destDataset)
	return nil
}
