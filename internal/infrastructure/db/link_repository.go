package db

import (
	"context"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type linkRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLinkRepository(db *gorm.DB, log *logger.Logger) ports.LinkRepository {
	return &linkRepository{db: db, log: log}
}

func (r *linkRepository) Create(ctx context.Context, link *domain.NetworkLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		r.log.Errorw("link_repo_create_failed", "name", link.Name, "error", err)
		return err
	}
	r.log.Infow("link_repo_create_ok", "id", link.ID, "name", link.Name, "kind", link.Kind)
	return nil
}

func (r *linkRepository) GetByName(ctx context.Context, name string) (*domain.NetworkLink, error) {
	var link domain.NetworkLink
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetAll(ctx context.Context) ([]domain.NetworkLink, error) {
	var links []domain.NetworkLink
	if err := r.db.WithContext(ctx).Order("name asc").Find(&links).Error; err != nil {
		r.log.Errorw("link_repo_list_failed", "error", err)
		return nil, err
	}
	return links, nil
}

func (r *linkRepository) Update(ctx context.Context, link *domain.NetworkLink) error {
	if err := r.db.WithContext(ctx).Save(link).Error; err != nil {
		r.log.Errorw("link_repo_update_failed", "id", link.ID, "error", err)
		return err
	}
	return nil
}

func (r *linkRepository) Delete(ctx context.Context, name string) error {
	if err := r.db.WithContext(ctx).Where("name = ?", name).Delete(&domain.NetworkLink{}).Error; err != nil {
		r.log.Errorw("link_repo_delete_failed", "name", name, "error", err)
		return err
	}
	r.log.Infow("link_repo_delete_ok", "name", name)
	return nil
}
