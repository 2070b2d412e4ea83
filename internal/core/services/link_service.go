package services

import (
	"context"
	"encoding/json"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

type LinkServiceConfig struct {
	Repository ports.LinkRepository
	Tasks      ports.TaskService
	Logger     *logger.Logger
}

type LinkService struct {
	repo  ports.LinkRepository
	tasks ports.TaskService
	log   *logger.Logger
}

func NewLinkService(cfg LinkServiceConfig) *LinkService {
	return &LinkService{repo: cfg.Repository, tasks: cfg.Tasks, log: cfg.Logger}
}

func (s *LinkService) GetLinks(ctx context.Context) ([]domain.NetworkLink, error) {
	return s.repo.GetAll(ctx)
}

func (s *LinkService) CreateLinkAsync(ctx context.Context, input ports.CreateLinkInput) (*domain.Task, error) {
	if input.Name == "" {
		return nil, ErrLinkInvalidInput
	}
	if _, err := s.repo.GetByName(ctx, input.Name); err == nil {
		return nil, ErrLinkInvalidInput
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"name": input.Name,
		"kind": string(input.Kind),
		"over": input.Over,
		"mac":  input.MAC,
		"vlan": input.VLAN,
	})
	return s.tasks.Submit(ctx, ports.SubmitTaskInput{
		Operation: domain.OpLinkCreate,
		Metadata:  domain.Payload(metadata),
		CreatedBy: input.CreatedBy,
	})
}

func (s *LinkService) DeleteLinkAsync(ctx context.Context, name, createdBy string) (*domain.Task, error) {
	link, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, ErrLinkNotFound
	}
	if link.ZoneName != "" {
		return nil, ErrLinkInUse
	}

	metadata, _ := json.Marshal(map[string]string{"name": name})
	return s.tasks.Submit(ctx, ports.SubmitTaskInput{
		Operation: domain.OpLinkDelete,
		Metadata:  domain.Payload(metadata),
		CreatedBy: createdBy,
	})
}
