package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

type ZoneServiceConfig struct {
	Repository ports.ZoneRepository
	Tasks      ports.TaskService
	Logger     *logger.Logger
}

// ZoneService serves zone reads directly and turns every mutation into a
// task; callers poll the returned task id for the outcome.
type ZoneService struct {
	repo  ports.ZoneRepository
	tasks ports.TaskService
	log   *logger.Logger
}

func NewZoneService(cfg ZoneServiceConfig) *ZoneService {
	return &ZoneService{repo: cfg.Repository, tasks: cfg.Tasks, log: cfg.Logger}
}

func (s *ZoneService) GetZones(ctx context.Context) ([]domain.Zone, error) {
	return s.repo.GetAll(ctx)
}

func (s *ZoneService) GetZoneByName(ctx context.Context, name string) (*domain.Zone, error) {
	zone, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, ErrZoneNotFound
	}
	return zone, nil
}

func (s *ZoneService) CreateZoneAsync(ctx context.Context, input ports.CreateZoneInput) (*domain.Task, error) {
	if input.Name == "" {
		return nil, ErrZoneInvalidInput
	}
	if _, err := s.repo.GetByName(ctx, input.Name); err == nil {
		return nil, ErrZoneAlreadyExists
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"name":        input.Name,
		"brand":       string(input.Brand),
		"ip":          input.IP,
		"vnic":        input.VNIC,
		"cpus":        input.CPUs,
		"memory_mb":   input.MemoryMB,
		"disk_gb":     input.DiskGB,
		"autoboot":    input.Autoboot,
		"config":      input.Config,
		"artifact_id": input.ArtifactID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrZoneInvalidInput, err)
	}

	return s.tasks.Submit(ctx, ports.SubmitTaskInput{
		Operation: domain.OpZoneCreate,
		Metadata:  domain.Payload(metadata),
		CreatedBy: input.CreatedBy,
		DependsOn: input.DependsOn,
	})
}

func (s *ZoneService) DestroyZoneAsync(ctx context.Context, name, createdBy string) (*domain.Task, error) {
	return s.zoneAction(ctx, domain.OpZoneDestroy, name, createdBy)
}

func (s *ZoneService) StartZoneAsync(ctx context.Context, name, createdBy string) (*domain.Task, error) {
	return s.zoneAction(ctx, domain.OpZoneStart, name, createdBy)
}

func (s *ZoneService) StopZoneAsync(ctx context.Context, name, createdBy string) (*domain.Task, error) {
	return s.zoneAction(ctx, domain.OpZoneStop, name, createdBy)
}

func (s *ZoneService) zoneAction(ctx context.Context, op domain.OpKind, name, createdBy string) (*domain.Task, error) {
	if _, err := s.repo.GetByName(ctx, name); err != nil {
		return nil, ErrZoneNotFound
	}

	metadata, _ := json.Marshal(map[string]string{"name": name})
	return s.tasks.Submit(ctx, ports.SubmitTaskInput{
		Operation: op,
		Metadata:  domain.Payload(metadata),
		CreatedBy: createdBy,
	})
}
