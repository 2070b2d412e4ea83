package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

type ArtifactServiceConfig struct {
	Artifacts ports.ArtifactRepository
	Datasets  ports.DatasetRepository
	Tasks     ports.TaskService
	Logger    *logger.Logger

	// ConfiguredDatasets are the allowed download/scan destinations.
	ConfiguredDatasets []string
}

type ArtifactService struct {
	artifacts ports.ArtifactRepository
	datasets  ports.DatasetRepository
	tasks     ports.TaskService
	allowed   []string
	log       *logger.Logger
}

func NewArtifactService(cfg ArtifactServiceConfig) *ArtifactService {
	return &ArtifactService{
		artifacts: cfg.Artifacts,
		datasets:  cfg.Datasets,
		tasks:     cfg.Tasks,
		allowed:   cfg.ConfiguredDatasets,
		log:       cfg.Logger,
	}
}

func (s *ArtifactService) GetArtifacts(ctx context.Context) ([]domain.Artifact, error) {
	return s.artifacts.GetAll(ctx)
}

func (s *ArtifactService) GetDatasets(ctx context.Context) ([]domain.Dataset, error) {
	return s.datasets.GetAll(ctx)
}

func (s *ArtifactService) datasetAllowed(path string) bool {
	for _, dataset := range s.allowed {
		if dataset == path {
			return true
		}
	}
	return false
}

func (s *ArtifactService) DownloadAsync(ctx context.Context, input ports.DownloadArtifactInput) (*domain.Task, error) {
	dataset := input.Dataset
	if dataset == "" && len(s.allowed) > 0 {
		dataset = s.allowed[0]
	}
	if !s.datasetAllowed(dataset) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetUnknown, dataset)
	}

	metadata, _ := json.Marshal(map[string]string{
		"url":      input.URL,
		"filename": input.Filename,
		"dataset":  dataset,
		"kind":     string(input.Kind),
		"sha256":   input.SHA256,
	})
	return s.tasks.Submit(ctx, ports.SubmitTaskInput{
		Operation: domain.OpArtifactDownload,
		Metadata:  domain.Payload(metadata),
		CreatedBy: input.CreatedBy,
	})
}

func (s *ArtifactService) DeleteAsync(ctx context.Context, ids []uint, createdBy string) (*domain.Task, error) {
	if len(ids) == 0 {
		return nil, ErrArtifactInvalidInput
	}

	metadata, _ := json.Marshal(map[string]interface{}{"ids": ids})
	return s.tasks.Submit(ctx, ports.SubmitTaskInput{
		Operation: domain.OpArtifactDelete,
		Metadata:  domain.Payload(metadata),
		CreatedBy: createdBy,
	})
}

func (s *ArtifactService) ScanAsync(ctx context.Context, createdBy string) (*domain.Task, error) {
	// Collapse duplicate scans: a pending or running scan covers this request.
	for _, status := range []domain.TaskStatus{domain.TaskStatusPending, domain.TaskStatusRunning} {
		existing, err := s.tasks.ListTasks(ctx, ports.TaskFilter{
			Status:    status,
			Operation: domain.OpStorageScan,
			Limit:     1,
		})
		if err == nil && len(existing) > 0 {
			return &existing[0], nil
		}
	}

	return s.tasks.Submit(ctx, ports.SubmitTaskInput{
		Operation: domain.OpStorageScan,
		Metadata:  domain.Payload([]byte(`{}`)),
		CreatedBy: createdBy,
	})
}

func (s *ArtifactService) MoveAsync(ctx context.Context, id uint, destDataset, createdBy string, copyOnly bool) (*domain.Task, error) {
	if _, err := s.artifacts.GetByID(ctx, id); err != nil {
		return nil, ErrArtifactNotFound
	}
	if !s.datasetAllowed(destDataset) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetUnknown, destDataset)
	}

	op := domain.OpStorageMove
	if copyOnly {
		op = domain.OpStorageCopy
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"artifact_id":  id,
		"dest_dataset": destDataset,
	})
	return s.tasks.Submit(ctx, ports.SubmitTaskInput{
		Operation: op,
		Metadata:  domain.Payload(metadata),
		CreatedBy: createdBy,
	})
}
