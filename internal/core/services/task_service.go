package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

const defaultPriority = 50

type TaskServiceConfig struct {
	Repo     ports.TaskRepository
	Registry *engine.Registry
	Pool     *engine.Pool
	Logger   *logger.Logger
}

// TaskService is the single entry point controllers use to enqueue work.
// Validation happens here, synchronously, so a malformed request never
// becomes a persisted task.
type TaskService struct {
	repo     ports.TaskRepository
	registry *engine.Registry
	pool     *engine.Pool
	log      *logger.Logger
}

func NewTaskService(cfg TaskServiceConfig) *TaskService {
	return &TaskService{
		repo:     cfg.Repo,
		registry: cfg.Registry,
		pool:     cfg.Pool,
		log:      cfg.Logger,
	}
}

func (s *TaskService) Submit(ctx context.Context, input ports.SubmitTaskInput) (*domain.Task, error) {
	handler, ok := s.registry.Lookup(input.Operation)
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation %q", engine.ErrCreateRejected, input.Operation)
	}

	if len(input.Metadata) > 0 && !json.Valid(input.Metadata) {
		return nil, fmt.Errorf("%w: metadata is not valid JSON", engine.ErrCreateRejected)
	}
	if err := handler.ValidatePayload(input.Metadata); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrCreateRejected, err)
	}

	if input.DependsOn != nil {
		if _, err := s.repo.GetByID(ctx, *input.DependsOn); err != nil {
			return nil, fmt.Errorf("%w: dependency %s not found", engine.ErrCreateRejected, *input.DependsOn)
		}
	}

	priority := defaultPriority
	if input.Priority != nil {
		priority = *input.Priority
	}

	task := &domain.Task{
		ID:            uuid.New().String(),
		ResourceScope: handler.Scope(input.Metadata),
		Operation:     input.Operation,
		Status:        domain.TaskStatusPending,
		Priority:      priority,
		CreatedBy:     input.CreatedBy,
		DependsOn:     input.DependsOn,
		Metadata:      input.Metadata,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.log.Infow("task_submitted",
		"task_id", task.ID, "operation", task.Operation, "scope", task.ResourceScope,
		"priority", task.Priority, "created_by", task.CreatedBy)
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, engine.ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	return s.repo.List(ctx, filter)
}

// CancelTask cancels a pending task atomically and signals a running one.
// Cancelling an already-terminal task is a conflict, never a state change.
func (s *TaskService) CancelTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, engine.ErrTaskNotFound
	}
	if task.Status.Terminal() {
		return nil, engine.ErrCancelConflict
	}

	now := time.Now()
	fields := ports.TaskFields{
		"status":       domain.TaskStatusCancelled,
		"completed_at": now,
	}

	swapped, err := s.repo.CompareAndSwap(ctx, id, task.Status, fields)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Lost a race with the dispatcher or the pool; retry once against the
		// new status before reporting a conflict.
		task, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, engine.ErrTaskNotFound
		}
		if task.Status.Terminal() {
			return nil, engine.ErrCancelConflict
		}
		if swapped, err = s.repo.CompareAndSwap(ctx, id, task.Status, fields); err != nil {
			return nil, err
		}
		if !swapped {
			return nil, engine.ErrCancelConflict
		}
	}

	// Best-effort signal; only handlers that poll the flag stop early.
	if s.pool != nil {
		s.pool.Cancel(id)
	}

	s.log.Infow("task_cancelled", "task_id", id)
	return s.repo.GetByID(ctx, id)
}
