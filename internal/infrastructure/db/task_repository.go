package db

import (
	"context"
	"time"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.log.Errorw("task_repo_create_failed", "operation", task.Operation, "error", err)
		return err
	}
	r.log.Infow("task_repo_create_ok", "id", task.ID, "operation", task.Operation, "priority", task.Priority)
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	query := r.db.WithContext(ctx).Model(&domain.Task{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	if filter.Scope != "" {
		query = query.Where("resource_scope = ?", filter.Scope)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var tasks []domain.Task
	err := query.
		Order("created_at desc").
		Limit(limit).
		Offset(filter.Offset).
		Find(&tasks).Error
	if err != nil {
		r.log.Errorw("task_repo_list_failed", "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListPending(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.TaskStatusPending).
		Order("priority desc, created_at asc").
		Find(&tasks).Error
	if err != nil {
		r.log.Errorw("task_repo_list_pending_failed", "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) UpdateFields(ctx context.Context, id string, fields ports.TaskFields) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}(fields))
	if result.Error != nil {
		r.log.Errorw("task_repo_update_failed", "id", id, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CompareAndSwap updates the row only while it is still in the expected
// status. Two concurrent claim attempts on the same pending row resolve here:
// exactly one sees RowsAffected == 1.
func (r *taskRepository) CompareAndSwap(ctx context.Context, id string, from domain.TaskStatus, fields ports.TaskFields) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}(fields))
	if result.Error != nil {
		r.log.Errorw("task_repo_cas_failed", "id", id, "from", from, "error", result.Error)
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateProgress only touches running rows so a late progress write cannot
// overwrite a terminal status.
func (r *taskRepository) UpdateProgress(ctx context.Context, id string, percent int, info domain.Payload) error {
	fields := map[string]interface{}{"progress_percent": percent}
	if len(info) > 0 {
		fields["progress_info"] = info
	}
	return r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND status = ?", id, domain.TaskStatusRunning).
		Updates(fields).Error
}

func (r *taskRepository) FailRunning(ctx context.Context, message string, completedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("status = ?", domain.TaskStatusRunning).
		Updates(map[string]interface{}{
			"status":        domain.TaskStatusFailed,
			"error_message": message,
			"completed_at":  completedAt,
		})
	if result.Error != nil {
		r.log.Errorw("task_repo_fail_running_failed", "error", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
