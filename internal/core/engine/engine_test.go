package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
)

// memRepo is an in-memory TaskRepository with the same atomicity semantics
// as the postgres implementation: CompareAndSwap is a single guarded update,
// UpdateProgress only touches running rows.
type memRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task

	progressWrites []progressWrite
}

type progressWrite struct {
	taskID  string
	percent int
	info    domain.Payload
}

func newMemRepo() *memRepo {
	return &memRepo{tasks: make(map[string]*domain.Task)}
}

func (m *memRepo) Create(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[task.ID]; exists {
		return fmt.Errorf("duplicate task id %s", task.ID)
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	copied := *task
	return &copied, nil
}

func (m *memRepo) List(_ context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Task
	for _, task := range m.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Operation != "" && task.Operation != filter.Operation {
			continue
		}
		if filter.Scope != "" && task.ResourceScope != filter.Scope {
			continue
		}
		out = append(out, *task)
	}
	return out, nil
}

func (m *memRepo) ListPending(_ context.Context) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Task
	for _, task := range m.tasks {
		if task.Status == domain.TaskStatusPending {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memRepo) UpdateFields(_ context.Context, id string, fields ports.TaskFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	applyFields(task, fields)
	return nil
}

func (m *memRepo) CompareAndSwap(_ context.Context, id string, from domain.TaskStatus, fields ports.TaskFields) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok || task.Status != from {
		return false, nil
	}
	applyFields(task, fields)
	return true, nil
}

func (m *memRepo) UpdateProgress(_ context.Context, id string, percent int, info domain.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok || task.Status != domain.TaskStatusRunning {
		return nil
	}
	task.ProgressPercent = percent
	task.ProgressInfo = info
	m.progressWrites = append(m.progressWrites, progressWrite{taskID: id, percent: percent, info: info})
	return nil
}

func (m *memRepo) FailRunning(_ context.Context, message string, completedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, task := range m.tasks {
		if task.Status == domain.TaskStatusRunning {
			task.Status = domain.TaskStatusFailed
			task.ErrorMessage = message
			at := completedAt
			task.CompletedAt = &at
			count++
		}
	}
	return count, nil
}

func (m *memRepo) writes(taskID string) []progressWrite {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []progressWrite
	for _, w := range m.progressWrites {
		if w.taskID == taskID {
			out = append(out, w)
		}
	}
	return out
}

func applyFields(task *domain.Task, fields ports.TaskFields) {
	for key, value := range fields {
		switch key {
		case "status":
			task.Status = value.(domain.TaskStatus)
		case "started_at":
			at := value.(time.Time)
			task.StartedAt = &at
		case "completed_at":
			at := value.(time.Time)
			task.CompletedAt = &at
		case "error_message":
			task.ErrorMessage = value.(string)
		case "progress_percent":
			task.ProgressPercent = value.(int)
		case "progress_info":
			task.ProgressInfo = value.(domain.Payload)
		}
	}
}

// stubHandler lets each test shape one operation's behavior.
type stubHandler struct {
	kind      domain.OpKind
	scope     string
	resources []string
	execute   func(ctx context.Context, task *domain.Task, progress Progress) Result
}

func (h *stubHandler) Kind() domain.OpKind                    { return h.kind }
func (h *stubHandler) ValidatePayload(domain.Payload) error   { return nil }
func (h *stubHandler) Scope(domain.Payload) string            { return h.scope }
func (h *stubHandler) Resources(domain.Payload) []string      { return h.resources }
func (h *stubHandler) Execute(ctx context.Context, task *domain.Task, progress Progress) Result {
	if h.execute != nil {
		return h.execute(ctx, task, progress)
	}
	return Result{Success: true}
}

func pendingTask(id, scope string, priority int, createdAt time.Time) *domain.Task {
	return &domain.Task{
		ID:            id,
		ResourceScope: scope,
		Operation:     domain.OpZoneStart,
		Status:        domain.TaskStatusPending,
		Priority:      priority,
		CreatedAt:     createdAt,
	}
}
