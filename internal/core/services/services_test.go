package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
)

// fakeTaskRepo is an in-memory TaskRepository mirroring the postgres
// implementation's CAS semantics.
type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (f *fakeTaskRepo) Create(_ context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepo) List(_ context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, task := range f.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Operation != "" && task.Operation != filter.Operation {
			continue
		}
		out = append(out, *task)
	}
	return out, nil
}

func (f *fakeTaskRepo) ListPending(context.Context) ([]domain.Task, error) { return nil, nil }

func (f *fakeTaskRepo) UpdateFields(_ context.Context, id string, fields ports.TaskFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	applyTaskFields(task, fields)
	return nil
}

func (f *fakeTaskRepo) CompareAndSwap(_ context.Context, id string, from domain.TaskStatus, fields ports.TaskFields) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok || task.Status != from {
		return false, nil
	}
	applyTaskFields(task, fields)
	return true, nil
}

func (f *fakeTaskRepo) UpdateProgress(_ context.Context, id string, percent int, info domain.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task, ok := f.tasks[id]; ok && task.Status == domain.TaskStatusRunning {
		task.ProgressPercent = percent
		task.ProgressInfo = info
	}
	return nil
}

func (f *fakeTaskRepo) FailRunning(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func applyTaskFields(task *domain.Task, fields ports.TaskFields) {
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
		}
	}
}

// passHandler accepts everything; tests about payload rejection use the real
// operation handlers instead.
type passHandler struct {
	kind  domain.OpKind
	scope string
}

func (h *passHandler) Kind() domain.OpKind                  { return h.kind }
func (h *passHandler) ValidatePayload(domain.Payload) error { return nil }
func (h *passHandler) Scope(domain.Payload) string          { return h.scope }
func (h *passHandler) Resources(domain.Payload) []string    { return nil }
func (h *passHandler) Execute(context.Context, *domain.Task, engine.Progress) engine.Result {
	return engine.Result{Success: true}
}

// recordingTasks captures Submit inputs for the resource services.
type recordingTasks struct {
	submitted []ports.SubmitTaskInput
	listed    []domain.Task
}

func (r *recordingTasks) Submit(_ context.Context, input ports.SubmitTaskInput) (*domain.Task, error) {
	r.submitted = append(r.submitted, input)
	return &domain.Task{
		ID:        fmt.Sprintf("task-%d", len(r.submitted)),
		Operation: input.Operation,
		Status:    domain.TaskStatusPending,
		Metadata:  input.Metadata,
	}, nil
}

func (r *recordingTasks) GetTask(context.Context, string) (*domain.Task, error) {
	return nil, engine.ErrTaskNotFound
}

func (r *recordingTasks) ListTasks(context.Context, ports.TaskFilter) ([]domain.Task, error) {
	return r.listed, nil
}

func (r *recordingTasks) CancelTask(context.Context, string) (*domain.Task, error) {
	return nil, engine.ErrTaskNotFound
}

func (r *recordingTasks) last() ports.SubmitTaskInput {
	return r.submitted[len(r.submitted)-1]
}
