package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

type captureTaskService struct {
	submitted []ports.SubmitTaskInput
}

func (s *captureTaskService) Submit(_ context.Context, input ports.SubmitTaskInput) (*domain.Task, error) {
	s.submitted = append(s.submitted, input)
	return &domain.Task{
		ID:        "t1",
		Operation: input.Operation,
		Status:    domain.TaskStatusPending,
		CreatedBy: input.CreatedBy,
	}, nil
}

func (s *captureTaskService) GetTask(context.Context, string) (*domain.Task, error) {
	return nil, engine.ErrTaskNotFound
}

func (s *captureTaskService) ListTasks(context.Context, ports.TaskFilter) ([]domain.Task, error) {
	return nil, nil
}

func (s *captureTaskService) CancelTask(context.Context, string) (*domain.Task, error) {
	return nil, engine.ErrTaskNotFound
}

func newTaskApp(svc ports.TaskService) *fiber.App {
	app := fiber.New()
	handler := NewTaskHandler(svc, logger.Nop())
	app.Post("/tasks", handler.CreateTask)
	return app
}

func postTask(t *testing.T, app *fiber.App, body string, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestCreateTaskKeepsCallerIdentity(t *testing.T) {
	svc := &captureTaskService{}
	app := newTaskApp(svc)

	status := postTask(t, app,
		`{"operation":"zone.start","metadata":{"name":"web01"},"created_by":"cron"}`,
		map[string]string{"X-Admin-Token": "secret"})
	if status != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	if got := svc.submitted[0].CreatedBy; got != "cron" {
		t.Errorf("caller identity dropped, got %q", got)
	}
}

func TestCreateTaskIdentityFallsBackToAuth(t *testing.T) {
	svc := &captureTaskService{}
	app := newTaskApp(svc)

	postTask(t, app, `{"operation":"zone.start","metadata":{"name":"web01"}}`,
		map[string]string{"X-Admin-Token": "secret"})
	if got := svc.submitted[0].CreatedBy; got != "admin" {
		t.Errorf("authenticated caller should default to admin, got %q", got)
	}

	postTask(t, app, `{"operation":"zone.start","metadata":{"name":"web01"}}`, nil)
	if got := svc.submitted[1].CreatedBy; got != "api" {
		t.Errorf("anonymous caller should default to api, got %q", got)
	}
}

func TestCreateTaskPassesExplicitZeroPriority(t *testing.T) {
	svc := &captureTaskService{}
	app := newTaskApp(svc)

	status := postTask(t, app,
		`{"operation":"zone.start","metadata":{"name":"web01"},"priority":0}`, nil)
	if status != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	in := svc.submitted[0]
	if in.Priority == nil || *in.Priority != 0 {
		t.Errorf("priority 0 must reach the service as an explicit value, got %v", in.Priority)
	}
}

func TestCreateTaskRejectsUnknownOperation(t *testing.T) {
	svc := &captureTaskService{}
	app := newTaskApp(svc)

	status := postTask(t, app, `{"operation":"zone.explode"}`, nil)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if len(svc.submitted) != 0 {
		t.Error("invalid request must not reach the service")
	}
}
