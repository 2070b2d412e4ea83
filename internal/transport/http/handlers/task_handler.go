package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"github.com/zonehub/backend/internal/transport/http/dto"
)

type TaskHandler struct {
	service ports.TaskService
	logger  *logger.Logger
}

func NewTaskHandler(service ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: logger}
}

func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("task_create_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("task_create_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	creator := req.CreatedBy
	if creator == "" {
		creator = createdBy(c)
	}

	task, err := h.service.Submit(c.Context(), ports.SubmitTaskInput{
		Operation: domain.OpKind(req.Operation),
		Metadata:  domain.Payload(req.Metadata),
		Priority:  req.Priority,
		DependsOn: req.DependsOn,
		CreatedBy: creator,
	})
	if err != nil {
		if errors.Is(err, engine.ErrCreateRejected) {
			h.logger.Warnw("task_create_rejected", "operation", req.Operation, "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("task_create_failed", "operation", req.Operation, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	h.logger.Infow("task_accepted", "task_id", task.ID, "operation", task.Operation)
	return c.Status(fiber.StatusAccepted).JSON(dto.TaskToResponse(task))
}

func (h *TaskHandler) GetTasks(c *fiber.Ctx) error {
	filter := ports.TaskFilter{
		Status:    domain.TaskStatus(c.Query("status")),
		Operation: domain.OpKind(c.Query("operation")),
		Scope:     c.Query("scope"),
		Limit:     c.QueryInt("limit"),
		Offset:    c.QueryInt("offset"),
	}

	tasks, err := h.service.ListTasks(c.Context(), filter)
	if err != nil {
		h.logger.Errorw("tasks_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(dto.TasksToResponse(tasks))
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	task, err := h.service.GetTask(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, engine.ErrTaskNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "task not found",
			})
		}
		h.logger.Errorw("task_get_failed", "task_id", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(dto.TaskToResponse(task))
}

func (h *TaskHandler) CancelTask(c *fiber.Ctx) error {
	task, err := h.service.CancelTask(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, engine.ErrTaskNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "task not found",
			})
		}
		if errors.Is(err, engine.ErrCancelConflict) {
			h.logger.Warnw("task_cancel_conflict", "task_id", c.Params("id"))
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: "task already reached a terminal status",
			})
		}
		h.logger.Errorw("task_cancel_failed", "task_id", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	h.logger.Infow("task_cancel_accepted", "task_id", task.ID, "status", task.Status)
	return c.JSON(dto.TaskToResponse(task))
}

// createdBy tags a task with the caller identity when auth is enabled.
func createdBy(c *fiber.Ctx) string {
	if c.Get("X-Admin-Token") != "" || c.Get("Authorization") != "" {
		return "admin"
	}
	return "api"
}
