package dto

import (
	"encoding/json"
	"time"

	"github.com/zonehub/backend/internal/domain"
)

type CreateTaskRequest struct {
	Operation string          `json:"operation" validate:"required"`
	Metadata  json.RawMessage `json:"metadata"`
	Priority  *int            `json:"priority,omitempty"`
	CreatedBy string          `json:"created_by"`
	DependsOn *string         `json:"depends_on,omitempty"`
}

func (r *CreateTaskRequest) Validate() []string {
	var errors []string

	if r.Operation == "" {
		errors = append(errors, "operation is required")
	} else if !domain.OpKind(r.Operation).Valid() {
		errors = append(errors, "operation is not a known kind")
	}

	if r.Priority != nil && (*r.Priority < 0 || *r.Priority > 100) {
		errors = append(errors, "priority must be between 0 and 100")
	}

	if len(r.Metadata) > 0 && !json.Valid(r.Metadata) {
		errors = append(errors, "metadata is not valid JSON")
	}

	return errors
}

type TaskResponse struct {
	ID              string          `json:"id"`
	ResourceScope   string          `json:"resource_scope"`
	Operation       domain.OpKind   `json:"operation"`
	Status          domain.TaskStatus `json:"status"`
	Priority        int             `json:"priority"`
	CreatedBy       string          `json:"created_by,omitempty"`
	DependsOn       *string         `json:"depends_on,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	ProgressPercent int             `json:"progress_percent"`
	ProgressInfo    json.RawMessage `json:"progress_info,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

func TaskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:              task.ID,
		ResourceScope:   task.ResourceScope,
		Operation:       task.Operation,
		Status:          task.Status,
		Priority:        task.Priority,
		CreatedBy:       task.CreatedBy,
		DependsOn:       task.DependsOn,
		Metadata:        json.RawMessage(task.Metadata),
		ErrorMessage:    task.ErrorMessage,
		ProgressPercent: task.ProgressPercent,
		ProgressInfo:    json.RawMessage(task.ProgressInfo),
		CreatedAt:       task.CreatedAt,
		StartedAt:       task.StartedAt,
		CompletedAt:     task.CompletedAt,
	}
}

func TasksToResponse(tasks []domain.Task) []TaskResponse {
	responses := make([]TaskResponse, len(tasks))
	for i := range tasks {
		responses[i] = TaskToResponse(&tasks[i])
	}
	return responses
}
