package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/core/services"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"github.com/zonehub/backend/internal/transport/http/dto"
)

type ArtifactHandler struct {
	service ports.ArtifactService
	logger  *logger.Logger
}

func NewArtifactHandler(service ports.ArtifactService, logger *logger.Logger) *ArtifactHandler {
	return &ArtifactHandler{service: service, logger: logger}
}

func (h *ArtifactHandler) GetArtifacts(c *fiber.Ctx) error {
	artifacts, err := h.service.GetArtifacts(c.Context())
	if err != nil {
		h.logger.Errorw("artifacts_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.ArtifactsToResponse(artifacts))
}

func (h *ArtifactHandler) GetDatasets(c *fiber.Ctx) error {
	datasets, err := h.service.GetDatasets(c.Context())
	if err != nil {
		h.logger.Errorw("datasets_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.DatasetsToResponse(datasets))
}

func (h *ArtifactHandler) DownloadArtifact(c *fiber.Ctx) error {
	var req dto.DownloadArtifactRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("artifact_download_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("artifact_download_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	h.logger.Infow("artifact_download_request", "filename", req.Filename, "url", req.URL)
	task, err := h.service.DownloadAsync(c.Context(), ports.DownloadArtifactInput{
		URL:       req.URL,
		Filename:  req.Filename,
		Dataset:   req.Dataset,
		Kind:      req.GetKind(),
		SHA256:    req.SHA256,
		CreatedBy: createdBy(c),
	})
	if err != nil {
		if errors.Is(err, services.ErrDatasetUnknown) || errors.Is(err, engine.ErrCreateRejected) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("artifact_download_failed", "filename", req.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAcceptedResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}

func (h *ArtifactHandler) DeleteArtifacts(c *fiber.Ctx) error {
	var req dto.DeleteArtifactsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	h.logger.Infow("artifact_delete_request", "count", len(req.IDs))
	task, err := h.service.DeleteAsync(c.Context(), req.IDs, createdBy(c))
	if err != nil {
		if errors.Is(err, services.ErrArtifactInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("artifact_delete_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAcceptedResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}

func (h *ArtifactHandler) MoveArtifact(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid artifact id",
		})
	}

	var req dto.MoveArtifactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	h.logger.Infow("artifact_move_request", "artifact_id", id, "dest", req.DestDataset, "copy", req.Copy)
	task, err := h.service.MoveAsync(c.Context(), uint(id), req.DestDataset, createdBy(c), req.Copy)
	if err != nil {
		if errors.Is(err, services.ErrArtifactNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "artifact not found",
			})
		}
		if errors.Is(err, services.ErrDatasetUnknown) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("artifact_move_failed", "artifact_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAcceptedResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}

func (h *ArtifactHandler) ScanArtifacts(c *fiber.Ctx) error {
	h.logger.Infow("artifact_scan_request")
	task, err := h.service.ScanAsync(c.Context(), createdBy(c))
	if err != nil {
		h.logger.Errorw("artifact_scan_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAcceptedResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}
