package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/core/services"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"github.com/zonehub/backend/internal/transport/http/dto"
)

type LinkHandler struct {
	service ports.LinkService
	logger  *logger.Logger
}

func NewLinkHandler(service ports.LinkService, logger *logger.Logger) *LinkHandler {
	return &LinkHandler{service: service, logger: logger}
}

func (h *LinkHandler) GetLinks(c *fiber.Ctx) error {
	links, err := h.service.GetLinks(c.Context())
	if err != nil {
		h.logger.Errorw("links_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.LinksToResponse(links))
}

func (h *LinkHandler) CreateLink(c *fiber.Ctx) error {
	var req dto.CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("link_create_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("link_create_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	h.logger.Infow("link_create_request", "name", req.Name, "kind", req.Kind)
	task, err := h.service.CreateLinkAsync(c.Context(), ports.CreateLinkInput{
		Name:      req.Name,
		Kind:      domain.LinkKind(req.Kind),
		Over:      req.Over,
		MAC:       req.MAC,
		VLAN:      req.VLAN,
		CreatedBy: createdBy(c),
	})
	if err != nil {
		if errors.Is(err, services.ErrLinkInvalidInput) || errors.Is(err, engine.ErrCreateRejected) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("link_create_failed", "name", req.Name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAcceptedResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}

func (h *LinkHandler) DeleteLink(c *fiber.Ctx) error {
	name := c.Params("name")
	h.logger.Infow("link_delete_request", "name", name)

	task, err := h.service.DeleteLinkAsync(c.Context(), name, createdBy(c))
	if err != nil {
		if errors.Is(err, services.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "link not found",
			})
		}
		if errors.Is(err, services.ErrLinkInUse) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: "link is assigned to a zone",
			})
		}
		h.logger.Errorw("link_delete_failed", "name", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAcceptedResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}
