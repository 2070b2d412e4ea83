package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/core/services"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"github.com/zonehub/backend/internal/transport/http/dto"
)

type ZoneHandler struct {
	service ports.ZoneService
	logger  *logger.Logger
}

func NewZoneHandler(service ports.ZoneService, logger *logger.Logger) *ZoneHandler {
	return &ZoneHandler{service: service, logger: logger}
}

func (h *ZoneHandler) GetZones(c *fiber.Ctx) error {
	zones, err := h.service.GetZones(c.Context())
	if err != nil {
		h.logger.Errorw("zones_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.ZonesToResponse(zones))
}

func (h *ZoneHandler) GetZone(c *fiber.Ctx) error {
	zone, err := h.service.GetZoneByName(c.Context(), c.Params("name"))
	if err != nil {
		if errors.Is(err, services.ErrZoneNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "zone not found",
			})
		}
		h.logger.Errorw("zone_get_failed", "name", c.Params("name"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.ZoneToResponse(zone))
}

func (h *ZoneHandler) CreateZone(c *fiber.Ctx) error {
	var req dto.CreateZoneRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("zone_create_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("zone_create_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	input := ports.CreateZoneInput{
		Name:       req.Name,
		Brand:      req.GetBrand(),
		IP:         req.IP,
		VNIC:       req.VNIC,
		CPUs:       req.CPUs,
		MemoryMB:   req.MemoryMB,
		DiskGB:     req.DiskGB,
		Autoboot:   req.Autoboot,
		Config:     req.Config,
		ArtifactID: req.ArtifactID,
		DependsOn:  req.DependsOn,
		CreatedBy:  createdBy(c),
	}

	h.logger.Infow("zone_create_request", "name", req.Name, "brand", req.Brand)
	task, err := h.service.CreateZoneAsync(c.Context(), input)
	if err != nil {
		if errors.Is(err, services.ErrZoneAlreadyExists) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: "zone with this name already exists",
			})
		}
		if errors.Is(err, services.ErrZoneInvalidInput) || errors.Is(err, engine.ErrCreateRejected) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("zone_create_failed", "name", req.Name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAcceptedResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}

func (h *ZoneHandler) DeleteZone(c *fiber.Ctx) error {
	return h.zoneAction(c, h.service.DestroyZoneAsync, "zone_destroy_request")
}

func (h *ZoneHandler) StartZone(c *fiber.Ctx) error {
	return h.zoneAction(c, h.service.StartZoneAsync, "zone_start_request")
}

func (h *ZoneHandler) StopZone(c *fiber.Ctx) error {
	return h.zoneAction(c, h.service.StopZoneAsync, "zone_stop_request")
}

func (h *ZoneHandler) zoneAction(c *fiber.Ctx, fn func(ctx context.Context, name, createdBy string) (*domain.Task, error), event string) error {
	name := c.Params("name")
	h.logger.Infow(event, "name", name)

	task, err := fn(c.Context(), name, createdBy(c))
	if err != nil {
		if errors.Is(err, services.ErrZoneNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "zone not found",
			})
		}
		if errors.Is(err, engine.ErrCreateRejected) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("zone_action_failed", "name", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAcceptedResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}
