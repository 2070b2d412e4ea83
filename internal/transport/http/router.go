package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/zonehub/backend/internal/config"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/core/services"
	"github.com/zonehub/backend/internal/infrastructure/db"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"github.com/zonehub/backend/internal/transport/http/handlers"
	httpmw "github.com/zonehub/backend/internal/transport/http/middleware"
	"gorm.io/gorm"
)

type RouterConfig struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config

	// Tasks is built in main together with the engine; the resource
	// services route their mutations through it.
	Tasks ports.TaskService
}

// SetupRoutes wires repositories, services and handlers onto the app.
// It returns the artifact service so the scan scheduler can reuse it.
func SetupRoutes(app *fiber.App, cfg RouterConfig) ports.ArtifactService {
	zoneRepo := db.NewZoneRepository(cfg.DB, cfg.Logger)
	linkRepo := db.NewLinkRepository(cfg.DB, cfg.Logger)
	artifactRepo := db.NewArtifactRepository(cfg.DB, cfg.Logger)
	datasetRepo := db.NewDatasetRepository(cfg.DB, cfg.Logger)

	zoneService := services.NewZoneService(services.ZoneServiceConfig{
		Repository: zoneRepo,
		Tasks:      cfg.Tasks,
		Logger:     cfg.Logger,
	})

	linkService := services.NewLinkService(services.LinkServiceConfig{
		Repository: linkRepo,
		Tasks:      cfg.Tasks,
		Logger:     cfg.Logger,
	})

	artifactService := services.NewArtifactService(services.ArtifactServiceConfig{
		Artifacts:          artifactRepo,
		Datasets:           datasetRepo,
		Tasks:              cfg.Tasks,
		Logger:             cfg.Logger,
		ConfiguredDatasets: cfg.Config.Artifacts.Datasets,
	})

	taskHandler := handlers.NewTaskHandler(cfg.Tasks, cfg.Logger)
	zoneHandler := handlers.NewZoneHandler(zoneService, cfg.Logger)
	linkHandler := handlers.NewLinkHandler(linkService, cfg.Logger)
	artifactHandler := handlers.NewArtifactHandler(artifactService, cfg.Logger)

	api := app.Group("/api/v1")

	// Task routes
	tasks := api.Group("/tasks", httpmw.AdminAuth(cfg.Config))
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Get("/", taskHandler.GetTasks)
	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Post("/:id/cancel", taskHandler.CancelTask)

	// Zone routes
	zones := api.Group("/zones", httpmw.AdminAuth(cfg.Config))
	zones.Post("/", zoneHandler.CreateZone)
	zones.Get("/", zoneHandler.GetZones)
	zones.Get("/:name", zoneHandler.GetZone)
	zones.Delete("/:name", zoneHandler.DeleteZone)
	zones.Post("/:name/start", zoneHandler.StartZone)
	zones.Post("/:name/stop", zoneHandler.StopZone)

	// Network link routes
	links := api.Group("/links", httpmw.AdminAuth(cfg.Config))
	links.Post("/", linkHandler.CreateLink)
	links.Get("/", linkHandler.GetLinks)
	links.Delete("/:name", linkHandler.DeleteLink)

	// Artifact routes
	artifacts := api.Group("/artifacts", httpmw.AdminAuth(cfg.Config))
	artifacts.Post("/download", artifactHandler.DownloadArtifact)
	artifacts.Get("/", artifactHandler.GetArtifacts)
	artifacts.Post("/delete", artifactHandler.DeleteArtifacts)
	artifacts.Post("/scan", artifactHandler.ScanArtifacts)
	artifacts.Post("/:id/move", artifactHandler.MoveArtifact)

	// Dataset routes
	datasets := api.Group("/datasets", httpmw.AdminAuth(cfg.Config))
	datasets.Get("/", artifactHandler.GetDatasets)

	return artifactService
}
