package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/zonehub/backend/internal/config"
	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/operations"
	"github.com/zonehub/backend/internal/core/services"
	"github.com/zonehub/backend/internal/infrastructure/db"
	"github.com/zonehub/backend/internal/infrastructure/fetch"
	"github.com/zonehub/backend/internal/infrastructure/host"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	transporthttp "github.com/zonehub/backend/internal/transport/http"
	"gorm.io/gorm"
)

func main() {
	configPath := "config/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = "../config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	database, err := db.NewPostgresConnection(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	log.Info("database connection established")

	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Info("database migrations completed")

	taskRepo := db.NewTaskRepository(database, log)
	zoneRepo := db.NewZoneRepository(database, log)
	linkRepo := db.NewLinkRepository(database, log)
	artifactRepo := db.NewArtifactRepository(database, log)
	datasetRepo := db.NewDatasetRepository(database, log)

	// Tasks a previous process left running can never settle; fail them
	// before the dispatcher starts handing out new work.
	if err := engine.Reconcile(context.Background(), taskRepo, log); err != nil {
		log.Fatalf("failed to reconcile interrupted tasks: %v", err)
	}

	resources := engine.NewResourceRegistry()
	pool := engine.NewPool(engine.PoolConfig{
		Repo:             taskRepo,
		Resources:        resources,
		Logger:           log,
		Workers:          cfg.Engine.Workers,
		ProgressInterval: cfg.Engine.ProgressInterval,
	})

	runner := host.NewExecRunner(0, log)
	fetcher := fetch.New(cfg.Artifacts, log)

	registry := engine.NewRegistry()
	if err := registry.Register(operations.NewZoneOps(zoneRepo, runner, log).Handlers()...); err != nil {
		log.Fatalf("failed to register zone handlers: %v", err)
	}
	if err := registry.Register(operations.NewNetworkOps(linkRepo, runner, log).Handlers()...); err != nil {
		log.Fatalf("failed to register network handlers: %v", err)
	}
	if err := registry.Register(operations.NewArtifactOps(artifactRepo, fetcher, log).Handlers()...); err != nil {
		log.Fatalf("failed to register artifact handlers: %v", err)
	}
	if err := registry.Register(operations.NewStorageOps(artifactRepo, datasetRepo, resources, cfg.Artifacts.Datasets, log).Handlers()...); err != nil {
		log.Fatalf("failed to register storage handlers: %v", err)
	}
	if err := registry.Complete(); err != nil {
		log.Fatalf("handler registry incomplete: %v", err)
	}

	taskService := services.NewTaskService(services.TaskServiceConfig{
		Repo:     taskRepo,
		Registry: registry,
		Pool:     pool,
		Logger:   log,
	})

	dispatcher := engine.NewDispatcher(engine.DispatcherConfig{
		Repo:         taskRepo,
		Registry:     registry,
		Pool:         pool,
		Logger:       log,
		PollInterval: cfg.Engine.PollInterval,
	})
	dispatcher.Start()
	log.Infow("dispatcher_started", "poll_interval", cfg.Engine.PollInterval, "workers", cfg.Engine.Workers)

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:3000"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token",
		AllowMethods: "GET, POST, HEAD, PUT, DELETE, PATCH",
	}))

	app.Use(func(c *fiber.Ctx) error {
		hdr := cfg.Features.RequestIDHeader
		var reqID string
		if hdr != "" {
			reqID = c.Get(hdr)
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		ctx := context.WithValue(c.Context(), "request_id", reqID)
		c.SetUserContext(ctx)
		return c.Next()
	})

	if cfg.Features.EnableRequestLogging {
		app.Use(func(c *fiber.Ctx) error {
			start := time.Now()
			err := c.Next()
			log.Infow("http_access",
				"method", c.Method(),
				"path", c.Path(),
				"status", c.Response().StatusCode(),
				"latency_ms", time.Since(start).Milliseconds(),
				"client_ip", c.IP(),
				"request_id", c.Context().Value("request_id"),
			)
			return err
		})
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	artifactService := transporthttp.SetupRoutes(app, transporthttp.RouterConfig{
		DB:     database,
		Logger: log,
		Config: cfg,
		Tasks:  taskService,
	})

	scheduler := services.NewScanScheduler(artifactService, cfg.Artifacts.ScanSchedule, log)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("failed to start scan scheduler: %v", err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	log.Infof("server started on %s:%d", cfg.Server.Host, cfg.Server.Port)

	gracefulShutdown(app, database, dispatcher, pool, scheduler, log)
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code == fiber.StatusRequestTimeout || code == fiber.StatusNotFound {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Context().Value("request_id"),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Context().Value("request_id"),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func gracefulShutdown(app *fiber.App, database *gorm.DB, dispatcher *engine.Dispatcher, pool *engine.Pool, scheduler *services.ScanScheduler, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	scheduler.Stop()
	dispatcher.Stop()
	pool.Wait()

	if err := db.Close(database); err != nil {
		log.Errorf("failed to close database connection: %v", err)
	}

	log.Info("server exited gracefully")
}
