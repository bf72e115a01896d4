package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/autosave"
	"github.com/percorso-labs/percorso-api/internal/config"
	"github.com/percorso-labs/percorso-api/internal/database"
	"github.com/percorso-labs/percorso-api/internal/handler"
	"github.com/percorso-labs/percorso-api/internal/middleware"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/repository"
	"github.com/percorso-labs/percorso-api/internal/router"
	"github.com/percorso-labs/percorso-api/internal/service"
	"github.com/percorso-labs/percorso-api/pkg/ai"
	cloud "github.com/percorso-labs/percorso-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Exercise{},
		&models.Assignment{},
		&models.Submission{},
		&models.RevisionEntry{},
		&models.UploadRecord{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, lifecycle events disabled")
		} else {
			defer natsConn.Drain()
		}
	}

	var uploader service.FileStorage
	if cfg.CloudinaryCloudName != "" {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	exerciseRepo := repository.NewExerciseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	events := service.NewNATSEventPublisher(natsConn, "", logger)

	exerciseService, err := service.NewExerciseService(exerciseRepo, validate, activityService, logger)
	if err != nil {
		log.Fatalf("failed to build exercise service: %v", err)
	}
	draftService := service.NewDraftService(assignmentRepo, submissionRepo, redisClient, cfg.DraftCacheTTL, logger)
	sessionManager := autosave.NewManager(draftService, cfg.AutosaveDebounce, logger)
	lifecycleService := service.NewLifecycleService(
		assignmentRepo, exerciseRepo, submissionRepo, revisionRepo,
		validate, activityService, events, sessionManager.NotifyTransition, logger,
	)
	progressService := service.NewProgressService(assignmentRepo, redisClient, cfg.ProgressCacheTTL, logger)

	var uploadService service.UploadService
	if uploader != nil {
		uploadService = service.NewUploadService(uploader, uploadRepo, cfg.UploadMaxSizeMB, logger)
	}

	var generatorService service.GeneratorService
	if cfg.OpenAIAPIKey != "" {
		generator, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Logger: logger})
		if err != nil {
			log.Fatalf("failed to create exercise generator: %v", err)
		}
		generatorService = service.NewGeneratorService(generator, validate, logger)
	}

	deps := router.Dependencies{
		ExerciseHandler:   handler.NewExerciseHandler(exerciseService, uploadService, logger),
		AssignmentHandler: handler.NewAssignmentHandler(lifecycleService, logger),
		DraftHandler:      handler.NewDraftHandler(draftService, logger),
		SessionHandler:    handler.NewSessionHandler(sessionManager, logger),
		ProgressHandler:   handler.NewProgressHandler(progressService, logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		ConsultantOnly:    middleware.RequireRole(models.RoleConsultant),
	}
	if generatorService != nil {
		deps.GeneratorHandler = handler.NewGeneratorHandler(generatorService, logger)
		deps.GeneratorLimiter = middleware.RateLimit("generator", cfg.GeneratorRateLimit, time.Minute)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
