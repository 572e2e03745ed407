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
	"github.com/rs/zerolog"

	"github.com/noah-isme/satria-go-api/internal/config"
	"github.com/noah-isme/satria-go-api/internal/database"
	"github.com/noah-isme/satria-go-api/internal/handler"
	"github.com/noah-isme/satria-go-api/internal/middleware"
	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/repository"
	"github.com/noah-isme/satria-go-api/internal/router"
	"github.com/noah-isme/satria-go-api/internal/service"
	cloud "github.com/noah-isme/satria-go-api/pkg/cloudinary"
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
		&models.Student{},
		&models.Faculty{},
		&models.Activity{},
		&models.FacultyApproval{},
		&models.WorkflowEvent{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	activityRepo := repository.NewActivityRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	eventRepo := repository.NewWorkflowEventRepository(db)

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()

	reviewStream := service.NewReviewEventStream(redisClient, cfg.ReviewChannelBase, natsConn, logger)
	reviewStream.Start(streamCtx)

	eventService := service.NewWorkflowEventService(eventRepo, redisClient, cfg.EventCacheTTL, logger)
	activityService := service.NewActivityService(activityRepo, approvalRepo, studentRepo, validate, uploader, eventService, reviewStream, logger)
	approvalService := service.NewApprovalService(approvalRepo, activityRepo, facultyRepo, validate, eventService, reviewStream, logger)
	workloadService := service.NewWorkloadService(approvalRepo, validate, redisClient, cfg.WorkloadCacheTTL, logger)

	if cfg.SeedDemoData {
		seeder := service.NewSeedService(studentRepo, facultyRepo, activityRepo, logger)
		if err := seeder.SeedDemoData(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("demo data seeding failed")
		}
	}

	activityHandler := handler.NewActivityHandler(activityService, logger)
	approvalHandler := handler.NewApprovalHandler(approvalService, logger)
	workloadHandler := handler.NewWorkloadHandler(workloadService, logger)
	eventHandler := handler.NewEventHandler(eventService, reviewStream, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ActivityHandler: activityHandler,
		ApprovalHandler: approvalHandler,
		WorkloadHandler: workloadHandler,
		EventHandler:    eventHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

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
