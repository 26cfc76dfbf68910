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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/scolarite-api/internal/config"
	"github.com/noah-isme/scolarite-api/internal/database"
	"github.com/noah-isme/scolarite-api/internal/handler"
	"github.com/noah-isme/scolarite-api/internal/middleware"
	"github.com/noah-isme/scolarite-api/internal/observability"
	"github.com/noah-isme/scolarite-api/internal/repository"
	"github.com/noah-isme/scolarite-api/internal/router"
	"github.com/noah-isme/scolarite-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, dashboard cache and cross-node events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	gradeRepo := repository.NewGradeStudentRepository(db)
	absenceRepo := repository.NewAbsenceRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	eventService := service.NewEventService(redisClient, cfg.EventsChannel, natsConn, logger)
	dashboardService := service.NewDashboardService(gradeRepo, absenceRepo, redisClient, cfg.DashboardCacheTTL, cfg.BlacklistThreshold, logger)
	notifier := service.NewChangeNotifier(activityService, eventService, dashboardService, logger)

	gradeService := service.NewGradeService(gradeRepo, absenceRepo, validate, notifier, logger)
	absenceService := service.NewAbsenceService(absenceRepo, validate, notifier, service.AbsencePolicy{
		Threshold:         cfg.BlacklistThreshold,
		MaxHours:          cfg.AbsenceMaxHours,
		DefaultTotalHours: cfg.AbsenceDefaultTotalHours,
		MaxUploadMB:       cfg.UploadMaxMB,
	}, logger)
	studentService := service.NewStudentService(studentRepo, validate, notifier, logger)
	seedService := service.NewSeedService(gradeRepo, absenceRepo, studentRepo, dashboardService, logger)

	if cfg.SeedOnStart {
		result, err := seedService.SeedDemo(ctx)
		if err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
		logger.Info().
			Int("grade_students", result.GradeStudents).
			Int("absence_records", result.AbsenceRecords).
			Int("students", result.Students).
			Msg("demo data seeded")
	}

	if err := eventService.Start(ctx); err != nil {
		log.Fatalf("failed to subscribe to event transports: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:    &logger,
		AccessLog: cfg.AppEnv == "development",
	})
	probes := []handler.HealthProbe{{
		Name:  "database",
		Check: func(ctx context.Context) error { return database.Ping(ctx, db) },
	}}
	if redisClient != nil {
		probes = append(probes, handler.HealthProbe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	if natsConn != nil {
		probes = append(probes, handler.HealthProbe{
			Name:  "nats",
			Check: func(context.Context) error { return database.NATSReady(natsConn) },
		})
	}

	router.Register(app, cfg, router.Dependencies{
		GradeHandler:       handler.NewGradeHandler(gradeService, logger),
		AbsenceHandler:     handler.NewAbsenceHandler(absenceService, logger),
		StudentHandler:     handler.NewStudentHandler(studentService, logger),
		DashboardHandler:   handler.NewDashboardHandler(dashboardService, logger),
		ActivityHandler:    handler.NewActivityHandler(activityService, logger),
		EventStreamHandler: handler.NewEventStreamHandler(eventService, logger),
		HealthProbes:       probes,
	})

	if !cfg.AuthEnabled() {
		logger.Warn().Msg("jwt secret not set, write routes are unauthenticated")
	}

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
