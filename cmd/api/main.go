package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/careflow-service/internal/api/http"
	"github.com/spec-kit/careflow-service/internal/api/http/handlers"
	"github.com/spec-kit/careflow-service/internal/auth"
	"github.com/spec-kit/careflow-service/internal/config"
	"github.com/spec-kit/careflow-service/internal/events"
	"github.com/spec-kit/careflow-service/internal/observability"
	"github.com/spec-kit/careflow-service/internal/persistence"
	"github.com/spec-kit/careflow-service/internal/realtime"
	"github.com/spec-kit/careflow-service/internal/repository"
	"github.com/spec-kit/careflow-service/internal/service"
	"github.com/spec-kit/careflow-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		accountRepo      repository.AccountRepository
		approvalRepo     repository.ApprovalRepository
		roleRepo         repository.RoleRepository
		notificationRepo repository.NotificationRepository
		appointmentRepo  repository.AppointmentRepository
		scheduleRepo     repository.ScheduleRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		accountRepo = repository.NewAccountRepository(pool)
		approvalRepo = repository.NewApprovalRepository(pool)
		roleRepo = repository.NewRoleRepository(pool)
		notificationRepo = repository.NewNotificationRepository(pool)
		appointmentRepo = repository.NewAppointmentRepository(pool)
		scheduleRepo = repository.NewScheduleRepository(pool)
	} else {
		logger.Warn("running with in-memory stores; data will not survive restart")
		store := repository.NewMemoryStore()
		accountRepo = store.Accounts()
		approvalRepo = store.Approvals()
		roleRepo = store.Roles()
		notificationRepo = store.Notifications()
		appointmentRepo = store.Appointments()
		scheduleRepo = store.Schedule()
	}

	var hub realtime.Hub
	if redis.Ping(ctx) == nil {
		hub = realtime.NewRedisHub(redis.Client, logger)
	} else {
		logger.Warn("redis unavailable; realtime events stay in-process")
		hub = realtime.NewMemoryHub()
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartRealtimeWorker(realtime.NewPublisher(hub, logger), dispatcher)

	notificationService := service.NewNotificationService(notificationRepo, logger)
	approvalService := service.NewApprovalService(approvalRepo, roleRepo, notificationService, dispatcher, logger)
	escalationService := service.NewEscalationService(roleRepo, notificationService, dispatcher, logger)
	reconcilerService := service.NewReconcilerService(
		[]service.AppointmentSource{
			service.NewSelfServiceSource(appointmentRepo),
			service.NewScheduledSource(scheduleRepo),
		},
		notificationService,
		dispatcher,
		logger,
	)
	authService := service.NewAuthService(*cfg, accountRepo, roleRepo, approvalService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo, roleRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Approvals:      handlers.NewApprovalsHandler(approvalService, hub, logger),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Escalations:    handlers.NewEscalationsHandler(escalationService),
		Webhook:        handlers.NewWebhookHandler(reconcilerService, cfg.Webhook.SharedSecret, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
