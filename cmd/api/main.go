package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/opsdesk/ticketing/internal/api/http"
	"github.com/opsdesk/ticketing/internal/api/http/handlers"
	"github.com/opsdesk/ticketing/internal/auth"
	"github.com/opsdesk/ticketing/internal/config"
	"github.com/opsdesk/ticketing/internal/events"
	"github.com/opsdesk/ticketing/internal/observability"
	"github.com/opsdesk/ticketing/internal/persistence"
	"github.com/opsdesk/ticketing/internal/repository"
	"github.com/opsdesk/ticketing/internal/service"
	"github.com/opsdesk/ticketing/internal/worker"
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

	store := repository.NewStore(pg.PoolHandle())
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	notificationService := service.NewNotificationService(store, redis.Client, cfg.Notification.RedisChannel, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Notifier:   notificationService,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	recurringService := service.NewRecurringService(service.RecurringDependencies{
		Store:      store,
		Tickets:    ticketService,
		Notifier:   notificationService,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	fieldDefService := service.NewFieldDefService(store)
	authService := service.NewAuthService(cfg, store.Users())
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Users())

	worker.StartEventLogger(dispatcher, logger)
	recurringWorker := worker.NewRecurringWorker(recurringService, cfg.Scheduler, logger, metrics)
	if err := recurringWorker.Start(); err != nil {
		logger.Fatal("failed to start recurring scheduler", zap.Error(err))
	}
	defer recurringWorker.Stop()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Recurring:      handlers.NewRecurringHandler(recurringService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		FieldDefs:      handlers.NewFieldDefsHandler(fieldDefService),
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
