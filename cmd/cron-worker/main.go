package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mealrounds/mealrounds-backend/internal/catalog"
	"github.com/mealrounds/mealrounds-backend/internal/clients"
	"github.com/mealrounds/mealrounds-backend/internal/cron"
	"github.com/mealrounds/mealrounds-backend/internal/ordering"
	"github.com/mealrounds/mealrounds-backend/internal/promotion"
	"github.com/mealrounds/mealrounds-backend/internal/schedule"
	"github.com/mealrounds/mealrounds-backend/internal/sequence"
	"github.com/mealrounds/mealrounds-backend/internal/settings"
	"github.com/mealrounds/mealrounds-backend/internal/vendors"
	"github.com/mealrounds/mealrounds-backend/pkg/config"
	"github.com/mealrounds/mealrounds-backend/pkg/db"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
	"github.com/mealrounds/mealrounds-backend/pkg/metrics"
	"github.com/mealrounds/mealrounds-backend/pkg/migrate"
	"github.com/mealrounds/mealrounds-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	loc, err := time.LoadLocation(cfg.Delivery.Timezone)
	if err != nil {
		logg.Error(context.Background(), "invalid delivery timezone", err)
		os.Exit(1)
	}
	calc := schedule.NewCalculator(loc)

	orderRepo := ordering.NewRepository(dbClient.DB())
	clientRepo := clients.NewRepository(dbClient.DB())
	vendorCache := vendors.NewCache(vendors.NewRepository(dbClient.DB()), vendors.WithTTL(cfg.Delivery.VendorCacheTTL))
	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()), cfg.Delivery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	allocator, err := sequence.NewAllocator(orderRepo,
		sequence.WithMinNumber(cfg.Delivery.MinOrderNumber),
		sequence.WithRetries(cfg.Delivery.AllocationRetries),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order number allocator", err)
		os.Exit(1)
	}

	reconciler, err := ordering.NewService(
		orderRepo,
		clientRepo,
		vendorCache,
		settingsService,
		allocator,
		catalogRepo,
		calc,
		dbClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order reconciler", err)
		os.Exit(1)
	}

	promoter, err := promotion.NewService(orderRepo, calc, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create promotion service", err)
		os.Exit(1)
	}

	propagator, err := catalog.NewPropagationService(catalogService, clientRepo, reconciler, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog propagation service", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	promoteJob, err := cron.NewPromoteDueJob(cron.PromoteDueJobParams{
		Logger:   logg,
		Promoter: promoter,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create promote-due job", err)
		os.Exit(1)
	}

	syncJob, err := cron.NewCatalogSyncJob(cron.CatalogSyncJobParams{
		Logger:     logg,
		Propagator: propagator,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog-sync job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(promoteJob, syncJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
