package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mealrounds/mealrounds-backend/api/routes"
	"github.com/mealrounds/mealrounds-backend/internal/catalog"
	"github.com/mealrounds/mealrounds-backend/internal/clients"
	"github.com/mealrounds/mealrounds-backend/internal/ordering"
	"github.com/mealrounds/mealrounds-backend/internal/promotion"
	"github.com/mealrounds/mealrounds-backend/internal/schedule"
	"github.com/mealrounds/mealrounds-backend/internal/sequence"
	"github.com/mealrounds/mealrounds-backend/internal/settings"
	"github.com/mealrounds/mealrounds-backend/internal/vendors"
	"github.com/mealrounds/mealrounds-backend/pkg/config"
	"github.com/mealrounds/mealrounds-backend/pkg/db"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
	"github.com/mealrounds/mealrounds-backend/pkg/migrate"
	"github.com/mealrounds/mealrounds-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
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
		catalog.NewRepository(dbClient.DB()),
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			reconciler,
			promoter,
			allocator,
			catalogService,
			settingsService,
			calc,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
