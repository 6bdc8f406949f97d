package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/suyogshakya/khajaghar-backend/internal/cron"
	ordersvc "github.com/suyogshakya/khajaghar-backend/internal/orders"
	"github.com/suyogshakya/khajaghar-backend/internal/payments"
	"github.com/suyogshakya/khajaghar-backend/pkg/config"
	"github.com/suyogshakya/khajaghar-backend/pkg/db"
	"github.com/suyogshakya/khajaghar-backend/pkg/logger"
	"github.com/suyogshakya/khajaghar-backend/pkg/metrics"
	"github.com/suyogshakya/khajaghar-backend/pkg/migrate"
	"github.com/suyogshakya/khajaghar-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	gormDB := dbClient.DB()
	ordersRepo := ordersvc.NewRepository(gormDB)
	attemptsRepo := payments.NewRepository(gormDB)
	gatewayMetrics := metrics.NewGatewayMetrics(prometheus.DefaultRegisterer)

	adapters := []payments.Adapter{payments.NewCashOnDelivery()}
	if cfg.Esewa.SecretKey != "" {
		esewa, err := payments.NewEsewa(cfg.Esewa, cfg.App.BaseURL, gatewayMetrics)
		if err != nil {
			logg.Error(context.Background(), "failed to create esewa adapter", err)
			os.Exit(1)
		}
		adapters = append(adapters, esewa)
	}
	if cfg.Khalti.SecretKey != "" {
		khalti, err := payments.NewKhalti(cfg.Khalti, cfg.App.BaseURL, gatewayMetrics)
		if err != nil {
			logg.Error(context.Background(), "failed to create khalti adapter", err)
			os.Exit(1)
		}
		adapters = append(adapters, khalti)
	}

	reconciler, err := payments.NewReconciler(ordersRepo, attemptsRepo, adapters, redisClient, dbClient, logg, payments.ReconcilerConfig{
		CallbackDedupeTTL: cfg.Checkout.CallbackDedupeTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment reconciler", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewPaymentReconcileJob(reconciler, cfg.Cron)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment reconcile job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reconcileJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.TickInterval,
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
