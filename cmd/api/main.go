package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/suyogshakya/khajaghar-backend/api/routes"
	authsvc "github.com/suyogshakya/khajaghar-backend/internal/auth"
	cartsvc "github.com/suyogshakya/khajaghar-backend/internal/cart"
	catalogsvc "github.com/suyogshakya/khajaghar-backend/internal/catalog"
	ordersvc "github.com/suyogshakya/khajaghar-backend/internal/orders"
	"github.com/suyogshakya/khajaghar-backend/internal/payments"
	settingssvc "github.com/suyogshakya/khajaghar-backend/internal/settings"
	"github.com/suyogshakya/khajaghar-backend/pkg/config"
	"github.com/suyogshakya/khajaghar-backend/pkg/db"
	"github.com/suyogshakya/khajaghar-backend/pkg/logger"
	"github.com/suyogshakya/khajaghar-backend/pkg/metrics"
	"github.com/suyogshakya/khajaghar-backend/pkg/migrate"
	"github.com/suyogshakya/khajaghar-backend/pkg/redis"
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
	catalogRepo := catalogsvc.NewRepository(gormDB)
	ordersRepo := ordersvc.NewRepository(gormDB)
	attemptsRepo := payments.NewRepository(gormDB)

	authService, err := authsvc.NewService(authsvc.NewRepository(gormDB), cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogService, err := catalogsvc.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	settingsService, err := settingssvc.NewService(settingssvc.NewRepository(gormDB), cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartsvc.NewRepository(gormDB), catalogRepo, dbClient, cartsvc.NewLogNotifier(logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderService, err := ordersvc.NewService(ordersRepo, catalogRepo, settingsService, cartService, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

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
			cfg, logg, dbClient, redisClient,
			authService, catalogService, cartService, orderService, settingsService, reconciler,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
