package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sadhanapeeth/sadhana-backend/api/routes"
	accesssvc "github.com/sadhanapeeth/sadhana-backend/internal/access"
	contentsvc "github.com/sadhanapeeth/sadhana-backend/internal/content"
	deliverysvc "github.com/sadhanapeeth/sadhana-backend/internal/delivery"
	plansvc "github.com/sadhanapeeth/sadhana-backend/internal/plans"
	schedulesvc "github.com/sadhanapeeth/sadhana-backend/internal/schedules"
	subsvc "github.com/sadhanapeeth/sadhana-backend/internal/subscriptions"
	"github.com/sadhanapeeth/sadhana-backend/pkg/config"
	"github.com/sadhanapeeth/sadhana-backend/pkg/db"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/metrics"
	"github.com/sadhanapeeth/sadhana-backend/pkg/migrate"
	"github.com/sadhanapeeth/sadhana-backend/pkg/redis"
	"github.com/sadhanapeeth/sadhana-backend/pkg/storage/s3"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
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

	storageClient, err := s3.NewClient(context.Background(), cfg.S3, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deliveryMetrics := metrics.NewDeliveryMetrics(registry)

	recordStore := store.NewGormStore(dbClient.DB())

	planService, err := plansvc.NewService(plansvc.ServiceParams{
		Repo:   plansvc.NewRepository(recordStore),
		Logger: logg,
		Cache:  redisClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create plan catalog", err)
		os.Exit(1)
	}

	subscriptionService, err := subsvc.NewService(subsvc.ServiceParams{
		Repo:   subsvc.NewRepository(recordStore),
		Plans:  planService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	contentService, err := contentsvc.NewService(contentsvc.ServiceParams{
		Repo:      contentsvc.NewRepository(recordStore),
		Plans:     planService,
		Storage:   storageClient,
		Logger:    logg,
		UploadTTL: cfg.Media.UploadURLTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create content library", err)
		os.Exit(1)
	}

	accessService, err := accesssvc.NewService(accesssvc.ServiceParams{
		Subscriptions: subscriptionService,
		Content:       contentService,
		Plans:         planService,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create access gate", err)
		os.Exit(1)
	}

	deliveryService, err := deliverysvc.NewService(deliverysvc.ServiceParams{
		Access:      accessService,
		Content:     contentService,
		Plans:       planService,
		Storage:     storageClient,
		Logger:      logg,
		Metrics:     deliveryMetrics,
		DownloadTTL: cfg.Media.DownloadURLTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery gateway", err)
		os.Exit(1)
	}

	scheduleService, err := schedulesvc.NewService(schedulesvc.ServiceParams{
		Repo:    schedulesvc.NewRepository(recordStore),
		Plans:   planService,
		Subs:    subscriptionService,
		Content: contentService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create schedule service", err)
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
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, storageClient, routes.Services{
			Plans:         planService,
			Subscriptions: subscriptionService,
			Content:       contentService,
			Access:        accessService,
			Delivery:      deliveryService,
			Schedules:     scheduleService,
		}, registry),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
