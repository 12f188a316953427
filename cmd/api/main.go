package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/pos-backend/api/routes"
	"github.com/angelmondragon/pos-backend/internal/cart"
	"github.com/angelmondragon/pos-backend/internal/catalog"
	"github.com/angelmondragon/pos-backend/internal/sales"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/env"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/migrate"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
	"github.com/angelmondragon/pos-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
	})

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid timezone", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storeMetrics := metrics.NewSaleStoreMetrics(registry)

	notifier, err := sales.NewRedisNotifier(redisClient, redisClient.ChannelKey(cfg.Sales.ChangeChannel))
	if err != nil {
		logg.Error(ctx, "failed to create change notifier", err)
		os.Exit(1)
	}

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg, "pos-api")

	storeClient, err := sales.NewClient(func() (sales.Store, error) {
		return sales.NewStore(sales.StoreParams{
			DB:       dbClient,
			Notifier: notifier,
			Events:   events,
			Metrics:  storeMetrics,
			Logger:   logg,
		})
	})
	if err != nil {
		logg.Error(ctx, "failed to create sale store client", err)
		os.Exit(1)
	}
	store, err := storeClient.Init()
	if err != nil {
		logg.Error(ctx, "failed to initialise sale store", err)
		os.Exit(1)
	}

	errorHub := sales.NewErrorHub(16)
	salesRepo, err := sales.NewRepository(sales.RepositoryParams{
		Store:      store,
		Reporter:   sales.Reporters{sales.NewLogReporter(logg, storeMetrics), errorHub},
		Logger:     logg,
		Collection: cfg.Sales.Collection,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sales repository", err)
		os.Exit(1)
	}
	if err := salesRepo.Subscribe(ctx); err != nil {
		logg.Error(ctx, "failed to subscribe to sales", err)
		os.Exit(1)
	}
	defer salesRepo.Close()

	products := catalog.Default()
	cartService, err := cart.NewService(cart.NewRepository(redisClient, cfg.Sales.CartTTL), products, salesRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"timezone": loc.String(),
	})
	logg.Info(ctx, "starting api server")

	server := routes.NewServer(addr, routes.NewRouter(cfg, logg, loc, dbClient, redisClient, registry, products, cartService, salesRepo, errorHub))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
		salesRepo.Wait()
	}
}
