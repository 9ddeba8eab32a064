package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/renatoqp/puntoventa-backend/api/controllers"
	"github.com/renatoqp/puntoventa-backend/api/routes"
	"github.com/renatoqp/puntoventa-backend/internal/catalog"
	"github.com/renatoqp/puntoventa-backend/internal/customers"
	"github.com/renatoqp/puntoventa-backend/internal/inventory"
	"github.com/renatoqp/puntoventa-backend/internal/points"
	"github.com/renatoqp/puntoventa-backend/internal/promotions"
	"github.com/renatoqp/puntoventa-backend/internal/sales"
	"github.com/renatoqp/puntoventa-backend/internal/tickets"
	"github.com/renatoqp/puntoventa-backend/pkg/clock"
	"github.com/renatoqp/puntoventa-backend/pkg/config"
	"github.com/renatoqp/puntoventa-backend/pkg/db"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
	"github.com/renatoqp/puntoventa-backend/pkg/metrics"
	"github.com/renatoqp/puntoventa-backend/pkg/migrate"
	"github.com/renatoqp/puntoventa-backend/pkg/outbox"
	"github.com/renatoqp/puntoventa-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: cfg.App.ServiceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.WarnStack,
	})

	dbClient, err := db.New(db.Options{
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	salesMetrics := metrics.NewSalesMetrics(registry)

	gormDB := dbClient.DB()
	clk := clock.System()

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gormDB), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	customersSvc, err := customers.NewService(customers.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create customers service", err)
		os.Exit(1)
	}
	inventorySvc, err := inventory.NewService(inventory.NewRepository(gormDB), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	pointsSvc, err := points.NewService(points.NewRepository(gormDB), dbClient, clk, cfg.Points)
	if err != nil {
		logg.Error(context.Background(), "failed to create points service", err)
		os.Exit(1)
	}
	promoRepo := promotions.NewRepository(gormDB)
	promotionsSvc, err := promotions.NewService(promoRepo, clk)
	if err != nil {
		logg.Error(context.Background(), "failed to create promotions service", err)
		os.Exit(1)
	}
	salesRepo := sales.NewRepository(gormDB)
	ticketsSvc, err := tickets.NewService(tickets.ServiceDeps{
		Repo:      tickets.NewRepository(gormDB),
		Tx:        dbClient,
		Products:  catalog.NewRepository(gormDB),
		Customers: customers.NewRepository(gormDB),
		PromoRepo: promoRepo,
		Engine:    promotions.Engine{BirthdayGraceDays: cfg.Promotions.BirthdayGraceDays},
		Stock:     inventorySvc,
		Points:    pointsSvc,
		SalesRepo: salesRepo,
		Events:    outbox.NewService(outbox.NewRepository(gormDB), logg),
		Metrics:   salesMetrics,
		Clock:     clk,
		SalesCfg:  cfg.Sales,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tickets service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Redis:    redisClient,
		Registry: registry,
		Readiness: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Catalog:    catalogSvc,
		Customers:  customersSvc,
		Inventory:  inventorySvc,
		Points:     pointsSvc,
		Promotions: promotionsSvc,
		Tickets:    ticketsSvc,
		SalesRepo:  salesRepo,
	})

	addr := fmt.Sprintf(":%d", cfg.App.HTTPPort)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{Addr: addr, Handler: handler}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		graceCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down")
}
