package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"absstitch/internal/commons"
	"absstitch/internal/config"
	"absstitch/internal/dashboard"
	"absstitch/internal/design"
	"absstitch/internal/freshness"
	"absstitch/internal/infrastructure/logger"
	"absstitch/internal/infrastructure/mysql"
	"absstitch/internal/invoice"
	"absstitch/internal/notification"
	notifrepo "absstitch/internal/notification/repository"
	"absstitch/internal/order"
	"absstitch/internal/query"
	"absstitch/internal/server"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	cache := query.NewCache(cfg.Cache.TTL)
	dispatcher := notification.NewDispatcher(
		notifrepo.NewMySQLNotificationRepository(db), zapLogger, 5*time.Second,
	)

	transitionCtrl, orderRepo := order.NewModule(db, cache, dispatcher, zapLogger)
	invoiceCtrl, invoiceRepo := invoice.NewModule(db, orderRepo, cache, dispatcher, zapLogger)
	designCtrl, designRepo := design.NewModule(db, cache, zapLogger)

	counters := freshness.CounterMap{
		dashboard.SectionOrders:   orderRepo.CountCreatedAfter,
		dashboard.SectionInvoices: invoiceRepo.CountCreatedAfter,
		dashboard.SectionDesigns:  designRepo.CountCreatedAfter,
	}

	registry := dashboard.NewRegistry(cache, dashboard.Fetchers{
		Orders:   orderRepo.List,
		Invoices: invoiceRepo.List,
		Designs:  designRepo.List,
	}, counters, dashboard.Config{
		QuietPeriod:      cfg.Debounce.QuietPeriod,
		RetryMaxAttempts: cfg.Retry.MaxAttempts,
		RetryBaseDelay:   cfg.Retry.BaseDelay,
		FreshnessWindow:  cfg.Freshness.DefaultWindow,
	}, zapLogger)

	dashboardCtrl := dashboard.NewController(registry, zapLogger)

	router := server.NewRouter(transitionCtrl, invoiceCtrl, designCtrl, dashboardCtrl, zapLogger)
	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	registry.CloseAll()
	dispatcher.Wait()

	zapLogger.Info("server stopped gracefully")
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return commons.LoadConfig(path)
	}
	return config.Load()
}
