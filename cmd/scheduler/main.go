package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tourops/guide-scheduler/internal/config"
	"github.com/tourops/guide-scheduler/internal/db"
	"github.com/tourops/guide-scheduler/internal/logging"
	"github.com/tourops/guide-scheduler/internal/model"
	"github.com/tourops/guide-scheduler/internal/obs"
	"github.com/tourops/guide-scheduler/internal/provider"
	"github.com/tourops/guide-scheduler/internal/repository"
	"github.com/tourops/guide-scheduler/internal/server"
	"github.com/tourops/guide-scheduler/internal/service"
)

func main() {
	// 1. Загружаем .env (если есть) и конфиг из окружения.
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New()

	// 2. Трейсинг.
	shutdownTracer := obs.InitTracer("guide-scheduler")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	// 3. Подключаемся к БД через GORM и мигрируем модели.
	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		log.Fatalf("init db: %v", err)
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("sql DB: %v", err)
	}
	defer sqlDB.Close()

	// 4. Сторы (реализации на GORM) и клиент провайдера.
	localStore := repository.NewGormLocalBookingStore(gormDB)
	cacheStore := repository.NewGormCacheStore(gormDB)
	shiftStore := repository.NewGormShiftStore(gormDB)
	employeeStore := repository.NewGormEmployeeStore(gormDB)
	productStore := repository.NewGormProductMappingStore(gormDB)

	remote := provider.NewHTTPClient(
		cfg.ProviderBaseURL,
		cfg.ProviderAPIKey,
		time.Duration(cfg.ProviderTimeoutSec)*time.Second,
	)

	// 5. Движки ядра.
	aggregator := service.NewBookingAggregator(localStore, cacheStore, remote, productStore, logger)
	aggregator.PerProductTimeout = time.Duration(cfg.ProviderTimeoutSec) * time.Second
	aggregator.MaxInFlight = int64(cfg.SyncMaxInFlight)

	orchestrator := service.NewCacheSyncOrchestrator(cacheStore, remote, productStore, logger)
	orchestrator.PastDays = cfg.SyncPastDays
	orchestrator.FutureDays = cfg.SyncFutureDays
	orchestrator.MaxInFlight = int64(cfg.SyncMaxInFlight)
	orchestrator.PerProductTimeout = time.Duration(cfg.ProviderTimeoutSec) * time.Second
	orchestrator.StaleAfter = time.Duration(cfg.CacheStaleAfterHr) * time.Hour

	resolver := service.NewGuideConflictResolver(localStore, cacheStore, shiftStore, employeeStore, logger)
	assigner := service.NewAutoAssignmentEngine(localStore, cacheStore, shiftStore, resolver, logger)

	// 6. HTTP-сервер.
	router := server.NewRouter(server.Deps{
		Aggregator: aggregator,
		Sync:       orchestrator,
		Resolver:   resolver,
		Assigner:   assigner,
		Shifts:     server.NewShiftHandler(shiftStore),
		Log:        logger,
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	rootCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			os.Exit(1)
		}
	}()

	// 7. Периодическая синхронизация кеша, если включена.
	if cfg.SyncIntervalMin > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(cfg.SyncIntervalMin) * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-rootCtx.Done():
					return
				case <-ticker.C:
					if _, err := orchestrator.SyncAll(rootCtx); err != nil {
						logger.Error("periodic cache sync", "error", err)
					}
				}
			}
		}()
	}

	// 8. Грейсфул-шатдаун по сигналу.
	<-rootCtx.Done()
	logger.Info("shutting down http server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
}
