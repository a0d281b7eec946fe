package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	scherrors "github.com/tourops/guide-scheduler/internal/errors"
	"github.com/tourops/guide-scheduler/internal/model"
	"github.com/tourops/guide-scheduler/internal/provider"
	"github.com/tourops/guide-scheduler/internal/repository"
)

// Порог, после которого кеш считается устаревшим. Предупреждение,
// не жёсткий отказ: путь чтения он никогда не блокирует.
const defaultStaleAfter = 24 * time.Hour

// SyncFailure — отказ синхронизации одного продукта.
type SyncFailure struct {
	ProductID string `json:"productId"`
	TourType  string `json:"tourType"`
	Error     string `json:"error"`
}

// SyncReport — итог одного прогона SyncAll.
type SyncReport struct {
	RunID       uuid.UUID `json:"runId"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	ProductsSynced int           `json:"productsSynced"`
	ProductsFailed int           `json:"productsFailed"`
	BookingsCached int           `json:"bookingsCached"`
	Failures       []SyncFailure `json:"failures,omitempty"`
}

// HealthReport — возраст последней полной синхронизации.
type HealthReport struct {
	LastFullSync *time.Time `json:"lastFullSync,omitempty"`
	AgeSeconds   int64      `json:"ageSeconds"`
	Stale        bool       `json:"stale"`
}

// CacheSyncOrchestrator гонит полный ресинк всех активных продуктов
// в зеркало внешних броней и отвечает за его здоровье и очистку.
type CacheSyncOrchestrator struct {
	cache    repository.CacheStore
	remote   provider.RemoteBookingClient
	products repository.ProductMappingStore

	log *slog.Logger

	// Переопределяется в тестах.
	Now               func() time.Time
	PastDays          int
	FutureDays        int
	MaxInFlight       int64
	PerProductTimeout time.Duration
	StaleAfter        time.Duration
}

func NewCacheSyncOrchestrator(
	cache repository.CacheStore,
	remote provider.RemoteBookingClient,
	products repository.ProductMappingStore,
	log *slog.Logger,
) *CacheSyncOrchestrator {
	return &CacheSyncOrchestrator{
		cache:    cache,
		remote:   remote,
		products: products,
		log:      log,

		Now:               func() time.Time { return time.Now().UTC() },
		PastDays:          defaultPastDays,
		FutureDays:        defaultFutureDays,
		MaxInFlight:       defaultMaxInFlight,
		PerProductTimeout: defaultPerProductTimeout,
		StaleAfter:        defaultStaleAfter,
	}
}

// SyncAll синхронизирует все активные продукты в ограниченном окне
// дат. Отказ одного продукта не прерывает прогон: отказы копятся в
// отчёте рядом с количеством успешно закешированных броней. Прогон
// фиксируется в метаданных даже при нуле успехов.
func (o *CacheSyncOrchestrator) SyncAll(ctx context.Context) (*SyncReport, error) {
	ctx, span := otel.Tracer("guide-scheduler/cachesync").Start(ctx, "SyncAll")
	defer span.End()

	mappings, err := o.products.ListActive(ctx)
	if err != nil {
		return nil, scherrors.SourceUnavailable("sync_all", "product_mappings", err)
	}

	report := &SyncReport{
		RunID:     uuid.New(),
		StartedAt: o.Now(),
	}

	start := report.StartedAt.AddDate(0, 0, -o.PastDays)
	end := report.StartedAt.AddDate(0, 0, o.FutureDays)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(o.MaxInFlight)
	)

	for _, m := range mappings {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			report.ProductsFailed++
			report.Failures = append(report.Failures, SyncFailure{
				ProductID: m.ExternalProductID,
				TourType:  m.TourType,
				Error:     err.Error(),
			})
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(m model.ProductMapping) {
			defer wg.Done()
			defer sem.Release(1)

			cached, err := o.syncProduct(ctx, m, start, end)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.ProductsFailed++
				report.Failures = append(report.Failures, SyncFailure{
					ProductID: m.ExternalProductID,
					TourType:  m.TourType,
					Error:     err.Error(),
				})
				return
			}
			report.ProductsSynced++
			report.BookingsCached += cached
		}(m)
	}
	wg.Wait()

	report.CompletedAt = o.Now()

	run := &model.CacheSyncRun{
		ID:             report.RunID,
		StartedAt:      report.StartedAt,
		CompletedAt:    report.CompletedAt,
		ProductsSynced: report.ProductsSynced,
		ProductsFailed: report.ProductsFailed,
		BookingsCached: report.BookingsCached,
	}
	if err := o.cache.RecordSyncRun(ctx, run); err != nil {
		o.log.Error("failed to record sync run", "run_id", report.RunID, "error", err)
	}

	span.SetAttributes(
		attribute.Int("sync.products_synced", report.ProductsSynced),
		attribute.Int("sync.products_failed", report.ProductsFailed),
		attribute.Int("sync.bookings_cached", report.BookingsCached),
	)
	o.log.Info("cache sync completed",
		"run_id", report.RunID,
		"products_synced", report.ProductsSynced,
		"products_failed", report.ProductsFailed,
		"bookings_cached", report.BookingsCached)

	return report, nil
}

func (o *CacheSyncOrchestrator) syncProduct(
	ctx context.Context,
	m model.ProductMapping,
	start, end time.Time,
) (int, error) {
	pctx, cancel := context.WithTimeout(ctx, o.PerProductTimeout)
	defer cancel()

	raws, err := o.remote.FetchBookings(pctx, m.ExternalProductID, start, end)
	if err != nil {
		return 0, err
	}

	syncedAt := o.Now()
	rows := make([]model.CachedBooking, 0, len(raws))
	for _, raw := range raws {
		row, err := provider.ToCachedBooking(raw, m.TourType, syncedAt)
		if err != nil {
			// Кривую строку провайдера пропускаем, остальные кешируем.
			o.log.Warn("skipping malformed provider booking",
				"product", m.ExternalProductID, "error", err)
			continue
		}
		rows = append(rows, row)
	}

	if err := o.cache.Upsert(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Health сообщает возраст последней полной синхронизации и флаг
// устаревания за порогом.
func (o *CacheSyncOrchestrator) Health(ctx context.Context) (*HealthReport, error) {
	run, err := o.cache.LastSyncRun(ctx)
	if err != nil {
		return nil, scherrors.SourceUnavailable("cache_health", "cache_store", err)
	}
	if run == nil {
		// Синхронизация ещё не ходила ни разу.
		return &HealthReport{Stale: true}, nil
	}

	age := o.Now().Sub(run.CompletedAt)
	last := run.CompletedAt
	return &HealthReport{
		LastFullSync: &last,
		AgeSeconds:   int64(age.Seconds()),
		Stale:        age > o.StaleAfter,
	}, nil
}

// Clear удаляет все закешированные внешние брони и метаданные.
// Используется только для принудительного полного ресинка и не
// должен быть достижим из обычных путей чтения.
func (o *CacheSyncOrchestrator) Clear(ctx context.Context) error {
	if err := o.cache.Clear(ctx); err != nil {
		return scherrors.SourceUnavailable("cache_clear", "cache_store", err)
	}
	o.log.Info("external booking cache cleared")
	return nil
}
