package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	scherrors "github.com/tourops/guide-scheduler/internal/errors"
	"github.com/tourops/guide-scheduler/internal/model"
	"github.com/tourops/guide-scheduler/internal/provider"
	"github.com/tourops/guide-scheduler/internal/repository"
)

const (
	// Окно live-фолбэка, когда фильтр не задаёт интервал дат.
	defaultPastDays   = 30
	defaultFutureDays = 90

	// Таймаут на один продукт при live-фолбэке: один зависший продукт
	// деградирует частично, а не стопорит всю агрегацию.
	defaultPerProductTimeout = 10 * time.Second

	// Ограничение одновременных вызовов провайдера.
	defaultMaxInFlight = 5
)

// BookingAggregator собирает единый дедуплицированный вид бронирований
// из локального журнала и зеркала сторонней платформы. Локальный журнал
// авторитетен и читается напрямую; внешняя сторона идёт через кеш с
// live-фолбэком по продуктам, у которых в кеше пусто.
type BookingAggregator struct {
	local    repository.LocalBookingStore
	cache    repository.CacheStore
	remote   provider.RemoteBookingClient
	products repository.ProductMappingStore

	log *slog.Logger

	// Переопределяется в тестах.
	Now               func() time.Time
	PerProductTimeout time.Duration
	MaxInFlight       int64
}

func NewBookingAggregator(
	local repository.LocalBookingStore,
	cache repository.CacheStore,
	remote provider.RemoteBookingClient,
	products repository.ProductMappingStore,
	log *slog.Logger,
) *BookingAggregator {
	return &BookingAggregator{
		local:    local,
		cache:    cache,
		remote:   remote,
		products: products,
		log:      log,

		Now:               func() time.Time { return time.Now().UTC() },
		PerProductTimeout: defaultPerProductTimeout,
		MaxInFlight:       defaultMaxInFlight,
	}
}

// GetBookings возвращает объединённый вид бронирований по фильтру:
// слияние источников, дедупликация, фильтрация, отбрасывание прошедших
// и сортировка по (дата, время). Чистое чтение без побочных эффектов.
func (a *BookingAggregator) GetBookings(ctx context.Context, filter repository.BookingFilter) ([]model.Booking, error) {
	ctx, span := otel.Tracer("guide-scheduler/aggregator").Start(ctx, "GetBookings")
	defer span.End()

	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, scherrors.Validationf("aggregate", "filter: to %s is before from %s",
			filter.To.Format("2006-01-02"), filter.From.Format("2006-01-02"))
	}

	var (
		locals    []model.LocalBooking
		externals []model.Booking
	)

	// Оба источника читаем параллельно. Отказ локального журнала
	// фатален; внешняя сторона деградирует до пустого набора внутри
	// fetchExternal и ошибок наружу не отдаёт.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.local.Query(gctx, filter)
		if err != nil {
			return scherrors.FatalStore("aggregate", "local_store", err)
		}
		locals = rows
		return nil
	})
	g.Go(func() error {
		externals = a.fetchExternal(gctx, filter)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Слияние и дедупликация: первый встреченный ключ побеждает.
	// Ключи источников не пересекаются по построению; внутри внешнего
	// набора кеш уже предпочтён live-строкам в fetchExternal.
	seen := make(map[string]struct{}, len(locals)+len(externals))
	merged := make([]model.Booking, 0, len(locals)+len(externals))
	appendBooking := func(b model.Booking) {
		key := b.DedupKey()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		merged = append(merged, b)
	}
	for _, lb := range locals {
		appendBooking(lb.Booking())
	}
	for _, eb := range externals {
		appendBooking(eb)
	}

	now := a.Now()
	result := make([]model.Booking, 0, len(merged))
	for _, b := range merged {
		if !matchesFilter(b, filter) {
			continue
		}
		// Строго прошедшие (дата, время) в расписании не показываем.
		if b.StartsAt().Before(now) {
			continue
		}
		result = append(result, b)
	}

	sort.Slice(result, func(i, j int) bool {
		si, sj := result[i].StartsAt(), result[j].StartsAt()
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return result[i].DedupKey() < result[j].DedupKey()
	})

	span.SetAttributes(attribute.Int("bookings.count", len(result)))
	return result, nil
}

// fetchExternal читает внешние брони: сперва кеш, затем live-фолбэк
// по продуктам, для которых кеш не дал ни одной строки (при ошибке
// чтения кеша — по всем активным продуктам). Любая ошибка здесь
// деградирует до частичного результата.
func (a *BookingAggregator) fetchExternal(ctx context.Context, filter repository.BookingFilter) []model.Booking {
	out := make(map[string]model.Booking)
	cachedPerProduct := make(map[string]int)

	cached, err := a.cache.Query(ctx, filter)
	cacheFailed := err != nil
	if cacheFailed {
		a.log.Warn("cache read failed, falling back to live provider", "error", err)
	}
	for _, c := range cached {
		b := c.Booking()
		out[b.DedupKey()] = b
		cachedPerProduct[c.ProductID]++
	}

	mappings, err := a.products.ListActive(ctx)
	if err != nil {
		a.log.Warn("product mappings unavailable, skipping live fallback", "error", err)
		return mapValues(out)
	}

	var fallback []model.ProductMapping
	for _, m := range mappings {
		if cacheFailed || cachedPerProduct[m.ExternalProductID] == 0 {
			fallback = append(fallback, m)
		}
	}
	if len(fallback) == 0 {
		return mapValues(out)
	}

	if !cacheFailed {
		// Пустой кеш по продукту не отличим от "синк ещё не ходил";
		// политика — всё равно идти в live. Возраст последнего синка
		// пишем в лог, чтобы цена фолбэка была видна.
		if run, lsErr := a.cache.LastSyncRun(ctx); lsErr == nil && run != nil {
			a.log.Debug("cache empty for products, falling back to live",
				"products", len(fallback),
				"last_sync_age", a.Now().Sub(run.CompletedAt).String())
		}
	}

	start, end := a.liveWindow(filter)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(a.MaxInFlight)
	)
	now := a.Now()

	for _, m := range fallback {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(m model.ProductMapping) {
			defer wg.Done()
			defer sem.Release(1)

			pctx, cancel := context.WithTimeout(ctx, a.PerProductTimeout)
			defer cancel()

			raws, err := a.remote.FetchBookings(pctx, m.ExternalProductID, start, end)
			if err != nil {
				// Отказ одного продукта не валит остальные.
				a.log.Warn("live fetch failed", "product", m.ExternalProductID, "error", err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for _, raw := range raws {
				b, err := provider.ToBooking(raw, m.TourType, now)
				if err != nil {
					a.log.Warn("skipping malformed provider booking", "product", m.ExternalProductID, "error", err)
					continue
				}
				// Кешовая строка с тем же ключом побеждает live-строку.
				if _, ok := out[b.DedupKey()]; !ok {
					out[b.DedupKey()] = b
				}
			}
		}(m)
	}
	wg.Wait()

	return mapValues(out)
}

func (a *BookingAggregator) liveWindow(filter repository.BookingFilter) (time.Time, time.Time) {
	now := a.Now()
	start := now.AddDate(0, 0, -defaultPastDays)
	end := now.AddDate(0, 0, defaultFutureDays)
	if filter.From != nil {
		start = *filter.From
	}
	if filter.To != nil {
		end = *filter.To
	}
	return start, end
}

// matchesFilter применяет предикаты, не проталкиваемые в сторы:
// тип тура, назначенный гид и поиск по клиенту. Статусы и интервал
// дат уже отфильтрованы на стороне БД для кеша и локального журнала,
// но live-строки проходят только здесь, поэтому проверяем всё.
func matchesFilter(b model.Booking, filter repository.BookingFilter) bool {
	if filter.From != nil && b.BookingDate.Before(*filter.From) {
		return false
	}
	if filter.To != nil && b.BookingDate.After(*filter.To) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, b.Status) {
		return false
	}
	if len(filter.TourTypes) > 0 && !containsString(filter.TourTypes, b.TourType) {
		return false
	}
	if len(filter.GuideIDs) > 0 {
		if b.AssignedGuideID == nil || !containsUUID(filter.GuideIDs, *b.AssignedGuideID) {
			return false
		}
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		name := strings.ToLower(b.Customer.Name)
		email := strings.ToLower(b.Customer.Email)
		if !strings.Contains(name, needle) && !strings.Contains(email, needle) {
			return false
		}
	}
	return true
}

func containsStatus(list []model.BookingStatus, s model.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsUUID(list []uuid.UUID, id uuid.UUID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func mapValues(m map[string]model.Booking) []model.Booking {
	out := make([]model.Booking, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	return out
}
