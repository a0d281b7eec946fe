package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	scherrors "github.com/tourops/guide-scheduler/internal/errors"
	"github.com/tourops/guide-scheduler/internal/model"
	"github.com/tourops/guide-scheduler/internal/provider"
	"github.com/tourops/guide-scheduler/internal/repository"
)

// fixedNow is the pinned clock for aggregator tests.
var fixedNow = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func TestGetBookings_MergesLocalAndCachedSorted(t *testing.T) {
	db := openTestDB(t)
	local := repository.NewGormLocalBookingStore(db)
	cache := repository.NewGormCacheStore(db)
	products := repository.NewGormProductMappingStore(db)
	remote := newFakeRemote()

	agg := NewBookingAggregator(local, cache, remote, products, testLogger())
	agg.Now = func() time.Time { return fixedNow }

	seedLocalBooking(t, db, &model.LocalBooking{
		TourType:    "gion-tour",
		BookingDate: datatypes.Date(dateOf(t, "2025-06-02")),
		BookingTime: "10:00",
		Status:      model.BookingStatusConfirmed,
		Customer:    model.Customer{Name: "Aiko Tanaka", Email: "aiko@mail.test"},
	})
	seedCachedBooking(t, db, &model.CachedBooking{
		ExternalID:  "BK100",
		ProductID:   "P1",
		TourType:    "gion-tour",
		BookingDate: datatypes.Date(dateOf(t, "2025-06-01")),
		BookingTime: "10:00",
		Status:      model.BookingStatusConfirmed,
		Customer:    model.Customer{Name: "John Smith", Email: "john@mail.test"},
		SyncedAt:    fixedNow,
	})

	got, err := agg.GetBookings(context.Background(), repository.BookingFilter{})
	if err != nil {
		t.Fatalf("GetBookings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(got))
	}
	// Ascending by (date, time): the external June 1st booking first.
	if got[0].Source != model.BookingSourceExternal || got[0].DedupKey() != "BK100" {
		t.Fatalf("expected external BK100 first, got %+v", got[0])
	}
	if got[1].Source != model.BookingSourceLocal {
		t.Fatalf("expected local booking second, got %+v", got[1])
	}
}

func TestGetBookings_DropsPastBookings(t *testing.T) {
	db := openTestDB(t)
	agg := NewBookingAggregator(
		repository.NewGormLocalBookingStore(db),
		repository.NewGormCacheStore(db),
		newFakeRemote(),
		repository.NewGormProductMappingStore(db),
		testLogger(),
	)
	agg.Now = func() time.Time { return fixedNow } // 2025-05-20 12:00 UTC

	seedLocalBooking(t, db, &model.LocalBooking{
		TourType:    "gion-tour",
		BookingDate: datatypes.Date(dateOf(t, "2025-05-19")),
		BookingTime: "10:00",
		Status:      model.BookingStatusConfirmed,
	})
	seedLocalBooking(t, db, &model.LocalBooking{
		TourType:    "gion-tour",
		BookingDate: datatypes.Date(dateOf(t, "2025-05-20")),
		BookingTime: "09:00", // today, already started
		Status:      model.BookingStatusConfirmed,
	})
	seedLocalBooking(t, db, &model.LocalBooking{
		TourType:    "gion-tour",
		BookingDate: datatypes.Date(dateOf(t, "2025-05-20")),
		BookingTime: "15:00", // today, still ahead
		Status:      model.BookingStatusConfirmed,
	})

	got, err := agg.GetBookings(context.Background(), repository.BookingFilter{})
	if err != nil {
		t.Fatalf("GetBookings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 future booking, got %d", len(got))
	}
	if got[0].BookingTime != "15:00" {
		t.Fatalf("expected the 15:00 booking, got %s", got[0].BookingTime)
	}
	for _, b := range got {
		if b.StartsAt().Before(fixedNow) {
			t.Fatalf("booking %s is in the past", b.DedupKey())
		}
	}
}

func TestGetBookings_EmptyCacheFallsBackToLive(t *testing.T) {
	db := openTestDB(t)
	remote := newFakeRemote()
	agg := NewBookingAggregator(
		repository.NewGormLocalBookingStore(db),
		repository.NewGormCacheStore(db),
		remote,
		repository.NewGormProductMappingStore(db),
		testLogger(),
	)
	agg.Now = func() time.Time { return fixedNow }

	seedProduct(t, db, "P1", "gion-tour")
	remote.bookings["P1"] = []provider.RawBooking{
		rawBooking("BK100", "P1", "CONFIRMED", "2025-06-01", "10:00", "John Smith"),
	}

	got, err := agg.GetBookings(context.Background(), repository.BookingFilter{})
	if err != nil {
		t.Fatalf("GetBookings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 live booking, got %d", len(got))
	}
	if got[0].ExternalID == nil || *got[0].ExternalID != "BK100" {
		t.Fatalf("expected BK100 from live fallback, got %+v", got[0])
	}
	if remote.calls["P1"] != 1 {
		t.Fatalf("expected one live call for P1, got %d", remote.calls["P1"])
	}
}

func TestGetBookings_CacheVersionWinsOverLiveDuplicate(t *testing.T) {
	db := openTestDB(t)
	remote := newFakeRemote()
	agg := NewBookingAggregator(
		repository.NewGormLocalBookingStore(db),
		repository.NewGormCacheStore(db),
		remote,
		repository.NewGormProductMappingStore(db),
		testLogger(),
	)
	agg.Now = func() time.Time { return fixedNow }

	seedProduct(t, db, "P1", "gion-tour")
	seedProduct(t, db, "P2", "arashiyama-tour")

	// P1 is cached; P2 has no cached rows and triggers a live fetch
	// that happens to return the already-cached BK100 as well.
	seedCachedBooking(t, db, &model.CachedBooking{
		ExternalID:  "BK100",
		ProductID:   "P1",
		TourType:    "gion-tour",
		BookingDate: datatypes.Date(dateOf(t, "2025-06-01")),
		BookingTime: "10:00",
		Status:      model.BookingStatusConfirmed,
		Customer:    model.Customer{Name: "Cache Version"},
		SyncedAt:    fixedNow,
	})
	remote.bookings["P2"] = []provider.RawBooking{
		rawBooking("BK100", "P2", "CONFIRMED", "2025-06-01", "10:00", "Live Version"),
		rawBooking("BK200", "P2", "CONFIRMED", "2025-06-03", "13:00", "Maria Rossi"),
	}

	got, err := agg.GetBookings(context.Background(), repository.BookingFilter{})
	if err != nil {
		t.Fatalf("GetBookings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 deduplicated bookings, got %d", len(got))
	}

	var bk100 *model.Booking
	for i := range got {
		if got[i].DedupKey() == "BK100" {
			bk100 = &got[i]
		}
	}
	if bk100 == nil {
		t.Fatalf("BK100 missing from result")
	}
	if bk100.Customer.Name != "Cache Version" {
		t.Fatalf("expected cache version of BK100, got customer %q", bk100.Customer.Name)
	}
	if remote.calls["P1"] != 0 {
		t.Fatalf("cached product P1 must not be fetched live")
	}
}

func TestGetBookings_CacheErrorDegradesToLive(t *testing.T) {
	db := openTestDB(t)
	remote := newFakeRemote()
	cache := &flakyCache{
		CacheStore: repository.NewGormCacheStore(db),
		queryErr:   errors.New("cache unavailable"),
	}
	agg := NewBookingAggregator(
		repository.NewGormLocalBookingStore(db),
		cache,
		remote,
		repository.NewGormProductMappingStore(db),
		testLogger(),
	)
	agg.Now = func() time.Time { return fixedNow }

	seedProduct(t, db, "P1", "gion-tour")
	remote.bookings["P1"] = []provider.RawBooking{
		rawBooking("BK300", "P1", "CONFIRMED", "2025-06-05", "10:00", "Erik Larsen"),
	}

	got, err := agg.GetBookings(context.Background(), repository.BookingFilter{})
	if err != nil {
		t.Fatalf("cache error must not fail the aggregation: %v", err)
	}
	if len(got) != 1 || got[0].DedupKey() != "BK300" {
		t.Fatalf("expected live BK300 despite cache error, got %+v", got)
	}
}

func TestGetBookings_OneProductFailureDegradesPartially(t *testing.T) {
	db := openTestDB(t)
	remote := newFakeRemote()
	agg := NewBookingAggregator(
		repository.NewGormLocalBookingStore(db),
		repository.NewGormCacheStore(db),
		remote,
		repository.NewGormProductMappingStore(db),
		testLogger(),
	)
	agg.Now = func() time.Time { return fixedNow }

	seedProduct(t, db, "P1", "gion-tour")
	seedProduct(t, db, "P2", "arashiyama-tour")
	remote.errs["P1"] = errors.New("provider timeout")
	remote.bookings["P2"] = []provider.RawBooking{
		rawBooking("BK400", "P2", "CONFIRMED", "2025-06-07", "09:00", "Ben Okafor"),
	}

	got, err := agg.GetBookings(context.Background(), repository.BookingFilter{})
	if err != nil {
		t.Fatalf("one product failure must not fail the aggregation: %v", err)
	}
	if len(got) != 1 || got[0].DedupKey() != "BK400" {
		t.Fatalf("expected partial result with BK400, got %+v", got)
	}
}

func TestGetBookings_LocalStoreFailureIsFatal(t *testing.T) {
	db := openTestDB(t)
	agg := NewBookingAggregator(
		repository.NewGormLocalBookingStore(db),
		repository.NewGormCacheStore(db),
		newFakeRemote(),
		repository.NewGormProductMappingStore(db),
		testLogger(),
	)
	agg.Now = func() time.Time { return fixedNow }

	if err := db.Exec("DROP TABLE bookings").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, err := agg.GetBookings(context.Background(), repository.BookingFilter{})
	if err == nil {
		t.Fatalf("expected fatal error when local store is unreachable")
	}
	if !scherrors.IsFatalStore(err) {
		t.Fatalf("expected FatalStore kind, got %v", err)
	}
}

func TestGetBookings_AppliesSearchAndTourTypeFilters(t *testing.T) {
	db := openTestDB(t)
	agg := NewBookingAggregator(
		repository.NewGormLocalBookingStore(db),
		repository.NewGormCacheStore(db),
		newFakeRemote(),
		repository.NewGormProductMappingStore(db),
		testLogger(),
	)
	agg.Now = func() time.Time { return fixedNow }

	seedLocalBooking(t, db, &model.LocalBooking{
		TourType:    "gion-tour",
		BookingDate: datatypes.Date(dateOf(t, "2025-06-02")),
		BookingTime: "10:00",
		Status:      model.BookingStatusConfirmed,
		Customer:    model.Customer{Name: "Aiko Tanaka", Email: "aiko@mail.test"},
	})
	seedLocalBooking(t, db, &model.LocalBooking{
		TourType:    "arashiyama-tour",
		BookingDate: datatypes.Date(dateOf(t, "2025-06-02")),
		BookingTime: "13:00",
		Status:      model.BookingStatusConfirmed,
		Customer:    model.Customer{Name: "John Smith", Email: "john@mail.test"},
	})

	got, err := agg.GetBookings(context.Background(), repository.BookingFilter{
		TourTypes: []string{"gion-tour"},
	})
	if err != nil {
		t.Fatalf("GetBookings: %v", err)
	}
	if len(got) != 1 || got[0].TourType != "gion-tour" {
		t.Fatalf("tour type filter failed: %+v", got)
	}

	got, err = agg.GetBookings(context.Background(), repository.BookingFilter{Search: "JOHN"})
	if err != nil {
		t.Fatalf("GetBookings: %v", err)
	}
	if len(got) != 1 || got[0].Customer.Name != "John Smith" {
		t.Fatalf("case-insensitive search failed: %+v", got)
	}
}

func TestGetBookings_RejectsInvertedDateRange(t *testing.T) {
	db := openTestDB(t)
	agg := NewBookingAggregator(
		repository.NewGormLocalBookingStore(db),
		repository.NewGormCacheStore(db),
		newFakeRemote(),
		repository.NewGormProductMappingStore(db),
		testLogger(),
	)

	from := dateOf(t, "2025-06-10")
	to := dateOf(t, "2025-06-01")
	_, err := agg.GetBookings(context.Background(), repository.BookingFilter{From: &from, To: &to})
	if !scherrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
