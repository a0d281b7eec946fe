package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tourops/guide-scheduler/internal/model"
	"github.com/tourops/guide-scheduler/internal/provider"
	"github.com/tourops/guide-scheduler/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestDB creates an in-memory sqlite database with a
// sqlite-friendly schema for the query/update logic.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := []string{
		`CREATE TABLE bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tour_type TEXT NOT NULL,
			booking_date DATE NOT NULL,
			booking_time TEXT NOT NULL,
			status TEXT NOT NULL,
			adults INTEGER NOT NULL DEFAULT 0,
			children INTEGER NOT NULL DEFAULT 0,
			infants INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0,
			customer_name TEXT,
			customer_email TEXT,
			customer_phone TEXT,
			assigned_guide_id TEXT,
			guide_notes TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE external_bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL UNIQUE,
			product_id TEXT NOT NULL,
			tour_type TEXT NOT NULL,
			booking_date DATE NOT NULL,
			booking_time TEXT NOT NULL,
			status TEXT NOT NULL,
			adults INTEGER NOT NULL DEFAULT 0,
			children INTEGER NOT NULL DEFAULT 0,
			infants INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0,
			customer_name TEXT,
			customer_email TEXT,
			customer_phone TEXT,
			assigned_guide_id TEXT,
			guide_notes TEXT,
			synced_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE shift_availabilities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_id TEXT NOT NULL,
			tour_type TEXT NOT NULL,
			shift_date DATE NOT NULL,
			time_slot TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (employee_id, tour_type, shift_date, time_slot)
		);`,
		`CREATE TABLE employees (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT,
			email TEXT,
			qualifications TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE product_mappings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_product_id TEXT NOT NULL UNIQUE,
			tour_type TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE cache_sync_runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			completed_at DATETIME NOT NULL,
			products_synced INTEGER NOT NULL DEFAULT 0,
			products_failed INTEGER NOT NULL DEFAULT 0,
			bookings_cached INTEGER NOT NULL DEFAULT 0
		);`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	return db
}

func seedLocalBooking(t *testing.T, db *gorm.DB, b *model.LocalBooking) {
	t.Helper()
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed local booking: %v", err)
	}
}

func seedCachedBooking(t *testing.T, db *gorm.DB, b *model.CachedBooking) {
	t.Helper()
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed cached booking: %v", err)
	}
}

func seedEmployee(t *testing.T, db *gorm.DB, e *model.Employee) {
	t.Helper()
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("seed employee: %v", err)
	}
}

func seedShift(t *testing.T, db *gorm.DB, s *model.ShiftAvailability) {
	t.Helper()
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed shift: %v", err)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, productID, tourType string) {
	t.Helper()
	m := &model.ProductMapping{ExternalProductID: productID, TourType: tourType, IsActive: true}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed product mapping: %v", err)
	}
}

func newGuide(firstName, lastName string, qualifications ...string) *model.Employee {
	return &model.Employee{
		ID:             uuid.New(),
		FirstName:      firstName,
		LastName:       lastName,
		Email:          firstName + "@example.com",
		Qualifications: datatypes.NewJSONSlice(qualifications),
		IsActive:       true,
	}
}

// fakeRemote is an in-memory RemoteBookingClient.
type fakeRemote struct {
	bookings map[string][]provider.RawBooking
	errs     map[string]error
	calls    map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		bookings: map[string][]provider.RawBooking{},
		errs:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeRemote) FetchBookings(_ context.Context, productID string, _, _ time.Time) ([]provider.RawBooking, error) {
	f.calls[productID]++
	if err, ok := f.errs[productID]; ok {
		return nil, err
	}
	return f.bookings[productID], nil
}

func rawBooking(id, productID, status, date, slot, customerName string) provider.RawBooking {
	raw := provider.RawBooking{
		BookingID: id,
		ProductID: productID,
		Status:    status,
		Date:      date,
		StartTime: slot,
	}
	raw.Pax.Adults = 2
	raw.Customer.Name = customerName
	raw.Customer.Email = customerName + "@mail.test"
	return raw
}

// flakyCache wraps a real CacheStore and fails reads on demand.
type flakyCache struct {
	repository.CacheStore
	queryErr    error
	assignedErr error
}

func (f *flakyCache) Query(ctx context.Context, filter repository.BookingFilter) ([]model.CachedBooking, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.CacheStore.Query(ctx, filter)
}

func (f *flakyCache) ListAssignedAt(ctx context.Context, date time.Time, slot string) ([]model.CachedBooking, error) {
	if f.assignedErr != nil {
		return nil, f.assignedErr
	}
	return f.CacheStore.ListAssignedAt(ctx, date, slot)
}

func dateOf(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}
