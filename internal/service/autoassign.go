package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tourops/guide-scheduler/internal/calendar"
	scherrors "github.com/tourops/guide-scheduler/internal/errors"
	"github.com/tourops/guide-scheduler/internal/model"
	"github.com/tourops/guide-scheduler/internal/repository"
)

// Итог обработки одной брони в прогоне автоназначения.
type AssignmentOutcome string

const (
	OutcomeAssigned     AssignmentOutcome = "assigned"
	OutcomeNoCandidates AssignmentOutcome = "no_candidates"
	OutcomeFailed       AssignmentOutcome = "failed"
)

type AssignmentResult struct {
	BookingID uint              `json:"bookingId"`
	TourType  string            `json:"tourType"`
	Date      string            `json:"date"`
	TimeSlot  string            `json:"timeSlot"`
	Outcome   AssignmentOutcome `json:"outcome"`

	GuideID   *uuid.UUID `json:"guideId,omitempty"`
	GuideName string     `json:"guideName,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type AssignmentReport struct {
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	Processed int `json:"processed"`
	Assigned  int `json:"assigned"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	Results []AssignmentResult `json:"results"`
}

// AutoAssignmentEngine проходит по подтверждённым броням без гида и
// жадно назначает первого свободного кандидата. Прогоны single-flight:
// параллельный вызов присоединяется к уже идущему и получает его отчёт —
// вместе с условным переходом смены это закрывает окно гонки между
// проверкой кандидата и записью назначения.
type AutoAssignmentEngine struct {
	local    repository.LocalBookingStore
	cache    repository.CacheStore
	shifts   repository.ShiftStore
	resolver *GuideConflictResolver

	log *slog.Logger
	sf  singleflight.Group

	// Переопределяется в тестах.
	Now func() time.Time
}

func NewAutoAssignmentEngine(
	local repository.LocalBookingStore,
	cache repository.CacheStore,
	shifts repository.ShiftStore,
	resolver *GuideConflictResolver,
	log *slog.Logger,
) *AutoAssignmentEngine {
	return &AutoAssignmentEngine{
		local:    local,
		cache:    cache,
		shifts:   shifts,
		resolver: resolver,
		log:      log,

		Now: func() time.Time { return time.Now().UTC() },
	}
}

// AutoAssign — один прогон по всем подтверждённым неназначенным
// будущим локальным броням. Отказ на одной брони попадает в отчёт,
// цикл продолжается; прогон не прерывается никогда.
func (e *AutoAssignmentEngine) AutoAssign(ctx context.Context) (*AssignmentReport, error) {
	v, err, _ := e.sf.Do("auto-assign", func() (any, error) {
		return e.run(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*AssignmentReport), nil
}

func (e *AutoAssignmentEngine) run(ctx context.Context) (*AssignmentReport, error) {
	ctx, span := otel.Tracer("guide-scheduler/autoassign").Start(ctx, "AutoAssign")
	defer span.End()

	now := e.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	bookings, err := e.local.ListUnassignedConfirmed(ctx, today)
	if err != nil {
		return nil, scherrors.FatalStore("auto_assign", "local_store", err)
	}

	report := &AssignmentReport{
		StartedAt: now,
		Results:   make([]AssignmentResult, 0, len(bookings)),
	}

	// Брони обрабатываются строго последовательно: в пределах одного
	// прогона два пересекающихся слота не увидят одного и того же
	// гида свободным.
	for _, b := range bookings {
		booking := b.Booking()
		if booking.StartsAt().Before(now) {
			// Сегодняшний, но уже прошедший слот.
			continue
		}
		report.Processed++

		res := e.assignOne(ctx, b)
		switch res.Outcome {
		case OutcomeAssigned:
			report.Assigned++
		case OutcomeNoCandidates:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}

	report.CompletedAt = e.Now()

	span.SetAttributes(
		attribute.Int("assign.processed", report.Processed),
		attribute.Int("assign.assigned", report.Assigned),
		attribute.Int("assign.failed", report.Failed),
	)
	e.log.Info("auto-assignment completed",
		"processed", report.Processed,
		"assigned", report.Assigned,
		"skipped", report.Skipped,
		"failed", report.Failed)

	return report, nil
}

func (e *AutoAssignmentEngine) assignOne(ctx context.Context, b model.LocalBooking) AssignmentResult {
	date := time.Time(b.BookingDate).UTC()
	res := AssignmentResult{
		BookingID: b.ID,
		TourType:  b.TourType,
		Date:      date.Format(calendar.DateLayout),
		TimeSlot:  b.BookingTime,
	}

	candidates, err := e.resolver.AvailableGuides(ctx, b.TourType, date, b.BookingTime)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}
	if len(candidates) == 0 {
		res.Outcome = OutcomeNoCandidates
		return res
	}

	// Первый кандидат в стабильном порядке (по имени).
	guide := candidates[0]

	// Сначала условный переход смены available -> assigned: это
	// охраняемая запись, вторая попытка занять ту же смену получит
	// ConflictViolation вместо двойного назначения.
	if err := e.shifts.MarkAssigned(ctx, guide.ID, b.TourType, date, b.BookingTime); err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	notes := fmt.Sprintf("auto-assigned %s", e.Now().Format(time.RFC3339))
	if err := e.local.UpdateGuideAssignment(ctx, b.ID, guide.ID, notes); err != nil {
		// Компенсация: смену возвращаем, иначе она зависнет в assigned
		// без владеющей брони.
		if relErr := e.shifts.Release(ctx, guide.ID, b.TourType, date, b.BookingTime); relErr != nil {
			e.log.Error("failed to release shift after assignment failure",
				"booking_id", b.ID, "guide_id", guide.ID, "error", relErr)
		}
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	gid := guide.ID
	res.Outcome = OutcomeAssigned
	res.GuideID = &gid
	res.GuideName = strings.TrimSpace(guide.FirstName + " " + guide.LastName)
	return res
}

// AssignGuide — ручное назначение гида админом. Проходит ту же
// проверку конфликтов и тот же охраняемый переход смены, что и
// автоназначение.
func (e *AutoAssignmentEngine) AssignGuide(ctx context.Context, bookingID uint, guideID uuid.UUID, notes string) error {
	b, err := e.local.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scherrors.Validationf("assign_guide", "booking %d not found", bookingID)
		}
		return scherrors.FatalStore("assign_guide", "local_store", err)
	}
	if b.Status == model.BookingStatusCancelled || b.Status == model.BookingStatusRejected {
		return scherrors.Validationf("assign_guide", "booking %d is %s", bookingID, b.Status)
	}
	if b.AssignedGuideID != nil {
		return scherrors.ConflictViolation("assign_guide",
			fmt.Errorf("booking %d already has a guide assigned", bookingID))
	}

	date := time.Time(b.BookingDate).UTC()

	candidates, err := e.resolver.AvailableGuides(ctx, b.TourType, date, b.BookingTime)
	if err != nil {
		return err
	}
	eligible := false
	for _, c := range candidates {
		if c.ID == guideID {
			eligible = true
			break
		}
	}
	if !eligible {
		return scherrors.ConflictViolation("assign_guide",
			fmt.Errorf("guide %s is not available for booking %d", guideID, bookingID))
	}

	if err := e.shifts.MarkAssigned(ctx, guideID, b.TourType, date, b.BookingTime); err != nil {
		return err
	}
	if err := e.local.UpdateGuideAssignment(ctx, bookingID, guideID, notes); err != nil {
		if relErr := e.shifts.Release(ctx, guideID, b.TourType, date, b.BookingTime); relErr != nil {
			e.log.Error("failed to release shift after assignment failure",
				"booking_id", bookingID, "guide_id", guideID, "error", relErr)
		}
		return scherrors.FatalStore("assign_guide", "local_store", err)
	}
	return nil
}

// AssignExternalGuide — ручное назначение гида на внешнюю
// (закешированную) бронь. Назначение живёт только в зеркале и
// переживает ресинк: upsert эти поля не трогает.
func (e *AutoAssignmentEngine) AssignExternalGuide(ctx context.Context, externalID string, guideID uuid.UUID, notes string) error {
	b, err := e.cache.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scherrors.Validationf("assign_guide", "external booking %s not found", externalID)
		}
		return scherrors.SourceUnavailable("assign_guide", "cache_store", err)
	}
	if b.Status == model.BookingStatusCancelled || b.Status == model.BookingStatusRejected {
		return scherrors.Validationf("assign_guide", "external booking %s is %s", externalID, b.Status)
	}
	if b.AssignedGuideID != nil {
		return scherrors.ConflictViolation("assign_guide",
			fmt.Errorf("external booking %s already has a guide assigned", externalID))
	}

	date := time.Time(b.BookingDate).UTC()

	candidates, err := e.resolver.AvailableGuides(ctx, b.TourType, date, b.BookingTime)
	if err != nil {
		return err
	}
	eligible := false
	for _, c := range candidates {
		if c.ID == guideID {
			eligible = true
			break
		}
	}
	if !eligible {
		return scherrors.ConflictViolation("assign_guide",
			fmt.Errorf("guide %s is not available for external booking %s", guideID, externalID))
	}

	if err := e.shifts.MarkAssigned(ctx, guideID, b.TourType, date, b.BookingTime); err != nil {
		return err
	}
	if err := e.cache.UpdateGuideAssignment(ctx, externalID, guideID, notes); err != nil {
		if relErr := e.shifts.Release(ctx, guideID, b.TourType, date, b.BookingTime); relErr != nil {
			e.log.Error("failed to release shift after assignment failure",
				"external_id", externalID, "guide_id", guideID, "error", relErr)
		}
		return scherrors.SourceUnavailable("assign_guide", "cache_store", err)
	}
	return nil
}

// UnassignExternalGuide снимает гида с внешней брони.
func (e *AutoAssignmentEngine) UnassignExternalGuide(ctx context.Context, externalID string) error {
	b, err := e.cache.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scherrors.Validationf("unassign_guide", "external booking %s not found", externalID)
		}
		return scherrors.SourceUnavailable("unassign_guide", "cache_store", err)
	}
	if b.AssignedGuideID == nil {
		return scherrors.Validationf("unassign_guide", "external booking %s has no guide assigned", externalID)
	}

	date := time.Time(b.BookingDate).UTC()
	guideID := *b.AssignedGuideID

	if err := e.shifts.Release(ctx, guideID, b.TourType, date, b.BookingTime); err != nil {
		if !scherrors.IsConflictViolation(err) {
			return err
		}
		e.log.Warn("no assigned shift to release", "external_id", externalID, "guide_id", guideID)
	}
	if err := e.cache.ClearGuideAssignment(ctx, externalID); err != nil {
		return scherrors.SourceUnavailable("unassign_guide", "cache_store", err)
	}
	return nil
}

// UnassignGuide снимает назначение: сперва возвращает смену в
// available, затем чистит гида на брони. Смена не удаляется — только
// меняет статус, чтобы доступность гида не потерялась.
func (e *AutoAssignmentEngine) UnassignGuide(ctx context.Context, bookingID uint) error {
	b, err := e.local.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scherrors.Validationf("unassign_guide", "booking %d not found", bookingID)
		}
		return scherrors.FatalStore("unassign_guide", "local_store", err)
	}
	if b.AssignedGuideID == nil {
		return scherrors.Validationf("unassign_guide", "booking %d has no guide assigned", bookingID)
	}

	date := time.Time(b.BookingDate).UTC()
	guideID := *b.AssignedGuideID

	if err := e.shifts.Release(ctx, guideID, b.TourType, date, b.BookingTime); err != nil {
		// Смены может не быть (назначение пришло из внешнего источника
		// или смена удалена вручную) — это не блокирует снятие.
		if !scherrors.IsConflictViolation(err) {
			return err
		}
		e.log.Warn("no assigned shift to release", "booking_id", bookingID, "guide_id", guideID)
	}
	if err := e.local.ClearGuideAssignment(ctx, bookingID); err != nil {
		return scherrors.FatalStore("unassign_guide", "local_store", err)
	}
	return nil
}
