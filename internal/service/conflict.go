package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tourops/guide-scheduler/internal/calendar"
	scherrors "github.com/tourops/guide-scheduler/internal/errors"
	"github.com/tourops/guide-scheduler/internal/model"
	"github.com/tourops/guide-scheduler/internal/repository"
)

// GuideConflictResolver отвечает на вопрос "кто из гидов свободен на
// этот тур/дату/слот". Гид исключается, если на точно этот слот у него
// уже есть бронь в любом из источников — ради этого инварианта и
// существует сверка между журналом и зеркалом. Фолбэка "квалифицирован,
// но доступность не выставил" нет намеренно: пустой результат при
// отсутствии выставленных смен — бизнес-политика, а не упущение.
type GuideConflictResolver struct {
	local     repository.LocalBookingStore
	cache     repository.CacheStore
	shifts    repository.ShiftStore
	employees repository.EmployeeStore

	log *slog.Logger
}

func NewGuideConflictResolver(
	local repository.LocalBookingStore,
	cache repository.CacheStore,
	shifts repository.ShiftStore,
	employees repository.EmployeeStore,
	log *slog.Logger,
) *GuideConflictResolver {
	return &GuideConflictResolver{
		local:     local,
		cache:     cache,
		shifts:    shifts,
		employees: employees,
		log:       log,
	}
}

// AvailableGuides возвращает активных квалифицированных гидов со
// сменой available на точный (тип тура, дата, слот), за вычетом уже
// занятых в любом источнике. Порядок — по имени по возрастанию.
// Любая ошибка чтения фатальна: предложить гида при сбое проверки
// конфликтов строго хуже, чем отказать.
func (r *GuideConflictResolver) AvailableGuides(
	ctx context.Context,
	tourType string,
	date time.Time,
	slot string,
) ([]model.Employee, error) {
	if tourType == "" {
		return nil, scherrors.Validationf("available_guides", "tour type is required")
	}
	if date.IsZero() {
		return nil, scherrors.Validation("available_guides", calendar.ErrInvalidDate)
	}
	if err := calendar.ParseSlot(slot); err != nil {
		return nil, scherrors.Validation("available_guides", err)
	}

	conflicts, err := r.conflictSet(ctx, date, slot)
	if err != nil {
		return nil, err
	}

	shifts, err := r.shifts.ListAvailable(ctx, tourType, date, slot)
	if err != nil {
		return nil, scherrors.FatalStore("available_guides", "shift_store", err)
	}
	if len(shifts) == 0 {
		return []model.Employee{}, nil
	}

	ids := make([]uuid.UUID, 0, len(shifts))
	for _, s := range shifts {
		ids = append(ids, s.EmployeeID)
	}

	employees, err := r.employees.ListActiveByIDs(ctx, ids)
	if err != nil {
		return nil, scherrors.FatalStore("available_guides", "employee_store", err)
	}

	result := make([]model.Employee, 0, len(employees))
	for _, e := range employees {
		if !e.QualifiedFor(tourType) {
			continue
		}
		if _, busy := conflicts[e.ID]; busy {
			continue
		}
		result = append(result, e)
	}

	// Детерминированный порядок: первым кандидатом всегда будет один
	// и тот же гид при неизменных данных.
	sort.Slice(result, func(i, j int) bool {
		if result[i].FirstName != result[j].FirstName {
			return result[i].FirstName < result[j].FirstName
		}
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	return result, nil
}

// conflictSet собирает множество гидов, уже занятых на точный
// (дата, слот): локальные брони в confirmed/pending и внешние
// (закешированные) в confirmed, у которых назначен гид.
func (r *GuideConflictResolver) conflictSet(
	ctx context.Context,
	date time.Time,
	slot string,
) (map[uuid.UUID]struct{}, error) {
	conflicts := make(map[uuid.UUID]struct{})

	locals, err := r.local.ListAssignedAt(ctx, date, slot,
		[]model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusPending})
	if err != nil {
		return nil, scherrors.FatalStore("conflict_set", "local_store", err)
	}
	for _, b := range locals {
		if b.AssignedGuideID != nil {
			conflicts[*b.AssignedGuideID] = struct{}{}
		}
	}

	externals, err := r.cache.ListAssignedAt(ctx, date, slot)
	if err != nil {
		return nil, scherrors.SourceUnavailable("conflict_set", "cache_store", err)
	}
	for _, b := range externals {
		if b.AssignedGuideID != nil {
			conflicts[*b.AssignedGuideID] = struct{}{}
		}
	}

	return conflicts, nil
}
