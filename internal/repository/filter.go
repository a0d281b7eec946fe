package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/tourops/guide-scheduler/internal/model"
)

// BookingFilter — фильтр выборки бронирований для агрегатора.
// В сторы проталкиваются интервал дат и статусы; тип тура, гид и
// полнотекстовый поиск применяются агрегатором в памяти поверх
// объединённого результата.
type BookingFilter struct {
	From *time.Time
	To   *time.Time

	Statuses  []model.BookingStatus
	TourTypes []string
	GuideIDs  []uuid.UUID

	// Подстрока по имени или почте клиента.
	Search string
}
