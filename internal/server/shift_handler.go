package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tourops/guide-scheduler/internal/calendar"
	"github.com/tourops/guide-scheduler/internal/model"
	"github.com/tourops/guide-scheduler/internal/repository"
	"github.com/tourops/guide-scheduler/internal/service"
)

var validate = validator.New()

type GuideHandler struct {
	resolver *service.GuideConflictResolver
}

func NewGuideHandler(resolver *service.GuideConflictResolver) *GuideHandler {
	return &GuideHandler{resolver: resolver}
}

// GET /api/v1/guides/available?tour_type=&date=&slot=
func (h *GuideHandler) Available(c *gin.Context) {
	tourType := c.Query("tour_type")
	date, err := calendar.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guides, err := h.resolver.AvailableGuides(c.Request.Context(), tourType, date, c.Query("slot"))
	if err != nil {
		respondError(c, err)
		return
	}

	type guideOut struct {
		ID        uuid.UUID `json:"id"`
		FirstName string    `json:"firstName"`
		LastName  string    `json:"lastName"`
		Email     string    `json:"email"`
	}
	out := make([]guideOut, 0, len(guides))
	for _, g := range guides {
		out = append(out, guideOut{ID: g.ID, FirstName: g.FirstName, LastName: g.LastName, Email: g.Email})
	}
	c.JSON(http.StatusOK, gin.H{"guides": out})
}

type ShiftHandler struct {
	shifts repository.ShiftStore
}

func NewShiftHandler(shifts repository.ShiftStore) *ShiftHandler {
	return &ShiftHandler{shifts: shifts}
}

type createShiftRequest struct {
	EmployeeID string `json:"employeeId" validate:"required,uuid4"`
	TourType   string `json:"tourType" validate:"required"`
	ShiftDate  string `json:"shiftDate" validate:"required,datetime=2006-01-02"`
	TimeSlot   string `json:"timeSlot" validate:"required,datetime=15:04"`
}

// POST /api/v1/shifts — гид выставляет свою доступность.
func (h *ShiftHandler) Create(c *gin.Context) {
	var req createShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}
	date, err := calendar.ParseDate(req.ShiftDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shift := &model.ShiftAvailability{
		EmployeeID: employeeID,
		TourType:   req.TourType,
		ShiftDate:  datatypes.Date(date),
		TimeSlot:   req.TimeSlot,
		Status:     model.ShiftStatusAvailable,
	}
	if err := h.shifts.Create(c.Request.Context(), shift); err != nil {
		// Дубликат по (гид, тур, дата, слот) упирается в уникальный индекс.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, shift)
}
