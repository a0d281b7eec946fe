package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tourops/guide-scheduler/internal/calendar"
	"github.com/tourops/guide-scheduler/internal/model"
	"github.com/tourops/guide-scheduler/internal/repository"
	"github.com/tourops/guide-scheduler/internal/service"
)

type BookingHandler struct {
	aggregator *service.BookingAggregator
	assigner   *service.AutoAssignmentEngine
	log        *slog.Logger
}

func NewBookingHandler(
	aggregator *service.BookingAggregator,
	assigner *service.AutoAssignmentEngine,
	log *slog.Logger,
) *BookingHandler {
	return &BookingHandler{aggregator: aggregator, assigner: assigner, log: log}
}

// GET /api/v1/bookings
// Параметры: from, to (2006-01-02), status, tour_type (списки через
// запятую), guide_id, q (поиск по клиенту), page, page_size.
func (h *BookingHandler) List(c *gin.Context) {
	filter, err := parseBookingFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookings, err := h.aggregator.GetBookings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	p := calendar.Paginate(bookings, page, pageSize)

	c.JSON(http.StatusOK, gin.H{
		"bookings": p.Items,
		"meta": gin.H{
			"page":      p.Page,
			"page_size": p.PageSize,
			"total":     p.Total,
			"has_next":  p.HasNext,
		},
	})
}

// PUT /api/v1/bookings/:source/:id/guide
// source — local (числовой id журнала) или external (external_id зеркала).
func (h *BookingHandler) AssignGuide(c *gin.Context) {
	var in struct {
		GuideID string `json:"guideId" binding:"required"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	guideID, err := uuid.Parse(in.GuideID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guide id"})
		return
	}

	switch model.BookingSource(c.Param("source")) {
	case model.BookingSourceLocal:
		bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
			return
		}
		if err := h.assigner.AssignGuide(c.Request.Context(), uint(bookingID), guideID, in.Notes); err != nil {
			respondError(c, err)
			return
		}
	case model.BookingSourceExternal:
		if err := h.assigner.AssignExternalGuide(c.Request.Context(), c.Param("id"), guideID, in.Notes); err != nil {
			respondError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be local or external"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

// DELETE /api/v1/bookings/:source/:id/guide
func (h *BookingHandler) UnassignGuide(c *gin.Context) {
	switch model.BookingSource(c.Param("source")) {
	case model.BookingSourceLocal:
		bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
			return
		}
		if err := h.assigner.UnassignGuide(c.Request.Context(), uint(bookingID)); err != nil {
			respondError(c, err)
			return
		}
	case model.BookingSourceExternal:
		if err := h.assigner.UnassignExternalGuide(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be local or external"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unassigned"})
}

// POST /api/v1/assignments/auto
func (h *BookingHandler) AutoAssign(c *gin.Context) {
	report, err := h.assigner.AutoAssign(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func parseBookingFilter(c *gin.Context) (repository.BookingFilter, error) {
	var filter repository.BookingFilter

	if v := c.Query("from"); v != "" {
		d, err := calendar.ParseDate(v)
		if err != nil {
			return filter, err
		}
		filter.From = &d
	}
	if v := c.Query("to"); v != "" {
		d, err := calendar.ParseDate(v)
		if err != nil {
			return filter, err
		}
		filter.To = &d
	}
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			filter.Statuses = append(filter.Statuses, model.BookingStatus(strings.TrimSpace(s)))
		}
	}
	if v := c.Query("tour_type"); v != "" {
		for _, s := range strings.Split(v, ",") {
			filter.TourTypes = append(filter.TourTypes, strings.TrimSpace(s))
		}
	}
	if v := c.Query("guide_id"); v != "" {
		for _, s := range strings.Split(v, ",") {
			id, err := uuid.Parse(strings.TrimSpace(s))
			if err != nil {
				return filter, err
			}
			filter.GuideIDs = append(filter.GuideIDs, id)
		}
	}
	filter.Search = c.Query("q")

	return filter, nil
}
