// Пакет server — тонкий HTTP-слой поверх ядра: декодирование,
// валидация, коды ответов. Бизнес-логики здесь нет.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	scherrors "github.com/tourops/guide-scheduler/internal/errors"
	"github.com/tourops/guide-scheduler/internal/service"
)

type Deps struct {
	Aggregator *service.BookingAggregator
	Sync       *service.CacheSyncOrchestrator
	Resolver   *service.GuideConflictResolver
	Assigner   *service.AutoAssignmentEngine
	Shifts     *ShiftHandler

	Log *slog.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	bookings := NewBookingHandler(deps.Aggregator, deps.Assigner, deps.Log)
	sync := NewSyncHandler(deps.Sync)
	guides := NewGuideHandler(deps.Resolver)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/bookings", bookings.List)
		v1.PUT("/bookings/:source/:id/guide", bookings.AssignGuide)
		v1.DELETE("/bookings/:source/:id/guide", bookings.UnassignGuide)

		v1.POST("/cache/sync", sync.SyncAll)
		v1.GET("/cache/health", sync.Health)
		v1.POST("/cache/clear", sync.Clear)

		v1.POST("/assignments/auto", bookings.AutoAssign)

		v1.GET("/guides/available", guides.Available)
		v1.POST("/shifts", deps.Shifts.Create)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

// respondError переводит класс ошибки ядра в HTTP-код.
func respondError(c *gin.Context, err error) {
	switch {
	case scherrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case scherrors.IsConflictViolation(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case scherrors.IsSourceUnavailable(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
