package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tourops/guide-scheduler/internal/service"
)

type SyncHandler struct {
	sync *service.CacheSyncOrchestrator
}

func NewSyncHandler(sync *service.CacheSyncOrchestrator) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// POST /api/v1/cache/sync
func (h *SyncHandler) SyncAll(c *gin.Context) {
	report, err := h.sync.SyncAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /api/v1/cache/health
func (h *SyncHandler) Health(c *gin.Context) {
	report, err := h.sync.Health(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/v1/cache/clear
// Только форсированный полный ресинк; из путей чтения не вызывается.
func (h *SyncHandler) Clear(c *gin.Context) {
	if err := h.sync.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
