package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roackb2/rollout/internal/pkg/ws"
)

type HealthController struct {
	source ws.StatsSource
}

func NewHealthController(source ws.StatsSource) *HealthController {
	return &HealthController{source: source}
}

// Healthz godoc
//
//	@Summary		Health check endpoint
//	@Description	Reports how many workers are still connected. Unhealthy once every spawned worker is gone.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Failure		503	{object}	map[string]any
//	@Router			/healthz [get]
func (hc *HealthController) Healthz(c *gin.Context) {
	if hc.source == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "workers": 0, "live_workers": 0})
		return
	}
	workers := hc.source.Stats().Workers
	live := 0
	for _, w := range workers {
		if !w.Closed {
			live++
		}
	}
	if len(workers) > 0 && live == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "workers": len(workers), "live_workers": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "workers": len(workers), "live_workers": live})
}
