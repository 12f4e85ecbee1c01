package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roackb2/rollout/internal/pkg/ws"
)

type StatsController struct {
	source ws.StatsSource
}

func NewStatsController(source ws.StatsSource) *StatsController {
	return &StatsController{source: source}
}

// GetStats godoc
//
//	@Summary		Collection statistics
//	@Description	Returns counters and worker statuses of the running collection
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	manager.Stats
//	@Failure		503	{object}	map[string]string	"No collection running"
//	@Router			/api/v1/stats [get]
func (sc *StatsController) GetStats(c *gin.Context) {
	if sc.source == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no collection running"})
		return
	}
	c.JSON(http.StatusOK, sc.source.Stats())
}
