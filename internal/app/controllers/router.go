package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/roackb2/rollout/internal/pkg/storage"
	"github.com/roackb2/rollout/internal/pkg/ws"
)

type RouterDeps struct {
	Stats   ws.StatsSource
	Storage storage.Storage
	Hub     *ws.Hub
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", NewHealthController(deps.Stats).Healthz)
	r.GET("/ws", NewWebsocketController(deps.Hub, deps.Stats).SocketHandler)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/stats", NewStatsController(deps.Stats).GetStats)
		if deps.Storage != nil {
			v1.GET("/runs/:id/reports", NewRunsController(deps.Storage).ListReports)
		}
	}
	return r
}
